package mailer

import (
	"strings"
	"testing"

	"storefront/internal/models"
)

func TestFormatYen(t *testing.T) {
	tests := []struct {
		amount float64
		want   string
	}{
		{0, "0"},
		{500, "500"},
		{2000, "2,000"},
		{14300, "14,300"},
		{1234567, "1,234,567"},
		{-4500, "-4,500"},
	}
	for _, tt := range tests {
		if got := formatYen(tt.amount); got != tt.want {
			t.Errorf("formatYen(%v) = %q, want %q", tt.amount, got, tt.want)
		}
	}
}

func TestOrderConfirmationHTML(t *testing.T) {
	order := &models.Order{
		Items: []models.OrderItem{
			{Name: "linen shirt", Price: 2000, Quantity: 2},
			{Name: "coat <xl>", Price: 9800, Quantity: 1},
		},
		TotalPrice: 13800,
	}

	body := orderConfirmationHTML("Aiko", order)

	if !strings.Contains(body, "Thank you for your order, Aiko!") {
		t.Errorf("greeting missing from body: %s", body)
	}
	if !strings.Contains(body, "linen shirt - Quantity: 2 - ¥4,000") {
		t.Errorf("line item missing from body: %s", body)
	}
	if !strings.Contains(body, "Total Price: ¥13,800") {
		t.Errorf("total missing from body: %s", body)
	}
	if strings.Contains(body, "<xl>") {
		t.Errorf("product name not escaped: %s", body)
	}
}
