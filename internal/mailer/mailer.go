// Package mailer sends transactional email through Resend. Delivery is a
// best-effort channel: callers log failures and move on.
package mailer

import (
	"context"
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/resend/resend-go/v2"

	"storefront/internal/models"
)

type Mailer struct {
	client *resend.Client
	from   string
}

func New(apiKey, from string) *Mailer {
	return &Mailer{
		client: resend.NewClient(apiKey),
		from:   from,
	}
}

// SendOrderConfirmation emails the order summary to the buyer.
func (m *Mailer) SendOrderConfirmation(ctx context.Context, to, name string, order *models.Order) error {
	if strings.TrimSpace(to) == "" {
		return fmt.Errorf("recipient address is empty")
	}

	params := &resend.SendEmailRequest{
		From:    m.from,
		To:      []string{to},
		Subject: "【Fashion Store】Thank you for your order!",
		Html:    orderConfirmationHTML(name, order),
	}

	_, err := m.client.Emails.SendWithContext(ctx, params)
	return err
}

func orderConfirmationHTML(name string, order *models.Order) string {
	var b strings.Builder
	b.WriteString("<h2>Thank you for your order")
	if strings.TrimSpace(name) != "" {
		b.WriteString(", " + html.EscapeString(name))
	}
	b.WriteString("!</h2>")
	b.WriteString("<p>We've received your order with the following details:</p><ul>")
	for _, item := range order.Items {
		b.WriteString(fmt.Sprintf(
			"<li>%s - Quantity: %d - ¥%s</li>",
			html.EscapeString(item.Name),
			item.Quantity,
			formatYen(item.Price*float64(item.Quantity)),
		))
	}
	b.WriteString("</ul>")
	b.WriteString(fmt.Sprintf("<p>Total Price: ¥%s</p>", formatYen(order.TotalPrice)))
	return b.String()
}

// formatYen renders an amount with thousands separators, dropping the
// fractional part (yen has no subunit).
func formatYen(amount float64) string {
	digits := strconv.FormatInt(int64(amount), 10)

	negative := strings.HasPrefix(digits, "-")
	if negative {
		digits = digits[1:]
	}

	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if negative {
		return "-" + b.String()
	}
	return b.String()
}
