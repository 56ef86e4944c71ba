package handlers

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/checkout/session"
)

type checkoutItemRequest struct {
	Name     string `json:"name" binding:"required"`
	Price    int64  `json:"price" binding:"required,gte=0"`
	Quantity int64  `json:"quantity" binding:"required,gte=1"`
}

type checkoutSessionRequest struct {
	Items []checkoutItemRequest `json:"items" binding:"required,min=1"`
}

// CreateCheckoutSession opens a Stripe Checkout session for a one-time card
// payment in yen. Payment is a separate concern from order placement: the
// stock decrement and ledger write happen in POST /orders, not here.
func CreateCheckoutSession(frontendURL string) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /payments/checkout-session"
		defer handlePanic(c, route)

		var req checkoutSessionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid checkout payload")
			return
		}

		lineItems := make([]*stripe.CheckoutSessionLineItemParams, 0, len(req.Items))
		for _, item := range req.Items {
			lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(string(stripe.CurrencyJPY)),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(strings.TrimSpace(item.Name)),
					},
					// Yen has no subunit, so the amount is the price as-is.
					UnitAmount: stripe.Int64(item.Price),
				},
				Quantity: stripe.Int64(item.Quantity),
			})
		}

		params := &stripe.CheckoutSessionParams{
			Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
			PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
			LineItems:          lineItems,
			SuccessURL:         stripe.String(frontendURL + "/complete"),
			CancelURL:          stripe.String(frontendURL + "/cart"),
		}

		s, err := session.New(params)
		if err != nil {
			log.Printf("[%s] stripe session error: %v", route, err)
			respondWithError(c, http.StatusInternalServerError, route, "failed to create checkout session")
			return
		}

		c.JSON(http.StatusOK, gin.H{"id": s.ID})
	}
}
