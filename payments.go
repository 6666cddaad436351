package dinetap

import (
	"context"
	"net/http"
)

// PaymentIntent is the handle the Stripe-backed checkout hands to the client.
// The processor itself is the backend's concern; the SDK only relays the
// client secret.
type PaymentIntent struct {
	ID           string  `json:"id"`
	ClientSecret string  `json:"clientSecret"`
	Amount       float64 `json:"amount"`
	Currency     string  `json:"currency"`
	Status       string  `json:"status"`
}

// PaymentService starts and inspects checkouts.
type PaymentService struct {
	c *Client
}

// CreateIntent starts a checkout for an order.
func (s *PaymentService) CreateIntent(ctx context.Context, orderID string) (*PaymentIntent, error) {
	body := map[string]string{"orderId": orderID}
	var intent PaymentIntent
	if err := s.c.doJSON(ctx, http.MethodPost, "/api/payments/create-payment-intent", nil, body, &intent); err != nil {
		return nil, err
	}
	return &intent, nil
}

// Status fetches the state of a payment.
func (s *PaymentService) Status(ctx context.Context, paymentID string) (*PaymentIntent, error) {
	var intent PaymentIntent
	if err := s.c.doJSON(ctx, http.MethodGet, "/api/payments/"+paymentID, nil, nil, &intent); err != nil {
		return nil, err
	}
	return &intent, nil
}
