package payment

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/client"
	"github.com/stripe/stripe-go/v81/webhook"

	"github.com/rl1809/food-order/internal/port"
)

const (
	metadataOrderID      = "orderId"
	metadataRestaurantID = "restaurantId"
	deliveryDisplayName  = "Delivery"
)

// sessionClient is the part of the Stripe checkout session API in use.
type sessionClient interface {
	New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	Expire(id string, params *stripe.CheckoutSessionExpireParams) (*stripe.CheckoutSession, error)
}

type StripeAdapter struct {
	sessions      sessionClient
	webhookSecret string
}

func NewStripeAdapter(api *client.API, webhookSecret string) *StripeAdapter {
	return &StripeAdapter{sessions: api.CheckoutSessions, webhookSecret: webhookSecret}
}

func buildSessionParams(req port.CheckoutSessionRequest) *stripe.CheckoutSessionParams {
	lineItems := make([]*stripe.CheckoutSessionLineItemParams, 0, len(req.LineItems))
	for _, item := range req.LineItems {
		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(item.Currency),
				UnitAmount: stripe.Int64(item.UnitAmount),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(item.ProductName),
				},
			},
			Quantity: stripe.Int64(item.Quantity),
		})
	}

	currency := string(stripe.CurrencyUSD)
	if len(req.LineItems) > 0 {
		currency = req.LineItems[0].Currency
	}

	params := &stripe.CheckoutSessionParams{
		LineItems: lineItems,
		ShippingOptions: []*stripe.CheckoutSessionShippingOptionParams{
			{
				ShippingRateData: &stripe.CheckoutSessionShippingOptionShippingRateDataParams{
					DisplayName: stripe.String(deliveryDisplayName),
					Type:        stripe.String("fixed_amount"),
					FixedAmount: &stripe.CheckoutSessionShippingOptionShippingRateDataFixedAmountParams{
						Amount:   stripe.Int64(req.DeliveryPrice),
						Currency: stripe.String(currency),
					},
				},
			},
		},
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(req.SuccessURL),
		CancelURL:  stripe.String(req.CancelURL),
	}
	params.AddMetadata(metadataOrderID, req.OrderID)
	params.AddMetadata(metadataRestaurantID, req.RestaurantID)
	return params
}

func (s *StripeAdapter) CreateCheckoutSession(ctx context.Context, req port.CheckoutSessionRequest) (*port.CheckoutSession, error) {
	params := buildSessionParams(req)
	params.Context = ctx

	session, err := s.sessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("create stripe session: %w", err)
	}

	return &port.CheckoutSession{ID: session.ID, URL: session.URL}, nil
}

func (s *StripeAdapter) ExpireCheckoutSession(ctx context.Context, sessionID string) error {
	params := &stripe.CheckoutSessionExpireParams{}
	params.Context = ctx

	if _, err := s.sessions.Expire(sessionID, params); err != nil {
		return fmt.Errorf("expire stripe session %s: %w", sessionID, err)
	}
	return nil
}

// completedSession holds the fields read from a checkout session object. AmountTotal is
// a pointer so an absent amount can be told apart from zero.
type completedSession struct {
	Metadata    map[string]string `json:"metadata"`
	AmountTotal *int64            `json:"amount_total"`
}

func (s *StripeAdapter) VerifyEvent(payload []byte, signature string) (*port.PaymentEvent, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, s.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, err
	}

	result := &port.PaymentEvent{
		ID:   event.ID,
		Type: port.PaymentEventType(event.Type),
	}
	if result.Type != port.PaymentEventCheckoutCompleted || event.Data == nil {
		return result, nil
	}

	var session completedSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return nil, fmt.Errorf("decode checkout session: %w", err)
	}
	result.OrderID = session.Metadata[metadataOrderID]
	result.AmountTotal = session.AmountTotal

	return result, nil
}
