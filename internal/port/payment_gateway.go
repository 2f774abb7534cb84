package port

import "context"

type LineItem struct {
	Currency    string
	UnitAmount  int64
	ProductName string
	Quantity    int64
}

type CheckoutSessionRequest struct {
	LineItems     []LineItem
	DeliveryPrice int64
	OrderID       string
	RestaurantID  string
	SuccessURL    string
	CancelURL     string
}

type CheckoutSession struct {
	ID  string
	URL string
}

type PaymentEventType string

const PaymentEventCheckoutCompleted PaymentEventType = "checkout.session.completed"

// PaymentEvent is a verified provider notification.
type PaymentEvent struct {
	ID          string
	Type        PaymentEventType
	OrderID     string
	AmountTotal *int64
}

type PaymentGateway interface {
	CreateCheckoutSession(ctx context.Context, req CheckoutSessionRequest) (*CheckoutSession, error)

	// ExpireCheckoutSession makes an open session unpayable
	ExpireCheckoutSession(ctx context.Context, sessionID string) error

	// VerifyEvent authenticates a raw webhook payload against its signature header
	VerifyEvent(payload []byte, signature string) (*PaymentEvent, error)
}
