package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rl1809/food-order/internal/core/domain"
	"github.com/rl1809/food-order/internal/port"
)

type CheckoutRequest struct {
	CartItems       []domain.CartItem      `json:"cartItems"`
	DeliveryDetails domain.DeliveryDetails `json:"deliveryDetails"`
	RestaurantID    string                 `json:"restaurantId"`
}

func (r CheckoutRequest) Validate() error {
	switch {
	case r.RestaurantID == "":
		return fmt.Errorf("%w: restaurantId is required", ErrInvalidRequest)
	case len(r.CartItems) == 0:
		return fmt.Errorf("%w: cart is empty", ErrInvalidRequest)
	case !r.DeliveryDetails.Complete():
		return fmt.Errorf("%w: delivery details are incomplete", ErrInvalidRequest)
	}
	for _, item := range r.CartItems {
		if item.MenuItemID == "" {
			return fmt.Errorf("%w: cart item without menuItemId", ErrInvalidRequest)
		}
		if item.Name == "" {
			return fmt.Errorf("%w: cart item %s without name", ErrInvalidRequest, item.MenuItemID)
		}
	}
	return nil
}

type Dependencies struct {
	Orders      port.OrderRepository
	Restaurants port.RestaurantRepository
	Users       port.UserRepository
	Payments    port.PaymentGateway
	Ledger      port.EventLedger
	Events      port.EventPublisher // optional
	Backfill    *BackfillQueue
	Recorder    Recorder // optional
	Logger      *slog.Logger
}

type OrderService struct {
	orders      port.OrderRepository
	restaurants port.RestaurantRepository
	users       port.UserRepository
	payments    port.PaymentGateway
	ledger      port.EventLedger
	events      port.EventPublisher
	backfill    *BackfillQueue
	recorder    Recorder
	logger      *slog.Logger
	frontendURL string

	now   func() time.Time
	newID func() string
}

func NewOrderService(deps Dependencies, frontendURL string) *OrderService {
	recorder := deps.Recorder
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &OrderService{
		orders:      deps.Orders,
		restaurants: deps.Restaurants,
		users:       deps.Users,
		payments:    deps.Payments,
		ledger:      deps.Ledger,
		events:      deps.Events,
		backfill:    deps.Backfill,
		recorder:    recorder,
		logger:      deps.Logger.With("component", "order_service"),
		frontendURL: strings.TrimRight(frontendURL, "/"),
		now:         time.Now,
		newID:       func() string { return uuid.New().String() },
	}
}

// ListMyOrders returns the user's orders with restaurant and user populated. Orders
// stored without a total get one computed for the response and queued for saving.
func (s *OrderService) ListMyOrders(ctx context.Context, userID string) ([]domain.OrderView, error) {
	orders, err := s.orders.ListOrdersByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}

	restaurantIDs := make([]string, 0, len(orders))
	seen := make(map[string]bool, len(orders))
	for _, order := range orders {
		if !seen[order.RestaurantID] {
			seen[order.RestaurantID] = true
			restaurantIDs = append(restaurantIDs, order.RestaurantID)
		}
	}

	restaurants, err := s.restaurants.GetRestaurants(ctx, restaurantIDs)
	if err != nil {
		return nil, fmt.Errorf("load restaurants: %w", err)
	}

	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}

	views := make([]domain.OrderView, 0, len(orders))
	for _, order := range orders {
		view := domain.OrderView{Order: order, RestaurantID: order.RestaurantID, User: user}
		if restaurant, ok := restaurants[order.RestaurantID]; ok {
			view.Restaurant = &restaurant
		}

		if order.TotalAmount == nil {
			total := CalculateMissingOrderTotal(order.CartItems, view.Restaurant)
			view.TotalAmount = &total
			if s.backfill != nil {
				s.backfill.Submit(BackfillTask{OrderID: order.ID, TotalAmount: total})
			}
		}

		views = append(views, view)
	}

	return views, nil
}

// CreateCheckoutSession prices the cart, opens a provider session and stores the order
// as placed. The order is only written once the provider has returned a payable URL.
func (s *OrderService) CreateCheckoutSession(ctx context.Context, userID string, req CheckoutRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}

	restaurant, err := s.restaurants.GetRestaurant(ctx, req.RestaurantID)
	if err != nil {
		return "", fmt.Errorf("load restaurant: %w", err)
	}
	if restaurant == nil {
		return "", ErrRestaurantNotFound
	}

	total, err := CalculateOrderTotal(req.CartItems, restaurant.MenuItems, restaurant.DeliveryPrice)
	if err != nil {
		return "", err
	}

	lineItems, err := BuildLineItems(req.CartItems, restaurant.MenuItems)
	if err != nil {
		return "", err
	}

	order := domain.Order{
		ID:              s.newID(),
		RestaurantID:    restaurant.ID,
		UserID:          userID,
		DeliveryDetails: req.DeliveryDetails,
		CartItems:       req.CartItems,
		TotalAmount:     &total,
		Status:          domain.OrderStatusPlaced,
		CreatedAt:       s.now().UTC(),
	}

	session, err := s.payments.CreateCheckoutSession(ctx, port.CheckoutSessionRequest{
		LineItems:     lineItems,
		DeliveryPrice: restaurant.DeliveryPrice,
		OrderID:       order.ID,
		RestaurantID:  restaurant.ID,
		SuccessURL:    s.frontendURL + "/order-status?success=true",
		CancelURL:     fmt.Sprintf("%s/detail/%s?cancelled=true", s.frontendURL, restaurant.ID),
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrPaymentSession, err)
	}
	if session.URL == "" {
		return "", fmt.Errorf("%w: session %s has no url", ErrPaymentSession, session.ID)
	}

	if err := s.orders.CreateOrder(ctx, order); err != nil {
		if expireErr := s.payments.ExpireCheckoutSession(ctx, session.ID); expireErr != nil {
			s.logger.Error("failed to expire session for unsaved order",
				"order_id", order.ID, "session_id", session.ID, "error", expireErr)
		}
		return "", fmt.Errorf("create order: %w", err)
	}

	s.logger.Info("order placed", "order_id", order.ID, "restaurant_id", restaurant.ID,
		"user_id", userID, "total_amount", total)
	s.publish(ctx, port.OrderEventPlaced, order)

	return session.URL, nil
}

// HandlePaymentWebhook verifies a provider notification and marks the referenced order
// paid. An event is written to the ledger only after its effects are stored.
func (s *OrderService) HandlePaymentWebhook(ctx context.Context, payload []byte, signature string) error {
	event, err := s.payments.VerifyEvent(payload, signature)
	if err != nil {
		s.recorder.WebhookEvent("invalid_signature")
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	if event.Type != port.PaymentEventCheckoutCompleted {
		s.recorder.WebhookEvent("ignored")
		return nil
	}

	processed, err := s.ledger.EventProcessed(ctx, event.ID)
	if err != nil {
		return fmt.Errorf("look up event %s: %w", event.ID, err)
	}
	if processed {
		s.recorder.WebhookEvent("duplicate")
		s.logger.Info("duplicate webhook event", "event_id", event.ID)
		return nil
	}

	updated, err := s.reconcilePayment(ctx, event)
	if err != nil {
		s.recorder.WebhookEvent("failed")
		return err
	}

	// redelivery of an unrecorded event hits the compare-and-set and changes nothing
	if err := s.ledger.MarkEventProcessed(ctx, event.ID); err != nil {
		s.logger.Warn("failed to record webhook event", "event_id", event.ID, "error", err)
	}

	if updated {
		s.recorder.WebhookEvent("processed")
	} else {
		s.recorder.WebhookEvent("already_settled")
	}
	return nil
}

// reconcilePayment reports whether this event moved the order from placed to paid.
func (s *OrderService) reconcilePayment(ctx context.Context, event *port.PaymentEvent) (bool, error) {
	if event.OrderID == "" {
		return false, fmt.Errorf("%w: event %s has no order id", ErrOrderNotFound, event.ID)
	}

	updated, err := s.orders.MarkOrderPaid(ctx, event.OrderID, event.AmountTotal)
	if err != nil {
		return false, fmt.Errorf("mark order paid: %w", err)
	}

	order, err := s.orders.GetOrder(ctx, event.OrderID)
	if err != nil {
		return false, fmt.Errorf("load order: %w", err)
	}
	if order == nil {
		return false, ErrOrderNotFound
	}

	if !updated {
		s.logger.Info("order not awaiting payment, event acknowledged",
			"order_id", order.ID, "status", order.Status, "event_id", event.ID)
		return false, nil
	}

	s.logger.Info("order paid", "order_id", order.ID, "event_id", event.ID)
	s.publish(ctx, port.OrderEventPaid, *order)
	return true, nil
}

// DeleteOrder removes an order owned by userID unless it is being prepared.
func (s *OrderService) DeleteOrder(ctx context.Context, userID, orderID string) error {
	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return fmt.Errorf("load order: %w", err)
	}
	if order == nil {
		return ErrOrderNotFound
	}
	if order.UserID != userID {
		return ErrForbidden
	}
	if order.Status == domain.OrderStatusInProgress {
		return ErrOrderInProgress
	}

	deleted, err := s.orders.DeleteOrder(ctx, orderID, userID)
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	if !deleted {
		// lost a race with a status change or another delete
		current, err := s.orders.GetOrder(ctx, orderID)
		if err != nil {
			return fmt.Errorf("load order: %w", err)
		}
		if current == nil {
			return ErrOrderNotFound
		}
		return ErrOrderInProgress
	}

	s.logger.Info("order deleted", "order_id", orderID, "user_id", userID)
	s.publish(ctx, port.OrderEventDeleted, *order)
	return nil
}

func (s *OrderService) publish(ctx context.Context, event port.OrderEvent, order domain.Order) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishOrderEvent(ctx, event, order); err != nil {
		s.logger.Warn("failed to publish order event",
			"event", event, "order_id", order.ID, "error", err)
	}
}

// IsClientError reports whether err is caused by the request rather than the system.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrInvalidQuantity) ||
		errors.Is(err, ErrMenuItemNotFound)
}
