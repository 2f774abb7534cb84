package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/rl1809/food-order/internal/core/domain"
	"github.com/rl1809/food-order/internal/core/service"
	"github.com/rl1809/food-order/internal/port"
)

const (
	testJWTSecret = "test-jwt-secret"
	validSig      = "t=1,v1=valid"
)

// fakeStore backs orders, restaurants and users in memory.
type fakeStore struct {
	mu          sync.Mutex
	orders      map[string]domain.Order
	restaurants map[string]domain.Restaurant
	users       map[string]domain.User
	listErr     error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		orders:      make(map[string]domain.Order),
		restaurants: make(map[string]domain.Restaurant),
		users:       make(map[string]domain.User),
	}
}

func (f *fakeStore) CreateOrder(ctx context.Context, order domain.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders[order.ID] = order
	return nil
}

func (f *fakeStore) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[orderID]
	if !ok {
		return nil, nil
	}
	return &order, nil
}

func (f *fakeStore) ListOrdersByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var result []domain.Order
	for _, o := range f.orders {
		if o.UserID == userID {
			result = append(result, o)
		}
	}
	return result, nil
}

func (f *fakeStore) MarkOrderPaid(ctx context.Context, orderID string, totalAmount *int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[orderID]
	if !ok || order.Status != domain.OrderStatusPlaced {
		return false, nil
	}
	order.Status = domain.OrderStatusPaid
	if totalAmount != nil {
		order.TotalAmount = totalAmount
	}
	f.orders[orderID] = order
	return true, nil
}

func (f *fakeStore) SetMissingTotal(ctx context.Context, orderID string, totalAmount int64) error {
	return nil
}

func (f *fakeStore) DeleteOrder(ctx context.Context, orderID, userID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[orderID]
	if !ok || order.UserID != userID || order.Status == domain.OrderStatusInProgress {
		return false, nil
	}
	delete(f.orders, orderID)
	return true, nil
}

func (f *fakeStore) CreateRestaurant(ctx context.Context, restaurant domain.Restaurant) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.restaurants[restaurant.ID] = restaurant
	return nil
}

func (f *fakeStore) GetRestaurant(ctx context.Context, restaurantID string) (*domain.Restaurant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.restaurants[restaurantID]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (f *fakeStore) GetRestaurants(ctx context.Context, restaurantIDs []string) (map[string]domain.Restaurant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	result := make(map[string]domain.Restaurant)
	for _, id := range restaurantIDs {
		if r, ok := f.restaurants[id]; ok {
			result[id] = r
		}
	}
	return result, nil
}

func (f *fakeStore) CreateUser(ctx context.Context, user domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[user.ID] = user
	return nil
}

func (f *fakeStore) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (f *fakeStore) GetUserByAuthID(ctx context.Context, authID string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.AuthID == authID {
			return &u, nil
		}
	}
	return nil, nil
}

type fakeGateway struct {
	event      *port.PaymentEvent
	sessionErr error
}

func (g *fakeGateway) CreateCheckoutSession(ctx context.Context, req port.CheckoutSessionRequest) (*port.CheckoutSession, error) {
	if g.sessionErr != nil {
		return nil, g.sessionErr
	}
	return &port.CheckoutSession{ID: "cs_1", URL: "https://pay.example/cs_1"}, nil
}

func (g *fakeGateway) ExpireCheckoutSession(ctx context.Context, sessionID string) error {
	return nil
}

func (g *fakeGateway) VerifyEvent(payload []byte, signature string) (*port.PaymentEvent, error) {
	if signature != validSig {
		return nil, errors.New("no signatures found matching the expected signature for payload")
	}
	return g.event, nil
}

type fakeLedger struct {
	mu   sync.Mutex
	seen map[string]bool
}

func (l *fakeLedger) EventProcessed(ctx context.Context, eventID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.seen[eventID], nil
}

func (l *fakeLedger) MarkEventProcessed(ctx context.Context, eventID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.seen == nil {
		l.seen = make(map[string]bool)
	}
	l.seen[eventID] = true
	return nil
}

type testEnv struct {
	store   *fakeStore
	gateway *fakeGateway
	service *service.OrderService
	auth    *Authenticator
	logger  *slog.Logger
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := newFakeStore()
	gateway := &fakeGateway{}

	store.CreateUser(context.Background(), domain.User{ID: "user-1", AuthID: "auth0|alice", Email: "alice@example.com"})
	store.CreateUser(context.Background(), domain.User{ID: "user-2", AuthID: "auth0|bob", Email: "bob@example.com"})
	store.CreateRestaurant(context.Background(), domain.Restaurant{
		ID:            "rest-1",
		Name:          "Test Kitchen",
		DeliveryPrice: 300,
		MenuItems: []domain.MenuItem{
			{ID: "item-a", Name: "Margherita", Price: 500},
			{ID: "item-b", Name: "Pepperoni", Price: 1000},
		},
	})

	backfill := service.NewBackfillQueue(store, 10, nil, logger)
	t.Cleanup(backfill.Close)

	svc := service.NewOrderService(service.Dependencies{
		Orders:      store,
		Restaurants: store,
		Users:       store,
		Payments:    gateway,
		Ledger:      &fakeLedger{},
		Backfill:    backfill,
		Logger:      logger,
	}, "https://shop.example")

	return &testEnv{
		store:   store,
		gateway: gateway,
		service: svc,
		auth:    NewAuthenticator(testJWTSecret, "", "", store),
		logger:  logger,
	}
}

func (e *testEnv) addOrder(id, userID string, status domain.OrderStatus) {
	total := int64(1300)
	e.store.CreateOrder(context.Background(), domain.Order{
		ID:           id,
		RestaurantID: "rest-1",
		UserID:       userID,
		DeliveryDetails: domain.DeliveryDetails{
			Email: "alice@example.com", Name: "Alice", AddressLine1: "1 Main", City: "Almaty",
		},
		CartItems:   []domain.CartItem{{MenuItemID: "item-a", Name: "Margherita", Quantity: "2"}},
		TotalAmount: &total,
		Status:      status,
		CreatedAt:   time.Now().UTC(),
	})
}

func signToken(t *testing.T, subject string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := token.SignedString([]byte(testJWTSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}
