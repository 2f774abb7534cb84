package port

import (
	"context"

	"github.com/rl1809/food-order/internal/core/domain"
)

// Lookups return (nil, nil) when the record does not exist.

type OrderRepository interface {
	// CreateOrder persists a new order
	CreateOrder(ctx context.Context, order domain.Order) error

	// GetOrder retrieves an order by ID
	GetOrder(ctx context.Context, orderID string) (*domain.Order, error)

	// ListOrdersByUser returns the user's orders, newest first
	ListOrdersByUser(ctx context.Context, userID string) ([]domain.Order, error)

	// MarkOrderPaid moves an order from placed to paid, optionally overwriting its total.
	// Returns false when the order is not in placed status.
	MarkOrderPaid(ctx context.Context, orderID string, totalAmount *int64) (bool, error)

	// SetMissingTotal stores a total only if none is stored yet
	SetMissingTotal(ctx context.Context, orderID string, totalAmount int64) error

	// DeleteOrder removes the user's order unless it is in progress.
	// Returns false when no row matched the guard.
	DeleteOrder(ctx context.Context, orderID, userID string) (bool, error)
}

type RestaurantRepository interface {
	CreateRestaurant(ctx context.Context, restaurant domain.Restaurant) error
	GetRestaurant(ctx context.Context, restaurantID string) (*domain.Restaurant, error)
	GetRestaurants(ctx context.Context, restaurantIDs []string) (map[string]domain.Restaurant, error)
}

type UserRepository interface {
	CreateUser(ctx context.Context, user domain.User) error
	GetUser(ctx context.Context, userID string) (*domain.User, error)
	GetUserByAuthID(ctx context.Context, authID string) (*domain.User, error)
}
