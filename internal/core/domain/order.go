package domain

import (
	"errors"
	"time"
)

type OrderStatus string

const (
	OrderStatusPlaced         OrderStatus = "placed"
	OrderStatusPaid           OrderStatus = "paid"
	OrderStatusInProgress     OrderStatus = "inProgress"
	OrderStatusOutForDelivery OrderStatus = "outForDelivery"
	OrderStatusDelivered      OrderStatus = "delivered"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPlaced, OrderStatusPaid, OrderStatusInProgress,
		OrderStatusOutForDelivery, OrderStatusDelivered:
		return true
	}
	return false
}

var ErrInvalidRecord = errors.New("invalid record")

type DeliveryDetails struct {
	Email        string `json:"email"`
	Name         string `json:"name"`
	AddressLine1 string `json:"addressLine1"`
	City         string `json:"city"`
}

func (d DeliveryDetails) Complete() bool {
	return d.Email != "" && d.Name != "" && d.AddressLine1 != "" && d.City != ""
}

// CartItem is what the customer submitted. Quantity stays textual until priced,
// and Name is a display copy only; the menu is authoritative.
type CartItem struct {
	MenuItemID string `json:"menuItemId"`
	Name       string `json:"name"`
	Quantity   string `json:"quantity"`
}

type Order struct {
	ID              string          `json:"_id"`
	RestaurantID    string          `json:"restaurant"`
	UserID          string          `json:"user"`
	DeliveryDetails DeliveryDetails `json:"deliveryDetails"`
	CartItems       []CartItem      `json:"cartItems"`
	TotalAmount     *int64          `json:"totalAmount"` // nil when never persisted
	Status          OrderStatus     `json:"status"`
	CreatedAt       time.Time       `json:"createdAt"`
}

// Validate checks the fields the store requires before a write.
func (o Order) Validate() error {
	switch {
	case o.ID == "":
		return errors.Join(ErrInvalidRecord, errors.New("order id is required"))
	case o.RestaurantID == "":
		return errors.Join(ErrInvalidRecord, errors.New("order restaurant is required"))
	case o.UserID == "":
		return errors.Join(ErrInvalidRecord, errors.New("order user is required"))
	case !o.DeliveryDetails.Complete():
		return errors.Join(ErrInvalidRecord, errors.New("order delivery details are incomplete"))
	case !o.Status.Valid():
		return errors.Join(ErrInvalidRecord, errors.New("order status is invalid"))
	}
	for _, item := range o.CartItems {
		if item.MenuItemID == "" || item.Quantity == "" || item.Name == "" {
			return errors.Join(ErrInvalidRecord, errors.New("cart item is incomplete"))
		}
	}
	return nil
}

// OrderView is an order with its referenced records populated for display.
// RestaurantID stays set when the restaurant no longer exists.
type OrderView struct {
	Order
	RestaurantID string      `json:"restaurantId"`
	Restaurant   *Restaurant `json:"restaurant"`
	User         *User       `json:"user"`
}
