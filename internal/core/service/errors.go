package service

import "errors"

var (
	ErrInvalidRequest     = errors.New("invalid request")
	ErrInvalidQuantity    = errors.New("invalid quantity")
	ErrMenuItemNotFound   = errors.New("menu item not found")
	ErrRestaurantNotFound = errors.New("restaurant not found")
	ErrOrderNotFound      = errors.New("order not found")
	ErrForbidden          = errors.New("order belongs to another user")
	ErrOrderInProgress    = errors.New("cannot delete order that is in progress")
	ErrPaymentSession     = errors.New("payment session could not be created")
	ErrInvalidSignature   = errors.New("invalid webhook signature")
)
