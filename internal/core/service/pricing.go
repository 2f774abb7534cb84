package service

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/rl1809/food-order/internal/core/domain"
	"github.com/rl1809/food-order/internal/port"
)

const (
	currency = "usd"

	// MaxQuantity is the largest quantity the payment provider accepts per line item.
	MaxQuantity = 999999
)

func parseQuantity(raw string) (int64, error) {
	quantity, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || quantity <= 0 || quantity > MaxQuantity {
		return 0, fmt.Errorf("%w: %q", ErrInvalidQuantity, raw)
	}
	return quantity, nil
}

// addLine returns total + price*quantity, or false if the result would not fit in int64.
func addLine(total, price, quantity int64) (int64, bool) {
	if price < 0 || total < 0 {
		return total, false
	}
	if price > 0 && quantity > (math.MaxInt64-total)/price {
		return total, false
	}
	return total + price*quantity, true
}

func findMenuItem(menu []domain.MenuItem, menuItemID string) (domain.MenuItem, bool) {
	for _, item := range menu {
		if item.ID == menuItemID {
			return item, true
		}
	}
	return domain.MenuItem{}, false
}

// CalculateOrderTotal prices a cart against the restaurant menu. Every cart item must
// resolve to a menu item and carry a positive integer quantity.
func CalculateOrderTotal(cart []domain.CartItem, menu []domain.MenuItem, deliveryPrice int64) (int64, error) {
	var total int64
	for _, cartItem := range cart {
		menuItem, ok := findMenuItem(menu, cartItem.MenuItemID)
		if !ok {
			return 0, fmt.Errorf("%w: %s", ErrMenuItemNotFound, cartItem.MenuItemID)
		}

		quantity, err := parseQuantity(cartItem.Quantity)
		if err != nil {
			return 0, err
		}

		total, ok = addLine(total, menuItem.Price, quantity)
		if !ok {
			return 0, fmt.Errorf("%w: total of %s is out of range", ErrInvalidQuantity, cartItem.MenuItemID)
		}
	}

	total, ok := addLine(total, deliveryPrice, 1)
	if !ok {
		return 0, fmt.Errorf("%w: order total is out of range", ErrInvalidQuantity)
	}
	return total, nil
}

// CalculateMissingOrderTotal is the best-effort variant used for stored orders that
// never got a total. Items that no longer resolve, or whose quantity does not parse,
// contribute nothing.
func CalculateMissingOrderTotal(cart []domain.CartItem, restaurant *domain.Restaurant) int64 {
	if restaurant == nil {
		return 0
	}

	var total int64
	for _, cartItem := range cart {
		menuItem, ok := findMenuItem(restaurant.MenuItems, cartItem.MenuItemID)
		if !ok {
			continue
		}
		quantity, err := parseQuantity(cartItem.Quantity)
		if err != nil {
			continue
		}
		if next, ok := addLine(total, menuItem.Price, quantity); ok {
			total = next
		}
	}

	if restaurant.DeliveryPrice > 0 {
		if next, ok := addLine(total, restaurant.DeliveryPrice, 1); ok {
			total = next
		}
	}

	return total
}

// BuildLineItems maps each cart entry to a provider line item in cart order. The menu
// name and price are used, never the copies sent by the client.
func BuildLineItems(cart []domain.CartItem, menu []domain.MenuItem) ([]port.LineItem, error) {
	lineItems := make([]port.LineItem, 0, len(cart))
	for _, cartItem := range cart {
		menuItem, ok := findMenuItem(menu, cartItem.MenuItemID)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMenuItemNotFound, cartItem.MenuItemID)
		}

		quantity, err := parseQuantity(cartItem.Quantity)
		if err != nil {
			return nil, err
		}

		lineItems = append(lineItems, port.LineItem{
			Currency:    currency,
			UnitAmount:  menuItem.Price,
			ProductName: menuItem.Name,
			Quantity:    quantity,
		})
	}
	return lineItems, nil
}
