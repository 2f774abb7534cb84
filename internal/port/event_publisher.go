package port

import (
	"context"

	"github.com/rl1809/food-order/internal/core/domain"
)

type OrderEvent string

const (
	OrderEventPlaced  OrderEvent = "order.placed"
	OrderEventPaid    OrderEvent = "order.paid"
	OrderEventDeleted OrderEvent = "order.deleted"
)

type EventPublisher interface {
	PublishOrderEvent(ctx context.Context, event OrderEvent, order domain.Order) error
}
