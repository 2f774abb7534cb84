package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/rl1809/food-order/internal/core/domain"
	"github.com/rl1809/food-order/internal/port"
)

const (
	OrdersExchange = "orders_topic"
	publishTimeout = 5 * time.Second
)

// OrderMessage is the body published for every order event.
type OrderMessage struct {
	Event        port.OrderEvent    `json:"event"`
	OrderID      string             `json:"order_id"`
	RestaurantID string             `json:"restaurant_id"`
	UserID       string             `json:"user_id"`
	Status       domain.OrderStatus `json:"status"`
	TotalAmount  *int64             `json:"total_amount"`
	OccurredAt   time.Time          `json:"occurred_at"`
}

func NewOrderMessage(event port.OrderEvent, order domain.Order, at time.Time) OrderMessage {
	return OrderMessage{
		Event:        event,
		OrderID:      order.ID,
		RestaurantID: order.RestaurantID,
		UserID:       order.UserID,
		Status:       order.Status,
		TotalAmount:  order.TotalAmount,
		OccurredAt:   at.UTC(),
	}
}

type AMQPPublisher struct {
	url  string
	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewAMQPPublisher dials the broker and declares the orders exchange.
func NewAMQPPublisher(url string) (*AMQPPublisher, error) {
	p := &AMQPPublisher{url: url}
	if err := p.connect(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *AMQPPublisher) connect() error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return fmt.Errorf("dial rabbitmq: %w", err)
	}

	ch, err := openChannel(conn)
	if err != nil {
		conn.Close()
		return err
	}

	p.conn = conn
	p.ch = ch
	return nil
}

func openChannel(conn *amqp.Connection) (*amqp.Channel, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(OrdersExchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	return ch, nil
}

// ensureChannel redials a closed connection or reopens a channel the broker closed.
func (p *AMQPPublisher) ensureChannel() error {
	if p.conn == nil || p.conn.IsClosed() {
		if err := p.connect(); err != nil {
			return fmt.Errorf("reconnect: %w", err)
		}
		return nil
	}

	if p.ch == nil || p.ch.IsClosed() {
		ch, err := openChannel(p.conn)
		if err != nil {
			return fmt.Errorf("reopen channel: %w", err)
		}
		p.ch = ch
	}
	return nil
}

func (p *AMQPPublisher) PublishOrderEvent(ctx context.Context, event port.OrderEvent, order domain.Order) error {
	body, err := json.Marshal(NewOrderMessage(event, order, time.Now()))
	if err != nil {
		return fmt.Errorf("marshal order message: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.ensureChannel(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = p.ch.PublishWithContext(ctx, OrdersExchange, string(event), false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    order.ID,
		Timestamp:    time.Now(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", event, err)
	}
	return nil
}

func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ch != nil {
		p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
