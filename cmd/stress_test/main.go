package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stripe/stripe-go/v81/client"
	"github.com/stripe/stripe-go/v81/webhook"

	"github.com/rl1809/food-order/internal/adapter/payment"
	"github.com/rl1809/food-order/internal/adapter/storage"
	"github.com/rl1809/food-order/internal/config"
	"github.com/rl1809/food-order/internal/core/domain"
	"github.com/rl1809/food-order/internal/core/service"
	"github.com/rl1809/food-order/internal/logger"
)

// Replays one checkout.session.completed event concurrently and checks that exactly
// one delivery marks the order paid. Repeats are either found in the ledger or lose the
// placed->paid compare-and-set.

const (
	webhookSecret   = "whsec_stress_test"
	totalDeliveries = 50
	orderTotal      = 2300
)

type outcomeCounter struct {
	mu       sync.Mutex
	outcomes map[string]int
}

func (c *outcomeCounter) BackfillResult(string) {}

func (c *outcomeCounter) WebhookEvent(result string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.outcomes[result]++
}

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Initialize MySQL
	db, err := sql.Open("mysql", cfg.MySQL.DSN)
	if err != nil {
		log.Fatalf("failed to connect mysql: %v", err)
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("failed to ping mysql: %v", err)
	}
	if err := storage.Migrate(ctx, db); err != nil {
		log.Fatalf("failed to migrate: %v", err)
	}

	// Initialize Redis
	rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("failed to connect redis: %v", err)
	}
	defer rdb.Close()

	mysqlAdapter := storage.NewMySQLAdapter(db)

	// Seed an order awaiting payment
	order := domain.Order{
		ID:           uuid.New().String(),
		RestaurantID: "stress-restaurant",
		UserID:       "stress-user",
		DeliveryDetails: domain.DeliveryDetails{
			Email: "stress@example.com", Name: "Stress", AddressLine1: "1 Load St", City: "Almaty",
		},
		CartItems: []domain.CartItem{{MenuItemID: "stress-item", Name: "Stress Pizza", Quantity: "2"}},
		Status:    domain.OrderStatusPlaced,
		CreatedAt: time.Now().UTC(),
	}
	if err := mysqlAdapter.CreateOrder(ctx, order); err != nil {
		log.Fatalf("failed to seed order: %v", err)
	}
	defer db.ExecContext(ctx, `DELETE FROM orders WHERE id = ?`, order.ID)

	eventID := "evt_stress_" + uuid.New().String()
	defer rdb.Del(ctx, "webhook:event:"+eventID)

	counter := &outcomeCounter{outcomes: make(map[string]int)}
	orderService := service.NewOrderService(service.Dependencies{
		Orders:      mysqlAdapter,
		Restaurants: mysqlAdapter,
		Users:       mysqlAdapter,
		Payments:    payment.NewStripeAdapter(client.New("sk_test_unused", nil), webhookSecret),
		Ledger:      storage.NewRedisAdapter(rdb),
		Recorder:    counter,
		Logger:      logger.New("stress-test", "warn"),
	}, "http://localhost:3000")

	body := fmt.Sprintf(`{"id":%q,"object":"event","type":"checkout.session.completed",
		"data":{"object":{"id":"cs_stress","object":"checkout.session","amount_total":%d,
		"metadata":{"orderId":%q}}}}`, eventID, orderTotal, order.ID)
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   []byte(body),
		Secret:    webhookSecret,
		Timestamp: time.Now(),
	})

	var failCount atomic.Int32

	// Spawn concurrent deliveries
	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < totalDeliveries; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := orderService.HandlePaymentWebhook(ctx, signed.Payload, signed.Header); err != nil {
				failCount.Add(1)
			}
		}()
	}

	wg.Wait()
	elapsed := time.Since(start)

	processed := counter.outcomes["processed"]
	duplicates := counter.outcomes["duplicate"] + counter.outcomes["already_settled"]

	fmt.Println("========== WEBHOOK STRESS RESULTS ==========")
	fmt.Printf("Deliveries:       %d\n", totalDeliveries)
	fmt.Printf("Processed:        %d\n", processed)
	fmt.Printf("Duplicates:       %d\n", duplicates)
	fmt.Printf("Failed:           %d\n", failCount.Load())
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("============================================")

	if processed == 1 && duplicates == totalDeliveries-1 {
		fmt.Println("PASS: Exactly one delivery processed")
	} else {
		fmt.Printf("FAIL: Expected 1 processed/%d duplicates, got %d/%d\n",
			totalDeliveries-1, processed, duplicates)
	}

	// Verify final order state in MySQL
	stored, err := mysqlAdapter.GetOrder(ctx, order.ID)
	if err != nil || stored == nil {
		log.Fatalf("failed to reload order: %v", err)
	}
	fmt.Printf("Final Status:     %s\n", stored.Status)

	if stored.Status == domain.OrderStatusPaid && stored.TotalAmount != nil && *stored.TotalAmount == orderTotal {
		fmt.Println("PASS: Order paid with provider total")
	} else {
		fmt.Printf("FAIL: Expected paid order with total %d, got %s %v\n", orderTotal, stored.Status, stored.TotalAmount)
	}
}
