package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rl1809/food-order/internal/core/domain"
)

type MySQLAdapter struct {
	db  *sql.DB
	now func() time.Time
}

func NewMySQLAdapter(db *sql.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db, now: time.Now}
}

const orderColumns = `id, restaurant_id, user_id, delivery_details, cart_items, total_amount, status, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (domain.Order, error) {
	var (
		order        domain.Order
		deliveryJSON []byte
		cartJSON     []byte
		total        sql.NullInt64
		status       string
	)
	err := row.Scan(&order.ID, &order.RestaurantID, &order.UserID, &deliveryJSON, &cartJSON,
		&total, &status, &order.CreatedAt)
	if err != nil {
		return domain.Order{}, err
	}

	if err := json.Unmarshal(deliveryJSON, &order.DeliveryDetails); err != nil {
		return domain.Order{}, fmt.Errorf("decode delivery details of order %s: %w", order.ID, err)
	}
	if err := json.Unmarshal(cartJSON, &order.CartItems); err != nil {
		return domain.Order{}, fmt.Errorf("decode cart items of order %s: %w", order.ID, err)
	}
	if total.Valid {
		amount := total.Int64
		order.TotalAmount = &amount
	}
	order.Status = domain.OrderStatus(status)
	return order, nil
}

func (m *MySQLAdapter) CreateOrder(ctx context.Context, order domain.Order) error {
	if err := order.Validate(); err != nil {
		return err
	}

	deliveryJSON, err := json.Marshal(order.DeliveryDetails)
	if err != nil {
		return fmt.Errorf("encode delivery details: %w", err)
	}
	cartJSON, err := json.Marshal(order.CartItems)
	if err != nil {
		return fmt.Errorf("encode cart items: %w", err)
	}

	var total sql.NullInt64
	if order.TotalAmount != nil {
		total = sql.NullInt64{Int64: *order.TotalAmount, Valid: true}
	}

	_, err = m.db.ExecContext(ctx, `
		INSERT INTO orders (id, restaurant_id, user_id, delivery_details, cart_items,
			total_amount, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		order.ID, order.RestaurantID, order.UserID, deliveryJSON, cartJSON,
		total, order.Status, order.CreatedAt, m.now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	row := m.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = ?`, orderID)
	order, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query order: %w", err)
	}
	return &order, nil
}

func (m *MySQLAdapter) ListOrdersByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT `+orderColumns+`
		FROM orders WHERE user_id = ?
		ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orders: %w", err)
	}
	return orders, nil
}

func (m *MySQLAdapter) MarkOrderPaid(ctx context.Context, orderID string, totalAmount *int64) (bool, error) {
	var total sql.NullInt64
	if totalAmount != nil {
		total = sql.NullInt64{Int64: *totalAmount, Valid: true}
	}

	result, err := m.db.ExecContext(ctx, `
		UPDATE orders
		SET status = ?, total_amount = COALESCE(?, total_amount), updated_at = ?
		WHERE id = ? AND status = ?`,
		domain.OrderStatusPaid, total, m.now().UTC(), orderID, domain.OrderStatusPlaced,
	)
	if err != nil {
		return false, fmt.Errorf("update order status: %w", err)
	}

	rows, _ := result.RowsAffected()
	return rows == 1, nil
}

func (m *MySQLAdapter) SetMissingTotal(ctx context.Context, orderID string, totalAmount int64) error {
	_, err := m.db.ExecContext(ctx, `
		UPDATE orders SET total_amount = ?, updated_at = ?
		WHERE id = ? AND total_amount IS NULL`,
		totalAmount, m.now().UTC(), orderID,
	)
	if err != nil {
		return fmt.Errorf("update order total: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) DeleteOrder(ctx context.Context, orderID, userID string) (bool, error) {
	result, err := m.db.ExecContext(ctx, `
		DELETE FROM orders WHERE id = ? AND user_id = ? AND status <> ?`,
		orderID, userID, domain.OrderStatusInProgress,
	)
	if err != nil {
		return false, fmt.Errorf("delete order: %w", err)
	}

	rows, _ := result.RowsAffected()
	return rows == 1, nil
}

func (m *MySQLAdapter) CreateRestaurant(ctx context.Context, restaurant domain.Restaurant) error {
	if err := restaurant.Validate(); err != nil {
		return err
	}

	cuisines := restaurant.Cuisines
	if cuisines == nil {
		cuisines = []string{}
	}
	cuisinesJSON, err := json.Marshal(cuisines)
	if err != nil {
		return fmt.Errorf("encode cuisines: %w", err)
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO restaurants (id, owner_id, name, city, country, delivery_price,
			estimated_delivery_time, cuisines, image_url, last_updated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		restaurant.ID, restaurant.OwnerID, restaurant.Name, restaurant.City, restaurant.Country,
		restaurant.DeliveryPrice, restaurant.EstimatedDeliveryTime, cuisinesJSON,
		restaurant.ImageURL, restaurant.LastUpdated,
	)
	if err != nil {
		return fmt.Errorf("insert restaurant: %w", err)
	}

	for i, item := range restaurant.MenuItems {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO menu_items (id, restaurant_id, position, name, price)
			VALUES (?, ?, ?, ?, ?)`,
			item.ID, restaurant.ID, i, item.Name, item.Price,
		)
		if err != nil {
			return fmt.Errorf("insert menu item %s: %w", item.ID, err)
		}
	}

	return tx.Commit()
}

func (m *MySQLAdapter) GetRestaurant(ctx context.Context, restaurantID string) (*domain.Restaurant, error) {
	restaurants, err := m.GetRestaurants(ctx, []string{restaurantID})
	if err != nil {
		return nil, err
	}
	restaurant, ok := restaurants[restaurantID]
	if !ok {
		return nil, nil
	}
	return &restaurant, nil
}

// GetRestaurants loads restaurants with their menus, keyed by ID. Unknown IDs are absent.
func (m *MySQLAdapter) GetRestaurants(ctx context.Context, restaurantIDs []string) (map[string]domain.Restaurant, error) {
	result := make(map[string]domain.Restaurant, len(restaurantIDs))
	if len(restaurantIDs) == 0 {
		return result, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(restaurantIDs)), ",")
	args := make([]any, len(restaurantIDs))
	for i, id := range restaurantIDs {
		args[i] = id
	}

	rows, err := m.db.QueryContext(ctx, `
		SELECT id, owner_id, name, city, country, delivery_price, estimated_delivery_time,
			cuisines, image_url, last_updated
		FROM restaurants WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("query restaurants: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			r            domain.Restaurant
			cuisinesJSON []byte
		)
		if err := rows.Scan(&r.ID, &r.OwnerID, &r.Name, &r.City, &r.Country, &r.DeliveryPrice,
			&r.EstimatedDeliveryTime, &cuisinesJSON, &r.ImageURL, &r.LastUpdated); err != nil {
			return nil, fmt.Errorf("scan restaurant: %w", err)
		}
		if err := json.Unmarshal(cuisinesJSON, &r.Cuisines); err != nil {
			return nil, fmt.Errorf("decode cuisines of restaurant %s: %w", r.ID, err)
		}
		result[r.ID] = r
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate restaurants: %w", err)
	}

	itemRows, err := m.db.QueryContext(ctx, `
		SELECT restaurant_id, id, name, price
		FROM menu_items WHERE restaurant_id IN (`+placeholders+`)
		ORDER BY restaurant_id, position`, args...)
	if err != nil {
		return nil, fmt.Errorf("query menu items: %w", err)
	}
	defer itemRows.Close()

	for itemRows.Next() {
		var (
			restaurantID string
			item         domain.MenuItem
		)
		if err := itemRows.Scan(&restaurantID, &item.ID, &item.Name, &item.Price); err != nil {
			return nil, fmt.Errorf("scan menu item: %w", err)
		}
		r, ok := result[restaurantID]
		if !ok {
			continue
		}
		r.MenuItems = append(r.MenuItems, item)
		result[restaurantID] = r
	}
	if err := itemRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate menu items: %w", err)
	}

	return result, nil
}

func (m *MySQLAdapter) CreateUser(ctx context.Context, user domain.User) error {
	if user.ID == "" || user.AuthID == "" || user.Email == "" {
		return errors.Join(domain.ErrInvalidRecord, errors.New("user id, auth id and email are required"))
	}
	if user.Role == "" {
		user.Role = domain.UserRoleUser
	}

	_, err := m.db.ExecContext(ctx, `
		INSERT INTO users (id, auth_id, email, name, address_line1, city, country, role)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID, user.AuthID, user.Email, user.Name, user.AddressLine1, user.City, user.Country, user.Role,
	)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	return m.getUser(ctx, `WHERE id = ?`, userID)
}

func (m *MySQLAdapter) GetUserByAuthID(ctx context.Context, authID string) (*domain.User, error) {
	return m.getUser(ctx, `WHERE auth_id = ?`, authID)
}

func (m *MySQLAdapter) getUser(ctx context.Context, where string, arg string) (*domain.User, error) {
	var (
		user domain.User
		role string
	)
	err := m.db.QueryRowContext(ctx, `
		SELECT id, auth_id, email, name, address_line1, city, country, role
		FROM users `+where, arg,
	).Scan(&user.ID, &user.AuthID, &user.Email, &user.Name, &user.AddressLine1, &user.City, &user.Country, &role)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}

	user.Role = domain.UserRole(role)
	return &user, nil
}
