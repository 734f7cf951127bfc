package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

const orderColumns = `id, processor_checkout_id, reference, amount_minor, currency, customer_email, status, created_at`

type orderRepository struct {
	store *Store
}

// NewOrderRepository создаёт PostgreSQL-реализацию OrderRepository.
func NewOrderRepository(store *Store) domain.OrderRepository {
	return &orderRepository{store: store}
}

// Fulfill выполняет всё создание заказа в одной транзакции.
// Дубликат определяется unique-ограничением на processor_checkout_id: INSERT ... ON CONFLICT DO NOTHING
// не возвращает строку, и транзакция завершается без изменений.
func (r *orderRepository) Fulfill(ctx context.Context, order domain.Order, cartCode string, events []domain.OutboxMessage) (domain.FulfillmentResult, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if order.ID == "" {
		order.ID = uuid.NewString()
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now().UTC()
	}

	var result domain.FulfillmentResult
	err := r.store.inTx(ctx, func(tx *sql.Tx) error {
		var id string
		err := tx.QueryRowContext(ctx, `
			INSERT INTO orders (`+orderColumns+`)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
			ON CONFLICT (processor_checkout_id) DO NOTHING
			RETURNING id
		`, order.ID, order.CheckoutID, order.Reference, order.AmountMinor, order.Currency,
			order.CustomerEmail, string(order.Status), order.CreatedAt).Scan(&id)
		if errors.Is(err, sql.ErrNoRows) {
			result.Duplicate = true
			return nil
		}
		if err != nil {
			return fmt.Errorf("insert order: %w", err)
		}

		var cartID int64
		err = tx.QueryRowContext(ctx, `SELECT id FROM carts WHERE cart_code = $1 FOR UPDATE`, cartCode).Scan(&cartID)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			order.Items = []domain.OrderItem{}
		case err != nil:
			return fmt.Errorf("lock cart: %w", err)
		default:
			result.CartFound = true
			if order.Items, err = moveCartItems(ctx, tx, order, cartID); err != nil {
				return err
			}
			result.CartEmpty = len(order.Items) == 0
		}

		for _, ev := range events {
			if _, err := enqueueOutbox(ctx, tx, ev); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return domain.FulfillmentResult{}, err
	}

	if result.Duplicate {
		existing, err := r.GetByCheckoutID(ctx, order.CheckoutID)
		if err != nil {
			return domain.FulfillmentResult{}, err
		}
		result.Order = existing
		return result, nil
	}
	result.Order = order
	return result, nil
}

// moveCartItems копирует строки корзины в заказ и очищает корзину; сама корзина сохраняется.
func moveCartItems(ctx context.Context, tx *sql.Tx, order domain.Order, cartID int64) ([]domain.OrderItem, error) {
	cartItems, err := loadCartItems(ctx, tx, cartID, true)
	if err != nil {
		return nil, err
	}

	items := make([]domain.OrderItem, 0, len(cartItems))
	for _, ci := range cartItems {
		item := domain.OrderItem{
			ID:        uuid.NewString(),
			OrderID:   order.ID,
			ProductID: ci.ProductID,
			Quantity:  ci.Quantity,
			CreatedAt: order.CreatedAt,
		}
		if err := tx.QueryRowContext(ctx, `
			INSERT INTO order_items (id, order_id, product_id, product_name, quantity, created_at)
			SELECT $1, $2, p.id, p.name, $4, $5 FROM products p WHERE p.id = $3
			RETURNING product_name
		`, item.ID, order.ID, item.ProductID, item.Quantity, item.CreatedAt).Scan(&item.Name); err != nil {
			return nil, fmt.Errorf("insert order item: %w", err)
		}
		items = append(items, item)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID); err != nil {
		return nil, fmt.Errorf("clear cart items: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE carts SET updated_at = NOW() WHERE id = $1`, cartID); err != nil {
		return nil, fmt.Errorf("touch cart: %w", err)
	}
	return items, nil
}

func (r *orderRepository) Get(ctx context.Context, id string) (domain.Order, error) {
	if _, err := uuid.Parse(id); err != nil {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return r.getOne(ctx, `WHERE id = $1`, id)
}

func (r *orderRepository) GetByCheckoutID(ctx context.Context, checkoutID string) (domain.Order, error) {
	return r.getOne(ctx, `WHERE processor_checkout_id = $1`, checkoutID)
}

func (r *orderRepository) getOne(ctx context.Context, where string, arg any) (domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	order, err := scanOrder(r.store.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders `+where, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	if err != nil {
		return domain.Order{}, fmt.Errorf("select order: %w", err)
	}

	if order.Items, err = r.loadItems(ctx, order.ID); err != nil {
		return domain.Order{}, err
	}
	return order, nil
}

func (r *orderRepository) ListByEmail(ctx context.Context, email string, limit int) ([]domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var limitArg any
	if limit > 0 {
		limitArg = limit
	}
	rows, err := r.store.db.QueryContext(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE lower(customer_email) = lower($1)
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, email, limitArg)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}

	orders := make([]domain.Order, 0)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		orders = append(orders, order)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order rows: %w", err)
	}

	for i := range orders {
		if orders[i].Items, err = r.loadItems(ctx, orders[i].ID); err != nil {
			return nil, err
		}
	}
	return orders, nil
}

func (r *orderRepository) loadItems(ctx context.Context, orderID string) ([]domain.OrderItem, error) {
	rows, err := r.store.db.QueryContext(ctx, `
		SELECT id, order_id, COALESCE(product_id, 0), product_name, quantity, created_at
		FROM order_items
		WHERE order_id = $1
		ORDER BY created_at ASC, id ASC
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("load order items: %w", err)
	}
	defer rows.Close()

	items := make([]domain.OrderItem, 0)
	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Name, &item.Quantity, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order items: %w", err)
	}
	return items, nil
}

func scanOrder(row rowScanner) (domain.Order, error) {
	var (
		order  domain.Order
		status string
	)
	err := row.Scan(&order.ID, &order.CheckoutID, &order.Reference, &order.AmountMinor, &order.Currency,
		&order.CustomerEmail, &status, &order.CreatedAt)
	order.Status = domain.OrderStatus(status)
	return order, err
}

var _ domain.OrderRepository = (*orderRepository)(nil)
