package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

type cartRepository struct {
	db *sql.DB
}

// NewCartRepository создаёт PostgreSQL-реализацию CartRepository.
func NewCartRepository(store *Store) domain.CartRepository {
	return &cartRepository{db: store.DB()}
}

// Create создаёт корзину; если код уже занят, возвращает существующую.
func (r *cartRepository) Create(ctx context.Context, code string) (domain.Cart, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return domain.Cart{}, domain.ErrCartCodeRequired
	}

	opCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var cart domain.Cart
	err := r.db.QueryRowContext(opCtx, `
		INSERT INTO carts (cart_code) VALUES ($1)
		ON CONFLICT (cart_code) DO NOTHING
		RETURNING id, cart_code, created_at, updated_at
	`, code).Scan(&cart.ID, &cart.Code, &cart.CreatedAt, &cart.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return r.Get(ctx, code)
	}
	if err != nil {
		return domain.Cart{}, fmt.Errorf("insert cart: %w", err)
	}
	cart.Items = []domain.CartItem{}
	return cart, nil
}

func (r *cartRepository) Get(ctx context.Context, code string) (domain.Cart, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var cart domain.Cart
	err := r.db.QueryRowContext(ctx, `
		SELECT id, cart_code, created_at, updated_at FROM carts WHERE cart_code = $1
	`, code).Scan(&cart.ID, &cart.Code, &cart.CreatedAt, &cart.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Cart{}, domain.ErrCartNotFound
	}
	if err != nil {
		return domain.Cart{}, fmt.Errorf("select cart: %w", err)
	}

	items, err := loadCartItems(ctx, r.db, cart.ID, false)
	if err != nil {
		return domain.Cart{}, err
	}
	cart.Items = items
	return cart, nil
}

// UpsertItem перезаписывает количество: повторное добавление не суммирует.
func (r *cartRepository) UpsertItem(ctx context.Context, cartID, productID int64, qty int32) (domain.CartItem, error) {
	if qty <= 0 {
		return domain.CartItem{}, domain.ErrQuantityInvalid
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	item := domain.CartItem{CartID: cartID, ProductID: productID, Quantity: qty}
	err := r.db.QueryRowContext(ctx, `
		WITH upserted AS (
			INSERT INTO cart_items (cart_id, product_id, quantity)
			SELECT $1, p.id, $3 FROM products p WHERE p.id = $2
			ON CONFLICT (cart_id, product_id) DO UPDATE SET quantity = EXCLUDED.quantity
			RETURNING id
		), touched AS (
			UPDATE carts SET updated_at = NOW() WHERE id = $1
		)
		SELECT id FROM upserted
	`, cartID, productID, qty).Scan(&item.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.CartItem{}, domain.ErrProductNotFound
	}
	if isForeignKeyViolation(err) {
		return domain.CartItem{}, domain.ErrCartNotFound
	}
	if err != nil {
		return domain.CartItem{}, fmt.Errorf("upsert cart item: %w", err)
	}
	return item, nil
}

func (r *cartRepository) RemoveItem(ctx context.Context, cartID, productID int64) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if _, err := r.db.ExecContext(ctx, `
		DELETE FROM cart_items WHERE cart_id = $1 AND product_id = $2
	`, cartID, productID); err != nil {
		return fmt.Errorf("delete cart item: %w", err)
	}
	return nil
}

func loadCartItems(ctx context.Context, q querier, cartID int64, forUpdate bool) ([]domain.CartItem, error) {
	query := `SELECT id, cart_id, product_id, quantity FROM cart_items WHERE cart_id = $1 ORDER BY id`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	rows, err := q.QueryContext(ctx, query, cartID)
	if err != nil {
		return nil, fmt.Errorf("load cart items: %w", err)
	}
	defer rows.Close()

	items := make([]domain.CartItem, 0)
	for rows.Next() {
		var item domain.CartItem
		if err := rows.Scan(&item.ID, &item.CartID, &item.ProductID, &item.Quantity); err != nil {
			return nil, fmt.Errorf("scan cart item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cart items: %w", err)
	}
	return items, nil
}

var _ domain.CartRepository = (*cartRepository)(nil)
