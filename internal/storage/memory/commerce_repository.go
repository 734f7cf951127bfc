package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

type cartRecord struct {
	cart  domain.Cart
	items map[int64]domain.CartItem
}

// commerceState держит корзины и заказы под одним мьютексом:
// создание заказа и очистка корзины видны атомарно.
type commerceState struct {
	mu         sync.Mutex
	nextCartID int64
	nextItemID int64
	carts      map[string]*cartRecord
	orders     map[string]domain.Order
	byCheckout map[string]string
}

// CartRepository хранит корзины в памяти.
type CartRepository struct {
	state   *commerceState
	catalog *CatalogRepository
}

// OrderRepository хранит заказы и работает поверх тех же корзин.
type OrderRepository struct {
	state   *commerceState
	catalog *CatalogRepository
	outbox  *OutboxRepository
}

// NewCommerceRepositories создаёт связанные репозитории корзин и заказов.
func NewCommerceRepositories(catalog *CatalogRepository, outbox *OutboxRepository) (*CartRepository, *OrderRepository) {
	state := &commerceState{
		carts:      make(map[string]*cartRecord),
		orders:     make(map[string]domain.Order),
		byCheckout: make(map[string]string),
	}
	return &CartRepository{state: state, catalog: catalog},
		&OrderRepository{state: state, catalog: catalog, outbox: outbox}
}

func (r *CartRepository) Create(_ context.Context, code string) (domain.Cart, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return domain.Cart{}, domain.ErrCartCodeRequired
	}

	s := r.state
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec, ok := s.carts[code]; ok {
		return snapshotCart(rec), nil
	}
	s.nextCartID++
	now := time.Now().UTC()
	rec := &cartRecord{
		cart:  domain.Cart{ID: s.nextCartID, Code: code, CreatedAt: now, UpdatedAt: now},
		items: make(map[int64]domain.CartItem),
	}
	s.carts[code] = rec
	return snapshotCart(rec), nil
}

func (r *CartRepository) Get(_ context.Context, code string) (domain.Cart, error) {
	s := r.state
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.carts[code]
	if !ok {
		return domain.Cart{}, domain.ErrCartNotFound
	}
	return snapshotCart(rec), nil
}

func (r *CartRepository) UpsertItem(_ context.Context, cartID, productID int64, qty int32) (domain.CartItem, error) {
	if qty <= 0 {
		return domain.CartItem{}, domain.ErrQuantityInvalid
	}
	if _, ok := r.catalog.lookup(productID); !ok {
		return domain.CartItem{}, domain.ErrProductNotFound
	}

	s := r.state
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.cartByID(cartID)
	if rec == nil {
		return domain.CartItem{}, domain.ErrCartNotFound
	}
	item, ok := rec.items[productID]
	if !ok {
		s.nextItemID++
		item = domain.CartItem{ID: s.nextItemID, CartID: cartID, ProductID: productID}
	}
	item.Quantity = qty
	rec.items[productID] = item
	rec.cart.UpdatedAt = time.Now().UTC()
	return item, nil
}

func (r *CartRepository) RemoveItem(_ context.Context, cartID, productID int64) error {
	s := r.state
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec := s.cartByID(cartID); rec != nil {
		delete(rec.items, productID)
	}
	return nil
}

// Fulfill создаёт заказ из корзины. Позиции корзины удаляются, сама корзина остаётся.
func (r *OrderRepository) Fulfill(_ context.Context, order domain.Order, cartCode string, events []domain.OutboxMessage) (domain.FulfillmentResult, error) {
	s := r.state
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.byCheckout[order.CheckoutID]; ok {
		return domain.FulfillmentResult{Order: cloneOrder(s.orders[id]), Duplicate: true}, nil
	}

	if order.ID == "" {
		order.ID = uuid.NewString()
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now().UTC()
	}

	result := domain.FulfillmentResult{}
	if rec, ok := s.carts[cartCode]; ok && cartCode != "" {
		result.CartFound = true
		result.CartEmpty = len(rec.items) == 0
		order.Items = make([]domain.OrderItem, 0, len(rec.items))
		for _, item := range sortedItems(rec.items) {
			name := ""
			if p, ok := r.catalog.lookup(item.ProductID); ok {
				name = p.Name
			}
			order.Items = append(order.Items, domain.OrderItem{
				ID:        uuid.NewString(),
				OrderID:   order.ID,
				ProductID: item.ProductID,
				Name:      name,
				Quantity:  item.Quantity,
				CreatedAt: order.CreatedAt,
			})
		}
		rec.items = make(map[int64]domain.CartItem)
		rec.cart.UpdatedAt = order.CreatedAt
	}

	s.orders[order.ID] = cloneOrder(order)
	s.byCheckout[order.CheckoutID] = order.ID

	if r.outbox != nil && len(events) > 0 {
		r.outbox.mu.Lock()
		for _, ev := range events {
			r.outbox.enqueueLocked(ev)
		}
		r.outbox.mu.Unlock()
	}

	result.Order = cloneOrder(order)
	return result, nil
}

func (r *OrderRepository) Get(_ context.Context, id string) (domain.Order, error) {
	s := r.state
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[id]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return cloneOrder(order), nil
}

func (r *OrderRepository) GetByCheckoutID(ctx context.Context, checkoutID string) (domain.Order, error) {
	r.state.mu.Lock()
	id, ok := r.state.byCheckout[checkoutID]
	r.state.mu.Unlock()
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return r.Get(ctx, id)
}

// ListByEmail возвращает заказы покупателя, ограничивая выборку limit (если >0).
func (r *OrderRepository) ListByEmail(_ context.Context, email string, limit int) ([]domain.Order, error) {
	s := r.state
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]domain.Order, 0)
	for _, order := range s.orders {
		if !strings.EqualFold(order.CustomerEmail, email) {
			continue
		}
		result = append(result, cloneOrder(order))
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *commerceState) cartByID(id int64) *cartRecord {
	for _, rec := range s.carts {
		if rec.cart.ID == id {
			return rec
		}
	}
	return nil
}

func snapshotCart(rec *cartRecord) domain.Cart {
	cart := rec.cart
	cart.Items = sortedItems(rec.items)
	return cart
}

func sortedItems(items map[int64]domain.CartItem) []domain.CartItem {
	result := make([]domain.CartItem, 0, len(items))
	for _, item := range items {
		result = append(result, item)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

func cloneOrder(o domain.Order) domain.Order {
	o.Items = append([]domain.OrderItem(nil), o.Items...)
	return o
}

var (
	_ domain.CartRepository  = (*CartRepository)(nil)
	_ domain.OrderRepository = (*OrderRepository)(nil)
)
