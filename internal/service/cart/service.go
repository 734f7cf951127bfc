package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// Service объединяет определение корзины по коду из cookie и операции над её строками.
type Service struct {
	carts    domain.CartRepository
	products domain.ProductRepository
	logger   *log.Entry
	newCode  func() string
}

// Option настраивает Service.
type Option func(*Service)

func WithLogger(logger *log.Entry) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithCodeGenerator подменяет генератор кодов корзины.
func WithCodeGenerator(gen func() string) Option {
	return func(s *Service) {
		if gen != nil {
			s.newCode = gen
		}
	}
}

// NewService создаёт сервис корзин.
func NewService(carts domain.CartRepository, products domain.ProductRepository, opts ...Option) *Service {
	s := &Service{
		carts:    carts,
		products: products,
		logger:   log.WithField("component", "cart-service"),
		newCode:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Resolve возвращает корзину по коду. Если кода нет или он неизвестен,
// создаётся новая пустая корзина со свежим кодом; created=true означает,
// что код нужно отдать клиенту.
func (s *Service) Resolve(ctx context.Context, code string) (domain.Cart, bool, error) {
	code = strings.TrimSpace(code)
	if code != "" {
		c, err := s.carts.Get(ctx, code)
		if err == nil {
			return c, false, nil
		}
		if !errors.Is(err, domain.ErrCartNotFound) {
			return domain.Cart{}, false, fmt.Errorf("load cart: %w", err)
		}
		s.logger.WithField("cart_code", code).Debug("unknown cart code, issuing a new cart")
	}

	c, err := s.carts.Create(ctx, s.newCode())
	if err != nil {
		return domain.Cart{}, false, fmt.Errorf("create cart: %w", err)
	}
	return c, true, nil
}

// View считает строки и итог корзины по текущим ценам. Результат не кэшируется.
func (s *Service) View(ctx context.Context, c domain.Cart) (domain.CartView, error) {
	view := domain.CartView{Cart: c, Lines: make([]domain.CartLine, 0, len(c.Items)), Total: decimal.Zero}
	if len(c.Items) == 0 {
		return view, nil
	}

	ids := make([]int64, 0, len(c.Items))
	for _, item := range c.Items {
		ids = append(ids, item.ProductID)
	}
	products, err := s.products.ListByIDs(ctx, ids)
	if err != nil {
		return domain.CartView{}, fmt.Errorf("load cart products: %w", err)
	}
	byID := make(map[int64]domain.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	for _, item := range c.Items {
		p, ok := byID[item.ProductID]
		if !ok {
			s.logger.WithFields(log.Fields{"cart_code": c.Code, "product_id": item.ProductID}).
				Warn("cart line references a missing product")
			continue
		}
		sub := domain.LineSubTotal(p.Price, item.Quantity)
		view.Lines = append(view.Lines, domain.CartLine{Item: item, Product: p, SubTotal: sub})
		view.Total = view.Total.Add(sub)
	}
	return view, nil
}

// Load находит корзину по коду без создания новой.
func (s *Service) Load(ctx context.Context, code string) (domain.CartView, error) {
	c, err := s.carts.Get(ctx, strings.TrimSpace(code))
	if err != nil {
		return domain.CartView{}, err
	}
	return s.View(ctx, c)
}

// UpsertItem выставляет количество товара; повторный вызов перезаписывает строку.
func (s *Service) UpsertItem(ctx context.Context, c domain.Cart, productID int64, qty int32) (domain.CartItem, error) {
	if qty <= 0 {
		return domain.CartItem{}, domain.ErrQuantityInvalid
	}
	if productID <= 0 {
		return domain.CartItem{}, domain.NewValidationError("product_id", "must be a positive integer")
	}
	if _, err := s.products.Get(ctx, productID); err != nil {
		return domain.CartItem{}, err
	}

	item, err := s.carts.UpsertItem(ctx, c.ID, productID, qty)
	if err != nil {
		return domain.CartItem{}, err
	}
	s.logger.WithFields(log.Fields{
		"cart_code":  c.Code,
		"product_id": productID,
		"quantity":   qty,
	}).Debug("cart line upserted")
	return item, nil
}

// RemoveItem удаляет строку. Отсутствие строки не ошибка.
func (s *Service) RemoveItem(ctx context.Context, c domain.Cart, productID int64) error {
	if err := s.carts.RemoveItem(ctx, c.ID, productID); err != nil {
		return fmt.Errorf("remove cart line: %w", err)
	}
	return nil
}
