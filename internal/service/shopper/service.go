package shopper

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

const maxToggleBatch = 100

// ToggleResult показывает, что добавлено и что убрано из списка желаний.
type ToggleResult struct {
	Added   []int64 `json:"added"`
	Removed []int64 `json:"removed"`
}

// WishlistItem связывает запись списка желаний с карточкой товара.
type WishlistItem struct {
	Product domain.Product
	AddedAt time.Time
}

// Service объединяет пользовательские данные: избранное, адреса, историю просмотров.
type Service struct {
	products  domain.ProductRepository
	wishlist  domain.WishlistRepository
	addresses domain.AddressRepository
	recent    domain.RecentlyViewedStore
	logger    *log.Entry
	now       func() time.Time
}

type Option func(*Service)

func WithLogger(logger *log.Entry) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func NewService(
	products domain.ProductRepository,
	wishlist domain.WishlistRepository,
	addresses domain.AddressRepository,
	recent domain.RecentlyViewedStore,
	opts ...Option,
) *Service {
	s := &Service{
		products:  products,
		wishlist:  wishlist,
		addresses: addresses,
		recent:    recent,
		logger:    log.WithField("component", "shopper-service"),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ToggleWishlist переключает каждый товар: удаляет найденные в списке и добавляет отсутствующие.
// Неизвестные ID пропускаются.
func (s *Service) ToggleWishlist(ctx context.Context, userID int64, productIDs []int64) (ToggleResult, error) {
	if len(productIDs) == 0 {
		return ToggleResult{}, domain.NewValidationError("product_id", "product ID(s) required")
	}
	if len(productIDs) > maxToggleBatch {
		return ToggleResult{}, domain.NewValidationError("product_id", fmt.Sprintf("at most %d products per request", maxToggleBatch))
	}

	known, err := s.knownProducts(ctx, productIDs)
	if err != nil {
		return ToggleResult{}, err
	}

	result := ToggleResult{Added: []int64{}, Removed: []int64{}}
	for _, id := range productIDs {
		if !known[id] {
			continue
		}
		added, err := s.wishlist.Toggle(ctx, userID, id)
		if err != nil {
			return ToggleResult{}, fmt.Errorf("toggle wishlist product %d: %w", id, err)
		}
		if added {
			result.Added = append(result.Added, id)
		} else {
			result.Removed = append(result.Removed, id)
		}
	}
	return result, nil
}

// Wishlist возвращает избранное с карточками; удалённые из каталога товары пропускаются.
func (s *Service) Wishlist(ctx context.Context, userID int64) ([]WishlistItem, error) {
	entries, err := s.wishlist.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return []WishlistItem{}, nil
	}

	ids := make([]int64, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.ProductID)
	}
	byID, err := s.productsByID(ctx, ids)
	if err != nil {
		return nil, err
	}

	items := make([]WishlistItem, 0, len(entries))
	for _, e := range entries {
		if p, ok := byID[e.ProductID]; ok {
			items = append(items, WishlistItem{Product: p, AddedAt: e.CreatedAt})
		}
	}
	return items, nil
}

// TouchRecentlyViewed отмечает просмотр товара.
func (s *Service) TouchRecentlyViewed(ctx context.Context, userID, productID int64) error {
	if _, err := s.products.Get(ctx, productID); err != nil {
		return err
	}
	return s.recent.Touch(ctx, userID, productID, s.now().UTC())
}

// RecentlyViewed возвращает до RecentlyViewedLimit товаров, последние первыми.
func (s *Service) RecentlyViewed(ctx context.Context, userID int64) ([]domain.Product, error) {
	ids, err := s.recent.List(ctx, userID, domain.RecentlyViewedLimit)
	if err != nil {
		return nil, err
	}
	byID, err := s.productsByID(ctx, ids)
	if err != nil {
		return nil, err
	}

	products := make([]domain.Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			products = append(products, p)
		}
	}
	return products, nil
}

func (s *Service) Addresses(ctx context.Context, userID int64) ([]domain.Address, error) {
	return s.addresses.List(ctx, userID)
}

func (s *Service) CreateAddress(ctx context.Context, a domain.Address) (domain.Address, error) {
	if err := validateAddress(&a); err != nil {
		return domain.Address{}, err
	}
	return s.addresses.Create(ctx, a)
}

// UpdateAddress перезаписывает адрес владельца; чужой адрес неотличим от отсутствующего.
func (s *Service) UpdateAddress(ctx context.Context, a domain.Address) (domain.Address, error) {
	if a.ID <= 0 {
		return domain.Address{}, domain.ErrAddressNotFound
	}
	if err := validateAddress(&a); err != nil {
		return domain.Address{}, err
	}
	return s.addresses.Update(ctx, a)
}

func (s *Service) DeleteAddress(ctx context.Context, userID, id int64) error {
	err := s.addresses.Delete(ctx, userID, id)
	if errors.Is(err, domain.ErrAddressNotFound) {
		s.logger.WithFields(log.Fields{"user_id": userID, "address_id": id}).Debug("address delete: not found")
	}
	return err
}

func (s *Service) knownProducts(ctx context.Context, ids []int64) (map[int64]bool, error) {
	byID, err := s.productsByID(ctx, ids)
	if err != nil {
		return nil, err
	}
	known := make(map[int64]bool, len(byID))
	for id := range byID {
		known[id] = true
	}
	return known, nil
}

func (s *Service) productsByID(ctx context.Context, ids []int64) (map[int64]domain.Product, error) {
	if len(ids) == 0 {
		return map[int64]domain.Product{}, nil
	}
	products, err := s.products.ListByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}
	byID := make(map[int64]domain.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	return byID, nil
}

func validateAddress(a *domain.Address) error {
	a.Street = strings.TrimSpace(a.Street)
	a.City = strings.TrimSpace(a.City)
	a.State = strings.TrimSpace(a.State)
	a.PostalCode = strings.TrimSpace(a.PostalCode)
	a.Phone = strings.TrimSpace(a.Phone)

	switch {
	case a.UserID <= 0:
		return domain.ErrUnauthenticated
	case a.Street == "":
		return domain.NewValidationError("street", "street is required")
	case a.City == "":
		return domain.NewValidationError("city", "city is required")
	}
	return nil
}
