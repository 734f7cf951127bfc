package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
	maxBatchSize     = 100
)

// Cache кэширует карточки по slug, подключается опционально.
type Cache interface {
	Get(ctx context.Context, slug string) (domain.Product, error)
	Set(ctx context.Context, p domain.Product) error
	Delete(ctx context.Context, slug string) error
}

// CreatedHook вызывается после успешной вставки товара.
type CreatedHook func(ctx context.Context, p domain.Product) error

// Service читает каталог и заводит товары.
type Service struct {
	products domain.ProductRepository
	cache    Cache
	hooks    []CreatedHook
	logger   *log.Entry
}

type Option func(*Service)

func WithLogger(logger *log.Entry) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithCache(c Cache) Option {
	return func(s *Service) { s.cache = c }
}

// WithCreatedHook добавляет обработчик, выполняемый после создания товара.
func WithCreatedHook(h CreatedHook) Option {
	return func(s *Service) {
		if h != nil {
			s.hooks = append(s.hooks, h)
		}
	}
}

func NewService(products domain.ProductRepository, opts ...Option) *Service {
	s := &Service{
		products: products,
		logger:   log.WithField("component", "catalog-service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GalleryHook кладёт основное изображение товара в его галерею.
func GalleryHook(products domain.ProductRepository) CreatedHook {
	return func(ctx context.Context, p domain.Product) error {
		if p.Image == "" {
			return nil
		}
		for _, img := range p.Gallery {
			if img == p.Image {
				return nil
			}
		}
		return products.AddGalleryImage(ctx, p.ID, p.Image)
	}
}

func (s *Service) List(ctx context.Context, limit int) ([]domain.Product, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	return s.products.List(ctx, limit)
}

// GetBySlug читает товар через кэш; ошибки кэша не мешают чтению из хранилища.
func (s *Service) GetBySlug(ctx context.Context, slug string) (domain.Product, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return domain.Product{}, domain.ErrProductNotFound
	}

	if s.cache != nil {
		p, err := s.cache.Get(ctx, slug)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, domain.ErrCacheMiss) {
			s.logger.WithError(err).WithField("slug", slug).Warn("product cache read failed")
		}
	}

	p, err := s.products.GetBySlug(ctx, slug)
	if err != nil {
		return domain.Product{}, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, p); err != nil {
			s.logger.WithError(err).WithField("slug", slug).Warn("product cache write failed")
		}
	}
	return p, nil
}

func (s *Service) Get(ctx context.Context, id int64) (domain.Product, error) {
	return s.products.Get(ctx, id)
}

// ListByIDs возвращает найденные товары; неизвестные ID пропускаются.
func (s *Service) ListByIDs(ctx context.Context, ids []int64) ([]domain.Product, error) {
	if len(ids) > maxBatchSize {
		return nil, domain.NewValidationError("ids", fmt.Sprintf("at most %d ids per request", maxBatchSize))
	}
	if len(ids) == 0 {
		return []domain.Product{}, nil
	}
	return s.products.ListByIDs(ctx, ids)
}

// Create сохраняет товар и затем запускает хуки. Сбой хука не отменяет создание.
func (s *Service) Create(ctx context.Context, p domain.Product) (domain.Product, error) {
	p.Name = strings.TrimSpace(p.Name)
	p.Slug = strings.TrimSpace(p.Slug)
	if p.Name == "" {
		return domain.Product{}, domain.NewValidationError("name", "name is required")
	}
	if p.Slug == "" {
		return domain.Product{}, domain.NewValidationError("slug", "slug is required")
	}
	if p.Price.IsNegative() {
		return domain.Product{}, domain.NewValidationError("price", "price must not be negative")
	}
	p.Price = p.Price.Round(2)

	created, err := s.products.Create(ctx, p)
	if err != nil {
		return domain.Product{}, err
	}

	for _, hook := range s.hooks {
		if err := hook(ctx, created); err != nil {
			s.logger.WithError(err).WithField("product_id", created.ID).Error("product created hook failed")
		}
	}

	if s.hooks != nil {
		if reloaded, err := s.products.Get(ctx, created.ID); err == nil {
			created = reloaded
		}
	}
	return created, nil
}
