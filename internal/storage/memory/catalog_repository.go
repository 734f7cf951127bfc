package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// CatalogRepository хранит каталог товаров в памяти.
type CatalogRepository struct {
	mu       sync.RWMutex
	nextID   int64
	products map[int64]domain.Product
	bySlug   map[string]int64
}

// NewCatalogRepository создаёт пустой каталог.
func NewCatalogRepository() *CatalogRepository {
	return &CatalogRepository{
		products: make(map[int64]domain.Product),
		bySlug:   make(map[string]int64),
	}
}

// Create присваивает товару ID. Slug должен быть уникальным.
func (r *CatalogRepository) Create(_ context.Context, p domain.Product) (domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p.Slug = strings.TrimSpace(p.Slug)
	if _, taken := r.bySlug[p.Slug]; taken {
		return domain.Product{}, domain.NewValidationError("slug", "product with this slug already exists")
	}

	r.nextID++
	p.ID = r.nextID
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	p.Gallery = append([]string(nil), p.Gallery...)
	r.products[p.ID] = p
	r.bySlug[p.Slug] = p.ID
	return cloneProduct(p), nil
}

func (r *CatalogRepository) Get(_ context.Context, id int64) (domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.products[id]
	if !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return cloneProduct(p), nil
}

func (r *CatalogRepository) GetBySlug(ctx context.Context, slug string) (domain.Product, error) {
	r.mu.RLock()
	id, ok := r.bySlug[slug]
	r.mu.RUnlock()
	if !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return r.Get(ctx, id)
}

// List возвращает товары в порядке создания.
func (r *CatalogRepository) List(_ context.Context, limit int) ([]domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Product, 0, len(r.products))
	for _, p := range r.products {
		result = append(result, cloneProduct(p))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (r *CatalogRepository) ListByIDs(_ context.Context, ids []int64) ([]domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := r.products[id]; ok {
			result = append(result, cloneProduct(p))
		}
	}
	return result, nil
}

func (r *CatalogRepository) AddGalleryImage(_ context.Context, productID int64, image string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.products[productID]
	if !ok {
		return domain.ErrProductNotFound
	}
	p.Gallery = append(p.Gallery, image)
	r.products[productID] = p
	return nil
}

// SetPrice меняет цену товара. Каталог ведётся вне сервиса, метод нужен для dev-режима и тестов.
func (r *CatalogRepository) SetPrice(id int64, price decimal.Decimal) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.products[id]
	if !ok {
		return domain.ErrProductNotFound
	}
	p.Price = price
	r.products[id] = p
	return nil
}

// lookup используется хранилищем заказов для переноса названий в строки заказа.
func (r *CatalogRepository) lookup(id int64) (domain.Product, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.products[id]
	return p, ok
}

func cloneProduct(p domain.Product) domain.Product {
	p.Gallery = append([]string(nil), p.Gallery...)
	return p
}

var _ domain.ProductRepository = (*CatalogRepository)(nil)
