package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

const productColumns = `id, name, slug, description, category, price, image, featured, created_at`

type catalogRepository struct {
	db *sql.DB
}

// NewCatalogRepository создаёт PostgreSQL-реализацию ProductRepository.
func NewCatalogRepository(store *Store) domain.ProductRepository {
	return &catalogRepository{db: store.DB()}
}

func (r *catalogRepository) Create(ctx context.Context, p domain.Product) (domain.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	p.Slug = strings.TrimSpace(p.Slug)
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO products (name, slug, description, category, price, image, featured)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING id, created_at
	`, p.Name, p.Slug, p.Description, p.Category, p.Price, p.Image, p.Featured).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Product{}, domain.NewValidationError("slug", "product with this slug already exists")
		}
		return domain.Product{}, fmt.Errorf("insert product: %w", err)
	}
	return p, nil
}

func (r *catalogRepository) Get(ctx context.Context, id int64) (domain.Product, error) {
	return r.getOne(ctx, `WHERE id = $1`, id)
}

func (r *catalogRepository) GetBySlug(ctx context.Context, slug string) (domain.Product, error) {
	return r.getOne(ctx, `WHERE slug = $1`, slug)
}

func (r *catalogRepository) getOne(ctx context.Context, where string, arg any) (domain.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	p, err := scanProduct(r.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products `+where, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Product{}, domain.ErrProductNotFound
	}
	if err != nil {
		return domain.Product{}, fmt.Errorf("select product: %w", err)
	}

	gallery, err := r.loadGallery(ctx, p.ID)
	if err != nil {
		return domain.Product{}, err
	}
	p.Gallery = gallery
	return p, nil
}

func (r *catalogRepository) List(ctx context.Context, limit int) ([]domain.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var limitArg any
	if limit > 0 {
		limitArg = limit
	}
	rows, err := r.db.QueryContext(ctx, `SELECT `+productColumns+` FROM products ORDER BY id LIMIT $1`, limitArg)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return collectProducts(rows)
}

func (r *catalogRepository) ListByIDs(ctx context.Context, ids []int64) ([]domain.Product, error) {
	if len(ids) == 0 {
		return []domain.Product{}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = ANY($1) ORDER BY id`, ids)
	if err != nil {
		return nil, fmt.Errorf("list products by ids: %w", err)
	}
	return collectProducts(rows)
}

func (r *catalogRepository) AddGalleryImage(ctx context.Context, productID int64, image string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO product_images (product_id, image)
		SELECT id, $2 FROM products WHERE id = $1
	`, productID, image)
	if err != nil {
		return fmt.Errorf("insert product image: %w", err)
	}
	if affected, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("product image rows affected: %w", err)
	} else if affected == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}

func (r *catalogRepository) loadGallery(ctx context.Context, productID int64) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT image FROM product_images WHERE product_id = $1 ORDER BY id`, productID)
	if err != nil {
		return nil, fmt.Errorf("load product gallery: %w", err)
	}
	defer rows.Close()

	gallery := make([]string, 0)
	for rows.Next() {
		var image string
		if err := rows.Scan(&image); err != nil {
			return nil, fmt.Errorf("scan product image: %w", err)
		}
		gallery = append(gallery, image)
	}
	return gallery, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (domain.Product, error) {
	var p domain.Product
	err := row.Scan(&p.ID, &p.Name, &p.Slug, &p.Description, &p.Category, &p.Price, &p.Image, &p.Featured, &p.CreatedAt)
	return p, err
}

func collectProducts(rows *sql.Rows) ([]domain.Product, error) {
	defer rows.Close()

	products := make([]domain.Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}
	return products, nil
}

var _ domain.ProductRepository = (*catalogRepository)(nil)
