package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

const userColumns = `id, email, username, first_name, last_name, password_hash, profile_picture_url, registration_method, created_at`

type userRepository struct {
	db *sql.DB
}

// NewUserRepository создаёт PostgreSQL-реализацию UserRepository.
func NewUserRepository(store *Store) domain.UserRepository {
	return &userRepository{db: store.DB()}
}

func (r *userRepository) Create(ctx context.Context, u domain.User) (domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if u.RegistrationMethod == "" {
		u.RegistrationMethod = domain.RegistrationEmail
	}
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO users (email, username, first_name, last_name, password_hash, profile_picture_url, registration_method)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING id, created_at
	`, u.Email, u.Username, u.FirstName, u.LastName, u.PasswordHash, u.ProfilePictureURL,
		string(u.RegistrationMethod)).Scan(&u.ID, &u.CreatedAt)
	if name, ok := uniqueConstraint(err); ok {
		if name == "uq_users_username" {
			return domain.User{}, domain.ErrUsernameTaken
		}
		return domain.User{}, domain.ErrEmailTaken
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("insert user: %w", err)
	}
	return u, nil
}

func (r *userRepository) Get(ctx context.Context, id int64) (domain.User, error) {
	return r.getOne(ctx, `WHERE id = $1`, id)
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	return r.getOne(ctx, `WHERE lower(email) = lower($1)`, strings.TrimSpace(email))
}

func (r *userRepository) getOne(ctx context.Context, where string, arg any) (domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var (
		u      domain.User
		method string
	)
	err := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users `+where, arg).Scan(
		&u.ID, &u.Email, &u.Username, &u.FirstName, &u.LastName, &u.PasswordHash,
		&u.ProfilePictureURL, &method, &u.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, domain.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("select user: %w", err)
	}
	u.RegistrationMethod = domain.RegistrationMethod(method)
	return u, nil
}

type wishlistRepository struct {
	db *sql.DB
}

// NewWishlistRepository создаёт PostgreSQL-реализацию WishlistRepository.
func NewWishlistRepository(store *Store) domain.WishlistRepository {
	return &wishlistRepository{db: store.DB()}
}

// Toggle сначала пробует удалить запись; если удалять нечего, добавляет её.
func (r *wishlistRepository) Toggle(ctx context.Context, userID, productID int64) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `DELETE FROM wishlist_items WHERE user_id = $1 AND product_id = $2`, userID, productID)
	if err != nil {
		return false, fmt.Errorf("delete wishlist item: %w", err)
	}
	if affected, err := res.RowsAffected(); err != nil {
		return false, fmt.Errorf("wishlist rows affected: %w", err)
	} else if affected > 0 {
		return false, nil
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO wishlist_items (user_id, product_id) VALUES ($1, $2)
		ON CONFLICT (user_id, product_id) DO NOTHING
	`, userID, productID)
	if isForeignKeyViolation(err) {
		return false, domain.ErrProductNotFound
	}
	if err != nil {
		return false, fmt.Errorf("insert wishlist item: %w", err)
	}
	return true, nil
}

func (r *wishlistRepository) List(ctx context.Context, userID int64) ([]domain.WishlistEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT user_id, product_id, created_at
		FROM wishlist_items
		WHERE user_id = $1
		ORDER BY created_at DESC, product_id DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list wishlist: %w", err)
	}
	defer rows.Close()

	entries := make([]domain.WishlistEntry, 0)
	for rows.Next() {
		var e domain.WishlistEntry
		if err := rows.Scan(&e.UserID, &e.ProductID, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan wishlist item: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

const addressColumns = `id, user_id, street, city, state, postal_code, phone, is_default, created_at`

type addressRepository struct {
	store *Store
}

// NewAddressRepository создаёт PostgreSQL-реализацию AddressRepository.
func NewAddressRepository(store *Store) domain.AddressRepository {
	return &addressRepository{store: store}
}

func (r *addressRepository) Create(ctx context.Context, a domain.Address) (domain.Address, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	err := r.store.inTx(ctx, func(tx *sql.Tx) error {
		if a.IsDefault {
			if err := clearDefaultAddress(ctx, tx, a.UserID); err != nil {
				return err
			}
		}
		return scanAddress(tx.QueryRowContext(ctx, `
			INSERT INTO addresses (user_id, street, city, state, postal_code, phone, is_default)
			VALUES ($1,$2,$3,$4,$5,$6,$7)
			RETURNING `+addressColumns,
			a.UserID, a.Street, a.City, a.State, a.PostalCode, a.Phone, a.IsDefault), &a)
	})
	if err != nil {
		return domain.Address{}, fmt.Errorf("insert address: %w", err)
	}
	return a, nil
}

func (r *addressRepository) List(ctx context.Context, userID int64) ([]domain.Address, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	rows, err := r.store.db.QueryContext(ctx, `SELECT `+addressColumns+` FROM addresses WHERE user_id = $1 ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list addresses: %w", err)
	}
	defer rows.Close()

	result := make([]domain.Address, 0)
	for rows.Next() {
		var a domain.Address
		if err := scanAddress(rows, &a); err != nil {
			return nil, fmt.Errorf("scan address: %w", err)
		}
		result = append(result, a)
	}
	return result, rows.Err()
}

func (r *addressRepository) Update(ctx context.Context, a domain.Address) (domain.Address, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	err := r.store.inTx(ctx, func(tx *sql.Tx) error {
		if a.IsDefault {
			if err := clearDefaultAddress(ctx, tx, a.UserID); err != nil {
				return err
			}
		}
		err := scanAddress(tx.QueryRowContext(ctx, `
			UPDATE addresses
			SET street = $3, city = $4, state = $5, postal_code = $6, phone = $7, is_default = $8
			WHERE id = $1 AND user_id = $2
			RETURNING `+addressColumns,
			a.ID, a.UserID, a.Street, a.City, a.State, a.PostalCode, a.Phone, a.IsDefault), &a)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrAddressNotFound
		}
		return err
	})
	if errors.Is(err, domain.ErrAddressNotFound) {
		return domain.Address{}, err
	}
	if err != nil {
		return domain.Address{}, fmt.Errorf("update address: %w", err)
	}
	return a, nil
}

func (r *addressRepository) Delete(ctx context.Context, userID, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := r.store.db.ExecContext(ctx, `DELETE FROM addresses WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete address: %w", err)
	}
	if affected, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("address rows affected: %w", err)
	} else if affected == 0 {
		return domain.ErrAddressNotFound
	}
	return nil
}

func clearDefaultAddress(ctx context.Context, tx *sql.Tx, userID int64) error {
	if _, err := tx.ExecContext(ctx, `UPDATE addresses SET is_default = FALSE WHERE user_id = $1 AND is_default`, userID); err != nil {
		return fmt.Errorf("clear default address: %w", err)
	}
	return nil
}

func scanAddress(row rowScanner, a *domain.Address) error {
	return row.Scan(&a.ID, &a.UserID, &a.Street, &a.City, &a.State, &a.PostalCode, &a.Phone, &a.IsDefault, &a.CreatedAt)
}

var (
	_ domain.UserRepository     = (*userRepository)(nil)
	_ domain.WishlistRepository = (*wishlistRepository)(nil)
	_ domain.AddressRepository  = (*addressRepository)(nil)
)
