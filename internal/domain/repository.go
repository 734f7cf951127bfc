package domain

import (
	"context"
	"time"
)

// CartRepository описывает хранилище анонимных корзин.
type CartRepository interface {
	// Create сохраняет новую пустую корзину с указанным кодом.
	Create(ctx context.Context, code string) (Cart, error)
	// Get возвращает корзину с позициями или ErrCartNotFound.
	Get(ctx context.Context, code string) (Cart, error)
	// UpsertItem выставляет количество товара в корзине (создаёт или перезаписывает строку).
	UpsertItem(ctx context.Context, cartID, productID int64, qty int32) (CartItem, error)
	// RemoveItem удаляет строку; отсутствие строки ошибкой не считается.
	RemoveItem(ctx context.Context, cartID, productID int64) error
}

// ProductRepository описывает каталог товаров.
type ProductRepository interface {
	Create(ctx context.Context, p Product) (Product, error)
	Get(ctx context.Context, id int64) (Product, error)
	GetBySlug(ctx context.Context, slug string) (Product, error)
	List(ctx context.Context, limit int) ([]Product, error)
	// ListByIDs возвращает найденные товары; отсутствующие ID пропускаются.
	ListByIDs(ctx context.Context, ids []int64) ([]Product, error)
	AddGalleryImage(ctx context.Context, productID int64, image string) error
}

// OrderRepository описывает требования к хранилищу заказов.
type OrderRepository interface {
	// Fulfill атомарно создаёт заказ, переносит позиции корзины, очищает её
	// и ставит события в outbox. Повтор с тем же CheckoutID ничего не меняет.
	Fulfill(ctx context.Context, order Order, cartCode string, events []OutboxMessage) (FulfillmentResult, error)
	// Get возвращает заказ по идентификатору или ErrOrderNotFound.
	Get(ctx context.Context, id string) (Order, error)
	// GetByCheckoutID ищет заказ по идентификатору оплаты процессора.
	GetByCheckoutID(ctx context.Context, checkoutID string) (Order, error)
	// ListByEmail возвращает заказы покупателя, новые первыми.
	ListByEmail(ctx context.Context, email string, limit int) ([]Order, error)
}

// UserRepository хранит учётные записи.
type UserRepository interface {
	Create(ctx context.Context, u User) (User, error)
	Get(ctx context.Context, id int64) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
}

// WishlistRepository хранит списки желаний.
type WishlistRepository interface {
	// Toggle добавляет товар, если его нет, иначе удаляет. Возвращает true при добавлении.
	Toggle(ctx context.Context, userID, productID int64) (bool, error)
	List(ctx context.Context, userID int64) ([]WishlistEntry, error)
}

// AddressRepository хранит адреса доставки. Все операции ограничены владельцем.
type AddressRepository interface {
	Create(ctx context.Context, a Address) (Address, error)
	List(ctx context.Context, userID int64) ([]Address, error)
	Update(ctx context.Context, a Address) (Address, error)
	Delete(ctx context.Context, userID, id int64) error
}

// RecentlyViewedStore хранит последние просмотренные товары пользователя.
type RecentlyViewedStore interface {
	Touch(ctx context.Context, userID, productID int64, at time.Time) error
	// List возвращает ID товаров, последние просмотренные первыми.
	List(ctx context.Context, userID int64, limit int) ([]int64, error)
}
