package domain

import "time"

// WishlistEntry — товар в списке желаний пользователя.
type WishlistEntry struct {
	UserID    int64
	ProductID int64
	CreatedAt time.Time
}

type Address struct {
	ID         int64
	UserID     int64
	Street     string
	City       string
	State      string
	PostalCode string
	Phone      string
	IsDefault  bool
	CreatedAt  time.Time
}

// RecentlyViewedLimit — сколько последних просмотров хранится на пользователя.
const RecentlyViewedLimit = 10
