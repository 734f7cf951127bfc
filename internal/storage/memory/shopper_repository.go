package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// UserRepository хранит учётные записи в памяти.
type UserRepository struct {
	mu      sync.RWMutex
	nextID  int64
	byID    map[int64]domain.User
	byEmail map[string]int64
}

// NewUserRepository создаёт пустое хранилище пользователей.
func NewUserRepository() *UserRepository {
	return &UserRepository{byID: make(map[int64]domain.User), byEmail: make(map[string]int64)}
}

func (r *UserRepository) Create(_ context.Context, u domain.User) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	email := strings.ToLower(strings.TrimSpace(u.Email))
	if _, taken := r.byEmail[email]; taken {
		return domain.User{}, domain.ErrEmailTaken
	}
	for _, existing := range r.byID {
		if u.Username != "" && strings.EqualFold(existing.Username, u.Username) {
			return domain.User{}, domain.ErrUsernameTaken
		}
	}

	r.nextID++
	u.ID = r.nextID
	u.Email = email
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	r.byID[u.ID] = u
	r.byEmail[email] = u.ID
	return u, nil
}

func (r *UserRepository) Get(_ context.Context, id int64) (domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[id]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return u, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	r.mu.RLock()
	id, ok := r.byEmail[strings.ToLower(strings.TrimSpace(email))]
	r.mu.RUnlock()
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return r.Get(ctx, id)
}

// WishlistRepository хранит списки желаний в памяти.
type WishlistRepository struct {
	mu      sync.Mutex
	entries map[int64]map[int64]time.Time
}

func NewWishlistRepository() *WishlistRepository {
	return &WishlistRepository{entries: make(map[int64]map[int64]time.Time)}
}

func (r *WishlistRepository) Toggle(_ context.Context, userID, productID int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	items, ok := r.entries[userID]
	if !ok {
		items = make(map[int64]time.Time)
		r.entries[userID] = items
	}
	if _, exists := items[productID]; exists {
		delete(items, productID)
		return false, nil
	}
	items[productID] = time.Now().UTC()
	return true, nil
}

// List возвращает записи, новые первыми.
func (r *WishlistRepository) List(_ context.Context, userID int64) ([]domain.WishlistEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := make([]domain.WishlistEntry, 0, len(r.entries[userID]))
	for productID, at := range r.entries[userID] {
		result = append(result, domain.WishlistEntry{UserID: userID, ProductID: productID, CreatedAt: at})
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ProductID > result[j].ProductID
	})
	return result, nil
}

// AddressRepository хранит адреса доставки в памяти.
type AddressRepository struct {
	mu     sync.Mutex
	nextID int64
	items  map[int64]domain.Address
}

func NewAddressRepository() *AddressRepository {
	return &AddressRepository{items: make(map[int64]domain.Address)}
}

func (r *AddressRepository) Create(_ context.Context, a domain.Address) (domain.Address, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	a.ID = r.nextID
	a.CreatedAt = time.Now().UTC()
	if a.IsDefault {
		r.clearDefaultLocked(a.UserID)
	}
	r.items[a.ID] = a
	return a, nil
}

func (r *AddressRepository) List(_ context.Context, userID int64) ([]domain.Address, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := make([]domain.Address, 0)
	for _, a := range r.items {
		if a.UserID == userID {
			result = append(result, a)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (r *AddressRepository) Update(_ context.Context, a domain.Address) (domain.Address, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.items[a.ID]
	if !ok || current.UserID != a.UserID {
		return domain.Address{}, domain.ErrAddressNotFound
	}
	if a.IsDefault {
		r.clearDefaultLocked(a.UserID)
	}
	a.CreatedAt = current.CreatedAt
	r.items[a.ID] = a
	return a, nil
}

func (r *AddressRepository) Delete(_ context.Context, userID, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.items[id]
	if !ok || current.UserID != userID {
		return domain.ErrAddressNotFound
	}
	delete(r.items, id)
	return nil
}

func (r *AddressRepository) clearDefaultLocked(userID int64) {
	for id, a := range r.items {
		if a.UserID == userID && a.IsDefault {
			a.IsDefault = false
			r.items[id] = a
		}
	}
}

// RecentlyViewedStore хранит историю просмотров в памяти, не больше RecentlyViewedLimit на пользователя.
type RecentlyViewedStore struct {
	mu    sync.Mutex
	views map[int64]map[int64]time.Time
}

func NewRecentlyViewedStore() *RecentlyViewedStore {
	return &RecentlyViewedStore{views: make(map[int64]map[int64]time.Time)}
}

func (s *RecentlyViewedStore) Touch(_ context.Context, userID, productID int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	views, ok := s.views[userID]
	if !ok {
		views = make(map[int64]time.Time)
		s.views[userID] = views
	}
	views[productID] = at

	ordered := newestFirst(views)
	for _, stale := range ordered[min(len(ordered), domain.RecentlyViewedLimit):] {
		delete(views, stale)
	}
	return nil
}

func (s *RecentlyViewedStore) List(_ context.Context, userID int64, limit int) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ordered := newestFirst(s.views[userID])
	if limit > 0 && len(ordered) > limit {
		ordered = ordered[:limit]
	}
	return ordered, nil
}

func newestFirst(views map[int64]time.Time) []int64 {
	ids := make([]int64, 0, len(views))
	for id := range views {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		ti, tj := views[ids[i]], views[ids[j]]
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return ids[i] > ids[j]
	})
	return ids
}

var (
	_ domain.UserRepository      = (*UserRepository)(nil)
	_ domain.WishlistRepository  = (*WishlistRepository)(nil)
	_ domain.AddressRepository   = (*AddressRepository)(nil)
	_ domain.RecentlyViewedStore = (*RecentlyViewedStore)(nil)
)
