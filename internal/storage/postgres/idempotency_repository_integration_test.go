package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

func TestIdempotencyRepository_PostgresLifecycle(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewIdempotencyRepository(store)
	ctx := context.Background()

	ttl := time.Now().UTC().Add(time.Hour)
	created, err := repo.CreateProcessing(ctx, "checkout-1", "hash-a", ttl)
	require.NoError(t, err)
	require.Equal(t, domain.IdempotencyStatusProcessing, created.Status)

	_, err = repo.CreateProcessing(ctx, "checkout-1", "hash-a", ttl)
	require.ErrorIs(t, err, domain.ErrIdempotencyKeyAlreadyExists)

	existing, err := repo.CreateProcessing(ctx, "checkout-1", "hash-b", ttl)
	require.ErrorIs(t, err, domain.ErrIdempotencyHashMismatch)
	require.Equal(t, "hash-a", existing.RequestHash)

	require.NoError(t, repo.MarkDone(ctx, "checkout-1", []byte(`{"authorization_url":"u"}`), 200))
	done, err := repo.Get(ctx, "checkout-1")
	require.NoError(t, err)
	require.Equal(t, domain.IdempotencyStatusDone, done.Status)
	require.Equal(t, 200, done.HTTPStatus)
	require.JSONEq(t, `{"authorization_url":"u"}`, string(done.ResponseBody))

	require.ErrorIs(t, repo.MarkFailed(ctx, "missing", nil, 500), domain.ErrIdempotencyKeyNotFound)
}

func TestIdempotencyRepository_PostgresExpiredKeys(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewIdempotencyRepository(store)
	ctx := context.Background()

	_, err := repo.CreateProcessing(ctx, "expired-1", "hash", time.Now().UTC().Add(-time.Minute))
	require.NoError(t, err)
	_, err = repo.CreateProcessing(ctx, "expired-2", "hash", time.Now().UTC().Add(-time.Minute))
	require.NoError(t, err)

	// просроченный ключ можно переиспользовать с новым телом
	reused, err := repo.CreateProcessing(ctx, "expired-2", "hash-new", time.Now().UTC().Add(time.Hour))
	require.NoError(t, err)
	require.Equal(t, "hash-new", reused.RequestHash)

	removed, err := repo.DeleteExpired(ctx, time.Now().UTC(), 10)
	require.NoError(t, err)
	require.Equal(t, 1, removed)

	_, err = repo.Get(ctx, "expired-1")
	require.ErrorIs(t, err, domain.ErrIdempotencyKeyNotFound)
}
