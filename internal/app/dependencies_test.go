package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/storefront/internal/health"
)

func TestInitRuntimeDependencies_Memory(t *testing.T) {
	deps, err := initRuntimeDependencies(context.Background(), DefaultConfig(), log.WithField("test", "deps"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = deps.closeFn() })

	assert.NotNil(t, deps.memoryCatalog)
	assert.NotNil(t, deps.products)
	assert.NotNil(t, deps.carts)
	assert.NotNil(t, deps.orders)
	assert.NotNil(t, deps.outboxRepo)
	assert.NotNil(t, deps.idempotencyRepo)
	assert.NotNil(t, deps.recent)
	assert.Nil(t, deps.productCache)
	assert.Empty(t, deps.probes)
}

func TestInitRuntimeDependencies_UnsupportedDriver(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StorageDriver = "sqlite"

	_, err := initRuntimeDependencies(context.Background(), cfg, log.WithField("test", "deps"))
	require.Error(t, err)
}

func TestInitRuntimeDependencies_RedisProbeIsOptional(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := DefaultConfig()
	cfg.RedisAddr = mr.Addr()

	deps, err := initRuntimeDependencies(context.Background(), cfg, log.WithField("test", "deps"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = deps.closeFn() })

	require.NotNil(t, deps.productCache)
	require.Contains(t, deps.probes, "redis")

	h := health.NewHandler("test")
	deps.registerProbes(h)

	status, checks := h.Run(context.Background())
	assert.Equal(t, health.StatusHealthy, status)
	require.Len(t, checks, 1)

	mr.Close()
	status, _ = h.Run(context.Background())
	assert.Equal(t, health.StatusDegraded, status)

	rec := httptest.NewRecorder()
	h.ReadinessHandler(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCloseFn_RunsInReverseOrder(t *testing.T) {
	var order []int
	deps := &runtimeDependencies{closers: []func() error{
		func() error { order = append(order, 1); return nil },
		func() error { order = append(order, 2); return nil },
	}}
	require.NoError(t, deps.closeFn())
	assert.Equal(t, []int{2, 1}, order)
}
