package main

import (
	"bytes"
	"context"
	"flag"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/service/auth"
	"github.com/vladislavdragonenkov/storefront/internal/service/cart"
	"github.com/vladislavdragonenkov/storefront/internal/service/catalog"
	"github.com/vladislavdragonenkov/storefront/internal/service/checkout"
	"github.com/vladislavdragonenkov/storefront/internal/service/fulfillment"
	"github.com/vladislavdragonenkov/storefront/internal/service/payment"
	"github.com/vladislavdragonenkov/storefront/internal/service/shopper"
	"github.com/vladislavdragonenkov/storefront/internal/service/webhook"
	"github.com/vladislavdragonenkov/storefront/internal/storage/memory"
	"github.com/vladislavdragonenkov/storefront/internal/transport/httpapi"
)

const testSecret = "sk_test_load"

func newStorefront(t *testing.T) (*httptest.Server, *memory.OutboxRepository) {
	t.Helper()
	products := memory.NewCatalogRepository()
	outbox := memory.NewOutboxRepository()
	carts, orders := memory.NewCommerceRepositories(products, outbox)
	timeline := memory.NewTimelineRepository()

	_, err := products.Create(context.Background(), domain.Product{Name: "Stool", Slug: "stool", Price: decimal.RequireFromString("12.50")})
	require.NoError(t, err)

	tokens, err := auth.NewTokenIssuer("load-jwt", time.Hour)
	require.NoError(t, err)
	cartSvc := cart.NewService(carts, products)

	srv := httptest.NewServer(httpapi.NewRouter(httpapi.Services{
		Carts:    cartSvc,
		Checkout: checkout.NewService(cartSvc, payment.NewFakeGateway(""), checkout.Config{}),
		Webhooks: webhook.NewProcessor(webhook.NewVerifier(testSecret), fulfillment.NewEngine(orders, timeline)),
		Auth:     auth.NewService(memory.NewUserRepository(), tokens, auth.WithBcryptCost(bcrypt.MinCost)),
		Catalog:  catalog.NewService(products),
		Shopper: shopper.NewService(products, memory.NewWishlistRepository(),
			memory.NewAddressRepository(), memory.NewRecentlyViewedStore()),
		Orders:   orders,
		Timeline: timeline,
	}, httpapi.Config{}))
	t.Cleanup(srv.Close)
	return srv, outbox
}

func testConfig(baseURL string, mode loadMode) config {
	return config{
		baseURL:       baseURL,
		total:         6,
		concurrency:   3,
		timeout:       5 * time.Second,
		mode:          mode,
		shipping:      string(domain.ShippingStandard),
		webhookSecret: testSecret,
	}
}

func TestParseConfig(t *testing.T) {
	cfg, err := parseConfig(flag.NewFlagSet("loadtest", flag.ContinueOnError),
		[]string{"-mode=checkout-paid", "-base-url=http://shop:8080/", "-total=10"},
		func(key string) string {
			if key == "PAYSTACK_SECRET_KEY" {
				return "sk_env"
			}
			return ""
		})
	require.NoError(t, err)
	assert.Equal(t, modeCheckoutPaid, cfg.mode)
	assert.Equal(t, "http://shop:8080", cfg.baseURL)
	assert.Equal(t, "sk_env", cfg.webhookSecret)
	assert.Equal(t, 10, cfg.total)
}

func TestParseConfig_Errors(t *testing.T) {
	noEnv := func(string) string { return "" }
	cases := map[string][]string{
		"unknown mode":      {"-mode=stampede"},
		"paid without key":  {"-mode=checkout-paid"},
		"zero concurrency":  {"-concurrency=0"},
		"zero total":        {"-total=0"},
		"unknown shipping":  {"-shipping=teleport"},
		"negative duration": {"-duration=-1s"},
		"zero timeout":      {"-timeout=0s"},
		"missing base url":  {"-base-url= "},
	}
	for name, args := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := parseConfig(flag.NewFlagSet("loadtest", flag.ContinueOnError), args, noEnv)
			require.Error(t, err)
		})
	}
}

func TestRunLoad_CheckoutPaid(t *testing.T) {
	srv, outbox := newStorefront(t)

	result, err := runLoad(context.Background(), testConfig(srv.URL, modeCheckoutPaid))
	require.NoError(t, err)

	assert.EqualValues(t, 6, result.TotalScenarios)
	assert.Zero(t, result.FailedScenarios, "%+v", result.Steps)
	for _, step := range []string{"list_products", "get_product", "register", "login", "add_to_cart", "checkout", "webhook"} {
		require.Contains(t, result.Steps, step)
		assert.EqualValues(t, 6, result.Steps[step].Calls, step)
	}

	stats, err := outbox.Stats(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 6, stats.PendingCount)
}

func TestRunLoad_BrowseOnly(t *testing.T) {
	srv, _ := newStorefront(t)

	result, err := runLoad(context.Background(), testConfig(srv.URL, modeBrowse))
	require.NoError(t, err)
	assert.Zero(t, result.FailedScenarios)
	assert.NotContains(t, result.Steps, "checkout")
}

func TestRunLoad_EmptyCatalogFails(t *testing.T) {
	srv := httptest.NewServer(httpapi.NewRouter(httpapi.Services{
		Catalog: catalog.NewService(memory.NewCatalogRepository()),
	}, httpapi.Config{}))
	defer srv.Close()

	_, err := runLoad(context.Background(), testConfig(srv.URL, modeBrowse))
	require.ErrorContains(t, err, "catalog is empty")
}

func TestCollector_FailedStepsCount(t *testing.T) {
	col := newCollector()
	col.record("scenario", 10*time.Millisecond, "ok", true)
	col.record("scenario", 30*time.Millisecond, "failed", false)
	col.record("checkout", 5*time.Millisecond, "502", false)

	r := col.buildReport(time.Now(), time.Second)
	assert.EqualValues(t, 2, r.TotalScenarios)
	assert.EqualValues(t, 1, r.FailedScenarios)
	assert.InDelta(t, 0.5, r.ErrorRate, 1e-9)
	assert.InDelta(t, 2.0, r.RPS, 1e-9)
	assert.EqualValues(t, 1, r.Steps["checkout"].Statuses["502"])

	var out bytes.Buffer
	printReport(&out, r, config{mode: modeCheckout})
	assert.Contains(t, out.String(), "checkout: calls=1 failed=1")
}

func TestPercentile(t *testing.T) {
	sorted := []float64{1, 2, 3, 4}
	assert.Equal(t, 1.0, percentile(sorted, 0))
	assert.Equal(t, 4.0, percentile(sorted, 100))
	assert.InDelta(t, 2.5, percentile(sorted, 50), 1e-9)
	assert.Zero(t, percentile(nil, 50))
}

func TestWriteJSONReport(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	require.NoError(t, writeJSONReport("report.json", report{TotalScenarios: 3}))
	raw, err := os.ReadFile(filepath.Join(dir, "report.json"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"total_scenarios": 3`)

	require.Error(t, writeJSONReport("../escape.json", report{}))
	require.Error(t, writeJSONReport(".", report{}))
}
