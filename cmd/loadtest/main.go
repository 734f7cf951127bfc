// Команда loadtest гоняет сценарии покупателя против HTTP API storefront
// и печатает сводку по задержкам и кодам ответов.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/http/cookiejar"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/service/webhook"
)

const (
	loadPassword      = "load-test-pass"
	idempotencyHeader = "Idempotency-Key"
)

type loadMode string

const (
	modeBrowse       loadMode = "browse"
	modeCheckout     loadMode = "checkout"
	modeCheckoutPaid loadMode = "checkout-paid"
)

type config struct {
	baseURL       string
	total         int
	duration      time.Duration
	concurrency   int
	timeout       time.Duration
	mode          loadMode
	shipping      string
	webhookSecret string
	outputPath    string
}

type latencySummary struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
	Avg float64 `json:"avg"`
	P50 float64 `json:"p50"`
	P95 float64 `json:"p95"`
	P99 float64 `json:"p99"`
}

type stepReport struct {
	Calls     int64            `json:"calls"`
	Failed    int64            `json:"failed"`
	ErrorRate float64          `json:"error_rate"`
	Statuses  map[string]int64 `json:"statuses"`
	LatencyMs latencySummary   `json:"latency_ms"`
}

type report struct {
	StartedAt         time.Time             `json:"started_at"`
	DurationSeconds   float64               `json:"duration_seconds"`
	TotalScenarios    int64                 `json:"total_scenarios"`
	FailedScenarios   int64                 `json:"failed_scenarios"`
	ErrorRate         float64               `json:"error_rate"`
	RPS               float64               `json:"rps"`
	ScenarioLatencyMs latencySummary        `json:"scenario_latency_ms"`
	Steps             map[string]stepReport `json:"steps"`
}

type stepStats struct {
	calls     int64
	failed    int64
	statuses  map[string]int64
	latencies []float64
}

// collector накапливает результаты шагов. Шаг "scenario" покрывает весь сценарий.
type collector struct {
	mu    sync.Mutex
	steps map[string]*stepStats
}

func newCollector() *collector {
	return &collector{steps: make(map[string]*stepStats)}
}

func (c *collector) record(step string, latency time.Duration, status string, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, exists := c.steps[step]
	if !exists {
		s = &stepStats{statuses: make(map[string]int64)}
		c.steps[step] = s
	}
	s.calls++
	if !ok {
		s.failed++
	}
	s.statuses[status]++
	s.latencies = append(s.latencies, float64(latency.Microseconds())/1000.0)
}

func (c *collector) buildReport(startedAt time.Time, duration time.Duration) report {
	c.mu.Lock()
	defer c.mu.Unlock()

	result := report{
		StartedAt:       startedAt.UTC(),
		DurationSeconds: duration.Seconds(),
		Steps:           make(map[string]stepReport, len(c.steps)),
	}
	for name, s := range c.steps {
		statuses := make(map[string]int64, len(s.statuses))
		for k, v := range s.statuses {
			statuses[k] = v
		}
		sr := stepReport{
			Calls:     s.calls,
			Failed:    s.failed,
			ErrorRate: ratio(s.failed, s.calls),
			Statuses:  statuses,
			LatencyMs: buildLatencySummary(s.latencies),
		}
		if name == "scenario" {
			result.TotalScenarios = sr.Calls
			result.FailedScenarios = sr.Failed
			result.ErrorRate = sr.ErrorRate
			result.ScenarioLatencyMs = sr.LatencyMs
			continue
		}
		result.Steps[name] = sr
	}
	if duration > 0 {
		result.RPS = float64(result.TotalScenarios) / duration.Seconds()
	}
	return result
}

func parseConfig(fs *flag.FlagSet, args []string, getenv func(string) string) (config, error) {
	var (
		cfg  config
		mode string
	)
	fs.StringVar(&cfg.baseURL, "base-url", "http://localhost:8080", "storefront HTTP address")
	fs.IntVar(&cfg.total, "total", 200, "scenarios to run when -duration is not set")
	fs.DurationVar(&cfg.duration, "duration", 0, "run for this long instead of a fixed count")
	fs.IntVar(&cfg.concurrency, "concurrency", 20, "concurrent shoppers")
	fs.DurationVar(&cfg.timeout, "timeout", 5*time.Second, "per-request timeout")
	fs.StringVar(&mode, "mode", string(modeCheckout), "scenario: browse | checkout | checkout-paid")
	fs.StringVar(&cfg.shipping, "shipping", string(domain.ShippingStandard), "shipping method for checkout")
	fs.StringVar(&cfg.webhookSecret, "webhook-secret", "", "secret for signing webhooks (fallback: PAYSTACK_WEBHOOK_SECRET, PAYSTACK_SECRET_KEY)")
	fs.StringVar(&cfg.outputPath, "output", "", "optional JSON report path")
	if err := fs.Parse(args); err != nil {
		return config{}, err
	}

	cfg.mode = loadMode(strings.TrimSpace(mode))
	cfg.baseURL = strings.TrimRight(strings.TrimSpace(cfg.baseURL), "/")
	if cfg.webhookSecret == "" {
		cfg.webhookSecret = getenv("PAYSTACK_WEBHOOK_SECRET")
	}
	if cfg.webhookSecret == "" {
		cfg.webhookSecret = getenv("PAYSTACK_SECRET_KEY")
	}

	switch {
	case cfg.mode != modeBrowse && cfg.mode != modeCheckout && cfg.mode != modeCheckoutPaid:
		return config{}, fmt.Errorf("unsupported mode: %s", mode)
	case cfg.baseURL == "":
		return config{}, errors.New("base-url is required")
	case cfg.duration < 0:
		return config{}, errors.New("duration must be >= 0")
	case cfg.duration == 0 && cfg.total <= 0:
		return config{}, errors.New("total must be > 0 when duration is not set")
	case cfg.concurrency <= 0:
		return config{}, errors.New("concurrency must be > 0")
	case cfg.timeout <= 0:
		return config{}, errors.New("timeout must be > 0")
	case cfg.mode == modeCheckoutPaid && cfg.webhookSecret == "":
		return config{}, errors.New("checkout-paid mode needs a webhook secret")
	}
	if _, err := domain.ParseShippingMethod(cfg.shipping); err != nil {
		return config{}, err
	}
	return cfg, nil
}

func main() {
	cfg, err := parseConfig(flag.CommandLine, os.Args[1:], os.Getenv)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	result, err := runLoad(context.Background(), cfg)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "load test failed: %v\n", err)
		os.Exit(1)
	}

	printReport(os.Stdout, result, cfg)
	if cfg.outputPath != "" {
		if err := writeJSONReport(cfg.outputPath, result); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "failed to write report: %v\n", err)
			os.Exit(1)
		}
	}
	if result.FailedScenarios > 0 {
		os.Exit(1)
	}
}

func runLoad(ctx context.Context, cfg config) (report, error) {
	catalog, err := fetchCatalog(ctx, cfg)
	if err != nil {
		return report{}, err
	}

	startedAt := time.Now()
	runID := strconv.FormatInt(startedAt.UnixNano(), 36)
	col := newCollector()
	var verifier *webhook.Verifier
	if cfg.mode == modeCheckoutPaid {
		verifier = webhook.NewVerifier(cfg.webhookSecret)
	}

	jobs := make(chan int, cfg.concurrency*2)
	var wg sync.WaitGroup
	for w := 0; w < cfg.concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range jobs {
				s := newVirtualShopper(cfg, col, fmt.Sprintf("lt-%s-%d", runID, id))
				s.run(ctx, catalog[id%len(catalog)], verifier)
			}
		}()
	}

	dispatchJobs(ctx, jobs, cfg)
	wg.Wait()
	return col.buildReport(startedAt, time.Since(startedAt)), nil
}

func dispatchJobs(ctx context.Context, jobs chan<- int, cfg config) {
	defer close(jobs)

	if cfg.duration <= 0 {
		for i := 0; i < cfg.total; i++ {
			select {
			case <-ctx.Done():
				return
			case jobs <- i:
			}
		}
		return
	}

	timer := time.NewTimer(cfg.duration)
	defer timer.Stop()
	for i := 0; ; i++ {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			return
		case jobs <- i:
		}
	}
}

type product struct {
	ID   int64  `json:"id"`
	Slug string `json:"slug"`
	Name string `json:"name"`
	// Price приходит строкой с двумя знаками после запятой.
	Price string `json:"price"`
}

func fetchCatalog(ctx context.Context, cfg config) ([]product, error) {
	client := &http.Client{Timeout: cfg.timeout}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cfg.baseURL+"/api/v1/products", nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch catalog: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch catalog: unexpected status %d", resp.StatusCode)
	}
	var products []product
	if err := json.NewDecoder(resp.Body).Decode(&products); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if len(products) == 0 {
		return nil, errors.New("catalog is empty, nothing to buy")
	}
	return products, nil
}

// virtualShopper — один покупатель со своими cookie.
type virtualShopper struct {
	cfg    config
	col    *collector
	client *http.Client
	email  string
}

func newVirtualShopper(cfg config, col *collector, tag string) *virtualShopper {
	jar, _ := cookiejar.New(nil)
	return &virtualShopper{
		cfg:    cfg,
		col:    col,
		client: &http.Client{Timeout: cfg.timeout, Jar: jar},
		email:  tag + "@load.test",
	}
}

type checkoutResponse struct {
	Reference   string `json:"reference"`
	AmountMinor int64  `json:"amount_minor"`
	Currency    string `json:"currency"`
}

type cartResponse struct {
	CartCode string `json:"cart_code"`
}

func (s *virtualShopper) run(ctx context.Context, p product, verifier *webhook.Verifier) {
	started := time.Now()
	err := s.scenario(ctx, p, verifier)
	status := "ok"
	if err != nil {
		status = "failed"
	}
	s.col.record("scenario", time.Since(started), status, err == nil)
}

func (s *virtualShopper) scenario(ctx context.Context, p product, verifier *webhook.Verifier) error {
	if err := s.call(ctx, "list_products", http.MethodGet, "/api/v1/products", nil, nil, http.StatusOK, nil); err != nil {
		return err
	}
	if err := s.call(ctx, "get_product", http.MethodGet, "/api/v1/products/"+p.Slug, nil, nil, http.StatusOK, nil); err != nil {
		return err
	}
	if s.cfg.mode == modeBrowse {
		return nil
	}

	register := map[string]string{
		"email": s.email, "username": strings.TrimSuffix(s.email, "@load.test"),
		"password": loadPassword, "confirm_password": loadPassword,
	}
	if err := s.call(ctx, "register", http.MethodPost, "/api/v1/auth/register", register, nil, http.StatusCreated, nil); err != nil {
		return err
	}
	login := map[string]string{"email": s.email, "password": loadPassword}
	if err := s.call(ctx, "login", http.MethodPost, "/api/v1/auth/login", login, nil, http.StatusOK, nil); err != nil {
		return err
	}

	var cart cartResponse
	item := map[string]any{"product_id": p.ID, "quantity": 1}
	if err := s.call(ctx, "add_to_cart", http.MethodPost, "/api/v1/cart/items", item, nil, http.StatusOK, &cart); err != nil {
		return err
	}

	var session checkoutResponse
	headers := map[string]string{idempotencyHeader: s.email}
	body := map[string]string{"shipping_method": s.cfg.shipping}
	if err := s.call(ctx, "checkout", http.MethodPost, "/api/v1/checkout", body, headers, http.StatusOK, &session); err != nil {
		return err
	}
	if s.cfg.mode != modeCheckoutPaid {
		return nil
	}

	payload, err := chargeSuccess(s.email, p, cart.CartCode, s.cfg.shipping, session)
	if err != nil {
		return err
	}
	headers = map[string]string{webhook.SignatureHeader: verifier.Sign(payload)}
	return s.call(ctx, "webhook", http.MethodPost, "/api/v1/webhooks/paystack", payload, headers, http.StatusOK, nil)
}

// chargeSuccess собирает уведомление, которое прислал бы процессор после оплаты.
func chargeSuccess(email string, p product, cartCode, shipping string, session checkoutResponse) ([]byte, error) {
	return json.Marshal(map[string]any{
		"event": "charge.success",
		"data": map[string]any{
			"id":        time.Now().UnixNano(),
			"reference": session.Reference,
			"amount":    session.AmountMinor,
			"currency":  session.Currency,
			"status":    "success",
			"customer":  map[string]string{"email": email},
			"metadata": domain.PaymentMetadata{
				CartCode: cartCode,
				Items: []domain.MetadataItem{{
					ProductID: p.ID,
					Name:      p.Name,
					Quantity:  1,
					UnitPrice: p.Price,
				}},
				ShippingMethod: shipping,
				AmountMinor:    session.AmountMinor,
			},
		},
	})
}

// call выполняет шаг сценария и записывает его результат. body типа []byte уходит как есть.
func (s *virtualShopper) call(ctx context.Context, step, method, path string, body any, headers map[string]string, want int, out any) error {
	var reader io.Reader
	switch v := body.(type) {
	case nil:
	case []byte:
		reader = bytes.NewReader(v)
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.cfg.baseURL+path, reader)
	if err != nil {
		return err
	}
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	started := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		s.col.record(step, time.Since(started), "transport_error", false)
		return fmt.Errorf("%s: %w", step, err)
	}
	defer resp.Body.Close()

	ok := resp.StatusCode == want
	if ok && out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			ok = false
		}
	} else {
		_, _ = io.Copy(io.Discard, resp.Body)
	}
	s.col.record(step, time.Since(started), strconv.Itoa(resp.StatusCode), ok)
	if !ok {
		return fmt.Errorf("%s: unexpected status %d", step, resp.StatusCode)
	}
	return nil
}

func writeJSONReport(path string, result report) error {
	cleanPath := filepath.Clean(path)
	if cleanPath == "." || cleanPath == string(filepath.Separator) {
		return errors.New("output path must point to a file")
	}
	if cleanPath == ".." || strings.HasPrefix(cleanPath, ".."+string(filepath.Separator)) {
		return fmt.Errorf("output path must be inside current directory: %s", path)
	}

	// #nosec G304 -- путь задаёт оператор через флаг.
	file, err := os.Create(cleanPath)
	if err != nil {
		return err
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

func printReport(w io.Writer, result report, cfg config) {
	_, _ = fmt.Fprintln(w, "Load test summary")
	_, _ = fmt.Fprintf(w, "mode=%s total=%d failed=%d error_rate=%.4f\n",
		cfg.mode, result.TotalScenarios, result.FailedScenarios, result.ErrorRate)
	_, _ = fmt.Fprintf(w, "duration=%.2fs rps=%.2f\n", result.DurationSeconds, result.RPS)
	l := result.ScenarioLatencyMs
	_, _ = fmt.Fprintf(w, "scenario latency ms: min=%.2f avg=%.2f p50=%.2f p95=%.2f p99=%.2f max=%.2f\n",
		l.Min, l.Avg, l.P50, l.P95, l.P99, l.Max)

	names := make([]string, 0, len(result.Steps))
	for name := range result.Steps {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		st := result.Steps[name]
		_, _ = fmt.Fprintf(w, "%s: calls=%d failed=%d error_rate=%.4f p95=%.2fms\n",
			name, st.Calls, st.Failed, st.ErrorRate, st.LatencyMs.P95)
	}
}

func buildLatencySummary(values []float64) latencySummary {
	if len(values) == 0 {
		return latencySummary{}
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	var sum float64
	for _, v := range sorted {
		sum += v
	}
	return latencySummary{
		Min: sorted[0],
		Max: sorted[len(sorted)-1],
		Avg: sum / float64(len(sorted)),
		P50: percentile(sorted, 50),
		P95: percentile(sorted, 95),
		P99: percentile(sorted, 99),
	}
}

func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if len(sorted) == 1 {
		return sorted[0]
	}

	rank := (p / 100.0) * float64(len(sorted)-1)
	lower := int(math.Floor(rank))
	upper := int(math.Ceil(rank))
	if lower == upper {
		return sorted[lower]
	}
	weight := rank - float64(lower)
	return sorted[lower] + (sorted[upper]-sorted[lower])*weight
}

func ratio(failed, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return float64(failed) / float64(total)
}
