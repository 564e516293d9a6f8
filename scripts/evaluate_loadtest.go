//go:build ignore
// +build ignore

// Governance pipeline load test.
//
// Drives sustained traffic through POST /api/v1/evaluate on a running
// mailguard instance and reports throughput, latency percentiles, and the
// mix of outcomes the governor produced. Requests pass through the full
// pipeline (warmup gate, quota counters, spam scoring, AI gate), so point
// this at a disposable environment: it consumes real quota, creates pending
// approvals, and writes audit rows.
//
// Usage:
//
//	go run scripts/evaluate_loadtest.go \
//	  --base-url http://localhost:8080 \
//	  --api-key "$MAILGUARD_API_KEY" \
//	  --workers 16 --duration 60s --tenants 8
//
// The API key falls back to the MAILGUARD_API_KEY environment variable when
// the flag is empty. With --rate 0 the workers run unthrottled; otherwise
// a shared pacer caps the fleet at the requested requests per second.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// CONFIGURATION
// =============================================================================

type Config struct {
	BaseURL  string
	APIKey   string
	Workers  int
	Duration time.Duration
	Tenants  int
	Rate     int // total requests/sec across all workers, 0 = unthrottled
	Timeout  time.Duration

	// traffic mix, as shares of total requests
	PromoShare float64
	AIShare    float64
	SpamShare  float64
}

func DefaultConfig() Config {
	return Config{
		BaseURL:    "http://localhost:8080",
		Workers:    16,
		Duration:   60 * time.Second,
		Tenants:    8,
		Rate:       0,
		Timeout:    10 * time.Second,
		PromoShare: 0.20,
		AIShare:    0.10,
		SpamShare:  0.02,
	}
}

// evaluatePayload mirrors the evaluate endpoint's request body.
type evaluatePayload struct {
	Recipient       string `json:"recipient"`
	TenantID        string `json:"tenant_id"`
	Scenario        string `json:"scenario"`
	RenderedSubject string `json:"rendered_subject"`
	RenderedHTML    string `json:"rendered_html,omitempty"`
	RenderedText    string `json:"rendered_text,omitempty"`
	AIGenerated     bool   `json:"ai_generated,omitempty"`
}

// decisionPayload holds the fields of the response this tool cares about.
type decisionPayload struct {
	Outcome           string `json:"outcome"`
	ReasonCode        string `json:"reason_code"`
	RetryAfterSeconds int64  `json:"retry_after_seconds"`
	RiskLevel         string `json:"risk_level"`
	ApprovalID        string `json:"approval_id"`
	MessageID         string `json:"message_id"`
}

// buildPayload produces one request according to the configured traffic mix.
// Recipients are unique per request so blacklist and unsubscribe state from
// earlier runs cannot skew the outcome counts.
func buildPayload(cfg Config, rng *rand.Rand, tenant string) evaluatePayload {
	p := evaluatePayload{
		Recipient: fmt.Sprintf("load-%s@loadtest.example.net", uuid.NewString()[:8]),
		TenantID:  tenant,
	}

	roll := rng.Float64()
	switch {
	case roll < cfg.SpamShare:
		// crafted to trip the content scorer regardless of scenario
		p.Scenario = "promotional"
		p.RenderedSubject = "WIN FREE CASH NOW!!!"
		p.RenderedText = "You are a winner! Claim your prize immediately, click here."
	case roll < cfg.SpamShare+cfg.AIShare:
		p.Scenario = "ai_generated"
		p.AIGenerated = true
		p.RenderedSubject = "Your weekly account digest"
		p.RenderedText = "Usage summary for the past week is attached below."
	case roll < cfg.SpamShare+cfg.AIShare+cfg.PromoShare:
		p.Scenario = "promotional"
		p.RenderedSubject = "New features shipping this month"
		p.RenderedText = "A short tour of what changed and how to try it."
	default:
		if rng.Intn(4) == 0 {
			p.Scenario = "invoice"
			p.RenderedSubject = "Invoice INV-2031 is ready"
			p.RenderedText = "Your invoice for this billing period is attached."
		} else {
			p.Scenario = "transactional"
			p.RenderedSubject = "Your password was changed"
			p.RenderedText = "If this was not you, contact support right away."
		}
	}
	return p
}

// =============================================================================
// METRICS COLLECTION
// =============================================================================

const maxLatencySamples = 200_000

type Metrics struct {
	mu        sync.Mutex
	latencies []time.Duration
	byReason  map[string]int64

	Total     int64
	Allowed   int64
	Rejected  int64
	Pending   int64
	Transport int64 // dial errors, timeouts, unreadable responses
	Server5xx int64
}

func NewMetrics() *Metrics {
	return &Metrics{
		latencies: make([]time.Duration, 0, maxLatencySamples),
		byReason:  make(map[string]int64),
	}
}

func (m *Metrics) RecordDecision(dec decisionPayload, elapsed time.Duration) {
	atomic.AddInt64(&m.Total, 1)
	switch dec.Outcome {
	case "allowed":
		atomic.AddInt64(&m.Allowed, 1)
	case "pending_approval":
		atomic.AddInt64(&m.Pending, 1)
	default:
		atomic.AddInt64(&m.Rejected, 1)
	}

	m.mu.Lock()
	if dec.ReasonCode != "" {
		m.byReason[dec.ReasonCode]++
	}
	if len(m.latencies) < maxLatencySamples {
		m.latencies = append(m.latencies, elapsed)
	}
	m.mu.Unlock()
}

func (m *Metrics) RecordTransportFailure() {
	atomic.AddInt64(&m.Total, 1)
	atomic.AddInt64(&m.Transport, 1)
}

func (m *Metrics) Record5xx() {
	atomic.AddInt64(&m.Total, 1)
	atomic.AddInt64(&m.Server5xx, 1)
}

// ReasonCounts returns a copy of the per-reason tally.
func (m *Metrics) ReasonCounts() map[string]int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]int64, len(m.byReason))
	for k, v := range m.byReason {
		out[k] = v
	}
	return out
}

// Percentiles returns P50, P95, and P99 over the sampled latencies.
func (m *Metrics) Percentiles() (p50, p95, p99 time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return percentile(m.latencies, 50), percentile(m.latencies, 95), percentile(m.latencies, 99)
}

func percentile(durations []time.Duration, p float64) time.Duration {
	if len(durations) == 0 {
		return 0
	}
	sorted := make([]time.Duration, len(durations))
	copy(sorted, durations)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	idx := int(float64(len(sorted)-1) * p / 100.0)
	return sorted[idx]
}

// =============================================================================
// LOAD TEST RUNNER
// =============================================================================

type PhaseResult struct {
	Name     string
	Status   string // PASS, FAIL, SKIP
	Duration time.Duration
	Details  map[string]interface{}
}

type LoadTester struct {
	cfg     Config
	client  *http.Client
	metrics *Metrics
	results []PhaseResult
}

func NewLoadTester(cfg Config) *LoadTester {
	return &LoadTester{
		cfg: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        cfg.Workers * 2,
				MaxIdleConnsPerHost: cfg.Workers * 2,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		metrics: NewMetrics(),
	}
}

// runPreflight confirms the target is up and prints where the sending
// identity sits on its warmup ramp, so the outcome mix in the report can be
// read in context. A day-1 identity rejecting every promotional request is
// the governor working, not the service failing.
func (lt *LoadTester) runPreflight(ctx context.Context) PhaseResult {
	start := time.Now()
	details := make(map[string]interface{})

	resp, err := lt.get(ctx, "/health", false)
	if err != nil {
		details["error"] = fmt.Sprintf("health check: %v", err)
		return PhaseResult{Name: "Preflight", Status: "FAIL", Duration: time.Since(start), Details: details}
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		details["error"] = fmt.Sprintf("health check returned %d", resp.StatusCode)
		return PhaseResult{Name: "Preflight", Status: "FAIL", Duration: time.Since(start), Details: details}
	}
	details["health"] = "ok"

	resp, err = lt.get(ctx, "/api/v1/warmup/status", true)
	if err != nil {
		details["error"] = fmt.Sprintf("warmup status: %v", err)
		return PhaseResult{Name: "Preflight", Status: "FAIL", Duration: time.Since(start), Details: details}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		details["error"] = fmt.Sprintf("warmup status returned %d (bad API key?)", resp.StatusCode)
		return PhaseResult{Name: "Preflight", Status: "FAIL", Duration: time.Since(start), Details: details}
	}

	var status struct {
		Identity string `json:"identity"`
		Phase    struct {
			Day              int      `json:"day"`
			DailyCap         int      `json:"daily_cap"`
			TenantHourlyCap  int      `json:"tenant_hourly_cap"`
			AllowedScenarios []string `json:"allowed_scenarios"`
			Completed        bool     `json:"completed"`
		} `json:"phase"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		details["error"] = fmt.Sprintf("warmup status decode: %v", err)
		return PhaseResult{Name: "Preflight", Status: "FAIL", Duration: time.Since(start), Details: details}
	}

	details["identity"] = status.Identity
	details["warmup_day"] = status.Phase.Day
	details["daily_cap"] = status.Phase.DailyCap
	details["tenant_hourly_cap"] = status.Phase.TenantHourlyCap
	details["warmup_completed"] = status.Phase.Completed
	if len(status.Phase.AllowedScenarios) > 0 {
		details["allowed_scenarios"] = strings.Join(status.Phase.AllowedScenarios, ",")
	} else {
		details["allowed_scenarios"] = "all"
	}

	return PhaseResult{Name: "Preflight", Status: "PASS", Duration: time.Since(start), Details: details}
}

// runSustainedLoad is the main phase: a worker fleet posting evaluate
// requests until the duration elapses or the context is cancelled.
func (lt *LoadTester) runSustainedLoad(ctx context.Context) PhaseResult {
	start := time.Now()
	deadline := start.Add(lt.cfg.Duration)

	tenants := make([]string, lt.cfg.Tenants)
	for i := range tenants {
		tenants[i] = fmt.Sprintf("loadtest-tenant-%02d", i+1)
	}

	// shared pacer: one token per permitted request
	var tokens chan struct{}
	if lt.cfg.Rate > 0 {
		tokens = make(chan struct{}, lt.cfg.Rate)
		go func() {
			interval := time.Second / time.Duration(lt.cfg.Rate)
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					select {
					case tokens <- struct{}{}:
					default:
					}
				}
			}
		}()
	}

	progressDone := make(chan struct{})
	go func() {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		var lastTotal int64
		for {
			select {
			case <-progressDone:
				return
			case <-ticker.C:
				total := atomic.LoadInt64(&lt.metrics.Total)
				log.Printf("progress: %d requests (%d/sec), allowed=%d rejected=%d pending=%d errors=%d",
					total,
					(total-lastTotal)/5,
					atomic.LoadInt64(&lt.metrics.Allowed),
					atomic.LoadInt64(&lt.metrics.Rejected),
					atomic.LoadInt64(&lt.metrics.Pending),
					atomic.LoadInt64(&lt.metrics.Transport)+atomic.LoadInt64(&lt.metrics.Server5xx),
				)
				lastTotal = total
			}
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < lt.cfg.Workers; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)))
			for seq := 0; ; seq++ {
				if ctx.Err() != nil || time.Now().After(deadline) {
					return
				}
				if tokens != nil {
					select {
					case <-ctx.Done():
						return
					case <-tokens:
					}
				}
				tenant := tenants[(worker+seq)%len(tenants)]
				lt.fireOne(ctx, rng, tenant)
			}
		}(i)
	}
	wg.Wait()
	close(progressDone)

	elapsed := time.Since(start)
	total := atomic.LoadInt64(&lt.metrics.Total)
	transportErrs := atomic.LoadInt64(&lt.metrics.Transport)
	serverErrs := atomic.LoadInt64(&lt.metrics.Server5xx)
	p50, p95, p99 := lt.metrics.Percentiles()

	details := map[string]interface{}{
		"total_requests":   total,
		"requests_per_sec": fmt.Sprintf("%.0f", float64(total)/elapsed.Seconds()),
		"allowed":          atomic.LoadInt64(&lt.metrics.Allowed),
		"rejected":         atomic.LoadInt64(&lt.metrics.Rejected),
		"pending_approval": atomic.LoadInt64(&lt.metrics.Pending),
		"transport_errors": transportErrs,
		"server_5xx":       serverErrs,
		"latency_p50":      p50.String(),
		"latency_p95":      p95.String(),
		"latency_p99":      p99.String(),
	}
	for reason, count := range lt.metrics.ReasonCounts() {
		details["reason_"+strings.ToLower(reason)] = count
	}

	// Rejections are expected output, not failures. The phase fails only
	// when the service itself misbehaves under load.
	status := "PASS"
	if total == 0 {
		status = "FAIL"
		details["error"] = "no requests completed"
	} else if serverErrs > 0 {
		status = "FAIL"
		details["error"] = fmt.Sprintf("%d responses with 5xx status", serverErrs)
	} else if float64(transportErrs)/float64(total) > 0.01 {
		status = "FAIL"
		details["error"] = fmt.Sprintf("transport error rate %.2f%% exceeds 1%%",
			100*float64(transportErrs)/float64(total))
	}

	return PhaseResult{Name: "Sustained evaluate load", Status: status, Duration: elapsed, Details: details}
}

func (lt *LoadTester) fireOne(ctx context.Context, rng *rand.Rand, tenant string) {
	payload := buildPayload(lt.cfg, rng, tenant)
	body, err := json.Marshal(payload)
	if err != nil {
		lt.metrics.RecordTransportFailure()
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, lt.cfg.BaseURL+"/api/v1/evaluate", bytes.NewReader(body))
	if err != nil {
		lt.metrics.RecordTransportFailure()
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", lt.cfg.APIKey)

	reqStart := time.Now()
	resp, err := lt.client.Do(req)
	elapsed := time.Since(reqStart)
	if err != nil {
		if ctx.Err() != nil {
			return // shutdown in progress, not a service fault
		}
		lt.metrics.RecordTransportFailure()
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		io.Copy(io.Discard, resp.Body)
		lt.metrics.Record5xx()
		return
	}

	var dec decisionPayload
	if err := json.NewDecoder(resp.Body).Decode(&dec); err != nil {
		lt.metrics.RecordTransportFailure()
		return
	}
	lt.metrics.RecordDecision(dec, elapsed)
}

func (lt *LoadTester) get(ctx context.Context, path string, authed bool) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, lt.cfg.BaseURL+path, nil)
	if err != nil {
		return nil, err
	}
	if authed {
		req.Header.Set("X-API-Key", lt.cfg.APIKey)
	}
	return lt.client.Do(req)
}

// =============================================================================
// REPORT
// =============================================================================

// GenerateReport prints the per-phase results and returns true when every
// phase passed.
func (lt *LoadTester) GenerateReport() bool {
	fmt.Println()
	fmt.Println(strings.Repeat("=", 80))
	fmt.Println("GOVERNANCE PIPELINE LOAD TEST REPORT")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Target:   %s\n", lt.cfg.BaseURL)
	fmt.Printf("Workers:  %d, tenants: %d, duration: %s\n", lt.cfg.Workers, lt.cfg.Tenants, lt.cfg.Duration)
	fmt.Printf("Mix:      promo %.0f%%, ai %.0f%%, spam %.0f%%, remainder transactional/invoice\n",
		100*lt.cfg.PromoShare, 100*lt.cfg.AIShare, 100*lt.cfg.SpamShare)
	fmt.Println()

	allPassed := true
	for _, result := range lt.results {
		fmt.Printf("%s %s (%s)\n", statusIcon(result.Status), result.Name, result.Duration.Round(time.Millisecond))
		keys := make([]string, 0, len(result.Details))
		for k := range result.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Printf("    %-24s %v\n", k+":", result.Details[k])
		}
		fmt.Println()
		if result.Status == "FAIL" {
			allPassed = false
		}
	}

	fmt.Println(strings.Repeat("=", 80))
	if allPassed {
		fmt.Println("RESULT: PASS")
	} else {
		fmt.Println("RESULT: FAIL")
	}
	fmt.Println(strings.Repeat("=", 80))
	return allPassed
}

func statusIcon(status string) string {
	switch status {
	case "PASS":
		return "✓"
	case "FAIL":
		return "✗"
	default:
		return "-"
	}
}

// =============================================================================
// MAIN
// =============================================================================

func main() {
	cfg := DefaultConfig()
	flag.StringVar(&cfg.BaseURL, "base-url", cfg.BaseURL, "mailguard base URL")
	flag.StringVar(&cfg.APIKey, "api-key", "", "API key (defaults to MAILGUARD_API_KEY)")
	flag.IntVar(&cfg.Workers, "workers", cfg.Workers, "concurrent workers")
	flag.DurationVar(&cfg.Duration, "duration", cfg.Duration, "how long to sustain load")
	flag.IntVar(&cfg.Tenants, "tenants", cfg.Tenants, "distinct tenant IDs to rotate through")
	flag.IntVar(&cfg.Rate, "rate", cfg.Rate, "total requests/sec, 0 for unthrottled")
	flag.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "per-request timeout")
	flag.Float64Var(&cfg.PromoShare, "promo-share", cfg.PromoShare, "share of promotional requests")
	flag.Float64Var(&cfg.AIShare, "ai-share", cfg.AIShare, "share of AI-authored requests")
	flag.Float64Var(&cfg.SpamShare, "spam-share", cfg.SpamShare, "share of spam-triggering requests")
	flag.Parse()

	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("MAILGUARD_API_KEY")
	}
	if cfg.APIKey == "" {
		log.Fatal("no API key: pass --api-key or set MAILGUARD_API_KEY")
	}
	if cfg.PromoShare+cfg.AIShare+cfg.SpamShare > 1.0 {
		log.Fatal("traffic mix shares must not exceed 1.0 combined")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("interrupt received, winding down")
		cancel()
	}()

	lt := NewLoadTester(cfg)
	log.Printf("starting load test: %s, %d workers, %s", cfg.BaseURL, cfg.Workers, cfg.Duration)

	preflight := lt.runPreflight(ctx)
	lt.results = append(lt.results, preflight)
	if preflight.Status == "FAIL" {
		lt.GenerateReport()
		os.Exit(1)
	}

	lt.results = append(lt.results, lt.runSustainedLoad(ctx))

	if !lt.GenerateReport() {
		os.Exit(1)
	}
}
