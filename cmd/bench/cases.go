// README: Runner cases; environment, HTTP health checks, booking walk-through and pricing load.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/guetchou/BantuDelice-sub001/internal/infra"
	"github.com/guetchou/BantuDelice-sub001/internal/modules/location"
	"github.com/guetchou/BantuDelice-sub001/internal/modules/pricing"
	"github.com/guetchou/BantuDelice-sub001/internal/types"
)

const (
	statusPass = "PASS"
	statusFail = "FAIL"
	statusSkip = "SKIP"
)

var (
	benchPickup      = types.Point{Lat: -4.2634, Lng: 15.2429}
	benchDestination = types.Point{Lat: -4.2590, Lng: 15.2830}
)

type Runner struct {
	cfg   Config
	httpc *http.Client
	db    *pgxpool.Pool
	redis *redis.Client
}

type Result struct {
	Name    string
	Status  string
	Latency time.Duration
	Note    string
}

type TestCase struct {
	Name string
	Run  func(ctx context.Context, r *Runner) Result
}

func NewRunner(cfg Config) *Runner {
	return &Runner{
		cfg:   cfg,
		httpc: &http.Client{Timeout: 20 * time.Second},
	}
}

func (r *Runner) RunAll(ctx context.Context) []Result {
	if r.cfg.DSN != "" {
		if db, err := pgxpool.New(ctx, r.cfg.DSN); err == nil {
			r.db = db
		}
	}
	if r.cfg.RedisAddr != "" {
		r.redis = redis.NewClient(&redis.Options{Addr: r.cfg.RedisAddr})
	}

	tests := r.cases()
	results := make([]Result, 0, len(tests))
	for _, tc := range tests {
		res := tc.Run(ctx, r)
		res.Name = tc.Name
		results = append(results, res)
		fmt.Printf("%-5s %s", res.Status, tc.Name)
		if res.Latency > 0 {
			fmt.Printf(" (%s)", res.Latency.Round(time.Millisecond))
		}
		if res.Note != "" {
			fmt.Printf(" - %s", res.Note)
		}
		fmt.Println()
	}

	if r.db != nil {
		r.db.Close()
	}
	if r.redis != nil {
		_ = r.redis.Close()
	}
	return results
}

func (r *Runner) cases() []TestCase {
	return []TestCase{
		{Name: "Env: Postgres connect", Run: checkPostgres},
		{Name: "Env: Redis connect", Run: checkRedis},
		{Name: "Migration: apply (optional)", Run: applyMigrations},
		{Name: "Migration: tables exist", Run: checkTables},
		{Name: "HTTP: /health", Run: getOK("/health")},
		{Name: "HTTP: /ready", Run: getOK("/ready")},
		{Name: "HTTP: /metrics", Run: getOK("/metrics")},
		{Name: "HTTP: API rejects anonymous callers", Run: checkAnonymous},
		{Name: "Redis: seed driver near pickup", Run: seedDriver},
		{Name: "HTTP: pricing estimate", Run: checkEstimate},
		{Name: "HTTP: booking walk-through", Run: walkBooking},
		{Name: "Load: pricing estimate", Run: loadEstimate},
	}
}

func checkPostgres(ctx context.Context, r *Runner) Result {
	if r.db == nil {
		return Result{Status: statusFail, Note: "db not configured"}
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := r.db.Ping(ctx); err != nil {
		return Result{Status: statusFail, Note: err.Error()}
	}
	return Result{Status: statusPass}
}

func checkRedis(ctx context.Context, r *Runner) Result {
	if r.redis == nil {
		return Result{Status: statusFail, Note: "redis not configured"}
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := r.redis.Ping(ctx).Err(); err != nil {
		return Result{Status: statusFail, Note: err.Error()}
	}
	return Result{Status: statusPass}
}

func applyMigrations(ctx context.Context, r *Runner) Result {
	if !r.cfg.ApplyMigration {
		return Result{Status: statusSkip, Note: "apply-migration=false"}
	}
	if r.db == nil {
		return Result{Status: statusFail, Note: "db not configured"}
	}
	if err := infra.Migrate(ctx, r.db); err != nil {
		return Result{Status: statusFail, Note: err.Error()}
	}
	return Result{Status: statusPass}
}

func checkTables(ctx context.Context, r *Runner) Result {
	if r.db == nil {
		return Result{Status: statusFail, Note: "db not configured"}
	}
	var missing []string
	for _, table := range []string{"rides", "ride_state_events", "ride_driver_requests", "pricing_rates"} {
		var exists bool
		err := r.db.QueryRow(ctx, `SELECT to_regclass($1) IS NOT NULL`, "public."+table).Scan(&exists)
		if err != nil {
			return Result{Status: statusFail, Note: err.Error()}
		}
		if !exists {
			missing = append(missing, table)
		}
	}
	if len(missing) > 0 {
		return Result{Status: statusFail, Note: fmt.Sprintf("missing %v", missing)}
	}
	return Result{Status: statusPass}
}

func getOK(path string) func(ctx context.Context, r *Runner) Result {
	return func(ctx context.Context, r *Runner) Result {
		status, latency, _, err := r.call(ctx, http.MethodGet, path, "", nil)
		if err != nil {
			return Result{Status: statusFail, Note: err.Error()}
		}
		if status != http.StatusOK {
			return Result{Status: statusFail, Latency: latency, Note: fmt.Sprintf("status=%d", status)}
		}
		return Result{Status: statusPass, Latency: latency}
	}
}

func checkAnonymous(ctx context.Context, r *Runner) Result {
	status, latency, _, err := r.call(ctx, http.MethodPost, "/api/bookings", "", nil)
	if err != nil {
		return Result{Status: statusFail, Note: err.Error()}
	}
	if status != http.StatusUnauthorized {
		return Result{Status: statusFail, Latency: latency, Note: fmt.Sprintf("status=%d", status)}
	}
	return Result{Status: statusPass, Latency: latency}
}

// seedDriver writes a bench driver straight into the GEO index so the
// booking walk-through has a candidate to pick.
func seedDriver(ctx context.Context, r *Runner) Result {
	if r.redis == nil {
		return Result{Status: statusSkip, Note: "redis not configured"}
	}
	store := location.NewStore(r.redis)
	err := store.SaveDriver(ctx, location.DriverUpdate{
		DriverID:     "bench-driver",
		Name:         "Bench",
		Rating:       4.5,
		Vehicle:      "Toyota Corolla",
		VehicleClass: pricing.ClassStandard,
		Position:     types.Point{Lat: benchPickup.Lat + 0.003, Lng: benchPickup.Lng},
		Status:       location.DriverAvailable,
	})
	if err != nil {
		return Result{Status: statusFail, Note: err.Error()}
	}
	found, err := store.NearbyDrivers(ctx, benchPickup, 2)
	if err != nil {
		return Result{Status: statusFail, Note: err.Error()}
	}
	for _, c := range found {
		if c.ID == "bench-driver" {
			return Result{Status: statusPass, Note: fmt.Sprintf("%.2f km away", c.DistanceKm)}
		}
	}
	return Result{Status: statusFail, Note: "seeded driver not returned by GEO search"}
}

func checkEstimate(ctx context.Context, r *Runner) Result {
	if r.cfg.Token == "" {
		return Result{Status: statusSkip, Note: "no passenger token"}
	}
	var q pricing.Quote
	status, latency, body, err := r.call(ctx, http.MethodGet, "/api/pricing/estimate?distance_km=10&vehicle_class=standard", r.cfg.Token, nil)
	if err != nil {
		return Result{Status: statusFail, Note: err.Error()}
	}
	if status != http.StatusOK || json.Unmarshal(body, &q) != nil {
		return Result{Status: statusFail, Latency: latency, Note: fmt.Sprintf("status=%d", status)}
	}
	want := pricing.EstimatePrice(10, pricing.ClassStandard)
	if q.Price.Amount != want {
		return Result{Status: statusFail, Latency: latency, Note: fmt.Sprintf("price=%d want %d (custom rates?)", q.Price.Amount, want)}
	}
	return Result{Status: statusPass, Latency: latency}
}

type bookingView struct {
	SessionID string `json:"session_id"`
	StepName  string `json:"step_name"`
	RideID    string `json:"ride_id"`
	Outcome   *struct {
		Warnings []struct {
			Code string `json:"code"`
		} `json:"warnings"`
	} `json:"outcome"`
}

func walkBooking(ctx context.Context, r *Runner) Result {
	if r.cfg.Token == "" {
		return Result{Status: statusSkip, Note: "no passenger token"}
	}
	start := time.Now()
	var view bookingView
	steps := []struct {
		method, path string
		body         any
	}{
		{http.MethodPost, "/api/bookings", nil},
		{http.MethodPut, "/location", map[string]any{"side": "pickup", "address": "Centre-ville", "lat": benchPickup.Lat, "lng": benchPickup.Lng}},
		{http.MethodPut, "/location", map[string]any{"side": "destination", "address": "Poto-Poto", "lat": benchDestination.Lat, "lng": benchDestination.Lng}},
		{http.MethodPost, "/advance", nil},
		{http.MethodPatch, "", map[string]any{"vehicle_class": "standard", "payment_method": "cash"}},
		{http.MethodPost, "/advance", nil},
		{http.MethodPost, "/advance", nil},
		{http.MethodGet, "/drivers", nil},
		{http.MethodPost, "/finalize", nil},
	}
	for i, st := range steps {
		path := st.path
		if i > 0 {
			path = "/api/bookings/" + view.SessionID + st.path
		}
		status, _, body, err := r.call(ctx, st.method, path, r.cfg.Token, st.body)
		if err != nil {
			return Result{Status: statusFail, Note: fmt.Sprintf("%s %s: %v", st.method, path, err)}
		}
		if status/100 != 2 {
			return Result{Status: statusFail, Note: fmt.Sprintf("%s %s: status=%d %s", st.method, path, status, bytes.TrimSpace(body))}
		}
		if st.path != "/drivers" {
			if err := json.Unmarshal(body, &view); err != nil {
				return Result{Status: statusFail, Note: err.Error()}
			}
		}
	}
	latency := time.Since(start)
	if view.StepName != "completed" || view.RideID == "" {
		return Result{Status: statusFail, Latency: latency, Note: fmt.Sprintf("ended at %q ride=%q", view.StepName, view.RideID)}
	}
	if r.db != nil {
		var status string
		if err := r.db.QueryRow(ctx, `SELECT status FROM rides WHERE id = $1`, view.RideID).Scan(&status); err != nil {
			return Result{Status: statusFail, Latency: latency, Note: "ride row: " + err.Error()}
		}
	}
	note := "ride=" + view.RideID
	if view.Outcome != nil && len(view.Outcome.Warnings) > 0 {
		note += fmt.Sprintf(" warnings=%d", len(view.Outcome.Warnings))
	}
	return Result{Status: statusPass, Latency: latency, Note: note}
}

func loadEstimate(ctx context.Context, r *Runner) Result {
	if r.cfg.Token == "" {
		return Result{Status: statusSkip, Note: "no passenger token"}
	}
	end := time.Now().Add(r.cfg.Duration)
	var (
		mu        sync.Mutex
		wg        sync.WaitGroup
		latencies []time.Duration
		errCount  int
	)
	for i := 0; i < r.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for time.Now().Before(end) && ctx.Err() == nil {
				status, latency, _, err := r.call(ctx, http.MethodGet, "/api/pricing/estimate?distance_km=7.5&vehicle_class=comfort", r.cfg.Token, nil)
				mu.Lock()
				if err != nil || status != http.StatusOK {
					errCount++
				} else {
					latencies = append(latencies, latency)
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if len(latencies) == 0 {
		return Result{Status: statusFail, Note: "no requests completed"}
	}
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
	p95 := latencies[len(latencies)*95/100]
	rps := float64(len(latencies)) / r.cfg.Duration.Seconds()
	return Result{Status: statusPass, Latency: p95, Note: fmt.Sprintf("rps=%.1f p95=%s errors=%d", rps, p95.Round(time.Millisecond), errCount)}
}

func (r *Runner) call(ctx context.Context, method, path, token string, payload any) (int, time.Duration, []byte, error) {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return 0, 0, nil, err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, r.cfg.BaseURL+path, body)
	if err != nil {
		return 0, 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	start := time.Now()
	resp, err := r.httpc.Do(req)
	if err != nil {
		return 0, 0, nil, err
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	return resp.StatusCode, time.Since(start), b, err
}
