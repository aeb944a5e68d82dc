// README: Registry of live booking sessions keyed by session id.
package booking

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/guetchou/BantuDelice-sub001/internal/modules/pricing"
	"github.com/guetchou/BantuDelice-sub001/internal/observability"
	"github.com/guetchou/BantuDelice-sub001/internal/types"
)

var ErrSessionNotFound = errors.New("booking session not found")

type RateSource interface {
	Rates(ctx context.Context) pricing.Table
}

type session struct {
	owner    types.ID
	workflow *Workflow
}

type Registry struct {
	mu       sync.RWMutex
	sessions map[string]session
	deps     Deps
	rates    RateSource
	ttl      time.Duration
	logger   *slog.Logger
}

// NewRegistry keeps sessions alive for ttl after their last operation.
// rates may be nil to price with the built-in table.
func NewRegistry(deps Deps, rates RateSource, ttl time.Duration) *Registry {
	deps = deps.withDefaults()
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &Registry{
		sessions: make(map[string]session),
		deps:     deps,
		rates:    rates,
		ttl:      ttl,
		logger:   deps.Logger,
	}
}

// Start opens a new workflow for passengerID.
func (r *Registry) Start(ctx context.Context, passengerID types.ID) (string, *Workflow) {
	var table pricing.Table
	if r.rates != nil {
		table = r.rates.Rates(ctx)
	}
	wf := NewWorkflow(passengerID, table, r.deps)
	id := uuid.NewString()

	r.mu.Lock()
	r.sessions[id] = session{owner: passengerID, workflow: wf}
	r.mu.Unlock()

	observability.BookingsStarted.Inc()
	r.logger.Info("booking started", "session_id", id, "passenger_id", passengerID)
	return id, wf
}

// Get returns the workflow of a session owned by passengerID. Sessions of
// other passengers are reported as not found.
func (r *Registry) Get(id string, passengerID types.ID) (*Workflow, error) {
	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok || s.owner != passengerID {
		return nil, ErrSessionNotFound
	}
	return s.workflow, nil
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Sweep drops sessions idle for longer than the ttl, cancelling the open ones.
func (r *Registry) Sweep(now time.Time) int {
	r.mu.Lock()
	var stale []*Workflow
	for id, s := range r.sessions {
		if now.Sub(s.workflow.LastActive()) > r.ttl {
			stale = append(stale, s.workflow)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, wf := range stale {
		if !wf.Step().Terminal() {
			_ = wf.Cancel()
		}
	}
	if len(stale) > 0 {
		r.logger.Info("booking sessions expired", "count", len(stale))
	}
	return len(stale)
}

// RunJanitor sweeps every interval until ctx is done.
func (r *Registry) RunJanitor(ctx context.Context, every time.Duration) {
	if every <= 0 {
		every = time.Minute
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep(r.deps.Now())
		}
	}
}
