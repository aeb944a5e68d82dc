// README: Pricing service resolves the active rate table and builds quotes.
package pricing

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/guetchou/BantuDelice-sub001/internal/types"
)

var (
	ErrUnknownClass = errors.New("unknown vehicle class")
	ErrBadDistance  = errors.New("distance must be a positive number of at most 20038 km")
)

type RateStore interface {
	ListRates(ctx context.Context) (Table, error)
}

type Service struct {
	store  RateStore
	logger *slog.Logger
	ttl    time.Duration

	mu       sync.Mutex
	cached   Table
	cachedAt time.Time
}

// NewService accepts a nil store, in which case DefaultRates are always used.
func NewService(store RateStore, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, logger: logger, ttl: time.Minute}
}

// Rates returns the active table. Stored rows override defaults class by class;
// a failing store falls back to the last good table or the defaults.
func (s *Service) Rates(ctx context.Context) Table {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cached != nil && time.Since(s.cachedAt) < s.ttl {
		return s.cached
	}
	if s.store == nil {
		return DefaultRates
	}
	stored, err := s.store.ListRates(ctx)
	if err != nil {
		s.logger.Warn("pricing rates unavailable, using fallback", "error", err)
		if s.cached != nil {
			return s.cached
		}
		return DefaultRates
	}
	t := make(Table, len(DefaultRates))
	for c, r := range DefaultRates {
		t[c] = r
	}
	for c, r := range stored {
		t[c] = r
	}
	s.cached, s.cachedAt = t, time.Now()
	return t
}

// Quote prices a trip of distanceKm for the class.
func (s *Service) Quote(ctx context.Context, distanceKm float64, class VehicleClass) (Quote, error) {
	if !class.Valid() {
		return Quote{}, ErrUnknownClass
	}
	if !(distanceKm > 0) || distanceKm > MaxTripKm {
		return Quote{}, ErrBadDistance
	}
	t := s.Rates(ctx)
	price := t.EstimatePrice(distanceKm, class)
	lo, hi := Range(price)
	return Quote{
		Class:       class,
		DistanceKm:  distanceKm,
		DurationMin: EstimateDurationMin(distanceKm),
		Price:       types.Money{Amount: price, Currency: t.Currency(class)},
		MinPrice:    lo,
		MaxPrice:    hi,
	}, nil
}
