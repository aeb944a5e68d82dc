// README: Location service ingests driver positions and ranks driver candidates near a pickup.
package location

import (
	"context"
	"errors"
	"log/slog"

	"github.com/guetchou/BantuDelice-sub001/internal/config"
	"github.com/guetchou/BantuDelice-sub001/internal/modules/pricing"
	"github.com/guetchou/BantuDelice-sub001/internal/observability"
	"github.com/guetchou/BantuDelice-sub001/internal/types"
)

var ErrBadRequest = errors.New("bad request")

type DriverStore interface {
	SaveDriver(ctx context.Context, u DriverUpdate) error
	NearbyDrivers(ctx context.Context, p types.Point, radiusKm float64) ([]DriverCandidate, error)
}

type Service struct {
	store  DriverStore
	cfg    config.DriverConfig
	logger *slog.Logger
}

func NewService(store DriverStore, cfg config.DriverConfig, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, cfg: cfg, logger: logger}
}

// UpdateDriver records a driver's position, status and profile.
func (s *Service) UpdateDriver(ctx context.Context, u DriverUpdate) error {
	if u.DriverID == "" || !u.Status.Valid() || !u.VehicleClass.Valid() {
		return ErrBadRequest
	}
	if u.Status != DriverOffline && !u.Position.Valid() {
		return ErrBadRequest
	}
	if err := s.store.SaveDriver(ctx, u); err != nil {
		return err
	}
	observability.DriverLocationUpdates.Inc()
	return nil
}

// FindNearbyDrivers returns available drivers of the class near pickup, best score first.
// An empty result is a valid "no drivers right now" answer, not an error.
func (s *Service) FindNearbyDrivers(ctx context.Context, pickup types.Point, class pricing.VehicleClass) ([]DriverCandidate, error) {
	if !pickup.Valid() {
		return nil, ErrBadRequest
	}
	found, err := s.store.NearbyDrivers(ctx, pickup, s.cfg.RadiusKm)
	if err != nil {
		return nil, err
	}

	out := make([]DriverCandidate, 0, len(found))
	for _, c := range found {
		if !c.Available {
			continue
		}
		if class != "" && c.VehicleClass != class {
			continue
		}
		c.DistanceKm = EstimateDistanceKm(pickup, c.Position)
		c.ETAMin = etaMinutes(c.DistanceKm)
		c.Score = candidateScore(c.DistanceKm, c.Rating)
		out = append(out, c)
	}

	sortByKey(out, func(c DriverCandidate) float64 { return -c.Score })
	if s.cfg.MaxCandidates > 0 && len(out) > s.cfg.MaxCandidates {
		out = out[:s.cfg.MaxCandidates]
	}
	s.logger.Debug("driver candidates ranked", "class", class, "found", len(found), "returned", len(out))
	return out, nil
}
