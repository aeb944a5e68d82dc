// README: Driver location store backed by Redis GEO plus a metadata hash per driver.
package location

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/guetchou/BantuDelice-sub001/internal/modules/pricing"
	"github.com/guetchou/BantuDelice-sub001/internal/types"
)

const (
	driverGeoKey     = "location:drivers"
	driverMetaPrefix = "location:driver:%s"
	// Metadata expires when a driver stops reporting; stale GEO members are then skipped.
	metaTTL = 10 * time.Minute
)

type Store struct {
	redis *redis.Client
}

func NewStore(redis *redis.Client) *Store {
	return &Store{redis: redis}
}

func (s *Store) SaveDriver(ctx context.Context, u DriverUpdate) error {
	key := metaKey(u.DriverID)
	fields := map[string]interface{}{
		"name":          u.Name,
		"rating":        strconv.FormatFloat(u.Rating, 'f', 2, 64),
		"vehicle":       u.Vehicle,
		"vehicle_class": string(u.VehicleClass),
		"status":        string(u.Status),
		"updated":       time.Now().UTC().Format(time.RFC3339),
	}
	if u.DeviceToken != "" {
		fields["device_token"] = u.DeviceToken
	}

	pipe := s.redis.TxPipeline()
	if u.Status == DriverOffline {
		pipe.ZRem(ctx, driverGeoKey, string(u.DriverID))
	} else {
		pipe.GeoAdd(ctx, driverGeoKey, &redis.GeoLocation{
			Name:      string(u.DriverID),
			Longitude: u.Position.Lng,
			Latitude:  u.Position.Lat,
		})
	}
	pipe.HSet(ctx, key, fields)
	pipe.Expire(ctx, key, metaTTL)
	_, err := pipe.Exec(ctx)
	return err
}

// NearbyDrivers returns every driver with fresh metadata within radiusKm of p, closest first.
func (s *Store) NearbyDrivers(ctx context.Context, p types.Point, radiusKm float64) ([]DriverCandidate, error) {
	locs, err := s.redis.GeoSearchLocation(ctx, driverGeoKey, &redis.GeoSearchLocationQuery{
		GeoSearchQuery: redis.GeoSearchQuery{
			Longitude:  p.Lng,
			Latitude:   p.Lat,
			Radius:     radiusKm,
			RadiusUnit: "km",
			Sort:       "ASC",
		},
		WithCoord: true,
		WithDist:  true,
	}).Result()
	if err != nil {
		return nil, err
	}
	if len(locs) == 0 {
		return nil, nil
	}

	pipe := s.redis.Pipeline()
	metas := make([]*redis.MapStringStringCmd, len(locs))
	for i, l := range locs {
		metas[i] = pipe.HGetAll(ctx, metaKey(types.ID(l.Name)))
	}
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, err
	}

	out := make([]DriverCandidate, 0, len(locs))
	for i, l := range locs {
		m, err := metas[i].Result()
		if err != nil || len(m) == 0 {
			continue
		}
		rating, _ := strconv.ParseFloat(m["rating"], 64)
		out = append(out, DriverCandidate{
			ID:           types.ID(l.Name),
			Name:         m["name"],
			Rating:       rating,
			Vehicle:      m["vehicle"],
			VehicleClass: pricing.VehicleClass(m["vehicle_class"]),
			Position:     types.Point{Lat: l.Latitude, Lng: l.Longitude},
			Available:    DriverStatus(m["status"]) == DriverAvailable,
			DistanceKm:   l.Dist,
		})
	}
	return out, nil
}

// DeviceToken returns the push token last reported by the driver, or "" when unknown.
func (s *Store) DeviceToken(ctx context.Context, driverID types.ID) (string, error) {
	v, err := s.redis.HGet(ctx, metaKey(driverID), "device_token").Result()
	if err == redis.Nil {
		return "", nil
	}
	return v, err
}

func metaKey(id types.ID) string {
	return fmt.Sprintf(driverMetaPrefix, string(id))
}
