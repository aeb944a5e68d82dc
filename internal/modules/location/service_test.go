package location

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/guetchou/BantuDelice-sub001/internal/config"
	"github.com/guetchou/BantuDelice-sub001/internal/modules/pricing"
	"github.com/guetchou/BantuDelice-sub001/internal/types"
)

var pickup = types.Point{Lat: -4.2661, Lng: 15.2832}

type fakeDriverStore struct {
	mu      sync.Mutex
	drivers []DriverCandidate
	saved   []DriverUpdate
	err     error
}

func (f *fakeDriverStore) SaveDriver(_ context.Context, u DriverUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.saved = append(f.saved, u)
	return nil
}

func (f *fakeDriverStore) NearbyDrivers(_ context.Context, _ types.Point, _ float64) ([]DriverCandidate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]DriverCandidate(nil), f.drivers...), f.err
}

func TestFindNearbyDrivers_FiltersAndRanks(t *testing.T) {
	store := &fakeDriverStore{drivers: []DriverCandidate{
		{ID: "far-good", Rating: 5, VehicleClass: pricing.ClassStandard, Available: true, Position: types.Point{Lat: -4.2900, Lng: 15.2832}},
		{ID: "near", Rating: 4, VehicleClass: pricing.ClassStandard, Available: true, Position: types.Point{Lat: -4.2665, Lng: 15.2832}},
		{ID: "busy", Rating: 5, VehicleClass: pricing.ClassStandard, Available: false, Position: pickup},
		{ID: "van", Rating: 5, VehicleClass: pricing.ClassVan, Available: true, Position: pickup},
	}}
	svc := NewService(store, config.DriverConfig{RadiusKm: 5, MaxCandidates: 10}, nil)

	got, err := svc.FindNearbyDrivers(context.Background(), pickup, pricing.ClassStandard)
	if err != nil {
		t.Fatalf("FindNearbyDrivers() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 candidates, got %d: %+v", len(got), got)
	}
	if got[0].ID != "near" || got[1].ID != "far-good" {
		t.Errorf("unexpected order: %s, %s", got[0].ID, got[1].ID)
	}
	if got[0].ETAMin != etaMinutes(got[0].DistanceKm) || got[0].Score <= got[1].Score {
		t.Errorf("scoring not applied: %+v", got)
	}
}

func TestFindNearbyDrivers_EmptyIsNotError(t *testing.T) {
	svc := NewService(&fakeDriverStore{}, config.DriverConfig{RadiusKm: 5, MaxCandidates: 10}, nil)
	got, err := svc.FindNearbyDrivers(context.Background(), pickup, pricing.ClassComfort)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", got)
	}
}

func TestFindNearbyDrivers_CapsResults(t *testing.T) {
	store := &fakeDriverStore{}
	for i := 0; i < 5; i++ {
		store.drivers = append(store.drivers, DriverCandidate{
			ID: types.ID(fmt.Sprintf("d%d", i)), Rating: 4, VehicleClass: pricing.ClassStandard, Available: true,
			Position: types.Point{Lat: pickup.Lat - float64(i)*0.001, Lng: pickup.Lng},
		})
	}
	svc := NewService(store, config.DriverConfig{RadiusKm: 5, MaxCandidates: 3}, nil)
	got, err := svc.FindNearbyDrivers(context.Background(), pickup, pricing.ClassStandard)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 3 || got[0].ID != "d0" {
		t.Errorf("unexpected candidates: %+v", got)
	}
}

func TestFindNearbyDrivers_StoreError(t *testing.T) {
	boom := errors.New("redis down")
	svc := NewService(&fakeDriverStore{err: boom}, config.DriverConfig{RadiusKm: 5}, nil)
	if _, err := svc.FindNearbyDrivers(context.Background(), pickup, ""); !errors.Is(err, boom) {
		t.Errorf("expected store error, got %v", err)
	}
}

func TestUpdateDriver_Validation(t *testing.T) {
	store := &fakeDriverStore{}
	svc := NewService(store, config.DriverConfig{RadiusKm: 5}, nil)
	ctx := context.Background()

	valid := DriverUpdate{DriverID: "d1", VehicleClass: pricing.ClassStandard, Status: DriverAvailable, Position: pickup}
	if err := svc.UpdateDriver(ctx, valid); err != nil {
		t.Fatalf("valid update: %v", err)
	}

	bad := []DriverUpdate{
		{VehicleClass: pricing.ClassStandard, Status: DriverAvailable, Position: pickup},
		{DriverID: "d1", VehicleClass: "limo", Status: DriverAvailable, Position: pickup},
		{DriverID: "d1", VehicleClass: pricing.ClassStandard, Status: "sleeping", Position: pickup},
		{DriverID: "d1", VehicleClass: pricing.ClassStandard, Status: DriverAvailable, Position: types.Point{Lat: 95}},
	}
	for i, u := range bad {
		if err := svc.UpdateDriver(ctx, u); !errors.Is(err, ErrBadRequest) {
			t.Errorf("case %d: expected ErrBadRequest, got %v", i, err)
		}
	}
	if len(store.saved) != 1 {
		t.Errorf("expected 1 saved update, got %d", len(store.saved))
	}
}

func TestRedisStore_SaveAndSearch(t *testing.T) {
	redisAddr := os.Getenv("BANTU_REDIS_ADDR")
	if redisAddr == "" {
		t.Skip("BANTU_REDIS_ADDR not set; skipping integration test")
	}

	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	defer rdb.Close()

	store := NewStore(rdb)
	svc := NewService(store, config.DriverConfig{RadiusKm: 2, MaxCandidates: 10}, nil)
	ctx := context.Background()

	id := types.ID(fmt.Sprintf("driver_test_%d", time.Now().UnixNano()))
	err := svc.UpdateDriver(ctx, DriverUpdate{
		DriverID:     id,
		Name:         "Jean",
		Rating:       4.6,
		Vehicle:      "Toyota Corolla",
		VehicleClass: pricing.ClassComfort,
		Position:     types.Point{Lat: -4.2665, Lng: 15.2835},
		Status:       DriverAvailable,
		DeviceToken:  "tok-1",
	})
	if err != nil {
		t.Fatalf("UpdateDriver: %v", err)
	}
	defer rdb.ZRem(ctx, driverGeoKey, string(id))

	got, err := svc.FindNearbyDrivers(ctx, pickup, pricing.ClassComfort)
	if err != nil {
		t.Fatalf("FindNearbyDrivers: %v", err)
	}
	found := false
	for _, c := range got {
		if c.ID == id {
			found = true
			if c.Name != "Jean" || c.Vehicle != "Toyota Corolla" || !c.Available {
				t.Errorf("unexpected candidate: %+v", c)
			}
		}
	}
	if !found {
		t.Fatalf("driver %s not returned: %+v", id, got)
	}

	token, err := store.DeviceToken(ctx, id)
	if err != nil || token != "tok-1" {
		t.Errorf("DeviceToken = %q, %v", token, err)
	}

	if err := svc.UpdateDriver(ctx, DriverUpdate{DriverID: id, VehicleClass: pricing.ClassComfort, Status: DriverOffline}); err != nil {
		t.Fatalf("offline update: %v", err)
	}
	got, _ = svc.FindNearbyDrivers(ctx, pickup, pricing.ClassComfort)
	for _, c := range got {
		if c.ID == id {
			t.Errorf("offline driver still listed")
		}
	}
}
