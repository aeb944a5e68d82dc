// README: Driver candidate projection and driver position updates.
package location

import (
	"github.com/guetchou/BantuDelice-sub001/internal/modules/pricing"
	"github.com/guetchou/BantuDelice-sub001/internal/types"
)

type DriverStatus string

const (
	DriverAvailable DriverStatus = "available"
	DriverBusy      DriverStatus = "busy"
	DriverOffline   DriverStatus = "offline"
)

func (s DriverStatus) Valid() bool {
	switch s {
	case DriverAvailable, DriverBusy, DriverOffline:
		return true
	}
	return false
}

// DriverCandidate is a read-only nearby-driver option offered to a passenger.
type DriverCandidate struct {
	ID           types.ID             `json:"id"`
	Name         string               `json:"name"`
	Rating       float64              `json:"rating"`
	Vehicle      string               `json:"vehicle"`
	VehicleClass pricing.VehicleClass `json:"vehicle_class"`
	Position     types.Point          `json:"position"`
	Available    bool                 `json:"available"`
	DistanceKm   float64              `json:"distance_km"`
	ETAMin       int                  `json:"eta_min"`
	Score        float64              `json:"score"`
}

// DriverUpdate is pushed by the driver app whenever its position or status changes.
type DriverUpdate struct {
	DriverID     types.ID
	Name         string
	Rating       float64
	Vehicle      string
	VehicleClass pricing.VehicleClass
	Position     types.Point
	Status       DriverStatus
	DeviceToken  string
}
