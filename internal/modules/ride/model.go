// README: Ride aggregate, booking snapshot and status definitions.
package ride

import (
	"time"

	"github.com/guetchou/BantuDelice-sub001/internal/modules/pricing"
	"github.com/guetchou/BantuDelice-sub001/internal/types"
)

type Status string

const (
	StatusNone       Status = "none"
	StatusPending    Status = "pending"
	StatusAssigned   Status = "assigned"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// Details is the snapshot of the passenger's booking carried by the ride.
type Details struct {
	PickupAddress       string               `json:"pickup_address"`
	Pickup              types.Point          `json:"pickup"`
	DestinationAddress  string               `json:"destination_address"`
	Destination         types.Point          `json:"destination"`
	PickupTiming        string               `json:"pickup_timing"`
	ScheduledAt         *time.Time           `json:"scheduled_at,omitempty"`
	VehicleClass        pricing.VehicleClass `json:"vehicle_class"`
	PaymentMethod       string               `json:"payment_method,omitempty"`
	SpecialInstructions string               `json:"special_instructions,omitempty"`
	PromoCode           *string              `json:"promo_code,omitempty"`
	SharingEnabled      bool                 `json:"sharing_enabled"`
	MaxPassengers       int                  `json:"max_passengers"`
	DistanceKm          float64              `json:"distance_km"`
}

type Ride struct {
	ID                types.ID    `json:"id"`
	PassengerID       types.ID    `json:"passenger_id"`
	DriverID          *types.ID   `json:"driver_id,omitempty"`
	RequestedDriverID *types.ID   `json:"requested_driver_id,omitempty"`
	Status            Status      `json:"status"`
	StatusVersion     int         `json:"status_version"`
	Details           Details     `json:"details"`
	EstimatedPrice    types.Money `json:"estimated_price"`
	PaymentIntentID   *string     `json:"payment_intent_id,omitempty"`
	CreatedAt         time.Time   `json:"created_at"`
	UpdatedAt         time.Time   `json:"updated_at"`
	AssignedAt        *time.Time  `json:"assigned_at,omitempty"`
	StartedAt         *time.Time  `json:"started_at,omitempty"`
	CompletedAt       *time.Time  `json:"completed_at,omitempty"`
	CancelledAt       *time.Time  `json:"cancelled_at,omitempty"`
	CancelReason      *string     `json:"cancel_reason,omitempty"`
}

type Event struct {
	ID         int64
	RideID     types.ID
	FromStatus Status
	ToStatus   Status
	ActorType  string
	ActorID    *types.ID
	CreatedAt  time.Time
}

// DriverRequest records a passenger explicitly asking for one driver.
type DriverRequest struct {
	ID        int64
	RideID    types.ID
	DriverID  types.ID
	CreatedAt time.Time
}

// AllowedTransitions represents the ride state flow (diagram) as code.
var AllowedTransitions = map[Status][]Status{
	StatusPending:    {StatusAssigned, StatusCancelled},
	StatusAssigned:   {StatusInProgress, StatusPending, StatusCancelled},
	StatusInProgress: {StatusCompleted},
}

func CanTransition(from, to Status) bool {
	next, ok := AllowedTransitions[from]
	if !ok {
		return false
	}
	for _, s := range next {
		if s == to {
			return true
		}
	}
	return false
}
