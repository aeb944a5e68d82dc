// README: Booking draft and its store; the estimated price is derived, never stored.
package booking

import (
	"strings"
	"time"

	"github.com/guetchou/BantuDelice-sub001/internal/modules/location"
	"github.com/guetchou/BantuDelice-sub001/internal/modules/pricing"
	"github.com/guetchou/BantuDelice-sub001/internal/types"
)

type PickupTiming string

const (
	PickupImmediate PickupTiming = "immediate"
	PickupScheduled PickupTiming = "scheduled"
)

type PaymentMethod string

const (
	PaymentCash        PaymentMethod = "cash"
	PaymentCard        PaymentMethod = "card"
	PaymentMobileMoney PaymentMethod = "mobile_money"
	PaymentWallet      PaymentMethod = "wallet"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCash, PaymentCard, PaymentMobileMoney, PaymentWallet:
		return true
	}
	return false
}

// Side selects the pickup or destination half of the draft.
type Side string

const (
	SidePickup      Side = "pickup"
	SideDestination Side = "destination"
)

func (s Side) Valid() bool { return s == SidePickup || s == SideDestination }

type Draft struct {
	PickupAddress          string               `json:"pickup_address"`
	PickupCoordinates      *types.Point         `json:"pickup_coordinates,omitempty"`
	DestinationAddress     string               `json:"destination_address"`
	DestinationCoordinates *types.Point         `json:"destination_coordinates,omitempty"`
	PickupTiming           PickupTiming         `json:"pickup_timing"`
	ScheduledAt            *time.Time           `json:"scheduled_at,omitempty"`
	VehicleClass           pricing.VehicleClass `json:"vehicle_class"`
	PaymentMethod          PaymentMethod        `json:"payment_method,omitempty"`
	SpecialInstructions    string               `json:"special_instructions"`
	PromoCode              *string              `json:"promo_code,omitempty"`
	SharingEnabled         bool                 `json:"sharing_enabled"`
	MaxPassengers          int                  `json:"max_passengers"`
}

// NewDraft returns the empty draft a workflow starts from.
func NewDraft() Draft {
	return Draft{
		PickupTiming:  PickupImmediate,
		VehicleClass:  pricing.ClassStandard,
		MaxPassengers: 1,
	}
}

func (d Draft) clone() Draft {
	out := d
	if d.PickupCoordinates != nil {
		p := *d.PickupCoordinates
		out.PickupCoordinates = &p
	}
	if d.DestinationCoordinates != nil {
		p := *d.DestinationCoordinates
		out.DestinationCoordinates = &p
	}
	if d.ScheduledAt != nil {
		t := *d.ScheduledAt
		out.ScheduledAt = &t
	}
	if d.PromoCode != nil {
		c := *d.PromoCode
		out.PromoCode = &c
	}
	return out
}

// Patch carries the fields a step changes; nil fields are left untouched.
type Patch struct {
	PickupAddress          *string               `json:"pickup_address,omitempty"`
	PickupCoordinates      *types.Point          `json:"pickup_coordinates,omitempty"`
	DestinationAddress     *string               `json:"destination_address,omitempty"`
	DestinationCoordinates *types.Point          `json:"destination_coordinates,omitempty"`
	PickupTiming           *PickupTiming         `json:"pickup_timing,omitempty"`
	ScheduledAt            *time.Time            `json:"scheduled_at,omitempty"`
	VehicleClass           *pricing.VehicleClass `json:"vehicle_class,omitempty"`
	PaymentMethod          *PaymentMethod        `json:"payment_method,omitempty"`
	SpecialInstructions    *string               `json:"special_instructions,omitempty"`
	PromoCode              *string               `json:"promo_code,omitempty"`
	SharingEnabled         *bool                 `json:"sharing_enabled,omitempty"`
	MaxPassengers          *int                  `json:"max_passengers,omitempty"`
}

// Store holds one in-progress draft. It is not safe for concurrent use;
// the owning Workflow serializes access.
type Store struct {
	draft Draft
	rates pricing.Table
}

// NewStore prices with rates, or with pricing.DefaultRates when rates is nil.
func NewStore(rates pricing.Table) *Store {
	if rates == nil {
		rates = pricing.DefaultRates
	}
	return &Store{draft: NewDraft(), rates: rates}
}

// Draft returns a copy of the current draft.
func (s *Store) Draft() Draft {
	return s.draft.clone()
}

// Update merges p into the draft.
//
// Changing an address without supplying coordinates drops that side's
// coordinates, and turning sharing off forces a single passenger.
func (s *Store) Update(p Patch) {
	d := &s.draft

	if p.PickupAddress != nil {
		addr := strings.TrimSpace(*p.PickupAddress)
		if addr != d.PickupAddress && p.PickupCoordinates == nil {
			d.PickupCoordinates = nil
		}
		d.PickupAddress = addr
	}
	if p.PickupCoordinates != nil {
		c := *p.PickupCoordinates
		d.PickupCoordinates = &c
	}
	if p.DestinationAddress != nil {
		addr := strings.TrimSpace(*p.DestinationAddress)
		if addr != d.DestinationAddress && p.DestinationCoordinates == nil {
			d.DestinationCoordinates = nil
		}
		d.DestinationAddress = addr
	}
	if p.DestinationCoordinates != nil {
		c := *p.DestinationCoordinates
		d.DestinationCoordinates = &c
	}

	if p.PickupTiming != nil {
		d.PickupTiming = *p.PickupTiming
		if d.PickupTiming == PickupImmediate {
			d.ScheduledAt = nil
		}
	}
	if p.ScheduledAt != nil {
		if p.ScheduledAt.IsZero() {
			d.ScheduledAt = nil
		} else {
			t := *p.ScheduledAt
			d.ScheduledAt = &t
		}
	}

	if p.VehicleClass != nil {
		d.VehicleClass = *p.VehicleClass
	}
	if p.PaymentMethod != nil {
		d.PaymentMethod = *p.PaymentMethod
	}
	if p.SpecialInstructions != nil {
		d.SpecialInstructions = strings.TrimSpace(*p.SpecialInstructions)
	}
	if p.PromoCode != nil {
		if code := strings.TrimSpace(*p.PromoCode); code != "" {
			d.PromoCode = &code
		} else {
			d.PromoCode = nil
		}
	}

	if p.SharingEnabled != nil {
		d.SharingEnabled = *p.SharingEnabled
	}
	if p.MaxPassengers != nil {
		d.MaxPassengers = *p.MaxPassengers
	}
	if !d.SharingEnabled || d.MaxPassengers < 1 {
		d.MaxPassengers = 1
	}
}

// Reset returns the draft to its initial value.
func (s *Store) Reset() {
	s.draft = NewDraft()
}

// DistanceKm is the great-circle trip length, or 0 until both sides are resolved.
func (s *Store) DistanceKm() float64 {
	d := s.draft
	if d.PickupCoordinates == nil || d.DestinationCoordinates == nil {
		return 0
	}
	return location.EstimateDistanceKm(*d.PickupCoordinates, *d.DestinationCoordinates)
}

// CurrentEstimatedPrice derives the price from coordinates and vehicle class.
func (s *Store) CurrentEstimatedPrice() int64 {
	return s.rates.EstimatePrice(s.DistanceKm(), s.draft.VehicleClass)
}

// Currency of the current vehicle class rate.
func (s *Store) Currency() string {
	return s.rates.Currency(s.draft.VehicleClass)
}
