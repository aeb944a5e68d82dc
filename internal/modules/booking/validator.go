// README: Step validator deciding whether the workflow may leave its current step.
package booking

import (
	"errors"
	"fmt"
	"time"
)

type Reason string

const (
	ReasonNone           Reason = ""
	MissingAddress       Reason = "missing_address"
	MissingCoordinates   Reason = "missing_coordinates"
	MissingVehicleClass  Reason = "missing_vehicle_class"
	MissingPaymentMethod Reason = "missing_payment_method"
	MissingScheduledTime Reason = "missing_scheduled_time"
	ScheduledTimeInPast  Reason = "scheduled_time_in_past"
)

var ErrValidationFailed = errors.New("validation failed")

// ValidationError names the field the user has to correct.
type ValidationError struct {
	Step   Step
	Reason Reason
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s step: %s", e.Step, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidationFailed
}

type Result struct {
	Valid  bool   `json:"valid"`
	Reason Reason `json:"reason,omitempty"`
}

func invalid(r Reason) Result { return Result{Valid: false, Reason: r} }

// scheduleGrace absorbs clock skew between the passenger's device and the server.
const scheduleGrace = time.Minute

type Validator struct {
	now func() time.Time
}

func NewValidator(now func() time.Time) Validator {
	if now == nil {
		now = time.Now
	}
	return Validator{now: now}
}

// Check validates d for leaving step. Terminal steps are never valid.
func (v Validator) Check(step Step, d Draft) Result {
	switch step {
	case StepLocation:
		if d.PickupAddress == "" || d.DestinationAddress == "" {
			return invalid(MissingAddress)
		}
		if d.PickupCoordinates == nil || d.DestinationCoordinates == nil {
			return invalid(MissingCoordinates)
		}
		// the ride record is created when this step is left
		if !d.VehicleClass.Valid() {
			return invalid(MissingVehicleClass)
		}
		return Result{Valid: true}
	case StepVehicle:
		if !d.VehicleClass.Valid() {
			return invalid(MissingVehicleClass)
		}
		return Result{Valid: true}
	case StepSchedule:
		if d.PickupTiming == PickupScheduled {
			if d.ScheduledAt == nil || d.ScheduledAt.IsZero() {
				return invalid(MissingScheduledTime)
			}
			if d.ScheduledAt.Before(v.now().Add(-scheduleGrace)) {
				return invalid(ScheduledTimeInPast)
			}
		}
		if !d.PaymentMethod.Valid() {
			return invalid(MissingPaymentMethod)
		}
		return Result{Valid: true}
	case StepDriver:
		return Result{Valid: true}
	}
	return Result{Valid: false}
}
