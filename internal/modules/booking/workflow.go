// README: Booking workflow drives one passenger through location, vehicle, schedule and driver steps.
package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/guetchou/BantuDelice-sub001/internal/modules/location"
	"github.com/guetchou/BantuDelice-sub001/internal/modules/pricing"
	"github.com/guetchou/BantuDelice-sub001/internal/modules/ride"
	"github.com/guetchou/BantuDelice-sub001/internal/observability"
	"github.com/guetchou/BantuDelice-sub001/internal/payments"
	"github.com/guetchou/BantuDelice-sub001/internal/types"
)

var (
	ErrWorkflowClosed      = errors.New("booking workflow is closed")
	ErrFinalStep           = errors.New("already at final step")
	ErrNotAtFinalStep      = errors.New("booking can only be finalized from the driver step")
	ErrWrongStep           = errors.New("operation not available at this step")
	ErrInvalidLocation     = errors.New("invalid location")
	ErrDriverUnavailable   = errors.New("driver not available")
	ErrGeocodingFailed     = errors.New("address could not be resolved")
	ErrRideCreationFailed  = errors.New("ride could not be created")
	ErrRideSyncFailed      = errors.New("ride could not be updated")
	ErrDriverRequestFailed = errors.New("driver request failed")
	ErrPaymentAuthFailed   = errors.New("payment authorization failed")
)

// fallbackAddress labels a device position that could not be reverse geocoded.
const fallbackAddress = "Position actuelle"

type Step int

const (
	StepLocation Step = iota + 1
	StepVehicle
	StepSchedule
	StepDriver
	StepCompleted
	StepCancelled
)

func (s Step) String() string {
	switch s {
	case StepLocation:
		return "location"
	case StepVehicle:
		return "vehicle"
	case StepSchedule:
		return "schedule"
	case StepDriver:
		return "driver"
	case StepCompleted:
		return "completed"
	case StepCancelled:
		return "cancelled"
	}
	return fmt.Sprintf("step(%d)", int(s))
}

func (s Step) Terminal() bool { return s == StepCompleted || s == StepCancelled }

type RideBackend interface {
	CreateRide(ctx context.Context, cmd ride.CreateCommand) (*ride.Ride, error)
	UpdateRide(ctx context.Context, cmd ride.UpdateCommand) error
	RequestDriver(ctx context.Context, cmd ride.RequestDriverCommand) error
	AttachPayment(ctx context.Context, rideID types.ID, paymentIntentID string) error
}

type DriverProvider interface {
	FindNearbyDrivers(ctx context.Context, pickup types.Point, class pricing.VehicleClass) ([]location.DriverCandidate, error)
}

type Geocoder interface {
	Geocode(ctx context.Context, address string) (types.Point, string, error)
	ReverseGeocode(ctx context.Context, p types.Point) (string, error)
}

type PaymentAuthorizer interface {
	Authorize(ctx context.Context, rideID types.ID, amount types.Money) (payments.Hold, error)
}

// Deps are the collaborators shared by every workflow. Payments may be nil,
// in which case card bookings are not pre-authorized.
type Deps struct {
	Rides    RideBackend
	Drivers  DriverProvider
	Geocoder Geocoder
	Payments PaymentAuthorizer
	Timeout  time.Duration
	Now      func() time.Time
	Logger   *slog.Logger
}

func (d Deps) withDefaults() Deps {
	if d.Timeout <= 0 {
		d.Timeout = 15 * time.Second
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	return d
}

// Warning reports a side effect of finalize that failed without undoing the booking.
type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

type Outcome struct {
	RideID          types.ID  `json:"ride_id"`
	DriverRequested bool      `json:"driver_requested"`
	PaymentIntentID string    `json:"payment_intent_id,omitempty"`
	Warnings        []Warning `json:"warnings"`
}

// HasWarning reports whether a warning wraps target.
func (o Outcome) HasWarning(target error) bool {
	for _, w := range o.Warnings {
		if errors.Is(w.Err, target) {
			return true
		}
	}
	return false
}

// View is a read-only snapshot of a workflow for presentation.
type View struct {
	Step           Step                       `json:"step"`
	StepName       string                     `json:"step_name"`
	Draft          Draft                      `json:"draft"`
	RideID         types.ID                   `json:"ride_id,omitempty"`
	DistanceKm     float64                    `json:"distance_km"`
	DurationMin    int                        `json:"duration_min"`
	EstimatedPrice types.Money                `json:"estimated_price"`
	MinPrice       int64                      `json:"min_price"`
	MaxPrice       int64                      `json:"max_price"`
	Candidates     []location.DriverCandidate `json:"candidates,omitempty"`
	SelectedDriver *location.DriverCandidate  `json:"selected_driver,omitempty"`
	Outcome        *Outcome                   `json:"outcome,omitempty"`
}

type Workflow struct {
	mu sync.Mutex

	passengerID types.ID
	step        Step
	store       *Store
	validator   Validator
	deps        Deps

	rideID     types.ID
	candidates []location.DriverCandidate
	selected   *location.DriverCandidate
	outcome    *Outcome
	// unix nanoseconds; read without mu so the registry never waits on a
	// workflow blocked in a backend call.
	lastActive atomic.Int64
}

// NewWorkflow opens a workflow at the location step with an empty draft.
func NewWorkflow(passengerID types.ID, rates pricing.Table, deps Deps) *Workflow {
	deps = deps.withDefaults()
	w := &Workflow{
		passengerID: passengerID,
		step:        StepLocation,
		store:       NewStore(rates),
		validator:   NewValidator(deps.Now),
		deps:        deps,
	}
	w.lastActive.Store(deps.Now().UnixNano())
	return w
}

func (w *Workflow) Step() Step {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.step
}

func (w *Workflow) RideID() types.ID {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.rideID
}

// LastActive is the time of the most recent operation.
func (w *Workflow) LastActive() time.Time {
	return time.Unix(0, w.lastActive.Load())
}

func (w *Workflow) touch() { w.lastActive.Store(w.deps.Now().UnixNano()) }

// Update merges p into the draft. A patch that would break a step already
// passed is rejected whole with a ValidationError naming that step.
// Changing the vehicle class drops the driver candidates, since they were
// filtered by class.
func (w *Workflow) Update(p Patch) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.step.Terminal() {
		return ErrWorkflowClosed
	}
	w.touch()
	if err := w.checkPassed(p); err != nil {
		return err
	}
	before := w.store.draft.VehicleClass
	w.store.Update(p)
	if w.store.draft.VehicleClass != before {
		w.candidates = nil
		w.selected = nil
	}
	return nil
}

// checkPassed applies p to a copy of the draft and re-validates the steps
// before the current one. Only steps that p turns from valid to invalid
// count, so a scheduled time going stale does not block unrelated edits.
func (w *Workflow) checkPassed(p Patch) error {
	if w.step <= StepLocation {
		return nil
	}
	trial := Store{draft: w.store.draft.clone(), rates: w.store.rates}
	trial.Update(p)
	for s := StepLocation; s < w.step; s++ {
		if !w.validator.Check(s, w.store.draft).Valid {
			continue
		}
		if res := w.validator.Check(s, trial.draft); !res.Valid {
			return &ValidationError{Step: s, Reason: res.Reason}
		}
	}
	return nil
}

// Check validates the current step without moving.
func (w *Workflow) Check() Result {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.validator.Check(w.step, w.store.draft)
}

// Advance moves to the next step when the current one validates. Leaving
// the location step creates the ride record, or syncs it if it exists; on
// backend failure the workflow stays where it is.
func (w *Workflow) Advance(ctx context.Context) (Step, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.step.Terminal() {
		return w.step, ErrWorkflowClosed
	}
	w.touch()
	if w.step == StepDriver {
		return w.step, ErrFinalStep
	}

	from := w.step.String()
	res := w.validator.Check(w.step, w.store.draft)
	if !res.Valid {
		observability.StepTransitions.WithLabelValues(from, "invalid").Inc()
		return w.step, &ValidationError{Step: w.step, Reason: res.Reason}
	}

	if w.step == StepLocation {
		if err := w.commitRide(ctx); err != nil {
			observability.StepTransitions.WithLabelValues(from, "backend_error").Inc()
			return w.step, err
		}
	}
	w.step++
	observability.StepTransitions.WithLabelValues(from, "ok").Inc()
	return w.step, nil
}

func (w *Workflow) commitRide(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, w.deps.Timeout)
	defer cancel()

	details, price := w.snapshot()
	if w.rideID != "" {
		err := w.deps.Rides.UpdateRide(ctx, ride.UpdateCommand{
			RideID:         w.rideID,
			PassengerID:    w.passengerID,
			Details:        details,
			EstimatedPrice: price,
		})
		if err != nil {
			w.deps.Logger.Warn("ride sync failed", "ride_id", w.rideID, "error", err)
			return fmt.Errorf("%w: %w", ErrRideSyncFailed, err)
		}
		return nil
	}

	start := time.Now()
	r, err := w.deps.Rides.CreateRide(ctx, ride.CreateCommand{
		PassengerID:    w.passengerID,
		Details:        details,
		EstimatedPrice: price,
	})
	observability.RideCreateLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		w.deps.Logger.Warn("ride creation failed", "passenger_id", w.passengerID, "error", err)
		return fmt.Errorf("%w: %w", ErrRideCreationFailed, err)
	}
	w.rideID = r.ID
	return nil
}

// Retreat moves back one step; at the first step it is a no-op.
func (w *Workflow) Retreat() (Step, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.step.Terminal() {
		return w.step, ErrWorkflowClosed
	}
	w.touch()
	if w.step > StepLocation {
		w.step--
	}
	return w.step, nil
}

// ResolveAddress records text as the address for side and geocodes it.
// When geocoding fails the address is kept without coordinates.
func (w *Workflow) ResolveAddress(ctx context.Context, side Side, text string) error {
	if !side.Valid() {
		return ErrInvalidLocation
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.step.Terminal() {
		return ErrWorkflowClosed
	}
	w.touch()
	w.store.Update(addressPatch(side, text, nil))
	if w.deps.Geocoder == nil {
		return ErrGeocodingFailed
	}

	ctx, cancel := context.WithTimeout(ctx, w.deps.Timeout)
	defer cancel()
	p, _, err := w.deps.Geocoder.Geocode(ctx, text)
	if err != nil {
		w.deps.Logger.Info("geocoding failed", "side", side, "error", err)
		return fmt.Errorf("%w: %w", ErrGeocodingFailed, err)
	}
	w.store.Update(addressPatch(side, text, &p))
	return nil
}

// SetLocation stores an address picked together with its coordinates.
func (w *Workflow) SetLocation(side Side, address string, p types.Point) error {
	if !side.Valid() || !p.Valid() {
		return ErrInvalidLocation
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.step.Terminal() {
		return ErrWorkflowClosed
	}
	w.touch()
	w.store.Update(addressPatch(side, address, &p))
	return nil
}

// UseCurrentLocation sets the pickup to the device position and returns
// the address shown for it.
func (w *Workflow) UseCurrentLocation(ctx context.Context, p types.Point) (string, error) {
	if !p.Valid() {
		return "", ErrInvalidLocation
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.step.Terminal() {
		return "", ErrWorkflowClosed
	}
	w.touch()

	address := fallbackAddress
	if w.deps.Geocoder != nil {
		ctx, cancel := context.WithTimeout(ctx, w.deps.Timeout)
		addr, err := w.deps.Geocoder.ReverseGeocode(ctx, p)
		cancel()
		if err != nil {
			w.deps.Logger.Info("reverse geocoding failed", "error", err)
		} else if addr != "" {
			address = addr
		}
	}
	w.store.Update(addressPatch(SidePickup, address, &p))
	return address, nil
}

func addressPatch(side Side, address string, p *types.Point) Patch {
	if side == SideDestination {
		return Patch{DestinationAddress: &address, DestinationCoordinates: p}
	}
	return Patch{PickupAddress: &address, PickupCoordinates: p}
}

// Candidates refreshes the nearby drivers for the current pickup and class.
func (w *Workflow) Candidates(ctx context.Context) ([]location.DriverCandidate, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.step.Terminal() {
		return nil, ErrWorkflowClosed
	}
	if w.step != StepDriver {
		return nil, ErrWrongStep
	}
	w.touch()
	pickup := w.store.draft.PickupCoordinates
	if pickup == nil {
		return nil, &ValidationError{Step: StepLocation, Reason: MissingCoordinates}
	}

	ctx, cancel := context.WithTimeout(ctx, w.deps.Timeout)
	defer cancel()
	found, err := w.deps.Drivers.FindNearbyDrivers(ctx, *pickup, w.store.draft.VehicleClass)
	if err != nil {
		return nil, err
	}
	w.candidates = found
	if w.selected != nil && findCandidate(found, w.selected.ID) == nil {
		w.selected = nil
	}
	return append([]location.DriverCandidate(nil), found...), nil
}

// SelectDriver picks one of the last listed candidates.
func (w *Workflow) SelectDriver(driverID types.ID) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.step.Terminal() {
		return ErrWorkflowClosed
	}
	if w.step != StepDriver {
		return ErrWrongStep
	}
	w.touch()
	c := findCandidate(w.candidates, driverID)
	if c == nil || !c.Available {
		return ErrDriverUnavailable
	}
	picked := *c
	w.selected = &picked
	return nil
}

func (w *Workflow) ClearDriver() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.step.Terminal() {
		return ErrWorkflowClosed
	}
	w.touch()
	w.selected = nil
	return nil
}

func findCandidate(list []location.DriverCandidate, id types.ID) *location.DriverCandidate {
	for i := range list {
		if list[i].ID == id {
			return &list[i]
		}
	}
	return nil
}

// Finalize completes the booking from the driver step. The workflow is
// Completed and the draft reset before any side effect runs. The ride sync,
// driver request and card pre-authorization then run one after another on a
// context detached from ctx, so a dropped caller does not abort them, and
// their failures come back as warnings.
func (w *Workflow) Finalize(ctx context.Context) (Outcome, error) {
	w.mu.Lock()
	if w.step.Terminal() {
		w.mu.Unlock()
		return Outcome{}, ErrWorkflowClosed
	}
	if w.step != StepDriver {
		w.mu.Unlock()
		return Outcome{}, ErrNotAtFinalStep
	}
	w.touch()
	details, price := w.snapshot()
	method := w.store.draft.PaymentMethod
	rideID := w.rideID
	selected := w.selected

	w.step = StepCompleted
	w.store.Reset()
	w.candidates = nil
	w.selected = nil
	w.mu.Unlock()

	observability.BookingsFinished.WithLabelValues("completed").Inc()
	out := w.runSideEffects(context.WithoutCancel(ctx), rideID, details, price, method, selected)

	w.mu.Lock()
	w.outcome = &out
	w.mu.Unlock()
	return out, nil
}

// runSideEffects writes to the ride record in sequence; the ride service
// versions status only, so overlapping writes to one ride could lose data.
func (w *Workflow) runSideEffects(ctx context.Context, rideID types.ID, details ride.Details, price types.Money, method PaymentMethod, selected *location.DriverCandidate) Outcome {
	ctx, cancel := context.WithTimeout(ctx, w.deps.Timeout)
	defer cancel()

	out := Outcome{RideID: rideID, Warnings: []Warning{}}
	warn := func(code string, kind, err error) {
		out.Warnings = append(out.Warnings, Warning{Code: code, Message: kind.Error(), Err: fmt.Errorf("%w: %w", kind, err)})
		observability.BookingWarnings.WithLabelValues(code).Inc()
		w.deps.Logger.Warn("booking side effect failed", "ride_id", rideID, "kind", code, "error", err)
	}

	err := w.deps.Rides.UpdateRide(ctx, ride.UpdateCommand{
		RideID:         rideID,
		PassengerID:    w.passengerID,
		Details:        details,
		EstimatedPrice: price,
	})
	if err != nil {
		warn("ride_sync", ErrRideSyncFailed, err)
	}

	if selected != nil {
		err := w.deps.Rides.RequestDriver(ctx, ride.RequestDriverCommand{
			RideID:      rideID,
			PassengerID: w.passengerID,
			DriverID:    selected.ID,
		})
		if err != nil {
			warn("driver_request", ErrDriverRequestFailed, err)
		} else {
			out.DriverRequested = true
		}
	}

	if method == PaymentCard && w.deps.Payments != nil && price.Amount > 0 {
		hold, err := w.deps.Payments.Authorize(ctx, rideID, price)
		if err != nil {
			warn("payment_auth", ErrPaymentAuthFailed, err)
			return out
		}
		out.PaymentIntentID = hold.PaymentIntentID
		if err := w.deps.Rides.AttachPayment(ctx, rideID, hold.PaymentIntentID); err != nil {
			warn("ride_sync", ErrRideSyncFailed, err)
		}
	}
	return out
}

// Cancel abandons the booking and clears the draft. Cancelling twice is a no-op.
func (w *Workflow) Cancel() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	switch w.step {
	case StepCancelled:
		return nil
	case StepCompleted:
		return ErrWorkflowClosed
	}
	w.touch()
	w.step = StepCancelled
	w.store.Reset()
	w.candidates = nil
	w.selected = nil
	observability.BookingsFinished.WithLabelValues("cancelled").Inc()
	return nil
}

func (w *Workflow) View() View {
	w.mu.Lock()
	defer w.mu.Unlock()

	dist := w.store.DistanceKm()
	price := w.store.CurrentEstimatedPrice()
	lo, hi := pricing.Range(price)
	v := View{
		Step:           w.step,
		StepName:       w.step.String(),
		Draft:          w.store.Draft(),
		RideID:         w.rideID,
		DistanceKm:     dist,
		DurationMin:    pricing.EstimateDurationMin(dist),
		EstimatedPrice: types.Money{Amount: price, Currency: w.store.Currency()},
		MinPrice:       lo,
		MaxPrice:       hi,
		Candidates:     append([]location.DriverCandidate(nil), w.candidates...),
	}
	if w.selected != nil {
		s := *w.selected
		v.SelectedDriver = &s
	}
	if w.outcome != nil {
		o := *w.outcome
		v.Outcome = &o
	}
	return v
}

// snapshot converts the draft into the ride record payload. Callers hold w.mu.
func (w *Workflow) snapshot() (ride.Details, types.Money) {
	d := w.store.Draft()
	details := ride.Details{
		PickupAddress:       d.PickupAddress,
		DestinationAddress:  d.DestinationAddress,
		PickupTiming:        string(d.PickupTiming),
		ScheduledAt:         d.ScheduledAt,
		VehicleClass:        d.VehicleClass,
		PaymentMethod:       string(d.PaymentMethod),
		SpecialInstructions: d.SpecialInstructions,
		PromoCode:           d.PromoCode,
		SharingEnabled:      d.SharingEnabled,
		MaxPassengers:       d.MaxPassengers,
		DistanceKm:          w.store.DistanceKm(),
	}
	if d.PickupCoordinates != nil {
		details.Pickup = *d.PickupCoordinates
	}
	if d.DestinationCoordinates != nil {
		details.Destination = *d.DestinationCoordinates
	}
	return details, types.Money{Amount: w.store.CurrentEstimatedPrice(), Currency: w.store.Currency()}
}
