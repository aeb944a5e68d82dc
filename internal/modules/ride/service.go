// README: Ride service implements ride creation, booking sync, driver requests and state transitions.
package ride

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log/slog"
	"time"

	"github.com/guetchou/BantuDelice-sub001/internal/events"
	"github.com/guetchou/BantuDelice-sub001/internal/modules/location"
	"github.com/guetchou/BantuDelice-sub001/internal/types"
)

var (
	ErrInvalidState = errors.New("invalid state transition")
	ErrNotFound     = errors.New("ride not found")
	ErrConflict     = errors.New("ride state conflict")
	ErrForbidden    = errors.New("ride belongs to another passenger")
	ErrBadRequest   = errors.New("bad request")
)

type Repository interface {
	Create(ctx context.Context, r *Ride) error
	Get(ctx context.Context, id types.ID) (*Ride, error)
	UpdateDetails(ctx context.Context, id types.ID, d Details, price types.Money) (bool, error)
	UpdateStatus(ctx context.Context, id types.ID, from, to Status, version int, driverID *types.ID, reason *string) (bool, error)
	AttachPayment(ctx context.Context, id types.ID, paymentIntentID string) error
	AppendEvent(ctx context.Context, e *Event) error
	CreateDriverRequest(ctx context.Context, req *DriverRequest) error
}

type DriverNotifier interface {
	NotifyRideRequest(ctx context.Context, driverID types.ID, info location.RideRequestInfo) error
}

// PaymentSettler settles the card hold taken when the booking was finalized.
type PaymentSettler interface {
	Capture(ctx context.Context, paymentIntentID string) error
	Release(ctx context.Context, paymentIntentID string) error
}

type Service struct {
	store     Repository
	publisher events.Publisher
	notifier  DriverNotifier
	payments  PaymentSettler
	logger    *slog.Logger
}

// NewService wires the ride service; publisher and notifier may be nil.
func NewService(store Repository, publisher events.Publisher, notifier DriverNotifier, logger *slog.Logger) *Service {
	if publisher == nil {
		publisher = events.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, publisher: publisher, notifier: notifier, logger: logger}
}

// WithPayments enables capture on completion and release on cancellation
// for rides that carry a card hold.
func (s *Service) WithPayments(p PaymentSettler) *Service {
	s.payments = p
	return s
}

type CreateCommand struct {
	PassengerID    types.ID
	Details        Details
	EstimatedPrice types.Money
}

type UpdateCommand struct {
	RideID         types.ID
	PassengerID    types.ID
	Details        Details
	EstimatedPrice types.Money
}

type RequestDriverCommand struct {
	RideID      types.ID
	PassengerID types.ID
	DriverID    types.ID
}

type StatusCommand struct {
	RideID    types.ID
	To        Status
	DriverID  *types.ID
	ActorType string
	ActorID   *types.ID
	Reason    string
}

func (s *Service) CreateRide(ctx context.Context, cmd CreateCommand) (*Ride, error) {
	if cmd.PassengerID == "" || !validDetails(cmd.Details) {
		return nil, ErrBadRequest
	}

	now := time.Now().UTC()
	r := &Ride{
		ID:             newID(),
		PassengerID:    cmd.PassengerID,
		Status:         StatusPending,
		StatusVersion:  0,
		Details:        cmd.Details,
		EstimatedPrice: cmd.EstimatedPrice,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.store.Create(ctx, r); err != nil {
		return nil, err
	}
	_ = s.store.AppendEvent(ctx, &Event{
		RideID:     r.ID,
		FromStatus: StatusNone,
		ToStatus:   StatusPending,
		ActorType:  "passenger",
		ActorID:    &cmd.PassengerID,
		CreatedAt:  now,
	})
	s.publish(ctx, events.RideCreated, r.ID, r)
	s.logger.Info("ride created", "ride_id", r.ID, "passenger_id", r.PassengerID, "vehicle_class", r.Details.VehicleClass)
	return r, nil
}

// UpdateRide replaces the booking snapshot of a ride that has not been assigned yet.
func (s *Service) UpdateRide(ctx context.Context, cmd UpdateCommand) error {
	if !validDetails(cmd.Details) {
		return ErrBadRequest
	}
	r, err := s.store.Get(ctx, cmd.RideID)
	if err != nil {
		return err
	}
	if r.PassengerID != cmd.PassengerID {
		return ErrForbidden
	}
	if r.Status != StatusPending {
		return ErrInvalidState
	}
	ok, err := s.store.UpdateDetails(ctx, r.ID, cmd.Details, cmd.EstimatedPrice)
	if err != nil {
		return err
	}
	if !ok {
		return ErrConflict
	}
	s.publish(ctx, events.RideUpdated, r.ID, cmd.Details)
	return nil
}

// RequestDriver asks a specific driver to take a pending ride.
func (s *Service) RequestDriver(ctx context.Context, cmd RequestDriverCommand) error {
	if cmd.DriverID == "" {
		return ErrBadRequest
	}
	r, err := s.store.Get(ctx, cmd.RideID)
	if err != nil {
		return err
	}
	if r.PassengerID != cmd.PassengerID {
		return ErrForbidden
	}
	if r.Status != StatusPending {
		return ErrInvalidState
	}
	if err := s.store.CreateDriverRequest(ctx, &DriverRequest{
		RideID:    r.ID,
		DriverID:  cmd.DriverID,
		CreatedAt: time.Now().UTC(),
	}); err != nil {
		return err
	}
	s.publish(ctx, events.RideDriverRequested, r.ID, map[string]any{"driver_id": cmd.DriverID})

	if s.notifier != nil {
		err := s.notifier.NotifyRideRequest(ctx, cmd.DriverID, location.RideRequestInfo{
			RideID:             r.ID,
			PickupAddress:      r.Details.PickupAddress,
			Pickup:             r.Details.Pickup,
			DestinationAddress: r.Details.DestinationAddress,
			Destination:        r.Details.Destination,
			EstimatedPrice:     r.EstimatedPrice,
		})
		if err != nil {
			s.logger.Warn("driver notification failed", "ride_id", r.ID, "driver_id", cmd.DriverID, "error", err)
		}
	}
	return nil
}

// UpdateStatus moves a ride along AllowedTransitions with optimistic versioning.
func (s *Service) UpdateStatus(ctx context.Context, cmd StatusCommand) error {
	r, err := s.store.Get(ctx, cmd.RideID)
	if err != nil {
		return err
	}
	if !CanTransition(r.Status, cmd.To) {
		return ErrInvalidState
	}
	driverID := cmd.DriverID
	if cmd.To == StatusAssigned && driverID == nil {
		return ErrBadRequest
	}
	var reason *string
	if cmd.Reason != "" {
		reason = &cmd.Reason
	}
	ok, err := s.store.UpdateStatus(ctx, r.ID, r.Status, cmd.To, r.StatusVersion, driverID, reason)
	if err != nil {
		return err
	}
	if !ok {
		return ErrConflict
	}
	_ = s.store.AppendEvent(ctx, &Event{
		RideID:     r.ID,
		FromStatus: r.Status,
		ToStatus:   cmd.To,
		ActorType:  cmd.ActorType,
		ActorID:    cmd.ActorID,
		CreatedAt:  time.Now().UTC(),
	})
	s.publish(ctx, events.RideStatusChanged, r.ID, map[string]any{"from": r.Status, "to": cmd.To})
	s.settle(ctx, r, cmd.To)
	return nil
}

// AttachPayment records the card hold taken for a ride.
func (s *Service) AttachPayment(ctx context.Context, rideID types.ID, paymentIntentID string) error {
	if paymentIntentID == "" {
		return ErrBadRequest
	}
	return s.store.AttachPayment(ctx, rideID, paymentIntentID)
}

// settle runs after the status change is committed; a failure is logged and
// left for reconciliation.
func (s *Service) settle(ctx context.Context, r *Ride, to Status) {
	if s.payments == nil || r.PaymentIntentID == nil {
		return
	}
	var err error
	switch to {
	case StatusCompleted:
		err = s.payments.Capture(ctx, *r.PaymentIntentID)
	case StatusCancelled:
		err = s.payments.Release(ctx, *r.PaymentIntentID)
	default:
		return
	}
	if err != nil {
		s.logger.Error("card hold not settled", "ride_id", r.ID, "status", to, "error", err)
	}
}

func (s *Service) Get(ctx context.Context, id types.ID) (*Ride, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) publish(ctx context.Context, kind string, id types.ID, payload any) {
	if err := s.publisher.Publish(ctx, events.Event{Type: kind, RideID: id, Payload: payload}); err != nil {
		s.logger.Warn("ride event not published", "type", kind, "ride_id", id, "error", err)
	}
}

func validDetails(d Details) bool {
	if d.PickupAddress == "" || d.DestinationAddress == "" {
		return false
	}
	if !d.Pickup.Valid() || !d.Destination.Valid() {
		return false
	}
	return d.VehicleClass.Valid() && d.MaxPassengers >= 1
}

func newID() types.ID {
	var b [16]byte
	_, _ = rand.Read(b[:])
	return types.ID(hex.EncodeToString(b[:]))
}
