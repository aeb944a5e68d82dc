// README: Ride store backed by PostgreSQL.
package ride

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/guetchou/BantuDelice-sub001/internal/modules/pricing"
	"github.com/guetchou/BantuDelice-sub001/internal/types"
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) Create(ctx context.Context, r *Ride) error {
	d := r.Details
	_, err := s.db.Exec(ctx, `
		INSERT INTO rides (
			id, passenger_id, status, status_version,
			pickup_address, pickup_lat, pickup_lng,
			destination_address, destination_lat, destination_lng,
			pickup_timing, scheduled_at, vehicle_class, payment_method,
			special_instructions, promo_code, sharing_enabled, max_passengers,
			distance_km, estimated_price, currency, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7,
			$8, $9, $10,
			$11, $12, $13, $14,
			$15, $16, $17, $18,
			$19, $20, $21, $22, $23
		)`,
		string(r.ID), string(r.PassengerID), string(r.Status), r.StatusVersion,
		d.PickupAddress, d.Pickup.Lat, d.Pickup.Lng,
		d.DestinationAddress, d.Destination.Lat, d.Destination.Lng,
		d.PickupTiming, d.ScheduledAt, string(d.VehicleClass), d.PaymentMethod,
		d.SpecialInstructions, d.PromoCode, d.SharingEnabled, d.MaxPassengers,
		d.DistanceKm, r.EstimatedPrice.Amount, r.EstimatedPrice.Currency, r.CreatedAt, r.UpdatedAt,
	)
	return err
}

func (s *Store) Get(ctx context.Context, id types.ID) (*Ride, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, passenger_id, driver_id, requested_driver_id, status, status_version,
		       pickup_address, pickup_lat, pickup_lng,
		       destination_address, destination_lat, destination_lng,
		       pickup_timing, scheduled_at, vehicle_class, payment_method,
		       special_instructions, promo_code, sharing_enabled, max_passengers,
		       distance_km, estimated_price, currency, payment_intent_id,
		       created_at, updated_at, assigned_at, started_at, completed_at, cancelled_at, cancellation_reason
		FROM rides
		WHERE id = $1`, string(id),
	)

	var r Ride
	var class string
	var driverID, requestedID, promo, intentID, cancelReason sql.NullString
	var scheduledAt, assignedAt, startedAt, completedAt, cancelledAt sql.NullTime
	d := &r.Details

	err := row.Scan(
		&r.ID, &r.PassengerID, &driverID, &requestedID, &r.Status, &r.StatusVersion,
		&d.PickupAddress, &d.Pickup.Lat, &d.Pickup.Lng,
		&d.DestinationAddress, &d.Destination.Lat, &d.Destination.Lng,
		&d.PickupTiming, &scheduledAt, &class, &d.PaymentMethod,
		&d.SpecialInstructions, &promo, &d.SharingEnabled, &d.MaxPassengers,
		&d.DistanceKm, &r.EstimatedPrice.Amount, &r.EstimatedPrice.Currency, &intentID,
		&r.CreatedAt, &r.UpdatedAt, &assignedAt, &startedAt, &completedAt, &cancelledAt, &cancelReason,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	d.VehicleClass = pricing.VehicleClass(class)
	d.ScheduledAt = toTimePtr(scheduledAt)
	d.PromoCode = toStringPtr(promo)
	r.DriverID = toIDPtr(driverID)
	r.RequestedDriverID = toIDPtr(requestedID)
	r.PaymentIntentID = toStringPtr(intentID)
	r.CancelReason = toStringPtr(cancelReason)
	r.AssignedAt = toTimePtr(assignedAt)
	r.StartedAt = toTimePtr(startedAt)
	r.CompletedAt = toTimePtr(completedAt)
	r.CancelledAt = toTimePtr(cancelledAt)
	return &r, nil
}

func (s *Store) UpdateDetails(ctx context.Context, id types.ID, d Details, price types.Money) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE rides
		SET pickup_address = $1, pickup_lat = $2, pickup_lng = $3,
		    destination_address = $4, destination_lat = $5, destination_lng = $6,
		    pickup_timing = $7, scheduled_at = $8, vehicle_class = $9, payment_method = $10,
		    special_instructions = $11, promo_code = $12, sharing_enabled = $13, max_passengers = $14,
		    distance_km = $15, estimated_price = $16, currency = $17, updated_at = NOW()
		WHERE id = $18 AND status = 'pending'`,
		d.PickupAddress, d.Pickup.Lat, d.Pickup.Lng,
		d.DestinationAddress, d.Destination.Lat, d.Destination.Lng,
		d.PickupTiming, d.ScheduledAt, string(d.VehicleClass), d.PaymentMethod,
		d.SpecialInstructions, d.PromoCode, d.SharingEnabled, d.MaxPassengers,
		d.DistanceKm, price.Amount, price.Currency,
		string(id),
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) UpdateStatus(ctx context.Context, id types.ID, from, to Status, version int, driverID *types.ID, reason *string) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE rides
		SET status = $1,
		    status_version = status_version + 1,
		    driver_id = CASE WHEN $1 = 'pending' THEN NULL ELSE COALESCE($2, driver_id) END,
		    assigned_at = CASE WHEN $1 = 'assigned' THEN NOW() ELSE assigned_at END,
		    started_at = CASE WHEN $1 = 'in_progress' THEN NOW() ELSE started_at END,
		    completed_at = CASE WHEN $1 = 'completed' THEN NOW() ELSE completed_at END,
		    cancelled_at = CASE WHEN $1 = 'cancelled' THEN NOW() ELSE cancelled_at END,
		    cancellation_reason = COALESCE($3, cancellation_reason),
		    updated_at = NOW()
		WHERE id = $4 AND status = $5 AND status_version = $6`,
		string(to),
		fromIDPtr(driverID),
		reason,
		string(id),
		string(from),
		version,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) AttachPayment(ctx context.Context, id types.ID, paymentIntentID string) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE rides SET payment_intent_id = $1, updated_at = NOW() WHERE id = $2`,
		paymentIntentID, string(id),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) AppendEvent(ctx context.Context, e *Event) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO ride_state_events (
			ride_id, from_status, to_status, actor_type, actor_id, created_at
		) VALUES ($1, $2, $3, $4, $5, $6)`,
		string(e.RideID),
		string(e.FromStatus),
		string(e.ToStatus),
		e.ActorType,
		fromIDPtr(e.ActorID),
		e.CreatedAt,
	)
	return err
}

// CreateDriverRequest stores the request row and marks the requested driver on the ride.
func (s *Store) CreateDriverRequest(ctx context.Context, req *DriverRequest) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := tx.QueryRow(ctx, `
		INSERT INTO ride_driver_requests (ride_id, driver_id, status, created_at)
		VALUES ($1, $2, 'pending', $3)
		RETURNING id`,
		string(req.RideID), string(req.DriverID), req.CreatedAt,
	).Scan(&req.ID); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `
		UPDATE rides SET requested_driver_id = $1, updated_at = NOW() WHERE id = $2`,
		string(req.DriverID), string(req.RideID),
	); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func fromIDPtr(v *types.ID) *string {
	if v == nil {
		return nil
	}
	s := string(*v)
	return &s
}

func toIDPtr(v sql.NullString) *types.ID {
	if !v.Valid {
		return nil
	}
	id := types.ID(v.String)
	return &id
}

func toStringPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func toTimePtr(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}
