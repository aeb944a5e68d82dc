// README: Ride service tests (transition table, booking sync, driver requests, races).
package ride

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/guetchou/BantuDelice-sub001/internal/events"
	"github.com/guetchou/BantuDelice-sub001/internal/logging"
	"github.com/guetchou/BantuDelice-sub001/internal/modules/location"
	"github.com/guetchou/BantuDelice-sub001/internal/modules/pricing"
	"github.com/guetchou/BantuDelice-sub001/internal/types"
)

type memRepo struct {
	mu       sync.Mutex
	rides    map[types.ID]*Ride
	events   []Event
	requests []DriverRequest
}

func newMemRepo() *memRepo {
	return &memRepo{rides: map[types.ID]*Ride{}}
}

func (m *memRepo) Create(_ context.Context, r *Ride) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *r
	m.rides[r.ID] = &cp
	return nil
}

func (m *memRepo) Get(_ context.Context, id types.ID) (*Ride, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rides[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *memRepo) UpdateDetails(_ context.Context, id types.ID, d Details, price types.Money) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rides[id]
	if !ok || r.Status != StatusPending {
		return false, nil
	}
	r.Details = d
	r.EstimatedPrice = price
	return true, nil
}

func (m *memRepo) UpdateStatus(_ context.Context, id types.ID, from, to Status, version int, driverID *types.ID, reason *string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rides[id]
	if !ok || r.Status != from || r.StatusVersion != version {
		return false, nil
	}
	r.Status = to
	r.StatusVersion++
	if to == StatusPending {
		r.DriverID = nil
	} else if driverID != nil {
		d := *driverID
		r.DriverID = &d
	}
	if reason != nil {
		r.CancelReason = reason
	}
	return true, nil
}

func (m *memRepo) AttachPayment(_ context.Context, id types.ID, paymentIntentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rides[id]
	if !ok {
		return ErrNotFound
	}
	r.PaymentIntentID = &paymentIntentID
	return nil
}

func (m *memRepo) AppendEvent(_ context.Context, e *Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, *e)
	return nil
}

func (m *memRepo) CreateDriverRequest(_ context.Context, req *DriverRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rides[req.RideID]
	if !ok {
		return ErrNotFound
	}
	req.ID = int64(len(m.requests) + 1)
	m.requests = append(m.requests, *req)
	d := req.DriverID
	r.RequestedDriverID = &d
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) kinds() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

type fakeNotifier struct {
	calls []types.ID
	err   error
}

func (f *fakeNotifier) NotifyRideRequest(_ context.Context, driverID types.ID, _ location.RideRequestInfo) error {
	f.calls = append(f.calls, driverID)
	return f.err
}

func sampleDetails() Details {
	return Details{
		PickupAddress:      "Marché Total, Brazzaville",
		Pickup:             types.Point{Lat: -4.2768, Lng: 15.2712},
		DestinationAddress: "Aéroport Maya-Maya",
		Destination:        types.Point{Lat: -4.2517, Lng: 15.2530},
		PickupTiming:       "immediate",
		VehicleClass:       pricing.ClassStandard,
		MaxPassengers:      1,
		DistanceKm:         3.4,
	}
}

func newTestService() (*Service, *memRepo, *recordingPublisher, *fakeNotifier) {
	repo := newMemRepo()
	pub := &recordingPublisher{}
	notifier := &fakeNotifier{}
	return NewService(repo, pub, notifier, logging.Discard()), repo, pub, notifier
}

func mustCreateRide(t *testing.T, svc *Service, passenger types.ID) *Ride {
	t.Helper()
	r, err := svc.CreateRide(context.Background(), CreateCommand{
		PassengerID:    passenger,
		Details:        sampleDetails(),
		EstimatedPrice: types.Money{Amount: 840, Currency: "XAF"},
	})
	if err != nil {
		t.Fatalf("create ride: %v", err)
	}
	return r
}

func assertStatus(t *testing.T, svc *Service, id types.ID, want Status) {
	t.Helper()
	r, err := svc.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("get ride: %v", err)
	}
	if r.Status != want {
		t.Fatalf("status = %s, want %s", r.Status, want)
	}
}

// TestCanTransition verifies the state machine transition table without a database.
func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to Status
		want     bool
	}{
		{StatusPending, StatusAssigned, true},
		{StatusAssigned, StatusInProgress, true},
		{StatusInProgress, StatusCompleted, true},
		{StatusPending, StatusCancelled, true},
		{StatusAssigned, StatusCancelled, true},
		// driver drops the ride, back to auto-assignment
		{StatusAssigned, StatusPending, true},
		// terminal states have no outgoing transitions
		{StatusCompleted, StatusPending, false},
		{StatusCancelled, StatusPending, false},
		// skipping states
		{StatusPending, StatusInProgress, false},
		{StatusPending, StatusCompleted, false},
		{StatusInProgress, StatusCancelled, false},
		{StatusNone, StatusPending, false},
	}
	for _, tc := range cases {
		got := CanTransition(tc.from, tc.to)
		if got != tc.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestCreateRide(t *testing.T) {
	svc, repo, pub, _ := newTestService()
	r := mustCreateRide(t, svc, "p1")

	if r.Status != StatusPending || len(r.ID) != 32 {
		t.Errorf("unexpected ride: %+v", r)
	}
	if len(repo.events) != 1 || repo.events[0].ToStatus != StatusPending {
		t.Errorf("expected creation event, got %+v", repo.events)
	}
	if got := pub.kinds(); len(got) != 1 || got[0] != events.RideCreated {
		t.Errorf("published %v", got)
	}
}

func TestCreateRide_BadRequest(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	missingDest := sampleDetails()
	missingDest.DestinationAddress = ""
	badPoint := sampleDetails()
	badPoint.Pickup = types.Point{Lat: 120}
	badClass := sampleDetails()
	badClass.VehicleClass = "limo"

	for name, cmd := range map[string]CreateCommand{
		"no passenger": {Details: sampleDetails()},
		"no dest":      {PassengerID: "p1", Details: missingDest},
		"bad point":    {PassengerID: "p1", Details: badPoint},
		"bad class":    {PassengerID: "p1", Details: badClass},
	} {
		if _, err := svc.CreateRide(ctx, cmd); !errors.Is(err, ErrBadRequest) {
			t.Errorf("%s: expected ErrBadRequest, got %v", name, err)
		}
	}
}

func TestRideFlowHappyPath(t *testing.T) {
	svc, _, pub, _ := newTestService()
	ctx := context.Background()
	r := mustCreateRide(t, svc, "p1")
	driver := types.ID("d1")

	if err := svc.UpdateStatus(ctx, StatusCommand{RideID: r.ID, To: StatusAssigned, DriverID: &driver, ActorType: "system"}); err != nil {
		t.Fatalf("assign: %v", err)
	}
	assertStatus(t, svc, r.ID, StatusAssigned)

	if err := svc.UpdateStatus(ctx, StatusCommand{RideID: r.ID, To: StatusInProgress, ActorType: "driver", ActorID: &driver}); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := svc.UpdateStatus(ctx, StatusCommand{RideID: r.ID, To: StatusCompleted, ActorType: "driver", ActorID: &driver}); err != nil {
		t.Fatalf("complete: %v", err)
	}
	assertStatus(t, svc, r.ID, StatusCompleted)

	got, _ := svc.Get(ctx, r.ID)
	if got.DriverID == nil || *got.DriverID != driver {
		t.Errorf("driver not kept: %+v", got.DriverID)
	}
	if n := len(pub.kinds()); n != 4 {
		t.Errorf("expected 4 published events, got %d", n)
	}
}

func TestUpdateStatus_Invalid(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()
	r := mustCreateRide(t, svc, "p1")

	if err := svc.UpdateStatus(ctx, StatusCommand{RideID: r.ID, To: StatusCompleted}); !errors.Is(err, ErrInvalidState) {
		t.Errorf("complete from pending: expected ErrInvalidState, got %v", err)
	}
	if err := svc.UpdateStatus(ctx, StatusCommand{RideID: r.ID, To: StatusAssigned}); !errors.Is(err, ErrBadRequest) {
		t.Errorf("assign without driver: expected ErrBadRequest, got %v", err)
	}
	if err := svc.UpdateStatus(ctx, StatusCommand{RideID: "missing", To: StatusCancelled}); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing ride: expected ErrNotFound, got %v", err)
	}
}

func TestUpdateRide(t *testing.T) {
	svc, repo, _, _ := newTestService()
	ctx := context.Background()
	r := mustCreateRide(t, svc, "p1")

	d := sampleDetails()
	d.PaymentMethod = "card"
	d.SharingEnabled = true
	d.MaxPassengers = 3
	if err := svc.UpdateRide(ctx, UpdateCommand{RideID: r.ID, PassengerID: "p1", Details: d, EstimatedPrice: types.Money{Amount: 840, Currency: "XAF"}}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if got := repo.rides[r.ID].Details; got.PaymentMethod != "card" || got.MaxPassengers != 3 {
		t.Errorf("details not synced: %+v", got)
	}

	if err := svc.UpdateRide(ctx, UpdateCommand{RideID: r.ID, PassengerID: "p2", Details: d}); !errors.Is(err, ErrForbidden) {
		t.Errorf("expected ErrForbidden, got %v", err)
	}

	driver := types.ID("d1")
	_ = svc.UpdateStatus(ctx, StatusCommand{RideID: r.ID, To: StatusAssigned, DriverID: &driver})
	if err := svc.UpdateRide(ctx, UpdateCommand{RideID: r.ID, PassengerID: "p1", Details: d}); !errors.Is(err, ErrInvalidState) {
		t.Errorf("expected ErrInvalidState after assignment, got %v", err)
	}
}

func TestRequestDriver(t *testing.T) {
	svc, repo, pub, notifier := newTestService()
	ctx := context.Background()
	r := mustCreateRide(t, svc, "p1")

	if err := svc.RequestDriver(ctx, RequestDriverCommand{RideID: r.ID, PassengerID: "p1", DriverID: "d7"}); err != nil {
		t.Fatalf("request driver: %v", err)
	}
	if len(repo.requests) != 1 || repo.requests[0].DriverID != "d7" {
		t.Errorf("request not stored: %+v", repo.requests)
	}
	if got := repo.rides[r.ID].RequestedDriverID; got == nil || *got != "d7" {
		t.Errorf("requested driver not marked: %v", got)
	}
	if len(notifier.calls) != 1 || notifier.calls[0] != "d7" {
		t.Errorf("driver not notified: %v", notifier.calls)
	}
	assertStatus(t, svc, r.ID, StatusPending)

	kinds := pub.kinds()
	if kinds[len(kinds)-1] != events.RideDriverRequested {
		t.Errorf("last event = %s", kinds[len(kinds)-1])
	}
}

func TestRequestDriver_NotificationFailureIsNotAnError(t *testing.T) {
	svc, _, _, notifier := newTestService()
	notifier.err = errors.New("no token")
	r := mustCreateRide(t, svc, "p1")

	if err := svc.RequestDriver(context.Background(), RequestDriverCommand{RideID: r.ID, PassengerID: "p1", DriverID: "d7"}); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

func TestRequestDriver_Rejections(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()
	r := mustCreateRide(t, svc, "p1")

	if err := svc.RequestDriver(ctx, RequestDriverCommand{RideID: r.ID, PassengerID: "p1"}); !errors.Is(err, ErrBadRequest) {
		t.Errorf("no driver: expected ErrBadRequest, got %v", err)
	}
	if err := svc.RequestDriver(ctx, RequestDriverCommand{RideID: r.ID, PassengerID: "p2", DriverID: "d1"}); !errors.Is(err, ErrForbidden) {
		t.Errorf("other passenger: expected ErrForbidden, got %v", err)
	}
	_ = svc.UpdateStatus(ctx, StatusCommand{RideID: r.ID, To: StatusCancelled, ActorType: "passenger"})
	if err := svc.RequestDriver(ctx, RequestDriverCommand{RideID: r.ID, PassengerID: "p1", DriverID: "d1"}); !errors.Is(err, ErrInvalidState) {
		t.Errorf("cancelled ride: expected ErrInvalidState, got %v", err)
	}
}

func TestConcurrentAssign(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()
	r := mustCreateRide(t, svc, "p_race")

	drivers := []types.ID{"d1", "d2", "d3", "d4"}
	errs := make(chan error, len(drivers))
	start := make(chan struct{})
	var wg sync.WaitGroup

	for _, driverID := range drivers {
		wg.Add(1)
		go func(did types.ID) {
			defer wg.Done()
			<-start
			errs <- svc.UpdateStatus(ctx, StatusCommand{RideID: r.ID, To: StatusAssigned, DriverID: &did, ActorType: "driver", ActorID: &did})
		}(driverID)
	}

	close(start)
	wg.Wait()
	close(errs)

	success := 0
	for err := range errs {
		if err == nil {
			success++
			continue
		}
		if !errors.Is(err, ErrConflict) && !errors.Is(err, ErrInvalidState) {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if success != 1 {
		t.Fatalf("expected exactly 1 success, got %d", success)
	}
	assertStatus(t, svc, r.ID, StatusAssigned)
}

type fakeSettler struct {
	mu       sync.Mutex
	captured []string
	released []string
	err      error
}

func (f *fakeSettler) Capture(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.captured = append(f.captured, id)
	return f.err
}

func (f *fakeSettler) Release(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.released = append(f.released, id)
	return f.err
}

func TestCardHoldSettlement(t *testing.T) {
	ctx := context.Background()
	did := types.ID("d1")

	tests := []struct {
		name         string
		path         []Status
		wantCaptured int
		wantReleased int
	}{
		{"completed ride captures", []Status{StatusAssigned, StatusInProgress, StatusCompleted}, 1, 0},
		{"cancelled ride releases", []Status{StatusCancelled}, 0, 1},
		{"assigned ride keeps hold", []Status{StatusAssigned}, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, _, _ := newTestService()
			settler := &fakeSettler{}
			svc.WithPayments(settler)
			r := mustCreateRide(t, svc, "p_card")
			if err := svc.AttachPayment(ctx, r.ID, "pi_42"); err != nil {
				t.Fatalf("attach payment: %v", err)
			}
			for _, to := range tt.path {
				if err := svc.UpdateStatus(ctx, StatusCommand{RideID: r.ID, To: to, DriverID: &did, ActorType: "driver", ActorID: &did}); err != nil {
					t.Fatalf("update to %s: %v", to, err)
				}
			}
			if len(settler.captured) != tt.wantCaptured || len(settler.released) != tt.wantReleased {
				t.Fatalf("captured=%v released=%v", settler.captured, settler.released)
			}
		})
	}
}

func TestCardHoldSettlement_FailureDoesNotUndoStatus(t *testing.T) {
	ctx := context.Background()
	svc, _, _, _ := newTestService()
	svc.WithPayments(&fakeSettler{err: errors.New("stripe unavailable")})
	r := mustCreateRide(t, svc, "p_card")
	if err := svc.AttachPayment(ctx, r.ID, "pi_42"); err != nil {
		t.Fatalf("attach payment: %v", err)
	}
	if err := svc.UpdateStatus(ctx, StatusCommand{RideID: r.ID, To: StatusCancelled, ActorType: "passenger"}); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	assertStatus(t, svc, r.ID, StatusCancelled)
}

func TestAttachPayment_Rejections(t *testing.T) {
	svc, _, _, _ := newTestService()
	if err := svc.AttachPayment(context.Background(), "missing", "pi_1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown ride = %v", err)
	}
	r := mustCreateRide(t, svc, "p_card")
	if err := svc.AttachPayment(context.Background(), r.ID, ""); !errors.Is(err, ErrBadRequest) {
		t.Fatalf("empty intent = %v", err)
	}
}
