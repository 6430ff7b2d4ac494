package booking

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/groom-booking/backend/internal/reservation"
	"github.com/groom-booking/backend/internal/slot"
	"github.com/groom-booking/backend/internal/storage"
	"github.com/groom-booking/backend/internal/storage/memory"
	"github.com/groom-booking/backend/internal/storage/models"
)

const testDate = "2025-06-01"

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// looseStore accepts any insert, so the writer's own checks are what stop a
// double booking.
type looseStore struct {
	mu       sync.Mutex
	bookings []models.Booking
	failList bool
	failIns  bool
}

func (s *looseStore) ListBookings(ctx context.Context, f models.BookingFilter) ([]models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failList {
		return nil, errors.New("sheet quota exceeded")
	}
	var out []models.Booking
	for _, b := range s.bookings {
		if f.Matches(b) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *looseStore) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.bookings {
		if b.ID == id {
			return &b, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (s *looseStore) InsertBooking(ctx context.Context, b *models.Booking) (*models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failIns {
		return nil, errors.New("connection reset")
	}
	out := *b
	out.ID = uuid.NewString()
	out.CreatedAt = time.Now()
	s.bookings = append(s.bookings, out)
	return &out, nil
}

func (s *looseStore) UpdateBookingStatus(ctx context.Context, id string, status models.Status) (*models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.bookings {
		if s.bookings[i].ID == id {
			s.bookings[i].Status = status
			b := s.bookings[i]
			return &b, nil
		}
	}
	return nil, storage.ErrNotFound
}

type recordingListener struct {
	mu       sync.Mutex
	held     []reservation.Hold
	released []reservation.Hold
}

func (l *recordingListener) SlotHeld(h reservation.Hold) {
	l.mu.Lock()
	l.held = append(l.held, h)
	l.mu.Unlock()
}

func (l *recordingListener) SlotReleased(h reservation.Hold) {
	l.mu.Lock()
	l.released = append(l.released, h)
	l.mu.Unlock()
}

type recordingNotifier struct {
	created chan models.Booking
	changed chan models.Status
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{created: make(chan models.Booking, 4), changed: make(chan models.Status, 4)}
}

func (n *recordingNotifier) BookingCreated(ctx context.Context, b models.Booking) error {
	n.created <- b
	return nil
}

func (n *recordingNotifier) BookingStatusChanged(ctx context.Context, b models.Booking, previous models.Status) error {
	n.changed <- previous
	return nil
}

type engine struct {
	clock    *fakeClock
	catalog  *slot.Catalog
	ledger   *reservation.Ledger
	resolver *Resolver
	holds    *HoldService
	writer   *Writer
	listener *recordingListener
	notifier *recordingNotifier
}

func newEngine(t *testing.T, store storage.BookingStore) *engine {
	t.Helper()

	catalog, err := slot.NewCatalog([]string{"09:00", "10:00"}, []string{"Groomer 1", "Groomer 2"}, "grooming", time.UTC)
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}

	e := &engine{
		clock:    &fakeClock{now: time.Date(2025, 5, 30, 12, 0, 0, 0, time.UTC)},
		catalog:  catalog,
		listener: &recordingListener{},
		notifier: newRecordingNotifier(),
	}
	e.ledger = reservation.NewLedger(e.clock, time.UTC)
	e.resolver = NewResolver(store, e.ledger, catalog)
	e.holds = NewHoldService(e.resolver, e.ledger, catalog, TTLs{Browse: 5 * time.Minute, Reserve: 10 * time.Minute}, e.listener)
	e.writer = NewWriter(store, e.resolver, e.ledger, catalog, e.notifier, e.listener)
	return e
}

func request(tod, groomer string) Request {
	return Request{
		Date:     testDate,
		Time:     tod,
		Groomer:  groomer,
		Pet:      models.PetInfo{Name: "Biscuit", Breed: "Corgi"},
		Customer: models.CustomerInfo{Name: "Dana", Email: "dana@example.com"},
	}
}

func unavailable(a Availability) []string {
	var out []string
	for _, s := range a.Slots {
		if !s.Available {
			out = append(out, s.Time+" "+s.Groomer)
		}
	}
	return out
}

func expectUnavailable(t *testing.T, a Availability, want ...string) {
	t.Helper()
	got := unavailable(a)
	if len(got) != len(want) {
		t.Fatalf("expected unavailable %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected unavailable %v, got %v", want, got)
		}
	}
}

func TestEndToEndReserveThenBook(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, memory.New())

	avail := e.resolver.GetAvailability(ctx, testDate, false)
	if len(avail.Slots) != 4 || avail.Degraded {
		t.Fatalf("expected 4 healthy slots, got %+v", avail)
	}
	expectUnavailable(t, avail)

	hold, err := e.holds.Reserve(ctx, ReserveRequest{Date: testDate, Time: "09:00", Groomer: "Groomer 1", Mode: ModeBrowse})
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if hold.ID == "" || hold.TTL != 5*time.Minute {
		t.Fatalf("unexpected hold %+v", hold)
	}
	expectUnavailable(t, e.resolver.GetAvailability(ctx, testDate, false), "09:00 Groomer 1")

	req := request("9:00 AM", "groomer 1")
	req.ReservationID = hold.ID
	created, err := e.writer.CreateBooking(ctx, req)
	if err != nil {
		t.Fatalf("CreateBooking: %v", err)
	}
	if created.Status != models.StatusConfirmed || created.Time != "09:00" || created.Groomer != "Groomer 1" {
		t.Fatalf("unexpected booking %+v", created)
	}
	if created.ServiceType != "grooming" {
		t.Fatalf("expected blank service to default to grooming, got %q", created.ServiceType)
	}

	expectUnavailable(t, e.resolver.GetAvailability(ctx, testDate, false), "09:00 Groomer 1")
	if _, err := e.holds.Lookup(hold.ID); !errors.Is(err, ErrReservationNotFound) {
		t.Fatalf("expected consumed hold to be gone, got %v", err)
	}
	if e.ledger.Validate(slot.Key{Date: testDate, Time: "09:00", Groomer: "Groomer 1"}, hold.ID) {
		t.Fatalf("consumed hold must not validate")
	}

	select {
	case b := <-e.notifier.created:
		if b.ID != created.ID {
			t.Fatalf("notified about %s, want %s", b.ID, created.ID)
		}
	case <-time.After(time.Second):
		t.Fatalf("expected a booking notification")
	}

	if len(e.listener.held) != 1 || len(e.listener.released) != 1 {
		t.Fatalf("expected one held and one released event, got %d/%d", len(e.listener.held), len(e.listener.released))
	}
}

func TestAvailabilityReflectsStoreAndLedger(t *testing.T) {
	ctx := context.Background()
	store := &looseStore{}
	e := newEngine(t, store)

	store.bookings = []models.Booking{
		{ID: "b1", Date: testDate, Time: "10:00", Groomer: "groomer 2", Status: models.StatusConfirmed},
		{ID: "b2", Date: testDate, Time: "09:00", Groomer: "Groomer 2", Status: models.StatusPending},
		{ID: "b3", Date: testDate, Time: "09:00", Groomer: "Groomer 2", Status: models.StatusCancelled},
		{ID: "b4", Date: testDate, Time: "09:00", Groomer: "Groomer 2", ServiceType: "daycare", Status: models.StatusConfirmed},
		{ID: "b5", Date: "2025-06-02", Time: "09:00", Groomer: "Groomer 1", Status: models.StatusConfirmed},
	}
	expectUnavailable(t, e.resolver.GetAvailability(ctx, testDate, false), "10:00 Groomer 2")

	// Unknown groomers fall to the first groomer; expired still occupies.
	store.bookings = append(store.bookings, models.Booking{ID: "b6", Date: testDate, Time: "9.00", Groomer: "Someone", Status: models.StatusExpired})
	expectUnavailable(t, e.resolver.GetAvailability(ctx, testDate, false), "09:00 Groomer 1", "10:00 Groomer 2")

	e.ledger.Create(slot.Key{Date: testDate, Time: "10:00", Groomer: "Groomer 1"}, time.Minute)
	expectUnavailable(t, e.resolver.GetAvailability(ctx, testDate, false), "09:00 Groomer 1", "10:00 Groomer 1", "10:00 Groomer 2")

	e.clock.Advance(2 * time.Minute)
	expectUnavailable(t, e.resolver.GetAvailability(ctx, testDate, false), "09:00 Groomer 1", "10:00 Groomer 2")
}

func TestAvailabilityFailsOpen(t *testing.T) {
	ctx := context.Background()
	store := &looseStore{failList: true}
	e := newEngine(t, store)

	var degraded []string
	e.resolver.OnDegraded(func(date string, err error) { degraded = append(degraded, date) })

	// A held slot is still reported available while degraded.
	e.ledger.Create(slot.Key{Date: testDate, Time: "09:00", Groomer: "Groomer 1"}, time.Minute)

	avail := e.resolver.GetAvailability(ctx, testDate, true)
	if !avail.Degraded || avail.Error == "" {
		t.Fatalf("expected degraded result, got %+v", avail)
	}
	if len(avail.Slots) != 4 {
		t.Fatalf("expected full catalog, got %d slots", len(avail.Slots))
	}
	expectUnavailable(t, avail)

	if e.resolver.FailOpenCount() != 1 || len(degraded) != 1 || degraded[0] != testDate {
		t.Fatalf("expected one recorded fail-open, got %d %v", e.resolver.FailOpenCount(), degraded)
	}
}

func TestCreateBooking_DoubleBookingRejected(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, &looseStore{})

	if _, err := e.writer.CreateBooking(ctx, request("10:00", "Groomer 2")); err != nil {
		t.Fatalf("first CreateBooking: %v", err)
	}

	_, err := e.writer.CreateBooking(ctx, request("10:00", "Groomer 2"))
	if !errors.Is(err, ErrSlotUnavailable) {
		t.Fatalf("expected ErrSlotUnavailable, got %v", err)
	}
	var be *Error
	if !errors.As(err, &be) || be.Message != MsgSlotTaken {
		t.Fatalf("expected actionable message, got %v", err)
	}
}

func TestCreateBooking_StoreConstraintMapsToSlotUnavailable(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	e := newEngine(t, store)

	// A concurrent writer got in after our hold was placed.
	hold, err := e.holds.Reserve(ctx, ReserveRequest{Date: testDate, Time: "09:00", Groomer: "Groomer 1"})
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	store.InsertBooking(ctx, &models.Booking{Date: testDate, Time: "09:00", Groomer: "Groomer 1", ServiceType: "grooming", Status: models.StatusConfirmed})

	req := request("09:00", "Groomer 1")
	req.ReservationID = hold.ID
	if _, err := e.writer.CreateBooking(ctx, req); !errors.Is(err, ErrSlotUnavailable) {
		t.Fatalf("expected ErrSlotUnavailable, got %v", err)
	}
}

func TestCreateBooking_HoldChecks(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, memory.New())

	hold, err := e.holds.Reserve(ctx, ReserveRequest{Date: testDate, Time: "09:00", Groomer: "Groomer 1"})
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}

	// Someone else cannot book the held slot without the hold.
	if _, err := e.writer.CreateBooking(ctx, request("09:00", "Groomer 1")); !errors.Is(err, ErrSlotUnavailable) {
		t.Fatalf("expected held slot to be unavailable, got %v", err)
	}

	// The hold is bound to its slot.
	wrong := request("10:00", "Groomer 1")
	wrong.ReservationID = hold.ID
	if _, err := e.writer.CreateBooking(ctx, wrong); !errors.Is(err, ErrSlotUnavailable) {
		t.Fatalf("expected hold for another slot to be rejected, got %v", err)
	}

	e.clock.Advance(10*time.Minute + time.Second)
	req := request("09:00", "Groomer 1")
	req.ReservationID = hold.ID
	_, err = e.writer.CreateBooking(ctx, req)
	var be *Error
	if !errors.As(err, &be) || !errors.Is(err, ErrSlotUnavailable) || be.Message != MsgHoldExpired {
		t.Fatalf("expected expired hold error, got %v", err)
	}
}

func TestCreateBooking_StoreFailureKeepsHold(t *testing.T) {
	ctx := context.Background()
	store := &looseStore{}
	e := newEngine(t, store)

	hold, err := e.holds.Reserve(ctx, ReserveRequest{Date: testDate, Time: "10:00", Groomer: "Groomer 2"})
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}

	store.failIns = true
	req := request("10:00", "Groomer 2")
	req.ReservationID = hold.ID
	if _, err := e.writer.CreateBooking(ctx, req); !errors.Is(err, ErrStore) {
		t.Fatalf("expected ErrStore, got %v", err)
	}
	if _, err := e.holds.Lookup(hold.ID); err != nil {
		t.Fatalf("hold should survive a failed insert: %v", err)
	}

	store.failIns = false
	if _, err := e.writer.CreateBooking(ctx, req); err != nil {
		t.Fatalf("retry with the same hold: %v", err)
	}
}

func TestCreateBooking_Validation(t *testing.T) {
	e := newEngine(t, memory.New())

	tests := []struct {
		name  string
		edit  func(*Request)
		field string
	}{
		{"missing date", func(r *Request) { r.Date = "" }, "appointmentDate"},
		{"bad date", func(r *Request) { r.Date = "not a date" }, "appointmentDate"},
		{"time outside catalog", func(r *Request) { r.Time = "13:00" }, "appointmentTime"},
		{"unknown groomer", func(r *Request) { r.Groomer = "Groomer 9" }, "groomer"},
		{"missing customer", func(r *Request) { r.Customer.Name = "" }, "customer.name"},
		{"no contact", func(r *Request) { r.Customer.Email = "" }, "customer"},
		{"bad email", func(r *Request) { r.Customer.Email = "dana" }, "customer.email"},
		{"missing pet", func(r *Request) { r.Pet.Name = " " }, "pet.name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := request("09:00", "Groomer 1")
			tt.edit(&req)

			_, err := e.writer.CreateBooking(context.Background(), req)
			var be *Error
			if !errors.As(err, &be) || !errors.Is(err, ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if be.Field != tt.field {
				t.Fatalf("expected field %q, got %q", tt.field, be.Field)
			}
		})
	}
}

func TestReserve_Conflicts(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	e := newEngine(t, store)

	if _, err := e.holds.Reserve(ctx, ReserveRequest{Date: testDate, Time: "09:00", Groomer: "Groomer 1"}); err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if _, err := e.holds.Reserve(ctx, ReserveRequest{Date: testDate, Time: "09:00", Groomer: "groomer 1"}); !errors.Is(err, ErrSlotUnavailable) {
		t.Fatalf("expected second hold to be rejected, got %v", err)
	}

	store.InsertBooking(ctx, &models.Booking{Date: testDate, Time: "10:00", Groomer: "Groomer 2", Status: models.StatusConfirmed})
	if _, err := e.holds.Reserve(ctx, ReserveRequest{Date: testDate, Time: "10:00", Groomer: "Groomer 2"}); !errors.Is(err, ErrSlotUnavailable) {
		t.Fatalf("expected booked slot to be rejected, got %v", err)
	}

	if _, err := e.holds.Reserve(ctx, ReserveRequest{Date: testDate, Time: "10:00", Groomer: "Groomer 1", Mode: "forever"}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected unknown mode to be rejected, got %v", err)
	}
}

func TestReserve_ConcurrentSingleWinner(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, memory.New())

	const workers = 16
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.holds.Reserve(ctx, ReserveRequest{Date: testDate, Time: "10:00", Groomer: "Groomer 2"})
			if err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Fatalf("expected exactly one hold, got %d", wins)
	}
}

func TestReleaseHold(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, memory.New())

	hold, _ := e.holds.Reserve(ctx, ReserveRequest{Date: testDate, Time: "09:00", Groomer: ""})
	if hold.Slot.Groomer != "Groomer 1" {
		t.Fatalf("expected blank groomer to default to Groomer 1, got %q", hold.Slot.Groomer)
	}

	if err := e.holds.Release(hold.ID); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if err := e.holds.Release(hold.ID); !errors.Is(err, ErrReservationNotFound) {
		t.Fatalf("expected second release to report not found, got %v", err)
	}
	expectUnavailable(t, e.resolver.GetAvailability(ctx, testDate, false))
}

func TestUpdateBookingStatus(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, memory.New())

	first, err := e.writer.CreateBooking(ctx, request("09:00", "Groomer 1"))
	if err != nil {
		t.Fatalf("CreateBooking: %v", err)
	}

	if _, err := e.writer.UpdateBookingStatus(ctx, first.ID, "bogus"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := e.writer.UpdateBookingStatus(ctx, "missing", "cancelled"); !errors.Is(err, ErrBookingNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	cancelled, err := e.writer.UpdateBookingStatus(ctx, first.ID, "Canceled")
	if err != nil {
		t.Fatalf("UpdateBookingStatus: %v", err)
	}
	if cancelled.Status != models.StatusCancelled {
		t.Fatalf("expected cancelled, got %s", cancelled.Status)
	}
	expectUnavailable(t, e.resolver.GetAvailability(ctx, testDate, false))

	select {
	case prev := <-e.notifier.changed:
		if prev != models.StatusConfirmed {
			t.Fatalf("expected previous status confirmed, got %s", prev)
		}
	case <-time.After(time.Second):
		t.Fatalf("expected a status notification")
	}

	if _, err := e.writer.CreateBooking(ctx, request("09:00", "Groomer 1")); err != nil {
		t.Fatalf("rebooking a cancelled slot: %v", err)
	}

	// Reconfirming the old booking would double-book the slot.
	if _, err := e.writer.UpdateBookingStatus(ctx, first.ID, "confirmed"); !errors.Is(err, ErrSlotUnavailable) {
		t.Fatalf("expected ErrSlotUnavailable, got %v", err)
	}
}

func TestUpdateBookingStatus_StrictTransitions(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, memory.New())
	e.writer.StrictTransitions = true

	b, err := e.writer.CreateBooking(ctx, request("10:00", "Groomer 2"))
	if err != nil {
		t.Fatalf("CreateBooking: %v", err)
	}

	if _, err := e.writer.UpdateBookingStatus(ctx, b.ID, "pending"); !errors.Is(err, ErrValidation) {
		t.Fatalf("confirmed -> pending should be rejected, got %v", err)
	}
	if _, err := e.writer.UpdateBookingStatus(ctx, b.ID, "completed"); err != nil {
		t.Fatalf("confirmed -> completed: %v", err)
	}
	if _, err := e.writer.UpdateBookingStatus(ctx, b.ID, "cancelled"); !errors.Is(err, ErrValidation) {
		t.Fatalf("completed is final, got %v", err)
	}
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to models.Status
		want     bool
	}{
		{models.StatusPending, models.StatusConfirmed, true},
		{models.StatusConfirmed, models.StatusCompleted, true},
		{models.StatusExpired, models.StatusConfirmed, true},
		{models.StatusConfirmed, models.StatusPending, false},
		{models.StatusCancelled, models.StatusConfirmed, false},
		{models.StatusCompleted, models.StatusCancelled, false},
		{models.StatusCancelled, models.StatusCancelled, true},
	}
	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestListBookings(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, memory.New())

	e.writer.CreateBooking(ctx, request("09:00", "Groomer 1"))
	e.writer.CreateBooking(ctx, request("10:00", "Groomer 1"))

	list, err := e.writer.ListBookings(ctx, "2025-06-01T10:00:00Z", "confirmed")
	if err != nil {
		t.Fatalf("ListBookings: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 bookings, got %d", len(list))
	}

	if _, err := e.writer.ListBookings(ctx, "", "approved"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
