package routing

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/nassert93-sketch/PharmaConnect/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore is an in-memory OrderStore with the same guard semantics as the
// Mongo implementation: every conditional method re-checks its precondition
// under the lock and reports false when the precondition no longer holds.
type memStore struct {
	mu      sync.Mutex
	orders  map[string]*models.Order
	counter int64
}

func newMemStore() *memStore {
	return &memStore{orders: make(map[string]*models.Order)}
}

func (s *memStore) get(orderID string) (*models.Order, bool) {
	o, ok := s.orders[orderID]
	return o, ok
}

func open(o *models.Order) bool {
	return o.Status == models.StatusAwaitingQuotes && o.PharmacyID == ""
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func addToSet(ids []string, id string) []string {
	if contains(ids, id) {
		return ids
	}
	return append(ids, id)
}

func remove(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

func (s *memStore) InsertOrder(_ context.Context, o *models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *o
	s.orders[o.OrderID] = &cp
	return nil
}

func (s *memStore) GetOrder(_ context.Context, orderID string) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.get(orderID)
	if !ok {
		return nil, ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (s *memStore) OrdersPastDeadline(_ context.Context, now time.Time) ([]models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var expired []models.Order
	for _, o := range s.orders {
		if open(o) && o.Deadline != nil && o.Deadline.Before(now) {
			expired = append(expired, *o)
		}
	}
	return expired, nil
}

func (s *memStore) NextOrderNumber(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counter++
	return s.counter, nil
}

func (s *memStore) RetargetOrder(_ context.Context, orderID, evictedID, nextID string, deadline time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.get(orderID)
	if !ok || !open(o) || !contains(o.TargetedPharmacyIDs, evictedID) {
		return false, nil
	}
	o.RefusedByPharmacyIDs = addToSet(o.RefusedByPharmacyIDs, evictedID)
	o.TargetedPharmacyIDs = []string{nextID}
	d := deadline
	o.Deadline = &d
	return true, nil
}

func (s *memStore) CancelAfterEviction(_ context.Context, orderID, evictedID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.get(orderID)
	if !ok || !open(o) || !contains(o.TargetedPharmacyIDs, evictedID) {
		return false, nil
	}
	o.RefusedByPharmacyIDs = addToSet(o.RefusedByPharmacyIDs, evictedID)
	o.TargetedPharmacyIDs = []string{}
	o.Status = models.StatusCancelled
	o.Deadline = nil
	return true, nil
}

func (s *memStore) WithdrawTarget(_ context.Context, orderID, pharmacyID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.get(orderID)
	if !ok || !open(o) || !contains(o.TargetedPharmacyIDs, pharmacyID) {
		return false, nil
	}
	o.RefusedByPharmacyIDs = addToSet(o.RefusedByPharmacyIDs, pharmacyID)
	o.TargetedPharmacyIDs = remove(o.TargetedPharmacyIDs, pharmacyID)
	o.AcceptedByPharmacyIDs = remove(o.AcceptedByPharmacyIDs, pharmacyID)
	return true, nil
}

func (s *memStore) CancelOpen(_ context.Context, orderID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.get(orderID)
	if !ok || !open(o) {
		return false, nil
	}
	o.Status = models.StatusCancelled
	o.TargetedPharmacyIDs = []string{}
	o.Deadline = nil
	return true, nil
}

func (s *memStore) ClearDeadline(_ context.Context, orderID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.get(orderID)
	if !ok || !open(o) || o.Deadline == nil {
		return false, nil
	}
	o.Deadline = nil
	return true, nil
}

func (s *memStore) LockOrder(_ context.Context, orderID, pharmacyID, pharmacyName string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.get(orderID)
	if !ok || !open(o) || !contains(o.TargetedPharmacyIDs, pharmacyID) {
		return false, nil
	}
	o.PharmacyID = pharmacyID
	o.PharmacyName = pharmacyName
	o.AcceptedByPharmacyIDs = []string{pharmacyID}
	return true, nil
}

func (s *memStore) AddAcceptance(_ context.Context, orderID, pharmacyID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.get(orderID)
	if !ok || !open(o) || !contains(o.TargetedPharmacyIDs, pharmacyID) {
		return false, nil
	}
	o.AcceptedByPharmacyIDs = addToSet(o.AcceptedByPharmacyIDs, pharmacyID)
	return true, nil
}

func (s *memStore) AppendQuote(_ context.Context, orderID string, q models.Quote) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.get(orderID)
	if !ok || o.Status != models.StatusAwaitingQuotes {
		return false, nil
	}
	if o.PharmacyID != "" && o.PharmacyID != q.PharmacyID {
		return false, nil
	}
	if _, dup := o.QuoteBy(q.PharmacyID); dup {
		return false, nil
	}
	o.Quotes = append(o.Quotes, q)
	return true, nil
}

func (s *memStore) CommitQuote(_ context.Context, orderID string, q models.Quote, paymentMethod, paymentType string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.get(orderID)
	if !ok || o.Status != models.StatusAwaitingQuotes {
		return false, nil
	}
	if o.PharmacyID != "" && o.PharmacyID != q.PharmacyID {
		return false, nil
	}
	if _, found := o.QuoteBy(q.PharmacyID); !found {
		return false, nil
	}
	o.Status = models.StatusPreparing
	o.PharmacyID = q.PharmacyID
	o.PharmacyName = q.PharmacyName
	o.Items = q.Items
	o.TotalAmount = q.TotalAmount
	o.DeliveryFee = q.DeliveryFee
	o.Deadline = nil
	if paymentMethod != "" {
		o.PaymentMethod = paymentMethod
		o.PaymentType = paymentType
	}
	return true, nil
}

func (s *memStore) AdvanceStatus(_ context.Context, orderID string, from, to models.OrderStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.get(orderID)
	if !ok || o.Status != from {
		return false, nil
	}
	o.Status = to
	return true, nil
}

func (s *memStore) ClaimDelivery(_ context.Context, orderID, driverID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.get(orderID)
	if !ok || o.Status != models.StatusReadyForPickup || o.DriverID != "" {
		return false, nil
	}
	o.DriverID = driverID
	o.Status = models.StatusOutForDelivery
	return true, nil
}

type memDirectory struct {
	mu         sync.Mutex
	pharmacies []models.Pharmacy
}

func (d *memDirectory) ListPharmacies(_ context.Context) ([]models.Pharmacy, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]models.Pharmacy, len(d.pharmacies))
	copy(out, d.pharmacies)
	return out, nil
}

func (d *memDirectory) setOnline(pharmacyID string, online bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := range d.pharmacies {
		if d.pharmacies[i].PharmacyID == pharmacyID {
			d.pharmacies[i].Online = online
		}
	}
}

type memPolicy struct {
	settings models.RoutingSettings
}

func (p *memPolicy) RoutingSettings(_ context.Context) (models.RoutingSettings, error) {
	return p.settings, nil
}

type memNotifier struct {
	mu     sync.Mutex
	events []struct {
		Recipient string
		Event     Event
	}
}

func (n *memNotifier) NotifyUser(userID string, ev Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, struct {
		Recipient string
		Event     Event
	}{userID, ev})
}

func (n *memNotifier) Announce(ev Event) {
	n.NotifyUser("admins", ev)
}

func (n *memNotifier) received(recipient, eventType string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, e := range n.events {
		if e.Recipient == recipient && e.Event.Type == eventType {
			return true
		}
	}
	return false
}

// threePharmacies is the standard fixture: P3 nearest, then P1, then P2.
func threePharmacies() []models.Pharmacy {
	return []models.Pharmacy{
		{PharmacyID: "P1", Name: "Pharmacie P1", Distance: 1.2, Online: true},
		{PharmacyID: "P2", Name: "Pharmacie P2", Distance: 2.5, Online: true},
		{PharmacyID: "P3", Name: "Pharmacie P3", Distance: 0.8, Online: true},
	}
}

type testRig struct {
	engine    *Engine
	store     *memStore
	directory *memDirectory
	notifier  *memNotifier
	clock     time.Time
}

func newTestRig(t *testing.T, settings models.RoutingSettings) *testRig {
	t.Helper()
	rig := &testRig{
		store:     newMemStore(),
		directory: &memDirectory{pharmacies: threePharmacies()},
		notifier:  &memNotifier{},
		clock:     time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	rig.engine = NewEngine(rig.store, rig.directory, &memPolicy{settings}, rig.notifier, 5*time.Minute)
	rig.engine.now = func() time.Time { return rig.clock }
	return rig
}

func (r *testRig) advance(d time.Duration) {
	r.clock = r.clock.Add(d)
}

func (r *testRig) create(t *testing.T) *models.Order {
	t.Helper()
	o, err := r.engine.CreateOrder(context.Background(), CreateOrderInput{
		PatientID:       "patient-1",
		PatientName:     "Ali Moussa",
		DeliveryAddress: "Djibouti-Ville",
	})
	require.NoError(t, err)
	return o
}

func (r *testRig) mustGet(t *testing.T, orderID string) *models.Order {
	t.Helper()
	o, err := r.store.GetOrder(context.Background(), orderID)
	require.NoError(t, err)
	return o
}

func assertDisjoint(t *testing.T, o *models.Order) {
	t.Helper()
	for _, id := range o.TargetedPharmacyIDs {
		assert.NotContains(t, o.RefusedByPharmacyIDs, id,
			"pharmacy %s is both targeted and refused", id)
	}
}

func TestCreateOrder_RoundRobin(t *testing.T) {
	rig := newTestRig(t, models.RoutingSettings{Mode: models.ModeRoundRobin, BroadcastCount: 3})

	o := rig.create(t)
	assert.Equal(t, "CMD-1", o.OrderID)
	assert.Equal(t, models.StatusAwaitingQuotes, o.Status)
	assert.Equal(t, models.ModeRoundRobin, o.RoutingMode)
	assert.Equal(t, []string{"P3"}, o.TargetedPharmacyIDs)
	require.NotNil(t, o.Deadline)
	assert.Equal(t, rig.clock.Add(5*time.Minute), *o.Deadline)
	assert.True(t, rig.notifier.received("P3", "new_order"))

	second := rig.create(t)
	assert.Equal(t, "CMD-2", second.OrderID)
}

func TestCreateOrder_Broadcast(t *testing.T) {
	rig := newTestRig(t, models.RoutingSettings{Mode: models.ModeBroadcast, BroadcastCount: 2})

	o := rig.create(t)
	assert.Equal(t, models.ModeBroadcast, o.RoutingMode)
	assert.Equal(t, []string{"P3", "P1"}, o.TargetedPharmacyIDs)
	assert.True(t, rig.notifier.received("P3", "new_order"))
	assert.True(t, rig.notifier.received("P1", "new_order"))
	assert.False(t, rig.notifier.received("P2", "new_order"))
}

func TestCreateOrder_NoEligiblePharmacy(t *testing.T) {
	rig := newTestRig(t, models.RoutingSettings{Mode: models.ModeRoundRobin})
	rig.directory.setOnline("P1", false)
	rig.directory.setOnline("P2", false)
	rig.directory.setOnline("P3", false)

	_, err := rig.engine.CreateOrder(context.Background(), CreateOrderInput{PatientID: "patient-1"})
	assert.ErrorIs(t, err, ErrNoCandidate)
	assert.Empty(t, rig.store.orders, "no order should be written")
}

func TestRefuse_RoundRobinCascades(t *testing.T) {
	rig := newTestRig(t, models.RoutingSettings{Mode: models.ModeRoundRobin})
	o := rig.create(t)

	rig.advance(time.Minute)
	require.NoError(t, rig.engine.Refuse(context.Background(), o.OrderID, "P3"))

	cur := rig.mustGet(t, o.OrderID)
	assert.Equal(t, []string{"P1"}, cur.TargetedPharmacyIDs)
	assert.Equal(t, []string{"P3"}, cur.RefusedByPharmacyIDs)
	require.NotNil(t, cur.Deadline)
	assert.Equal(t, rig.clock.Add(5*time.Minute), *cur.Deadline, "deadline reset on handoff")
	assertDisjoint(t, cur)
	assert.True(t, rig.notifier.received("P1", "new_order"))
	assert.True(t, rig.notifier.received("admins", "order_transferred"))
}

func TestRefuse_ExhaustionCancels(t *testing.T) {
	rig := newTestRig(t, models.RoutingSettings{Mode: models.ModeRoundRobin})
	o := rig.create(t)

	require.NoError(t, rig.engine.Refuse(context.Background(), o.OrderID, "P3"))
	require.NoError(t, rig.engine.Refuse(context.Background(), o.OrderID, "P1"))
	require.NoError(t, rig.engine.Refuse(context.Background(), o.OrderID, "P2"))

	cur := rig.mustGet(t, o.OrderID)
	assert.Equal(t, models.StatusCancelled, cur.Status)
	assert.Empty(t, cur.TargetedPharmacyIDs)
	assert.ElementsMatch(t, []string{"P3", "P1", "P2"}, cur.RefusedByPharmacyIDs)
	assert.True(t, rig.notifier.received("patient-1", "order_cancelled"))
	assert.True(t, rig.notifier.received("admins", "order_cancelled"))
}

func TestRefuse_RefusalsOnlyGrow(t *testing.T) {
	rig := newTestRig(t, models.RoutingSettings{Mode: models.ModeRoundRobin})
	o := rig.create(t)

	seen := 0
	for _, id := range []string{"P3", "P1", "P2"} {
		require.NoError(t, rig.engine.Refuse(context.Background(), o.OrderID, id))
		cur := rig.mustGet(t, o.OrderID)
		assert.GreaterOrEqual(t, len(cur.RefusedByPharmacyIDs), seen)
		seen = len(cur.RefusedByPharmacyIDs)
		assertDisjoint(t, cur)
	}
}

func TestRefuse_NonTargetedIsStale(t *testing.T) {
	rig := newTestRig(t, models.RoutingSettings{Mode: models.ModeRoundRobin})
	o := rig.create(t)

	err := rig.engine.Refuse(context.Background(), o.OrderID, "P2")
	assert.ErrorIs(t, err, ErrStaleAction)
	cur := rig.mustGet(t, o.OrderID)
	assert.Equal(t, []string{"P3"}, cur.TargetedPharmacyIDs)
}

func TestRefuse_OfflineCandidatesSkipped(t *testing.T) {
	rig := newTestRig(t, models.RoutingSettings{Mode: models.ModeRoundRobin})
	o := rig.create(t)

	// P1 goes offline before P3 refuses; the cascade lands on P2.
	rig.directory.setOnline("P1", false)
	require.NoError(t, rig.engine.Refuse(context.Background(), o.OrderID, "P3"))

	cur := rig.mustGet(t, o.OrderID)
	assert.Equal(t, []string{"P2"}, cur.TargetedPharmacyIDs)
}

func TestAccept_RoundRobinLocks(t *testing.T) {
	rig := newTestRig(t, models.RoutingSettings{Mode: models.ModeRoundRobin})
	o := rig.create(t)

	require.NoError(t, rig.engine.Accept(context.Background(), o.OrderID, "P3", "Pharmacie P3"))

	cur := rig.mustGet(t, o.OrderID)
	assert.Equal(t, "P3", cur.PharmacyID)
	assert.Equal(t, []string{"P3"}, cur.AcceptedByPharmacyIDs)
	assert.Equal(t, models.StatusAwaitingQuotes, cur.Status, "lock does not advance status")
	assert.True(t, rig.notifier.received("patient-1", "order_accepted"))

	// A later refusal by the lock holder is stale, not a cascade.
	assert.ErrorIs(t, rig.engine.Refuse(context.Background(), o.OrderID, "P3"), ErrStaleAction)
}

func TestAccept_ConcurrentLockExclusivity(t *testing.T) {
	rig := newTestRig(t, models.RoutingSettings{Mode: models.ModeRoundRobin})

	// Seed an order that targets two pharmacies at once to force the race.
	deadline := rig.clock.Add(5 * time.Minute)
	require.NoError(t, rig.store.InsertOrder(context.Background(), &models.Order{
		OrderID:              "CMD-99",
		PatientID:            "patient-1",
		Status:               models.StatusAwaitingQuotes,
		RoutingMode:          models.ModeRoundRobin,
		TargetedPharmacyIDs:  []string{"X", "Y"},
		RefusedByPharmacyIDs: []string{},
		Deadline:             &deadline,
	}))

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, id := range []string{"X", "Y"} {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			errs[i] = rig.engine.Accept(context.Background(), "CMD-99", id, id)
		}(i, id)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
		} else {
			assert.ErrorIs(t, err, ErrStaleAction)
		}
	}
	assert.Equal(t, 1, wins, "exactly one accept must win")

	cur := rig.mustGet(t, "CMD-99")
	assert.Contains(t, []string{"X", "Y"}, cur.PharmacyID)
	assert.Equal(t, []string{cur.PharmacyID}, cur.AcceptedByPharmacyIDs)
}

func TestAccept_BroadcastDoesNotLock(t *testing.T) {
	rig := newTestRig(t, models.RoutingSettings{Mode: models.ModeBroadcast, BroadcastCount: 2})
	o := rig.create(t)

	require.NoError(t, rig.engine.Accept(context.Background(), o.OrderID, "P3", "Pharmacie P3"))
	require.NoError(t, rig.engine.Accept(context.Background(), o.OrderID, "P1", "Pharmacie P1"))

	cur := rig.mustGet(t, o.OrderID)
	assert.Empty(t, cur.PharmacyID, "broadcast acceptance must not lock")
	assert.ElementsMatch(t, []string{"P3", "P1"}, cur.AcceptedByPharmacyIDs)
}

func quoteItems() []models.PrescriptionItem {
	return []models.PrescriptionItem{
		{Name: "Paracétamol 500mg", Quantity: 2, Price: 300, Status: ItemAvailable},
	}
}

func TestSubmitQuote_BroadcastAccumulates(t *testing.T) {
	rig := newTestRig(t, models.RoutingSettings{Mode: models.ModeBroadcast, BroadcastCount: 2})
	o := rig.create(t)

	_, err := rig.engine.SubmitQuote(context.Background(), o.OrderID, "P3", "Pharmacie P3", quoteItems(), 500, 15)
	require.NoError(t, err)
	_, err = rig.engine.SubmitQuote(context.Background(), o.OrderID, "P1", "Pharmacie P1", quoteItems(), 400, 20)
	require.NoError(t, err)

	cur := rig.mustGet(t, o.OrderID)
	require.Len(t, cur.Quotes, 2)
	assert.Empty(t, cur.PharmacyID)
	assert.Equal(t, 600.0, cur.Quotes[0].TotalAmount)
	assert.True(t, rig.notifier.received("patient-1", "quote_received"))
}

func TestSubmitQuote_DuplicateRejected(t *testing.T) {
	rig := newTestRig(t, models.RoutingSettings{Mode: models.ModeBroadcast, BroadcastCount: 2})
	o := rig.create(t)

	_, err := rig.engine.SubmitQuote(context.Background(), o.OrderID, "P3", "Pharmacie P3", quoteItems(), 500, 15)
	require.NoError(t, err)
	_, err = rig.engine.SubmitQuote(context.Background(), o.OrderID, "P3", "Pharmacie P3", quoteItems(), 500, 15)
	assert.ErrorIs(t, err, ErrStaleAction)
}

func TestSubmitQuote_RequiresEntitlement(t *testing.T) {
	rig := newTestRig(t, models.RoutingSettings{Mode: models.ModeRoundRobin})
	o := rig.create(t)

	// Round-robin: only the lock holder may quote.
	_, err := rig.engine.SubmitQuote(context.Background(), o.OrderID, "P3", "Pharmacie P3", quoteItems(), 500, 15)
	assert.ErrorIs(t, err, ErrStaleAction)

	require.NoError(t, rig.engine.Accept(context.Background(), o.OrderID, "P3", "Pharmacie P3"))
	_, err = rig.engine.SubmitQuote(context.Background(), o.OrderID, "P3", "Pharmacie P3", quoteItems(), 500, 15)
	assert.NoError(t, err)

	_, err = rig.engine.SubmitQuote(context.Background(), o.OrderID, "P2", "Pharmacie P2", quoteItems(), 500, 15)
	assert.ErrorIs(t, err, ErrStaleAction)
}

func TestSubmitQuote_ValidatesItems(t *testing.T) {
	rig := newTestRig(t, models.RoutingSettings{Mode: models.ModeBroadcast, BroadcastCount: 2})
	o := rig.create(t)

	bad := []models.PrescriptionItem{{Name: "Ibuprofène", Quantity: 1, Price: 0}}
	_, err := rig.engine.SubmitQuote(context.Background(), o.OrderID, "P3", "Pharmacie P3", bad, 500, 15)
	assert.ErrorIs(t, err, ErrInvalidQuote)

	cur := rig.mustGet(t, o.OrderID)
	assert.Empty(t, cur.Quotes, "nothing persisted on validation failure")
}

func TestSelectQuote_BroadcastCommitsWinner(t *testing.T) {
	rig := newTestRig(t, models.RoutingSettings{Mode: models.ModeBroadcast, BroadcastCount: 2})
	o := rig.create(t)

	_, err := rig.engine.SubmitQuote(context.Background(), o.OrderID, "P3", "Pharmacie P3", quoteItems(), 500, 15)
	require.NoError(t, err)
	_, err = rig.engine.SubmitQuote(context.Background(), o.OrderID, "P1", "Pharmacie P1", quoteItems(), 400, 20)
	require.NoError(t, err)

	require.NoError(t, rig.engine.SelectQuote(context.Background(), o.OrderID, "patient-1", "P1", "waafi", "online"))

	cur := rig.mustGet(t, o.OrderID)
	assert.Equal(t, models.StatusPreparing, cur.Status)
	assert.Equal(t, "P1", cur.PharmacyID)
	assert.Equal(t, 600.0, cur.TotalAmount)
	assert.Equal(t, 400.0, cur.DeliveryFee)
	assert.Equal(t, "waafi", cur.PaymentMethod)
	assert.Nil(t, cur.Deadline)
	assert.True(t, rig.notifier.received("P1", "order_confirmed"))

	// A late selection of the other quote is a no-op.
	err = rig.engine.SelectQuote(context.Background(), o.OrderID, "patient-1", "P3", "cod", "cod")
	assert.ErrorIs(t, err, ErrStaleAction)
	assert.Equal(t, "P1", rig.mustGet(t, o.OrderID).PharmacyID)
}

func TestSelectQuote_WrongPatientRejected(t *testing.T) {
	rig := newTestRig(t, models.RoutingSettings{Mode: models.ModeBroadcast, BroadcastCount: 2})
	o := rig.create(t)
	_, err := rig.engine.SubmitQuote(context.Background(), o.OrderID, "P3", "Pharmacie P3", quoteItems(), 500, 15)
	require.NoError(t, err)

	err = rig.engine.SelectQuote(context.Background(), o.OrderID, "someone-else", "P3", "cod", "cod")
	assert.ErrorIs(t, err, ErrStaleAction)
}

func TestFulfillmentFlow(t *testing.T) {
	rig := newTestRig(t, models.RoutingSettings{Mode: models.ModeRoundRobin})
	o := rig.create(t)

	require.NoError(t, rig.engine.Accept(context.Background(), o.OrderID, "P3", "Pharmacie P3"))
	_, err := rig.engine.SubmitQuote(context.Background(), o.OrderID, "P3", "Pharmacie P3", quoteItems(), 500, 15)
	require.NoError(t, err)
	require.NoError(t, rig.engine.SelectQuote(context.Background(), o.OrderID, "patient-1", "P3", "cod", "cod"))

	// Only the winning pharmacy can mark ready.
	assert.ErrorIs(t, rig.engine.MarkReady(context.Background(), o.OrderID, "P1"), ErrStaleAction)
	require.NoError(t, rig.engine.MarkReady(context.Background(), o.OrderID, "P3"))
	assert.Equal(t, models.StatusReadyForPickup, rig.mustGet(t, o.OrderID).Status)

	// First driver claims; the second gets a stale action.
	require.NoError(t, rig.engine.ClaimDelivery(context.Background(), o.OrderID, "driver-1"))
	assert.ErrorIs(t, rig.engine.ClaimDelivery(context.Background(), o.OrderID, "driver-2"), ErrStaleAction)

	cur := rig.mustGet(t, o.OrderID)
	assert.Equal(t, models.StatusOutForDelivery, cur.Status)
	assert.Equal(t, "driver-1", cur.DriverID)

	// Only the claiming driver can complete.
	assert.ErrorIs(t, rig.engine.CompleteDelivery(context.Background(), o.OrderID, "driver-2"), ErrStaleAction)
	require.NoError(t, rig.engine.CompleteDelivery(context.Background(), o.OrderID, "driver-1"))
	assert.Equal(t, models.StatusDelivered, rig.mustGet(t, o.OrderID).Status)
	assert.True(t, rig.notifier.received("patient-1", "order_delivered"))
}

func TestBroadcastRefusalCancelsWhenExhaustedWithoutQuotes(t *testing.T) {
	rig := newTestRig(t, models.RoutingSettings{Mode: models.ModeBroadcast, BroadcastCount: 2})
	o := rig.create(t)

	require.NoError(t, rig.engine.Refuse(context.Background(), o.OrderID, "P3"))
	cur := rig.mustGet(t, o.OrderID)
	assert.Equal(t, models.StatusAwaitingQuotes, cur.Status, "one target remains")

	require.NoError(t, rig.engine.Refuse(context.Background(), o.OrderID, "P1"))
	cur = rig.mustGet(t, o.OrderID)
	assert.Equal(t, models.StatusCancelled, cur.Status)
	assert.Empty(t, cur.TargetedPharmacyIDs)
}

func TestBroadcastRefusalKeepsOrderWithQuotes(t *testing.T) {
	rig := newTestRig(t, models.RoutingSettings{Mode: models.ModeBroadcast, BroadcastCount: 2})
	o := rig.create(t)

	_, err := rig.engine.SubmitQuote(context.Background(), o.OrderID, "P3", "Pharmacie P3", quoteItems(), 500, 15)
	require.NoError(t, err)

	require.NoError(t, rig.engine.Refuse(context.Background(), o.OrderID, "P3"))
	require.NoError(t, rig.engine.Refuse(context.Background(), o.OrderID, "P1"))

	cur := rig.mustGet(t, o.OrderID)
	assert.Equal(t, models.StatusAwaitingQuotes, cur.Status, "quoted order stays open for the patient")
	require.Len(t, cur.Quotes, 1)
}
