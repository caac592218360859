package routing

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/nassert93-sketch/PharmaConnect/internal/models"
)

// ErrStaleAction means a response arrived for an order that is already
// locked, cancelled, reassigned or gone. The caller should refresh and
// move on; nothing was written.
var ErrStaleAction = errors.New("stale action: order already locked, cancelled or reassigned")

// ErrOrderNotFound is returned by store lookups for unknown order ids.
var ErrOrderNotFound = errors.New("order not found")

// ErrInvalidQuote wraps quote validation failures. Nothing is persisted.
var ErrInvalidQuote = errors.New("invalid quote")

// OrderStore is the persistence the engine needs. Every mutating method
// except InsertOrder is conditional: the filter restates the engine's
// precondition and a false return means another instance got there first.
// That compare-and-swap discipline is what makes concurrent engine
// instances (one per API process) safe against each other.
type OrderStore interface {
	InsertOrder(ctx context.Context, o *models.Order) error
	GetOrder(ctx context.Context, orderID string) (*models.Order, error)
	OrdersPastDeadline(ctx context.Context, now time.Time) ([]models.Order, error)
	NextOrderNumber(ctx context.Context) (int64, error)

	// RetargetOrder moves a round-robin order to its next pharmacy: the
	// evicted id joins refusedByPharmacyIds, nextID becomes the sole
	// target and the deadline is refreshed, all in one write guarded on
	// the order being open and evicted still being targeted.
	RetargetOrder(ctx context.Context, orderID, evictedID, nextID string, deadline time.Time) (bool, error)
	// CancelAfterEviction is the exhaustion arm of the same transition:
	// evicted joins the refusals, targets empty out, status goes CANCELLED.
	CancelAfterEviction(ctx context.Context, orderID, evictedID string) (bool, error)
	// WithdrawTarget records a broadcast-mode refusal: the pharmacy moves
	// from the targeted (and accepted) sets into the refused set.
	WithdrawTarget(ctx context.Context, orderID, pharmacyID string) (bool, error)
	// CancelOpen cancels an order that is still awaiting quotes and
	// unlocked.
	CancelOpen(ctx context.Context, orderID string) (bool, error)
	// ClearDeadline removes the deadline from an open order so the sweep
	// stops matching it.
	ClearDeadline(ctx context.Context, orderID string) (bool, error)
	// LockOrder commits the round-robin winner, guarded on pharmacyId
	// being unset and the pharmacy still being targeted.
	LockOrder(ctx context.Context, orderID, pharmacyID, pharmacyName string) (bool, error)
	// AddAcceptance records a broadcast opt-in without locking.
	AddAcceptance(ctx context.Context, orderID, pharmacyID string) (bool, error)
	// AppendQuote adds a quote, guarded on the order being open and the
	// pharmacy not having quoted before.
	AppendQuote(ctx context.Context, orderID string, q models.Quote) (bool, error)
	// CommitQuote is the patient's pick: winner, amounts, payment and
	// status PREPARING in one write. Guarded on pharmacyId being unset or
	// already equal to the quoting pharmacy (round-robin lock holder).
	CommitQuote(ctx context.Context, orderID string, q models.Quote, paymentMethod, paymentType string) (bool, error)
	// AdvanceStatus applies a fulfillment transition guarded on the
	// current status.
	AdvanceStatus(ctx context.Context, orderID string, from, to models.OrderStatus) (bool, error)
	// ClaimDelivery assigns the first driver to ask, guarded on driverId
	// being unset.
	ClaimDelivery(ctx context.Context, orderID, driverID string) (bool, error)
}

// Directory lists pharmacies. Eligibility is re-read at every decision
// point instead of cached, so an online toggle takes effect immediately.
type Directory interface {
	ListPharmacies(ctx context.Context) ([]models.Pharmacy, error)
}

// Policy reads the live routing settings.
type Policy interface {
	RoutingSettings(ctx context.Context) (models.RoutingSettings, error)
}

// Event is the advisory notification envelope pushed over the websocket
// hub. Fire-and-forget, no delivery guarantee.
type Event struct {
	Type     string        `json:"event"`
	Severity string        `json:"severity"` // info | urgent
	Message  string        `json:"message"`
	OrderID  string        `json:"orderId,omitempty"`
	Order    *models.Order `json:"order,omitempty"`
}

type Notifier interface {
	NotifyUser(userID string, ev Event)
	// Announce fans out to the admin/operator channel.
	Announce(ev Event)
}

// Engine drives the order lifecycle. It holds no state of its own: every
// decision is a function of (order, directory, policy, now) and commits as
// a single conditional store write, so any number of instances can run
// side by side.
type Engine struct {
	store     OrderStore
	directory Directory
	policy    Policy
	notifier  Notifier
	window    time.Duration

	now func() time.Time
}

func NewEngine(store OrderStore, directory Directory, policy Policy, notifier Notifier, window time.Duration) *Engine {
	return &Engine{
		store:     store,
		directory: directory,
		policy:    policy,
		notifier:  notifier,
		window:    window,
		now:       time.Now,
	}
}

type CreateOrderInput struct {
	PatientID            string
	PatientName          string
	DeliveryAddress      string
	PrescriptionImageURL string
	Items                []models.PrescriptionItem
}

// CreateOrder dispatches a new order: snapshot the routing mode, pick the
// initial target set, stamp the deadline and insert. With no eligible
// pharmacy the order is not created at all and ErrNoCandidate surfaces to
// the patient.
func (e *Engine) CreateOrder(ctx context.Context, in CreateOrderInput) (*models.Order, error) {
	settings, err := e.policy.RoutingSettings(ctx)
	if err != nil {
		return nil, err
	}
	pharmacies, err := e.directory.ListPharmacies(ctx)
	if err != nil {
		return nil, err
	}

	targets, deadline, err := SelectInitialTargets(pharmacies, settings.Mode, settings.BroadcastCount, e.now(), e.window)
	if err != nil {
		return nil, err
	}

	n, err := e.store.NextOrderNumber(ctx)
	if err != nil {
		return nil, err
	}

	items := in.Items
	if items == nil {
		items = []models.PrescriptionItem{}
	}
	order := &models.Order{
		OrderID:               fmt.Sprintf("CMD-%d", n),
		PatientID:             in.PatientID,
		PatientName:           in.PatientName,
		Status:                models.StatusAwaitingQuotes,
		Items:                 items,
		DeliveryAddress:       in.DeliveryAddress,
		PrescriptionImageURL:  in.PrescriptionImageURL,
		Quotes:                []models.Quote{},
		RoutingMode:           settings.Mode,
		TargetedPharmacyIDs:   targets,
		RefusedByPharmacyIDs:  []string{},
		AcceptedByPharmacyIDs: []string{},
		Deadline:              &deadline,
		CreatedAt:             e.now(),
	}

	if err := e.store.InsertOrder(ctx, order); err != nil {
		return nil, err
	}

	for _, pharmacyID := range targets {
		e.notifier.NotifyUser(pharmacyID, Event{
			Type:     "new_order",
			Severity: "info",
			Message:  fmt.Sprintf("New order %s awaiting your response", order.OrderID),
			OrderID:  order.OrderID,
			Order:    order,
		})
	}
	return order, nil
}

// Refuse is a pharmacy's proactive decline. Round-robin cascades to the
// next pharmacy exactly as a timeout would; broadcast just withdraws this
// pharmacy from the target set, cancelling when everyone has walked away
// with no quote on file.
func (e *Engine) Refuse(ctx context.Context, orderID, pharmacyID string) error {
	o, err := e.store.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if o.Status != models.StatusAwaitingQuotes || o.Locked() || !o.IsTargeted(pharmacyID) {
		return ErrStaleAction
	}

	if o.RoutingMode == models.ModeBroadcast {
		ok, err := e.store.WithdrawTarget(ctx, orderID, pharmacyID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrStaleAction
		}
		e.cancelBroadcastIfExhausted(ctx, orderID)
		return nil
	}
	return e.evict(ctx, o, pharmacyID)
}

// cancelBroadcastIfExhausted cancels a broadcast order once its target set
// has emptied without a single quote. Best-effort: the cancel itself is
// guarded, so concurrent refusals cannot double-cancel.
func (e *Engine) cancelBroadcastIfExhausted(ctx context.Context, orderID string) {
	cur, err := e.store.GetOrder(ctx, orderID)
	if err != nil {
		return
	}
	if cur.Locked() || len(cur.TargetedPharmacyIDs) > 0 || len(cur.Quotes) > 0 {
		return
	}
	ok, err := e.store.CancelOpen(ctx, orderID)
	if err != nil || !ok {
		return
	}
	e.reportCancelled(cur)
}

// evict removes the current round-robin target and either hands the order
// to the next nearest pharmacy or cancels it when none remains. The store
// write is guarded on evictedID still being targeted, which makes
// concurrent evictions of the same target collapse into one.
func (e *Engine) evict(ctx context.Context, o *models.Order, evictedID string) error {
	pharmacies, err := e.directory.ListPharmacies(ctx)
	if err != nil {
		return err
	}

	refused := make([]string, 0, len(o.RefusedByPharmacyIDs)+1)
	refused = append(refused, o.RefusedByPharmacyIDs...)
	refused = append(refused, evictedID)

	next, found := NextTarget(pharmacies, refused)
	if !found {
		ok, err := e.store.CancelAfterEviction(ctx, o.OrderID, evictedID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrStaleAction
		}
		e.reportCancelled(o)
		return nil
	}

	deadline := e.now().Add(e.window)
	ok, err := e.store.RetargetOrder(ctx, o.OrderID, evictedID, next.PharmacyID, deadline)
	if err != nil {
		return err
	}
	if !ok {
		return ErrStaleAction
	}

	updated := *o
	updated.TargetedPharmacyIDs = []string{next.PharmacyID}
	updated.RefusedByPharmacyIDs = refused
	updated.Deadline = &deadline
	e.notifier.NotifyUser(next.PharmacyID, Event{
		Type:     "new_order",
		Severity: "info",
		Message:  fmt.Sprintf("New order %s awaiting your response", o.OrderID),
		OrderID:  o.OrderID,
		Order:    &updated,
	})
	e.notifier.Announce(Event{
		Type:     "order_transferred",
		Severity: "info",
		Message:  fmt.Sprintf("Order %s transferred to %s", o.OrderID, next.Name),
		OrderID:  o.OrderID,
	})
	return nil
}

func (e *Engine) reportCancelled(o *models.Order) {
	ev := Event{
		Type:     "order_cancelled",
		Severity: "urgent",
		Message:  fmt.Sprintf("No pharmacy available for order %s", o.OrderID),
		OrderID:  o.OrderID,
	}
	e.notifier.Announce(ev)
	e.notifier.NotifyUser(o.PatientID, ev)
}

// Accept resolves a pharmacy's acceptance. Round-robin accepts are the
// lock: first conditional write wins, everyone else gets ErrStaleAction.
// Broadcast accepts only opt the pharmacy in to quoting.
func (e *Engine) Accept(ctx context.Context, orderID, pharmacyID, pharmacyName string) error {
	o, err := e.store.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if o.Status != models.StatusAwaitingQuotes || o.Locked() || !o.IsTargeted(pharmacyID) {
		return ErrStaleAction
	}

	if o.RoutingMode == models.ModeBroadcast {
		ok, err := e.store.AddAcceptance(ctx, orderID, pharmacyID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrStaleAction
		}
		return nil
	}

	ok, err := e.store.LockOrder(ctx, orderID, pharmacyID, pharmacyName)
	if err != nil {
		return err
	}
	if !ok {
		return ErrStaleAction
	}
	e.notifier.NotifyUser(o.PatientID, Event{
		Type:     "order_accepted",
		Severity: "info",
		Message:  fmt.Sprintf("%s accepted your order %s", pharmacyName, orderID),
		OrderID:  orderID,
	})
	return nil
}

// SubmitQuote validates and appends a pharmacy's quote. Round-robin
// requires the submitting pharmacy to hold the lock; broadcast requires it
// to be targeted or opted in, with the order still unlocked.
func (e *Engine) SubmitQuote(ctx context.Context, orderID, pharmacyID, pharmacyName string, items []models.PrescriptionItem, deliveryFee float64, estimatedTime int) (*models.Quote, error) {
	if err := ValidateQuoteItems(items); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidQuote, err)
	}

	o, err := e.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.Status != models.StatusAwaitingQuotes {
		return nil, ErrStaleAction
	}
	entitled := false
	switch o.RoutingMode {
	case models.ModeBroadcast:
		entitled = !o.Locked() && (o.IsTargeted(pharmacyID) || o.HasAccepted(pharmacyID))
	default:
		entitled = o.PharmacyID == pharmacyID
	}
	if !entitled {
		return nil, ErrStaleAction
	}
	if _, dup := o.QuoteBy(pharmacyID); dup {
		return nil, ErrStaleAction
	}

	q := models.Quote{
		PharmacyID:    pharmacyID,
		PharmacyName:  pharmacyName,
		Items:         items,
		TotalAmount:   QuoteTotal(items),
		DeliveryFee:   deliveryFee,
		EstimatedTime: estimatedTime,
	}
	ok, err := e.store.AppendQuote(ctx, orderID, q)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrStaleAction
	}

	e.notifier.NotifyUser(o.PatientID, Event{
		Type:     "quote_received",
		Severity: "info",
		Message:  fmt.Sprintf("A quote is available for your order %s", orderID),
		OrderID:  orderID,
	})
	return &q, nil
}

// SelectQuote is the patient's commit. In broadcast mode this is the true
// lock point; in round-robin it is the payment step on an already-locked
// order. Either way a single conditional write sets the winner, the
// amounts and status PREPARING, so a second, late selection is a no-op.
func (e *Engine) SelectQuote(ctx context.Context, orderID, patientID, pharmacyID, paymentMethod, paymentType string) error {
	o, err := e.store.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if o.PatientID != patientID {
		return ErrStaleAction
	}
	if o.Status != models.StatusAwaitingQuotes {
		return ErrStaleAction
	}
	if o.Locked() && o.PharmacyID != pharmacyID {
		return ErrStaleAction
	}
	q, found := o.QuoteBy(pharmacyID)
	if !found {
		return ErrStaleAction
	}

	ok, err := e.store.CommitQuote(ctx, orderID, q, paymentMethod, paymentType)
	if err != nil {
		return err
	}
	if !ok {
		return ErrStaleAction
	}

	e.notifier.NotifyUser(pharmacyID, Event{
		Type:     "order_confirmed",
		Severity: "info",
		Message:  fmt.Sprintf("Order %s confirmed, start preparing", orderID),
		OrderID:  orderID,
	})
	return nil
}

// MarkReady moves the winning pharmacy's order from PREPARING to
// READY_FOR_PICKUP.
func (e *Engine) MarkReady(ctx context.Context, orderID, pharmacyID string) error {
	o, err := e.store.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if o.PharmacyID != pharmacyID {
		return ErrStaleAction
	}
	ok, err := e.store.AdvanceStatus(ctx, orderID, models.StatusPreparing, models.StatusReadyForPickup)
	if err != nil {
		return err
	}
	if !ok {
		return ErrStaleAction
	}
	e.notifier.NotifyUser(o.PatientID, Event{
		Type:     "order_ready",
		Severity: "info",
		Message:  fmt.Sprintf("Order %s is ready for pickup", orderID),
		OrderID:  orderID,
	})
	return nil
}

// ClaimDelivery assigns the order to the first driver asking. Same race
// shape as the round-robin lock, same conditional-write cure.
func (e *Engine) ClaimDelivery(ctx context.Context, orderID, driverID string) error {
	o, err := e.store.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}
	ok, err := e.store.ClaimDelivery(ctx, orderID, driverID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrStaleAction
	}
	e.notifier.NotifyUser(o.PatientID, Event{
		Type:     "order_picked_up",
		Severity: "info",
		Message:  fmt.Sprintf("Order %s is out for delivery", orderID),
		OrderID:  orderID,
	})
	return nil
}

// CompleteDelivery closes the order once the claiming driver hands it over.
func (e *Engine) CompleteDelivery(ctx context.Context, orderID, driverID string) error {
	o, err := e.store.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if o.DriverID != driverID {
		return ErrStaleAction
	}
	ok, err := e.store.AdvanceStatus(ctx, orderID, models.StatusOutForDelivery, models.StatusDelivered)
	if err != nil {
		return err
	}
	if !ok {
		return ErrStaleAction
	}
	e.notifier.NotifyUser(o.PatientID, Event{
		Type:     "order_delivered",
		Severity: "info",
		Message:  fmt.Sprintf("Order %s delivered", orderID),
		OrderID:  orderID,
	})
	return nil
}

// SweepOnce reassigns or cancels every open order whose deadline has
// lapsed. Each order is handled independently; a failure on one never
// blocks the rest, and every write is guarded, so running the sweep twice
// (or from several processes) changes nothing the second time.
func (e *Engine) SweepOnce(ctx context.Context) (int, error) {
	expired, err := e.store.OrdersPastDeadline(ctx, e.now())
	if err != nil {
		return 0, err
	}

	handled := 0
	for i := range expired {
		o := &expired[i]
		if err := e.expire(ctx, o); err != nil {
			if errors.Is(err, ErrStaleAction) {
				continue // another instance already took care of it
			}
			log.Printf("sweep: order %s: %v", o.OrderID, err)
			continue
		}
		handled++
	}
	return handled, nil
}

func (e *Engine) expire(ctx context.Context, o *models.Order) error {
	// Open order with no live target: nothing to evict, cancel outright.
	if len(o.TargetedPharmacyIDs) == 0 {
		ok, err := e.store.CancelOpen(ctx, o.OrderID)
		if err != nil {
			return err
		}
		if ok {
			e.reportCancelled(o)
		}
		return nil
	}

	if o.RoutingMode == models.ModeBroadcast {
		if len(o.Quotes) > 0 {
			// Quotes are in: leave the order open for the patient and
			// stop the sweep from rematching it.
			_, err := e.store.ClearDeadline(ctx, o.OrderID)
			return err
		}
		ok, err := e.store.CancelOpen(ctx, o.OrderID)
		if err != nil {
			return err
		}
		if ok {
			e.reportCancelled(o)
		}
		return nil
	}

	// Round-robin: silence past the deadline counts as a refusal by the
	// current target.
	return e.evict(ctx, o, o.TargetedPharmacyIDs[0])
}
