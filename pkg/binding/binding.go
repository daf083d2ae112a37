package binding

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/focus-dev/focus/internal/errors"
	"github.com/focus-dev/focus/pkg/store"
)

// tracerName is the instrumentation scope used for binding spans.
const tracerName = "github.com/focus-dev/focus/pkg/binding"

// ErrUnsupportedProperty is returned when a component subscribes to a
// property its store does not declare. Match it with errors.Is.
var ErrUnsupportedProperty = errors.New("F001")

// Subscription is a component's interest in some properties of one store.
type Subscription struct {
	Store      store.Store
	Properties []string
}

// Binding binds a component's lifecycle to a dynamic set of stores.
//
// A Binding is owned by a single component. Its methods are safe to call
// from store notifications; stores must be comparable values (usually
// pointers) because subscriptions are keyed by store identity.
type Binding struct {
	id       uint64
	name     string
	logger   *slog.Logger
	recorder Recorder
	tracer   trace.Tracer

	initial        []Subscription
	referenceNames []string
	shape          store.Definition
	useDefaults    bool
	strategies     strategies

	onState func(State)
	onError func(State)

	mu         sync.Mutex
	subs       []*Subscription
	mounted    bool
	state      State
	errorState State

	// Every derivation takes a sequence number before reading the stores.
	// A result older than the one already published is dropped.
	stateGen, errorGen atomic.Uint64
	stateSeq, errorSeq uint64
}

// strategies hold the optional replacements for each derivation step.
type strategies struct {
	state         func() State
	errorState    func() State
	loadingState  func() LoadingState
	computeEntity func(data State) State
	defaultData   func(shape store.Definition) State
}

var idCounter uint64

func nextID() uint64 {
	return atomic.AddUint64(&idCounter, 1)
}

// New creates an unmounted Binding.
func New(opts ...Option) *Binding {
	b := &Binding{
		id:       nextID(),
		recorder: nopRecorder{},
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.logger == nil {
		b.logger = slog.Default().With("component", "binding", "binding", b.name)
	}
	if b.tracer == nil {
		b.tracer = otel.Tracer(tracerName)
	}
	return b
}

// ID implements store.Listener.
func (b *Binding) ID() uint64 {
	return b.id
}

// Name returns the name given with WithName.
func (b *Binding) Name() string {
	return b.name
}

// Mounted reports whether Mount has run and Unmount has not.
func (b *Binding) Mounted() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.mounted
}

// Mount registers listeners for the configured subscriptions, then computes
// and publishes the initial state. If a configured property is unsupported,
// the listeners registered by this call are released and the error returned.
// Mounting a mounted binding does nothing.
func (b *Binding) Mount() error {
	b.mu.Lock()
	if b.mounted {
		b.mu.Unlock()
		return nil
	}

	var added []Subscription
	for _, sub := range b.initial {
		for _, property := range sub.Properties {
			ok, err := b.addLocked(sub.Store, property)
			if err != nil {
				for _, undo := range added {
					b.removeLocked(undo.Store, undo.Properties[0])
				}
				b.mu.Unlock()
				return err
			}
			if ok {
				added = append(added, Subscription{Store: sub.Store, Properties: []string{property}})
			}
		}
	}
	b.mounted = true
	b.mu.Unlock()

	b.logger.Debug("binding mounted", "subscriptions", len(b.Subscriptions()))
	b.publishState(context.Background())
	return nil
}

// Unmount releases every listener. Notifications arriving afterwards are
// ignored. The binding can be mounted again.
func (b *Binding) Unmount() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.mounted = false
	for _, sub := range b.subs {
		for _, property := range sub.Properties {
			for _, kind := range store.EventKinds {
				sub.Store.RemoveListener(kind, property, b)
			}
			b.recorder.SubscriptionRemoved(sub.Store.Identifier())
		}
	}
	b.subs = nil
	b.logger.Debug("binding unmounted")
}

// AddSubscription starts listening to a property of a store. Subscribing to
// a pair twice does nothing. It fails with ErrUnsupportedProperty when the
// store definition does not declare the property.
func (b *Binding) AddSubscription(s store.Store, property string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, err := b.addLocked(s, property)
	return err
}

// RemoveSubscription stops listening to a property of a store. Removing a
// pair that is not subscribed does nothing. The store entry is dropped with
// its last property.
func (b *Binding) RemoveSubscription(s store.Store, property string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := b.find(s)
	if sub == nil || !slices.Contains(sub.Properties, property) {
		return nil
	}
	if err := b.checkSupported("remove", s, property); err != nil {
		return err
	}
	b.removeLocked(s, property)
	return nil
}

// Subscriptions returns a copy of the current subscriptions in the order
// they were first made.
func (b *Binding) Subscriptions() []Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.snapshotLocked()
}

// State returns the last published state.
func (b *Binding) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// ErrorState returns the last published error state.
func (b *Binding) ErrorState() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.errorState
}

// Notify implements store.Listener. Change and status events republish the
// derived state, error events republish the error state.
func (b *Binding) Notify(n store.Notification) {
	if !b.Mounted() {
		return
	}
	b.recorder.Notified(n.Kind)

	ctx, span := b.tracer.Start(context.Background(), "binding.notify",
		trace.WithAttributes(
			attribute.String("focus.binding", b.name),
			attribute.String("focus.store", n.Store),
			attribute.String("focus.property", n.Property),
			attribute.String("focus.event", n.Kind.String()),
		))
	defer span.End()

	if n.Kind == store.EventError {
		b.publishErrors(ctx)
		return
	}
	b.publishState(ctx)
}

// Refresh recomputes and publishes both the state and the error state.
func (b *Binding) Refresh() {
	ctx := context.Background()
	b.publishState(ctx)
	b.publishErrors(ctx)
}

func (b *Binding) publishState(ctx context.Context) {
	seq := b.stateGen.Add(1)
	st := b.deriveState(ctx, nil, false)

	b.mu.Lock()
	if !b.mounted || seq < b.stateSeq {
		b.mu.Unlock()
		return
	}
	b.stateSeq = seq
	b.state = st
	b.mu.Unlock()

	if b.onState != nil {
		b.onState(st)
	}
}

func (b *Binding) publishErrors(ctx context.Context) {
	seq := b.errorGen.Add(1)
	_, span := b.tracer.Start(ctx, "binding.derive_errors")
	st := b.DeriveErrorState()
	span.End()

	b.mu.Lock()
	if !b.mounted || seq < b.errorSeq {
		b.mu.Unlock()
		return
	}
	b.errorSeq = seq
	b.errorState = st
	b.mu.Unlock()

	if b.onError != nil {
		b.onError(st)
	}
}

// addLocked registers the listeners of one pair. It reports whether a new
// registration was made.
func (b *Binding) addLocked(s store.Store, property string) (bool, error) {
	sub := b.find(s)
	if sub != nil && slices.Contains(sub.Properties, property) {
		return false, nil
	}
	if err := b.checkSupported("add", s, property); err != nil {
		return false, err
	}

	for _, kind := range store.EventKinds {
		s.AddListener(kind, property, b)
	}
	if sub != nil {
		sub.Properties = append(sub.Properties, property)
	} else {
		b.subs = append(b.subs, &Subscription{Store: s, Properties: []string{property}})
	}
	b.recorder.SubscriptionAdded(s.Identifier())
	return true, nil
}

func (b *Binding) removeLocked(s store.Store, property string) {
	idx := slices.IndexFunc(b.subs, func(sub *Subscription) bool { return sub.Store == s })
	if idx < 0 {
		return
	}
	sub := b.subs[idx]
	pidx := slices.Index(sub.Properties, property)
	if pidx < 0 {
		return
	}

	for _, kind := range store.EventKinds {
		s.RemoveListener(kind, property, b)
	}
	sub.Properties = slices.Delete(sub.Properties, pidx, pidx+1)
	if len(sub.Properties) == 0 {
		b.subs = slices.Delete(b.subs, idx, idx+1)
	}
	b.recorder.SubscriptionRemoved(s.Identifier())
}

func (b *Binding) find(s store.Store) *Subscription {
	for _, sub := range b.subs {
		if sub.Store == s {
			return sub
		}
	}
	return nil
}

func (b *Binding) checkSupported(action string, s store.Store, property string) error {
	if s != nil && s.Definition().Has(property) {
		return nil
	}

	identifier, definition := "<nil>", ""
	if s != nil {
		identifier = s.Identifier()
		definition = s.Definition().String()
	}
	b.recorder.Rejected(identifier)
	b.logger.Error("unsupported property subscription",
		"action", action, "store", identifier, "property", property)

	return errors.New("F001").
		WithDetailf("cannot %s property %q in the subscription to store %q, which is not in its definition [%s]",
			action, property, identifier, definition).
		WithSuggestion("Declare the property in the store definition or fix the component subscription")
}

func (b *Binding) snapshotLocked() []Subscription {
	out := make([]Subscription, len(b.subs))
	for i, sub := range b.subs {
		out[i] = Subscription{Store: sub.Store, Properties: slices.Clone(sub.Properties)}
	}
	return out
}
