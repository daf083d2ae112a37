package store

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/focus-dev/focus/internal/errors"
)

// listenerKey addresses the listeners of one facet of one property.
type listenerKey struct {
	kind     EventKind
	property string
}

// CoreStore is an in-memory Store. It is safe for concurrent use.
// Listeners are notified synchronously after the store lock is released,
// so a listener may read the store from inside Notify.
type CoreStore struct {
	identifier string
	definition Definition
	logger     *slog.Logger

	mu        sync.RWMutex
	values    map[string]any
	errors    map[string]map[string]any
	statuses  map[string]Status
	listeners map[listenerKey][]Listener
}

// CoreStoreOption configures a CoreStore.
type CoreStoreOption func(*CoreStore)

// WithLogger sets the logger used for store diagnostics.
func WithLogger(logger *slog.Logger) CoreStoreOption {
	return func(s *CoreStore) {
		s.logger = logger
	}
}

// WithValues seeds initial property values without notifying anyone.
// Undeclared properties are ignored.
func WithValues(values map[string]any) CoreStoreOption {
	return func(s *CoreStore) {
		for k, v := range values {
			if s.definition.Has(k) {
				s.values[k] = v
			}
		}
	}
}

// NewCoreStore creates an empty store supporting the given definition.
func NewCoreStore(identifier string, definition Definition, opts ...CoreStoreOption) *CoreStore {
	s := &CoreStore{
		identifier: identifier,
		definition: definition,
		values:     make(map[string]any),
		errors:     make(map[string]map[string]any),
		statuses:   make(map[string]Status),
		listeners:  make(map[listenerKey][]Listener),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default().With("component", "store", "store", identifier)
	}
	return s
}

// Identifier implements Store.
func (s *CoreStore) Identifier() string {
	return s.identifier
}

// Definition implements Store.
func (s *CoreStore) Definition() Definition {
	return s.definition
}

// Value implements Store.
func (s *CoreStore) Value(property string) any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values[property]
}

// Error implements Store.
func (s *CoreStore) Error(property string) map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.errors[property]
}

// Status implements Store.
func (s *CoreStore) Status(property string) Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.statuses[property]
}

// AddListener implements Store. Registering the same listener twice for the
// same kind and property keeps a single registration.
func (s *CoreStore) AddListener(kind EventKind, property string, l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := listenerKey{kind: kind, property: property}
	for _, existing := range s.listeners[key] {
		if existing.ID() == l.ID() {
			return
		}
	}
	s.listeners[key] = append(s.listeners[key], l)
}

// RemoveListener implements Store.
func (s *CoreStore) RemoveListener(kind EventKind, property string, l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := listenerKey{kind: kind, property: property}
	list := s.listeners[key]
	for i, existing := range list {
		if existing.ID() == l.ID() {
			list = append(list[:i:i], list[i+1:]...)
			break
		}
	}
	if len(list) == 0 {
		delete(s.listeners, key)
		return
	}
	s.listeners[key] = list
}

// ListenerCount returns the number of listeners registered for one facet of a property.
func (s *CoreStore) ListenerCount(kind EventKind, property string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.listeners[listenerKey{kind: kind, property: property}])
}

// TotalListeners returns the number of listener registrations across all properties.
func (s *CoreStore) TotalListeners() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, list := range s.listeners {
		n += len(list)
	}
	return n
}

// Set replaces the value of a property and notifies change listeners.
func (s *CoreStore) Set(property string, value any) error {
	if err := s.check(property); err != nil {
		return err
	}
	s.mu.Lock()
	s.values[property] = value
	s.mu.Unlock()

	s.emit(EventChange, property)
	return nil
}

// Update sets several values at once. Nothing is changed if any property is
// undeclared. Change listeners are notified in property name order.
func (s *CoreStore) Update(values map[string]any) error {
	properties := make([]string, 0, len(values))
	for p := range values {
		if err := s.check(p); err != nil {
			return err
		}
		properties = append(properties, p)
	}
	sort.Strings(properties)

	s.mu.Lock()
	for _, p := range properties {
		s.values[p] = values[p]
	}
	s.mu.Unlock()

	for _, p := range properties {
		s.emit(EventChange, p)
	}
	return nil
}

// SetError stores the error object of a property and notifies error listeners.
func (s *CoreStore) SetError(property string, errObj map[string]any) error {
	if err := s.check(property); err != nil {
		return err
	}
	s.mu.Lock()
	if errObj == nil {
		delete(s.errors, property)
	} else {
		s.errors[property] = errObj
	}
	s.mu.Unlock()

	s.emit(EventError, property)
	return nil
}

// ClearError removes the error object of a property.
func (s *CoreStore) ClearError(property string) error {
	return s.SetError(property, nil)
}

// SetStatus stores the loading status of a property and notifies status listeners.
func (s *CoreStore) SetStatus(property string, status Status) error {
	if err := s.check(property); err != nil {
		return err
	}
	s.mu.Lock()
	s.statuses[property] = status
	s.mu.Unlock()

	s.emit(EventStatus, property)
	return nil
}

func (s *CoreStore) check(property string) error {
	if s.definition.Has(property) {
		return nil
	}
	return errors.New("F002").
		WithDetailf("store %q has no property %q (definition: %s)", s.identifier, property, s.definition).
		WithSuggestion("Add the property to the store definition")
}

// emit notifies a snapshot of the listeners registered for kind and property.
func (s *CoreStore) emit(kind EventKind, property string) {
	s.mu.RLock()
	list := append([]Listener(nil), s.listeners[listenerKey{kind: kind, property: property}]...)
	s.mu.RUnlock()

	s.logger.Debug("store event", "kind", kind.String(), "property", property, "listeners", len(list))

	n := Notification{Kind: kind, Store: s.identifier, Property: property}
	for _, l := range list {
		l.Notify(n)
	}
}
