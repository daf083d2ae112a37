package store

import (
	"slices"
	"sort"
	"strings"
)

// EventKind identifies which facet of a property changed.
type EventKind uint8

const (
	// EventChange fires when a property value changes.
	EventChange EventKind = iota + 1
	// EventError fires when a property error is set or cleared.
	EventError
	// EventStatus fires when a property loading status changes.
	EventStatus
)

// EventKinds lists every kind a subscription registers for.
var EventKinds = []EventKind{EventChange, EventError, EventStatus}

// String returns a human-readable name for the event kind.
func (k EventKind) String() string {
	switch k {
	case EventChange:
		return "change"
	case EventError:
		return "error"
	case EventStatus:
		return "status"
	default:
		return "unknown"
	}
}

// Notification describes a single store event delivered to a Listener.
type Notification struct {
	Kind     EventKind
	Store    string
	Property string
}

// Listener is notified when an observed property changes.
type Listener interface {
	// ID returns a unique identifier for this listener.
	// Stores use it to deduplicate and remove registrations.
	ID() uint64

	// Notify is called synchronously by the store, outside its lock.
	Notify(n Notification)
}

// Status is the loading status of a property.
type Status struct {
	Name      string `json:"name,omitempty" yaml:"name,omitempty"`
	IsLoading bool   `json:"isLoading" yaml:"isLoading"`
}

// Store is the capability a component needs from an external store.
type Store interface {
	// Identifier names the store in diagnostics.
	Identifier() string

	// Definition lists the properties the store supports.
	Definition() Definition

	// Value returns the current value of a property.
	Value(property string) any

	// Error returns the error object of a property, or nil.
	Error(property string) map[string]any

	// Status returns the loading status of a property.
	Status(property string) Status

	AddListener(kind EventKind, property string, l Listener)
	RemoveListener(kind EventKind, property string, l Listener)
}

// Definition is the set of property names a store or component supports.
type Definition map[string]struct{}

// NewDefinition creates a Definition from property names.
func NewDefinition(properties ...string) Definition {
	d := make(Definition, len(properties))
	for _, p := range properties {
		d[p] = struct{}{}
	}
	return d
}

// Has reports whether the property is declared.
func (d Definition) Has(property string) bool {
	_, ok := d[property]
	return ok
}

// Names returns the declared properties in sorted order.
func (d Definition) Names() []string {
	names := make([]string, 0, len(d))
	for name := range d {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// String returns the declared properties joined by commas.
func (d Definition) String() string {
	return strings.Join(d.Names(), ",")
}

// Equal reports whether both definitions declare the same properties.
func (d Definition) Equal(other Definition) bool {
	return slices.Equal(d.Names(), other.Names())
}
