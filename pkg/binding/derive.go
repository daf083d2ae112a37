package binding

import (
	"context"
	"maps"
	"slices"
	"sort"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	// ReferenceKey holds the reference properties in a derived State.
	ReferenceKey = "reference"

	// LoadingKey holds the aggregate loading flag in a derived State.
	LoadingKey = "isLoading"
)

// State is the merged view of store data handed to a component.
type State map[string]any

// LoadingState reports whether any subscribed property is loading.
type LoadingState struct {
	IsLoading bool `json:"isLoading"`
}

// Reference returns the reference partition of the state, or nil.
func (s State) Reference() State {
	ref, _ := asObject(s[ReferenceKey])
	return ref
}

// IsLoading returns the aggregate loading flag of the state.
func (s State) IsLoading() bool {
	v, _ := s[LoadingKey].(bool)
	return v
}

// DeriveState computes the state from every subscribed property. When
// default store data is enabled, absent keys are filled with defaults.
func (b *Binding) DeriveState() State {
	return b.deriveState(context.Background(), nil, false)
}

// DeriveFilteredState computes the state restricted to the given properties
// and the reference properties. An empty list keeps only the reference
// properties. Default store data is not applied.
func (b *Binding) DeriveFilteredState(properties []string) State {
	return b.deriveState(context.Background(), properties, true)
}

func (b *Binding) deriveState(ctx context.Context, filter []string, filtered bool) State {
	_, span := b.tracer.Start(ctx, "binding.derive_state",
		trace.WithAttributes(
			attribute.String("focus.binding", b.name),
			attribute.Bool("focus.filtered", filtered),
		))
	defer span.End()

	start := time.Now()
	defer func() { b.recorder.Derived(time.Since(start)) }()

	if b.strategies.state != nil {
		return b.strategies.state()
	}

	data := State{}
	for _, sub := range b.Subscriptions() {
		for _, property := range sub.Properties {
			data[property] = sub.Store.Value(property)
		}
	}

	var defaults State
	if filtered {
		keep := append(slices.Clone(filter), b.referenceNames...)
		maps.DeleteFunc(data, func(k string, _ any) bool { return !slices.Contains(keep, k) })
	} else if b.useDefaults {
		defaults = b.defaultData()
	}

	computed := b.computeEntity(data)
	computed[LoadingKey] = b.DeriveLoadingState().IsLoading

	mergeDefaults(computed, defaults)
	return computed
}

func (b *Binding) defaultData() State {
	if b.strategies.defaultData != nil {
		return b.strategies.defaultData(b.shape)
	}
	if b.shape == nil {
		return nil
	}
	defaults := make(State, len(b.shape))
	for _, key := range b.shape.Names() {
		defaults[key] = nil
	}
	return defaults
}

// computeEntity partitions raw values into the reference sub-object and the
// flat top level. Keys are visited in sorted order, so when two spread
// objects share a key the later property name wins.
func (b *Binding) computeEntity(data State) State {
	if b.strategies.computeEntity != nil {
		entity := b.strategies.computeEntity(data)
		if entity == nil {
			entity = State{}
		}
		return entity
	}

	reference := State{}
	entity := State{ReferenceKey: reference}

	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := data[key]
		if slices.Contains(b.referenceNames, key) {
			reference[key] = value
			continue
		}
		if obj, ok := asObject(value); ok {
			for k, v := range obj {
				entity[k] = v
			}
			continue
		}
		entity[key] = value
	}
	return entity
}

// DeriveErrorState flattens the error object of every subscribed property
// into keys of the form "<property>.<field>".
func (b *Binding) DeriveErrorState() State {
	if b.strategies.errorState != nil {
		return b.strategies.errorState()
	}

	out := State{}
	for _, sub := range b.Subscriptions() {
		for _, property := range sub.Properties {
			for field, v := range sub.Store.Error(property) {
				out[property+"."+field] = v
			}
		}
	}
	return out
}

// DeriveLoadingState reports whether any subscribed property is loading.
func (b *Binding) DeriveLoadingState() LoadingState {
	if b.strategies.loadingState != nil {
		return b.strategies.loadingState()
	}

	for _, sub := range b.Subscriptions() {
		for _, property := range sub.Properties {
			if sub.Store.Status(property).IsLoading {
				return LoadingState{IsLoading: true}
			}
		}
	}
	return LoadingState{}
}

// asObject reports whether v is a string-keyed object.
func asObject(v any) (State, bool) {
	switch obj := v.(type) {
	case State:
		return obj, obj != nil
	case map[string]any:
		return State(obj), obj != nil
	default:
		return nil, false
	}
}

// mergeDefaults fills keys absent from dst with copies of the defaults.
// When both sides hold objects, the merge recurses into a copy of the dst
// object so store-owned maps are never written.
func mergeDefaults(dst, defaults State) {
	for key, def := range defaults {
		current, ok := dst[key]
		if !ok {
			dst[key] = cloneValue(def)
			continue
		}
		curObj, curIsObj := asObject(current)
		defObj, defIsObj := asObject(def)
		if !curIsObj || !defIsObj {
			continue
		}
		merged := maps.Clone(curObj)
		mergeDefaults(merged, defObj)
		if _, isState := current.(State); isState {
			dst[key] = merged
		} else {
			dst[key] = map[string]any(merged)
		}
	}
}

func cloneValue(v any) any {
	switch obj := v.(type) {
	case State:
		out := make(State, len(obj))
		for k, inner := range obj {
			out[k] = cloneValue(inner)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(obj))
		for k, inner := range obj {
			out[k] = cloneValue(inner)
		}
		return out
	default:
		return v
	}
}
