package binding

import (
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	"github.com/focus-dev/focus/pkg/store"
)

// Option configures a Binding.
type Option func(*Binding)

// WithName names the binding in logs, spans and metrics.
func WithName(name string) Option {
	return func(b *Binding) {
		b.name = name
	}
}

// WithStores declares the subscriptions registered by Mount.
func WithStores(subs ...Subscription) Option {
	return func(b *Binding) {
		b.initial = append(b.initial, subs...)
	}
}

// WithReferenceNames marks properties whose values are nested under
// State["reference"] instead of the top level.
func WithReferenceNames(names ...string) Option {
	return func(b *Binding) {
		b.referenceNames = append(b.referenceNames, names...)
	}
}

// WithShape sets the component's data-shape definition, used for default
// store data.
func WithShape(shape store.Definition) Option {
	return func(b *Binding) {
		b.shape = shape
	}
}

// WithDefaultStoreData enables filling absent keys with default data.
func WithDefaultStoreData(enabled bool) Option {
	return func(b *Binding) {
		b.useDefaults = enabled
	}
}

// WithStateStrategy replaces the whole state derivation.
func WithStateStrategy(fn func() State) Option {
	return func(b *Binding) {
		b.strategies.state = fn
	}
}

// WithErrorStateStrategy replaces the error state derivation.
func WithErrorStateStrategy(fn func() State) Option {
	return func(b *Binding) {
		b.strategies.errorState = fn
	}
}

// WithLoadingStateStrategy replaces the loading state derivation.
func WithLoadingStateStrategy(fn func() LoadingState) Option {
	return func(b *Binding) {
		b.strategies.loadingState = fn
	}
}

// WithComputeEntity replaces the step that turns raw store values into the
// reference and top-level partitions.
func WithComputeEntity(fn func(data State) State) Option {
	return func(b *Binding) {
		b.strategies.computeEntity = fn
	}
}

// WithDefaultData supplies default store data instead of nil for every key
// of the shape.
func WithDefaultData(fn func(shape store.Definition) State) Option {
	return func(b *Binding) {
		b.strategies.defaultData = fn
	}
}

// WithStateHandler sets the function receiving every published state.
func WithStateHandler(fn func(State)) Option {
	return func(b *Binding) {
		b.onState = fn
	}
}

// WithErrorHandler sets the function receiving every published error state.
func WithErrorHandler(fn func(State)) Option {
	return func(b *Binding) {
		b.onError = fn
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Binding) {
		b.logger = logger
	}
}

// WithRecorder sets the recorder notified of subscription activity.
func WithRecorder(r Recorder) Option {
	return func(b *Binding) {
		if r != nil {
			b.recorder = r
		}
	}
}

// WithTracer sets the tracer. The global OpenTelemetry tracer is used by default.
func WithTracer(t trace.Tracer) Option {
	return func(b *Binding) {
		b.tracer = t
	}
}
