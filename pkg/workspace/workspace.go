// Package workspace builds the stores and component bindings declared in a
// focus configuration and manages their lifecycle together.
package workspace

import (
	"log/slog"

	"github.com/focus-dev/focus/internal/config"
	"github.com/focus-dev/focus/internal/errors"
	"github.com/focus-dev/focus/pkg/binding"
	"github.com/focus-dev/focus/pkg/snapshot"
	"github.com/focus-dev/focus/pkg/store"
)

// StateHandler receives the states published by a component.
type StateHandler func(component string, st binding.State)

// Option configures a Workspace.
type Option func(*options)

type options struct {
	logger   *slog.Logger
	recorder binding.Recorder
	onState  StateHandler
	onError  StateHandler
}

// WithLogger sets the logger shared by stores and bindings.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithRecorder sets the recorder shared by every binding.
func WithRecorder(r binding.Recorder) Option {
	return func(o *options) {
		o.recorder = r
	}
}

// WithStateHandler sets the function receiving every published state.
func WithStateHandler(fn StateHandler) Option {
	return func(o *options) {
		o.onState = fn
	}
}

// WithErrorHandler sets the function receiving every published error state.
func WithErrorHandler(fn StateHandler) Option {
	return func(o *options) {
		o.onError = fn
	}
}

// Workspace holds the configured stores and component bindings.
type Workspace struct {
	logger     *slog.Logger
	stores     map[string]*store.CoreStore
	storeIDs   []string
	components map[string]*binding.Binding
	names      []string
}

// New creates the stores and unmounted bindings declared in cfg.
func New(cfg *config.Config, opts ...Option) (*Workspace, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	w := &Workspace{
		logger:     o.logger.With("component", "workspace"),
		stores:     make(map[string]*store.CoreStore, len(cfg.Stores)),
		components: make(map[string]*binding.Binding, len(cfg.Components)),
	}

	for _, sc := range cfg.Stores {
		s := store.NewCoreStore(sc.Identifier, store.NewDefinition(sc.Properties...),
			store.WithLogger(o.logger.With("component", "store", "store", sc.Identifier)),
			store.WithValues(sc.Values),
		)
		w.stores[sc.Identifier] = s
		w.storeIDs = append(w.storeIDs, sc.Identifier)
	}

	for _, cc := range cfg.Components {
		b, err := w.newBinding(cc, o)
		if err != nil {
			return nil, err
		}
		w.components[cc.Name] = b
		w.names = append(w.names, cc.Name)
	}
	return w, nil
}

func (w *Workspace) newBinding(cc config.ComponentConfig, o options) (*binding.Binding, error) {
	subs := make([]binding.Subscription, 0, len(cc.Subscriptions))
	for _, sc := range cc.Subscriptions {
		s, ok := w.stores[sc.Store]
		if !ok {
			return nil, errors.New("F004").
				WithDetailf("component %q subscribes to store %q", cc.Name, sc.Store)
		}
		subs = append(subs, binding.Subscription{Store: s, Properties: sc.Properties})
	}

	name := cc.Name
	bopts := []binding.Option{
		binding.WithName(name),
		binding.WithLogger(o.logger.With("component", "binding", "binding", name)),
		binding.WithStores(subs...),
		binding.WithReferenceNames(cc.ReferenceNames...),
		binding.WithDefaultStoreData(cc.UseDefaultStoreData),
		binding.WithRecorder(o.recorder),
	}
	if len(cc.Shape) > 0 {
		bopts = append(bopts, binding.WithShape(store.NewDefinition(cc.Shape...)))
	}
	if o.onState != nil {
		bopts = append(bopts, binding.WithStateHandler(func(st binding.State) { o.onState(name, st) }))
	}
	if o.onError != nil {
		bopts = append(bopts, binding.WithErrorHandler(func(st binding.State) { o.onError(name, st) }))
	}
	return binding.New(bopts...), nil
}

// Mount mounts every component in declaration order. If one fails, the
// components mounted so far are unmounted.
func (w *Workspace) Mount() error {
	for i, name := range w.names {
		if err := w.components[name].Mount(); err != nil {
			for _, done := range w.names[:i] {
				w.components[done].Unmount()
			}
			w.logger.Error("mount failed", "binding", name, "error", err)
			return err
		}
	}
	w.logger.Info("workspace mounted", "stores", len(w.storeIDs), "components", len(w.names))
	return nil
}

// Unmount unmounts every component.
func (w *Workspace) Unmount() {
	for _, name := range w.names {
		w.components[name].Unmount()
	}
}

// Store returns the store with the given identifier.
func (w *Workspace) Store(identifier string) (*store.CoreStore, bool) {
	s, ok := w.stores[identifier]
	return s, ok
}

// StoreIDs returns the store identifiers in declaration order.
func (w *Workspace) StoreIDs() []string {
	return append([]string(nil), w.storeIDs...)
}

// Component returns the binding of the named component.
func (w *Workspace) Component(name string) (*binding.Binding, bool) {
	b, ok := w.components[name]
	return b, ok
}

// ComponentNames returns the component names in declaration order.
func (w *Workspace) ComponentNames() []string {
	return append([]string(nil), w.names...)
}

// Capture snapshots every store.
func (w *Workspace) Capture() *snapshot.Snapshot {
	stores := make([]store.Store, 0, len(w.storeIDs))
	for _, id := range w.storeIDs {
		stores = append(stores, w.stores[id])
	}
	return snapshot.Capture(stores...)
}

// Restore writes a snapshot into the stores. Mounted components are
// notified like for any other change.
func (w *Workspace) Restore(snap *snapshot.Snapshot) error {
	return snap.Restore(w.stores)
}
