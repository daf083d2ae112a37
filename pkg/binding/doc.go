// Package binding keeps a component's local state in sync with the external
// stores it observes.
//
// A Binding is a capability object a component holds and delegates to. It
// owns the component's store subscriptions: for every (store, property) pair
// it registers one change, one error and one status listener, and it derives
// a merged view of the subscribed values that is handed to the component
// whenever a store notifies.
//
//	b := binding.New(
//	    binding.WithStores(binding.Subscription{Store: users, Properties: []string{"user"}}),
//	    binding.WithReferenceNames("countries"),
//	    binding.WithStateHandler(func(s binding.State) { component.state = s }),
//	)
//	if err := b.Mount(); err != nil {
//	    return err // unsupported property in the configuration
//	}
//	defer b.Unmount()
//
// # Derived state
//
// DeriveState reads every subscribed property and builds the state:
//
//   - reference properties go under State["reference"];
//   - a value that is itself an object (map[string]any or State) is spread
//     into the top level, any other value is stored under its property name;
//   - State["isLoading"] is true when any subscribed property is loading;
//   - when default store data is enabled, absent keys are filled from the
//     default data strategy, or with nil for every key of the shape.
//
// Values read from stores always win over defaults, at every nesting level.
//
// Each derivation step can be replaced by a strategy option (WithStateStrategy,
// WithComputeEntity, ...), in which case the strategy output is used verbatim.
package binding
