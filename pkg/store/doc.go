// Package store defines the contract between components and the external
// data stores they observe, and provides CoreStore, an in-memory
// implementation.
//
// A store holds named properties. For each property it can report the
// current value, an error object and a loading status, and it notifies
// registered listeners when any of the three changes:
//
//	users := store.NewCoreStore("users", store.NewDefinition("user", "roles"))
//	users.AddListener(store.EventChange, "user", listener)
//
//	users.Set("user", map[string]any{"name": "Ada"}) // listener notified
//
// Only properties declared in the store's Definition may be observed or
// changed.
package store
