package binding

import (
	"time"

	"github.com/focus-dev/focus/pkg/store"
)

// Recorder observes binding activity, typically to export metrics.
type Recorder interface {
	SubscriptionAdded(storeID string)
	SubscriptionRemoved(storeID string)
	Rejected(storeID string)
	Notified(kind store.EventKind)
	Derived(elapsed time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) SubscriptionAdded(string)   {}
func (nopRecorder) SubscriptionRemoved(string) {}
func (nopRecorder) Rejected(string)            {}
func (nopRecorder) Notified(store.EventKind)   {}
func (nopRecorder) Derived(time.Duration)      {}
