// Package snapshot captures the contents of stores and restores them later.
//
// A Snapshot holds, per store, the property values, error objects and
// loading statuses. Snapshots are encoded as JSON and decoded from JSON or
// YAML, so hand-written YAML fixtures can seed stores too:
//
//	stores:
//	  users:
//	    values:
//	      user: {name: Ada}
//	    status:
//	      user: {isLoading: false}
//
// Snapshots are kept in a Backend: a local directory (FileBackend) or an S3
// bucket (S3Backend).
package snapshot

import (
	"bytes"
	"encoding/json"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/focus-dev/focus/internal/errors"
	"github.com/focus-dev/focus/pkg/store"
)

// Snapshot is a point-in-time copy of store contents.
type Snapshot struct {
	TakenAt time.Time                `json:"takenAt,omitempty" yaml:"takenAt,omitempty"`
	Stores  map[string]StoreSnapshot `json:"stores" yaml:"stores"`
}

// StoreSnapshot is the content of one store.
type StoreSnapshot struct {
	Values map[string]any            `json:"values,omitempty" yaml:"values,omitempty"`
	Errors map[string]map[string]any `json:"errors,omitempty" yaml:"errors,omitempty"`
	Status map[string]store.Status   `json:"status,omitempty" yaml:"status,omitempty"`
}

// Capture copies every declared property of the given stores.
func Capture(stores ...store.Store) *Snapshot {
	snap := &Snapshot{
		TakenAt: time.Now().UTC(),
		Stores:  make(map[string]StoreSnapshot, len(stores)),
	}
	for _, s := range stores {
		content := StoreSnapshot{
			Values: map[string]any{},
			Errors: map[string]map[string]any{},
			Status: map[string]store.Status{},
		}
		for _, property := range s.Definition().Names() {
			if v := s.Value(property); v != nil {
				content.Values[property] = v
			}
			if e := s.Error(property); e != nil {
				content.Errors[property] = e
			}
			if st := s.Status(property); st != (store.Status{}) {
				content.Status[property] = st
			}
		}
		snap.Stores[s.Identifier()] = content
	}
	return snap
}

// Restore writes the snapshot into the target stores, keyed by identifier.
// Values are applied before errors and statuses, so listeners are notified
// in that order. A store missing from targets or a property missing from a
// store definition fails the restore before anything is written.
func (s *Snapshot) Restore(targets map[string]*store.CoreStore) error {
	ids := make([]string, 0, len(s.Stores))
	for id, content := range s.Stores {
		target, ok := targets[id]
		if !ok {
			return errors.New("F004").
				WithDetailf("snapshot references store %q", id).
				WithSuggestion("Declare the store in focus.json or remove it from the snapshot")
		}
		if err := content.check(target); err != nil {
			return err
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		target, content := targets[id], s.Stores[id]
		if len(content.Values) > 0 {
			if err := target.Update(content.Values); err != nil {
				return err
			}
		}
		for _, property := range sortedKeys(content.Errors) {
			if err := target.SetError(property, content.Errors[property]); err != nil {
				return err
			}
		}
		for _, property := range sortedKeys(content.Status) {
			if err := target.SetStatus(property, content.Status[property]); err != nil {
				return err
			}
		}
	}
	return nil
}

// check fails with F002 on the first property the target does not declare.
func (c StoreSnapshot) check(target store.Store) error {
	def := target.Definition()
	properties := append(sortedKeys(c.Values), sortedKeys(c.Errors)...)
	properties = append(properties, sortedKeys(c.Status)...)
	for _, property := range properties {
		if !def.Has(property) {
			return errors.New("F002").
				WithDetailf("snapshot sets property %q of store %q (definition: %s)", property, target.Identifier(), def)
		}
	}
	return nil
}

// Encode returns the snapshot as indented JSON.
func (s *Snapshot) Encode() ([]byte, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, errors.New("F011").Wrap(err)
	}
	return append(data, '\n'), nil
}

// EncodeYAML returns the snapshot as YAML.
func (s *Snapshot) EncodeYAML() ([]byte, error) {
	data, err := yaml.Marshal(s)
	if err != nil {
		return nil, errors.New("F011").Wrap(err)
	}
	return data, nil
}

// Decode parses a JSON or YAML snapshot.
func Decode(data []byte) (*Snapshot, error) {
	snap := &Snapshot{}

	var err error
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '{' {
		err = json.Unmarshal(trimmed, snap)
	} else {
		err = yaml.Unmarshal(data, snap)
	}
	if err != nil {
		return nil, errors.New("F011").Wrap(err)
	}
	if snap.Stores == nil {
		snap.Stores = map[string]StoreSnapshot{}
	}
	return snap, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
