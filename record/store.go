// CLAUDE:SUMMARY Ordered in-memory record store: snapshot reads, atomic mutations, change notification.
package record

import (
	"errors"
	"sync"
)

// ErrNotFound is returned when a referenced record id does not exist.
var ErrNotFound = errors.New("record: not found")

// Store is the exclusive in-memory owner of a room's records.
//
// Iteration order is insertion order, which makes the derived default page
// (first page at query time) stable across snapshots. All reads hand out
// clones; callers never share memory with the store.
type Store struct {
	mu        sync.RWMutex
	records   map[string]Record
	order     []string
	listeners []func()
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{records: make(map[string]Record)}
}

// FromSnapshot builds a store from a persisted snapshot. Every record is
// validated; a snapshot that no longer passes the schema fails the load.
func FromSnapshot(snap *Snapshot) (*Store, error) {
	s := NewStore()
	for _, r := range snap.Records {
		if err := s.Put(r); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// OnChange registers a listener invoked after every successful mutation.
// Listeners run outside the store lock and must not block.
func (s *Store) OnChange(fn func()) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

// Get returns a clone of the record with the given id.
func (s *Store) Get(id string) (Record, bool) {
	s.mu.RLock()
	rec, ok := s.records[id]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return cloneRecord(rec), true
}

// Put validates and inserts or replaces a record. New ids append to the
// iteration order; replacing keeps the original position.
func (s *Store) Put(rec Record) error {
	if err := Validate(rec); err != nil {
		return err
	}
	stored := cloneRecord(rec)

	s.mu.Lock()
	id := stored.RecordID()
	if _, exists := s.records[id]; !exists {
		s.order = append(s.order, id)
	}
	s.records[id] = stored
	s.mu.Unlock()

	s.notify()
	return nil
}

// Update applies fn to a clone of the record, validates the result and
// stores it back, all as one atomic read-modify-write. Returns ErrNotFound
// when the id does not exist; fn errors abort without a write.
func (s *Store) Update(id string, fn func(Record) error) error {
	s.mu.Lock()
	rec, ok := s.records[id]
	if !ok {
		s.mu.Unlock()
		return ErrNotFound
	}
	next := cloneRecord(rec)
	if err := fn(next); err != nil {
		s.mu.Unlock()
		return err
	}
	if err := Validate(next); err != nil {
		s.mu.Unlock()
		return err
	}
	s.records[id] = next
	s.mu.Unlock()

	s.notify()
	return nil
}

// Delete removes a record. Reports whether anything was removed.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	_, ok := s.records[id]
	if ok {
		delete(s.records, id)
		for i, oid := range s.order {
			if oid == id {
				s.order = append(s.order[:i], s.order[i+1:]...)
				break
			}
		}
	}
	s.mu.Unlock()

	if ok {
		s.notify()
	}
	return ok
}

// Snapshot produces an immutable full projection of the store. Queries must
// re-snapshot to observe later writes.
func (s *Store) Snapshot() *Snapshot {
	s.mu.RLock()
	snap := &Snapshot{Records: make([]Record, 0, len(s.order))}
	for _, id := range s.order {
		snap.Records = append(snap.Records, cloneRecord(s.records[id]))
	}
	s.mu.RUnlock()
	return snap
}

// Len returns the number of records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func (s *Store) notify() {
	s.mu.RLock()
	fns := make([]func(), len(s.listeners))
	copy(fns, s.listeners)
	s.mu.RUnlock()
	for _, fn := range fns {
		fn()
	}
}

func cloneRecord(r Record) Record {
	switch v := r.(type) {
	case *Page:
		c := *v
		return &c
	case *Shape:
		c := *v
		c.Props = cloneProps(v.Props)
		return &c
	case *Binding:
		c := *v
		c.Props = cloneProps(v.Props)
		return &c
	default:
		return r
	}
}

func cloneProps(props map[string]any) map[string]any {
	if props == nil {
		return nil
	}
	out := make(map[string]any, len(props))
	for k, v := range props {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch m := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(m))
		for k, vv := range m {
			out[k] = cloneValue(vv)
		}
		return out
	case map[string]string:
		out := make(map[string]string, len(m))
		for k, vv := range m {
			out[k] = vv
		}
		return out
	case []any:
		out := make([]any, len(m))
		for i, vv := range m {
			out[i] = cloneValue(vv)
		}
		return out
	default:
		return v
	}
}
