// Package pin persists the ordered set of pinned contact ids.
package pin

import (
	"errors"
	"slices"

	"github.com/danhigham/tgsend/internal/state"
)

const recordName = "pins.json"

type record struct {
	Pinned []int64 `json:"pinned"`
}

// Store is the durable pin list. Insertion order is preserved and used as
// the display order for pinned contacts. Ids are kept even when the contact
// later disappears from the directory; stale pins are skipped at display
// time, not purged.
type Store struct {
	state *state.Store
}

func NewStore(st *state.Store) *Store {
	return &Store{state: st}
}

// Pin adds id to the pin list. Pinning an already-pinned id is a no-op.
func (s *Store) Pin(id int64) error {
	var rec record
	return s.state.Update(recordName, &rec, func() error {
		if slices.Contains(rec.Pinned, id) {
			return nil
		}
		rec.Pinned = append(rec.Pinned, id)
		return nil
	})
}

// Unpin removes id from the pin list. Unpinning an id that was never pinned
// is a no-op.
func (s *Store) Unpin(id int64) error {
	var rec record
	return s.state.Update(recordName, &rec, func() error {
		rec.Pinned = slices.DeleteFunc(rec.Pinned, func(v int64) bool {
			return v == id
		})
		return nil
	})
}

// IsPinned reports whether id is currently pinned.
func (s *Store) IsPinned(id int64) (bool, error) {
	ids, err := s.ListPinned()
	if err != nil {
		return false, err
	}
	return slices.Contains(ids, id), nil
}

// ListPinned returns pinned ids in insertion order.
func (s *Store) ListPinned() ([]int64, error) {
	var rec record
	if err := s.state.Load(recordName, &rec); err != nil {
		if errors.Is(err, state.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	return rec.Pinned, nil
}
