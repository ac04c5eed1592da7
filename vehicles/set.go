// Package vehicles maintains the reference set of vehicle ids that
// breadcrumbs are checked against.
package vehicles

import (
	"maps"
	"slices"
)

// Set is an immutable set of vehicle ids. The zero value and nil are empty.
type Set struct {
	ids map[int64]struct{}
}

func NewSet(ids ...int64) *Set {
	s := &Set{ids: make(map[int64]struct{}, len(ids))}
	for _, id := range ids {
		s.ids[id] = struct{}{}
	}
	return s
}

func (s *Set) Contains(id int64) bool {
	if s == nil {
		return false
	}
	_, ok := s.ids[id]
	return ok
}

func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.ids)
}

// IDs returns the ids in ascending order.
func (s *Set) IDs() []int64 {
	if s == nil {
		return nil
	}
	return slices.Sorted(maps.Keys(s.ids))
}
