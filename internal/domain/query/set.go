package query

import "encoding/json"

// Set is an insertion-ordered set of strings.
type Set struct {
	items []string
	index map[string]struct{}
}

// NewSet builds a Set from values, dropping duplicates and empty strings.
func NewSet(values ...string) Set {
	var s Set
	for _, v := range values {
		s.Add(v)
	}
	return s
}

// Add inserts v unless it is empty or already present.
func (s *Set) Add(v string) {
	if v == "" {
		return
	}
	if s.index == nil {
		s.index = make(map[string]struct{})
	}
	if _, ok := s.index[v]; ok {
		return
	}
	s.index[v] = struct{}{}
	s.items = append(s.items, v)
}

// Has reports membership.
func (s Set) Has(v string) bool {
	_, ok := s.index[v]
	return ok
}

// Len returns the number of elements.
func (s Set) Len() int { return len(s.items) }

// Values returns a copy of the elements in insertion order.
func (s Set) Values() []string {
	out := make([]string, len(s.items))
	copy(out, s.items)
	return out
}

// MarshalJSON encodes the set as an array; an empty set is [].
func (s Set) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Values())
}

// UnmarshalJSON decodes an array of strings.
func (s *Set) UnmarshalJSON(data []byte) error {
	var values []string
	if err := json.Unmarshal(data, &values); err != nil {
		return err //nolint:wrapcheck // json decoding error is self-describing
	}
	*s = NewSet(values...)
	return nil
}
