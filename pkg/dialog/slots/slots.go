// Package slots tracks which requirement fields a session has resolved.
//
// Each field is either Unresolved or Resolved with exactly one canonical
// value; there is no "list of maybe-values" middle ground. An ambiguous
// resolution is identical to no resolution at all.
package slots

// Slot is the per-field tagged union: Unresolved, or Resolved with a value.
type Slot struct {
	Value    string `json:"value,omitempty"`
	Resolved bool   `json:"resolved"`
}

// State maps field names to slots for one session. Insertion order of
// tracked fields is preserved for the fallback missing-field sweep.
type State struct {
	Slots map[string]Slot `json:"slots"`
	Order []string        `json:"order"`
}

func NewState() *State {
	return &State{Slots: map[string]Slot{}}
}

// Track registers a field without resolving it, so the completion sweep
// knows it exists even before any resolution attempt.
func (s *State) Track(field string) {
	if _, ok := s.Slots[field]; ok {
		return
	}
	s.Slots[field] = Slot{}
	s.Order = append(s.Order, field)
}

// Resolve records a resolved value for a field. An empty value is a no-op:
// a failed or ambiguous resolution never erases prior knowledge.
func (s *State) Resolve(field, value string) {
	s.Track(field)
	if value == "" {
		return
	}
	s.Slots[field] = Slot{Value: value, Resolved: true}
}

// Get returns the resolved value for a field, if any.
func (s *State) Get(field string) (string, bool) {
	slot, ok := s.Slots[field]
	if !ok || !slot.Resolved {
		return "", false
	}
	return slot.Value, true
}

// Merge applies another state's resolutions on top of this one. Only
// resolved slots overwrite; unresolved slots are tracked but never erase.
func (s *State) Merge(other *State) {
	if other == nil {
		return
	}
	for _, field := range other.Order {
		slot := other.Slots[field]
		if slot.Resolved {
			s.Resolve(field, slot.Value)
		} else {
			s.Track(field)
		}
	}
}

// Complete reports whether every listed field is resolved.
func (s *State) Complete(fields []string) bool {
	if len(fields) == 0 {
		return false
	}
	for _, f := range fields {
		if _, ok := s.Get(f); !ok {
			return false
		}
	}
	return true
}

// NextMissing returns the first unresolved field, scanning the active
// branch in declared order, then the trailing fields, then any other
// tracked field. The final sweep guards against fields introduced outside
// the declared order. Returns "" when nothing is missing.
func (s *State) NextMissing(branch, trailing []string) string {
	for _, f := range branch {
		if _, ok := s.Get(f); !ok {
			return f
		}
	}
	for _, f := range trailing {
		if _, ok := s.Get(f); !ok {
			return f
		}
	}
	for _, f := range s.Order {
		if _, ok := s.Get(f); !ok {
			return f
		}
	}
	return ""
}

// Resolved returns the field→value map of all resolved slots.
func (s *State) Resolved() map[string]string {
	out := map[string]string{}
	for _, f := range s.Order {
		if v, ok := s.Get(f); ok {
			out[f] = v
		}
	}
	return out
}
