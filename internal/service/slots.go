package service

import "strings"

// SlotSet is an ordered set of opaque slot labels such as "10-11".  Labels
// are compared for equality only; their format and adjacency carry no
// meaning.  Insertion order is kept for display.
type SlotSet struct {
	labels []string
	index  map[string]struct{}
}

// ParseSlots splits a comma separated label string into a SlotSet.
// Whitespace around labels is trimmed; empty tokens and repeated labels are
// dropped.  An empty input yields an empty set.
func ParseSlots(raw string) SlotSet {
	s := SlotSet{index: map[string]struct{}{}}
	for _, p := range strings.Split(raw, ",") {
		s.add(strings.TrimSpace(p))
	}
	return s
}

// NewSlotSet builds a set from individual labels.
func NewSlotSet(labels ...string) SlotSet {
	s := SlotSet{index: map[string]struct{}{}}
	for _, l := range labels {
		s.add(strings.TrimSpace(l))
	}
	return s
}

func (s *SlotSet) add(label string) {
	if label == "" {
		return
	}
	if _, dup := s.index[label]; dup {
		return
	}
	s.index[label] = struct{}{}
	s.labels = append(s.labels, label)
}

// Len returns the number of distinct labels.
func (s SlotSet) Len() int { return len(s.labels) }

// Empty reports whether the set has no labels.
func (s SlotSet) Empty() bool { return len(s.labels) == 0 }

// Contains reports whether label is in the set.
func (s SlotSet) Contains(label string) bool {
	_, ok := s.index[label]
	return ok
}

// Labels returns a copy of the labels in insertion order.
func (s SlotSet) Labels() []string {
	out := make([]string, len(s.labels))
	copy(out, s.labels)
	return out
}

// Intersect returns the labels of s that are also in other, in the order
// they appear in s.
func (s SlotSet) Intersect(other SlotSet) SlotSet {
	out := SlotSet{index: map[string]struct{}{}}
	for _, l := range s.labels {
		if other.Contains(l) {
			out.add(l)
		}
	}
	return out
}

// String joins the labels with commas.  ParseSlots(s.String()) yields a set
// with the same labels.
func (s SlotSet) String() string { return strings.Join(s.labels, ",") }
