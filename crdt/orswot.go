package crdt

import "sort"

// Element is the opaque, equality-comparable payload an ORSWOT holds.
// Real deployments stamp binary-string-shaped identifiers here; Go's
// comparable string type models that directly.
type Element = string

// Structs

// ORSWOT is an add-wins observed-remove set without tombstones: a set
// that supports concurrent add and remove with add-wins semantics, using
// a dotted version vector instead of per-element removal markers.
type ORSWOT struct {
	clock   VV
	entries map[Element]DotSet
}

// Functions

// NewORSWOT returns an empty ORSWOT with a fresh clock.
func NewORSWOT() *ORSWOT {
	return &ORSWOT{
		clock:   Fresh(),
		entries: make(map[Element]DotSet),
	}
}

// Kind identifies this value as an ORSWOT for Map dispatch.
func (s *ORSWOT) Kind() Kind { return KindORSWOT }

// Value returns the set of elements currently present, sorted for
// deterministic output.
func (s *ORSWOT) Value() interface{} {
	out := make([]Element, 0, len(s.entries))
	for e := range s.entries {
		out = append(out, e)
	}
	sort.Strings(out)
	return out
}

// Contains reports whether e has at least one surviving dot.
func (s *ORSWOT) Contains(e Element) bool {
	ds, ok := s.entries[e]
	return ok && len(ds) > 0
}

// Size returns the number of distinct elements currently present.
func (s *ORSWOT) Size() int {
	return len(s.entries)
}

// Query answers "size" (-> int) and "contains" (-> bool, given an
// Element argument); any other query reports false.
func (s *ORSWOT) Query(query string, args ...interface{}) (interface{}, bool) {
	switch query {
	case "size":
		return s.Size(), true
	case "contains":
		if len(args) != 1 {
			return nil, false
		}
		e, ok := args[0].(Element)
		if !ok {
			return nil, false
		}
		return s.Contains(e), true
	default:
		return nil, false
	}
}

// clone returns a deep copy of s, safe to mutate independently.
func (s *ORSWOT) clone() *ORSWOT {
	c := &ORSWOT{
		clock:   s.clock.Clone(),
		entries: make(map[Element]DotSet, len(s.entries)),
	}
	for e, ds := range s.entries {
		c.entries[e] = ds.Clone()
	}
	return c
}

// addOne allocates a dot for e (from src) in the working copy w and
// unions it into e's existing dot set; it never fails.
func (w *ORSWOT) addOne(e Element, src Source) {
	newClock, d := src.resolve(w.clock)
	w.clock = newClock
	ds, ok := w.entries[e]
	if !ok {
		ds = NewDotSet()
	}
	ds.Add(d)
	w.entries[e] = ds
}

// removeOne deletes e from the working copy w, reporting ErrNotPresent if
// e was already absent.
func (w *ORSWOT) removeOne(e Element) error {
	if _, ok := w.entries[e]; !ok {
		return wrapNotPresent(e)
	}
	delete(w.entries, e)
	return nil
}

// Add returns a new ORSWOT with e added under a dot allocated from src.
// Add never fails.
func (s *ORSWOT) Add(e Element, src Source) *ORSWOT {
	w := s.clone()
	w.addOne(e, src)
	return w
}

// AddAll returns a new ORSWOT with every element in es added. Each
// element receives its own freshly allocated dot when src names an
// actor; atomicity is not required since Add cannot fail.
func (s *ORSWOT) AddAll(es []Element, src Source) *ORSWOT {
	w := s.clone()
	for _, e := range es {
		w.addOne(e, src)
	}
	return w
}

// Remove returns a new ORSWOT with e removed, or ErrNotPresent if e is
// not currently present.
func (s *ORSWOT) Remove(e Element) (*ORSWOT, error) {
	w := s.clone()
	if err := w.removeOne(e); err != nil {
		return nil, err
	}
	return w, nil
}

// RemoveAll removes every element in es, all-or-nothing: if any element
// is absent, nil is returned along with the first ErrNotPresent
// encountered, and the receiver is left unchanged.
func (s *ORSWOT) RemoveAll(es []Element) (*ORSWOT, error) {
	w := s.clone()
	for _, e := range es {
		if err := w.removeOne(e); err != nil {
			return nil, err
		}
	}
	return w, nil
}

// ORSWOTOp is one sub-operation of a batched Update call.
type ORSWOTOp interface {
	apply(w *ORSWOT, src Source) error
}

type orswotAddOp struct{ Element Element }

func (op orswotAddOp) apply(w *ORSWOT, src Source) error {
	w.addOne(op.Element, src)
	return nil
}

type orswotRemoveOp struct{ Element Element }

func (op orswotRemoveOp) apply(w *ORSWOT, _ Source) error {
	return w.removeOne(op.Element)
}

// AddOp builds a sub-op that adds e when passed to Update.
func AddOp(e Element) ORSWOTOp { return orswotAddOp{Element: e} }

// RemoveOp builds a sub-op that removes e when passed to Update.
func RemoveOp(e Element) ORSWOTOp { return orswotRemoveOp{Element: e} }

// Update atomically applies ops, in order, sharing src across every
// sub-op. On the first error the whole batch is abandoned: nil is
// returned together with that error, and s is left unchanged.
func (s *ORSWOT) Update(ops []ORSWOTOp, src Source) (*ORSWOT, error) {
	w := s.clone()
	for _, op := range ops {
		if err := op.apply(w, src); err != nil {
			return nil, err
		}
	}
	return w, nil
}

// Merge combines s and other following the add-wins dotted merge rule:
// common elements keep dots neither side has reason to have dropped,
// one-sided elements survive unless the other side's clock dominates
// their entire dot set (meaning the other side has already removed
// them). Merge is commutative, associative and idempotent.
func (s *ORSWOT) Merge(otherCRDT CRDT) CRDT {
	other, ok := otherCRDT.(*ORSWOT)
	if !ok {
		return s.clone()
	}

	merged := &ORSWOT{
		clock:   s.clock.Merge(other.clock),
		entries: make(map[Element]DotSet),
	}

	for e, lDots := range s.entries {
		rDots, inBoth := other.entries[e]
		if inBoth {
			common := lDots.Intersect(rDots)
			lKeep := other.clock.SubtractDots(lDots.Minus(common))
			rKeep := s.clock.SubtractDots(rDots.Minus(common))
			dots := common.Union(lKeep).Union(rKeep)
			if len(dots) > 0 {
				merged.entries[e] = dots
			}
		} else {
			if !other.clock.DescendsDotSet(lDots) {
				merged.entries[e] = other.clock.SubtractDots(lDots)
			}
		}
	}

	for e, rDots := range other.entries {
		if _, inBoth := s.entries[e]; inBoth {
			continue
		}
		if !s.clock.DescendsDotSet(rDots) {
			merged.entries[e] = s.clock.SubtractDots(rDots)
		}
	}

	return merged
}

// Equal reports whether s and other denote the same ORSWOT state: equal
// clocks, equal key sets, and equal per-element dot sets.
func (s *ORSWOT) Equal(otherCRDT CRDT) bool {
	other, ok := otherCRDT.(*ORSWOT)
	if !ok {
		return false
	}
	if !s.clock.Equal(other.clock) {
		return false
	}
	if len(s.entries) != len(other.entries) {
		return false
	}
	for e, ds := range s.entries {
		oDs, ok := other.entries[e]
		if !ok || len(ds) != len(oDs) {
			return false
		}
		for d := range ds {
			if !oDs.Has(d) {
				return false
			}
		}
	}
	return true
}

// PreconditionContext returns the whole state, which is a sufficient (if
// not bandwidth-optimal) fragment for a remote client to construct a safe
// remove operation.
func (s *ORSWOT) PreconditionContext() CRDT {
	return s.clone()
}
