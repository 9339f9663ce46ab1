package crdt

// Structs

// Flag is an observed-disable flag: a boolean that can be enabled and
// disabled repeatedly, with enable-wins semantics under concurrency.
// Structurally it is a degenerate ORSWOT with a single implicit element
// whose dot set is the flag's "enable" history.
type Flag struct {
	clock   VV
	enabled DotSet
}

// Functions

// NewFlag returns a disabled Flag with a fresh clock.
func NewFlag() *Flag {
	return &Flag{
		clock:   Fresh(),
		enabled: NewDotSet(),
	}
}

// Kind identifies this value as a Flag for Map dispatch.
func (f *Flag) Kind() Kind { return KindFlag }

// Value reports whether the flag is currently enabled, i.e. whether any
// enable dot has survived.
func (f *Flag) Value() interface{} {
	return len(f.enabled) > 0
}

// Query answers "value" (-> bool, same as Value) and "dot_length"
// (-> int, the number of surviving enable dots); any other query reports
// false.
func (f *Flag) Query(query string, _ ...interface{}) (interface{}, bool) {
	switch query {
	case "value":
		return f.Value(), true
	case "dot_length":
		return len(f.enabled), true
	default:
		return nil, false
	}
}

func (f *Flag) clone() *Flag {
	return &Flag{
		clock:   f.clock.Clone(),
		enabled: f.enabled.Clone(),
	}
}

// Enable returns a new Flag with a fresh enable dot allocated from src,
// added to the enabled set and folded into the clock. Enable never fails.
func (f *Flag) Enable(src Source) *Flag {
	w := f.clone()
	newClock, d := src.resolve(w.clock)
	w.clock = newClock
	w.enabled.Add(d)
	return w
}

// Disable returns a new Flag with the enabled set cleared. Disable does
// not bump the clock and does not allocate a dot: it is purely local
// evidence that this actor has seen the current enable dots.
// Convergence comes from the peer's clock subsuming those dots on the
// next merge, not from any new causal event Disable itself records.
func (f *Flag) Disable() *Flag {
	w := f.clone()
	w.enabled = NewDotSet()
	return w
}

// Merge combines f and other using the same drop-if-dominated rule
// ORSWOT applies to a single element's dot set: a dot survives unless
// the peer's clock has observed and (by omission) disabled it.
func (f *Flag) Merge(otherCRDT CRDT) CRDT {
	other, ok := otherCRDT.(*Flag)
	if !ok {
		return f.clone()
	}

	common := f.enabled.Intersect(other.enabled)
	lKeep := other.clock.SubtractDots(f.enabled.Minus(common))
	rKeep := f.clock.SubtractDots(other.enabled.Minus(common))

	return &Flag{
		clock:   f.clock.Merge(other.clock),
		enabled: common.Union(lKeep).Union(rKeep),
	}
}

// Equal reports whether f and other denote the same Flag state: equal
// clocks and equal enabled dot sets.
func (f *Flag) Equal(otherCRDT CRDT) bool {
	other, ok := otherCRDT.(*Flag)
	if !ok {
		return false
	}
	if !f.clock.Equal(other.clock) {
		return false
	}
	if len(f.enabled) != len(other.enabled) {
		return false
	}
	for d := range f.enabled {
		if !other.enabled.Has(d) {
			return false
		}
	}
	return true
}

// PreconditionContext returns the whole state.
func (f *Flag) PreconditionContext() CRDT {
	return f.clone()
}
