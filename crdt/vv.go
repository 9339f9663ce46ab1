package crdt

// Structs

// VV is a version vector: a mapping from actor to the highest update
// counter that actor is known to have issued. Semantically it stands for
// the downward-closed set of dots {(a, c) : 1 <= c <= VV[a]} for every
// actor a it mentions; an actor absent from VV has been observed zero
// times. At most one entry exists per actor.
type VV map[Actor]uint64

// Functions

// Fresh returns a new, empty version vector.
func Fresh() VV {
	return make(VV)
}

// Clone returns an independent copy of v.
func (v VV) Clone() VV {
	c := make(VV, len(v))
	for a, n := range v {
		c[a] = n
	}
	return c
}

// GetCounter returns actor's counter in v, or 0 if actor has never been
// observed.
func (v VV) GetCounter(actor Actor) uint64 {
	return v[actor]
}

// Increment returns a copy of v with actor's counter bumped by one (from
// 0 if actor was previously absent) and the dot that bump allocated.
func (v VV) Increment(actor Actor) (VV, Dot) {
	next := v.Clone()
	next[actor] = v[actor] + 1
	return next, Dot{Actor: actor, Counter: next[actor]}
}

// Merge returns the pointwise maximum of v and other over the union of
// their actor sets. Merge is commutative, associative and idempotent.
func (v VV) Merge(other VV) VV {
	out := v.Clone()
	for a, n := range other {
		if n > out[a] {
			out[a] = n
		}
	}
	return out
}

// DominatesDot reports whether v has observed d, i.e. v[d.Actor] >= d.Counter.
func (v VV) DominatesDot(d Dot) bool {
	return v[d.Actor] >= d.Counter
}

// Descends reports whether v has observed every dot implied by other: for
// every actor a with other[a] = c, v[a] >= c.
func (v VV) Descends(other VV) bool {
	for a, c := range other {
		if v[a] < c {
			return false
		}
	}
	return true
}

// DescendsDotSet reports whether v dominates every dot in ds.
func (v VV) DescendsDotSet(ds DotSet) bool {
	for d := range ds {
		if !v.DominatesDot(d) {
			return false
		}
	}
	return true
}

// Equal reports whether v and other have exactly the same actor set with
// exactly the same counter for each actor. Actors mapped to 0 are treated
// as absent, so a trailing zero entry does not break equality.
func (v VV) Equal(other VV) bool {
	for a, n := range v {
		if n == 0 {
			continue
		}
		if other[a] != n {
			return false
		}
	}
	for a, n := range other {
		if n == 0 {
			continue
		}
		if v[a] != n {
			return false
		}
	}
	return true
}

// SubtractDots returns exactly those dots in ds that v does not dominate.
func (v VV) SubtractDots(ds DotSet) DotSet {
	out := make(DotSet)
	for d := range ds {
		if !v.DominatesDot(d) {
			out[d] = struct{}{}
		}
	}
	return out
}
