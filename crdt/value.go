package crdt

// Kind identifies which concrete CRDT a Map field holds. The set of kinds
// is closed at build time; adding a new nested CRDT type means adding a
// case here and at every switch over Kind, not registering a plugin.
type Kind uint8

// Kinds of nested value a Map field may hold.
const (
	KindORSWOT Kind = iota + 1
	KindFlag
	KindMap
)

// String names a Kind for logs and error messages.
func (k Kind) String() string {
	switch k {
	case KindORSWOT:
		return "orswot"
	case KindFlag:
		return "flag"
	case KindMap:
		return "map"
	default:
		return "unknown"
	}
}

// Source supplies the second argument to an Update call: either an actor,
// in which case the CRDT allocates its own fresh dot, or a pre-stamped
// dot adopted verbatim. The latter is how a Map shares one causal dot
// across every sub-op of a batch with the nested CRDTs it touches.
type Source struct {
	Actor Actor
	Dot   *Dot
}

// FromActor builds a Source that asks the receiving CRDT to allocate its
// own fresh dot for actor.
func FromActor(actor Actor) Source {
	return Source{Actor: actor}
}

// FromDot builds a Source that asks the receiving CRDT to adopt d
// verbatim rather than allocate a new one.
func FromDot(d Dot) Source {
	return Source{Dot: &d}
}

// resolve returns the dot this Source names, allocating a fresh one from
// clock via actor if none was pre-stamped, and the clock that results
// from doing so.
func (s Source) resolve(clock VV) (VV, Dot) {
	if s.Dot != nil {
		return clock.Merge(VV{s.Dot.Actor: s.Dot.Counter}), *s.Dot
	}
	return clock.Increment(s.Actor)
}

// CRDT is the behavioural contract every value usable standalone or
// nested inside a Map satisfies. value is the Go type Value() returns;
// for ORSWOT it is map[string]struct{}{}'s key set as []string, for Flag
// it is bool, for Map it is []MapEntryValue.
type CRDT interface {
	// Kind reports which concrete CRDT this value is, for Map dispatch.
	Kind() Kind

	// Value returns this CRDT's domain-level value.
	Value() interface{}

	// Query answers a per-type question (e.g. "size", "contains") about
	// the current value. Unknown queries return (nil, false).
	Query(query string, args ...interface{}) (interface{}, bool)

	// Merge combines the receiver and other into a new value of the same
	// concrete type, following this package's CRDT merge rules. Merge
	// never fails, is commutative, associative and idempotent.
	Merge(other CRDT) CRDT

	// Equal reports whether the receiver and other denote the same state.
	Equal(other CRDT) bool

	// PreconditionContext returns a fragment of the receiver sufficient
	// for a remote client to construct a safe remove/update operation.
	PreconditionContext() CRDT
}

// Empty returns a freshly initialized, empty CRDT of the given kind. Map
// uses this to stamp a field's initial value on Add, and as the starting
// value when MapUpdate targets a field that has no surviving entry.
func Empty(k Kind) CRDT {
	switch k {
	case KindORSWOT:
		return NewORSWOT()
	case KindFlag:
		return NewFlag()
	case KindMap:
		return NewMap()
	default:
		panic("crdt: unknown kind")
	}
}

// FieldOp is one field-level sub-operation of a Map.Update batch, once a
// field's Kind has picked the concrete CRDT it applies to. The set of
// FieldOp implementations is closed: ORSWOTFieldOp, FlagFieldOp and
// MapFieldOp, one per Kind.
type FieldOp interface {
	// Kind reports which concrete CRDT this op applies to. Map.Update does
	// not compare it with the field's kind; an op applied to a field of
	// another kind panics in apply.
	Kind() Kind

	// apply invokes the wrapped sub-op(s) against value using src,
	// returning the updated value or the first error any sub-op reports.
	apply(value CRDT, src Source) (CRDT, error)
}

// ORSWOTFieldOp wraps a batch of ORSWOTOp sub-ops for use as a Map
// field's inner update.
type ORSWOTFieldOp struct{ Ops []ORSWOTOp }

// Kind reports KindORSWOT.
func (op ORSWOTFieldOp) Kind() Kind { return KindORSWOT }

func (op ORSWOTFieldOp) apply(value CRDT, src Source) (CRDT, error) {
	s, ok := value.(*ORSWOT)
	if !ok {
		panic("crdt: ORSWOTFieldOp applied to non-ORSWOT field")
	}
	return s.Update(op.Ops, src)
}

// FlagFieldOp wraps a single enable/disable sub-op for use as a Map
// field's inner update.
type FlagFieldOp struct{ Enable bool }

// Kind reports KindFlag.
func (op FlagFieldOp) Kind() Kind { return KindFlag }

func (op FlagFieldOp) apply(value CRDT, src Source) (CRDT, error) {
	f, ok := value.(*Flag)
	if !ok {
		panic("crdt: FlagFieldOp applied to non-Flag field")
	}
	if op.Enable {
		return f.Enable(src), nil
	}
	return f.Disable(), nil
}

// MapFieldOp wraps a batch of MapOp sub-ops for use as a Map field's
// inner update, nesting one Map inside another.
type MapFieldOp struct{ Ops []MapOp }

// Kind reports KindMap.
func (op MapFieldOp) Kind() Kind { return KindMap }

func (op MapFieldOp) apply(value CRDT, src Source) (CRDT, error) {
	m, ok := value.(*Map)
	if !ok {
		panic("crdt: MapFieldOp applied to non-Map field")
	}
	return m.Update(op.Ops, src)
}
