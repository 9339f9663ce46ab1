package crdt

import "sort"

// Structs

// Field names one slot of a Map's schema: a field name paired with the
// kind of nested CRDT stored under it. A Map's schema is itself an
// observed-remove set of fields — there is no separate declaration step,
// a field exists exactly when at least one surviving entry names it.
type Field struct {
	Name string
	Kind Kind
}

// mapEntryValue is the payload half of a MapEntry; the dot that names the
// entry is its key in Map.entries.
type mapEntryValue struct {
	Field Field
	Value CRDT
}

// Map is a schema-free map whose keys are (field-name, type-tag) pairs
// and whose values are nested CRDTs sharing the Map's causal context.
// Entries are indexed by the single causal dot under which they were
// written; two entries may share a Field but never a dot.
type Map struct {
	clock   VV
	entries map[Dot]mapEntryValue
}

// MapEntryValue is one field's resolved value, as returned by Value().
type MapEntryValue struct {
	Field Field
	Value interface{}
}

// Functions

// NewMap returns an empty Map with a fresh clock.
func NewMap() *Map {
	return &Map{
		clock:   Fresh(),
		entries: make(map[Dot]mapEntryValue),
	}
}

// Kind identifies this value as a Map for Map-of-Map dispatch.
func (m *Map) Kind() Kind { return KindMap }

func (m *Map) clone() *Map {
	c := &Map{
		clock:   m.clock.Clone(),
		entries: make(map[Dot]mapEntryValue, len(m.entries)),
	}
	for d, ev := range m.entries {
		c.entries[d] = ev
	}
	return c
}

// sortedEntries returns m's entries ordered by (field name, field kind,
// dot actor, dot counter) for deterministic iteration.
func (m *Map) sortedEntries() []struct {
	Dot   Dot
	Entry mapEntryValue
} {
	out := make([]struct {
		Dot   Dot
		Entry mapEntryValue
	}, 0, len(m.entries))
	for d, ev := range m.entries {
		out = append(out, struct {
			Dot   Dot
			Entry mapEntryValue
		}{d, ev})
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Entry.Field.Name != b.Entry.Field.Name {
			return a.Entry.Field.Name < b.Entry.Field.Name
		}
		if a.Entry.Field.Kind != b.Entry.Field.Kind {
			return a.Entry.Field.Kind < b.Entry.Field.Kind
		}
		if a.Dot.Actor != b.Dot.Actor {
			return a.Dot.Actor < b.Dot.Actor
		}
		return a.Dot.Counter < b.Dot.Counter
	})
	return out
}

// Value groups surviving entries by field and, for each field, folds the
// nested CRDT merge over every surviving version to obtain one resolved
// inner value. The result is sorted by field name then kind.
func (m *Map) Value() interface{} {
	type acc struct {
		field Field
		value CRDT
	}
	byField := make(map[Field]*acc)
	order := make([]Field, 0)

	for _, se := range m.sortedEntries() {
		f := se.Entry.Field
		a, ok := byField[f]
		if !ok {
			a = &acc{field: f, value: se.Entry.Value}
			byField[f] = a
			order = append(order, f)
		} else {
			a.value = a.value.Merge(se.Entry.Value)
		}
	}

	sort.Slice(order, func(i, j int) bool {
		if order[i].Name != order[j].Name {
			return order[i].Name < order[j].Name
		}
		return order[i].Kind < order[j].Kind
	})

	out := make([]MapEntryValue, 0, len(order))
	for _, f := range order {
		out = append(out, MapEntryValue{Field: f, Value: byField[f].value.Value()})
	}
	return out
}

// Get returns the resolved nested CRDT for field (the fold of every
// surviving entry's value for that field), or nil if field is absent.
func (m *Map) Get(field Field) CRDT {
	var folded CRDT
	for _, ev := range m.entries {
		if ev.Field != field {
			continue
		}
		if folded == nil {
			folded = ev.Value
		} else {
			folded = folded.Merge(ev.Value)
		}
	}
	return folded
}

// Query answers "field_count" (-> int) and "has_field" (-> bool, given a
// Field argument); any other query reports false.
func (m *Map) Query(query string, args ...interface{}) (interface{}, bool) {
	switch query {
	case "field_count":
		fields := make(map[Field]struct{})
		for _, ev := range m.entries {
			fields[ev.Field] = struct{}{}
		}
		return len(fields), true
	case "has_field":
		if len(args) != 1 {
			return nil, false
		}
		f, ok := args[0].(Field)
		if !ok {
			return nil, false
		}
		return m.Get(f) != nil, true
	default:
		return nil, false
	}
}

// removeField deletes every entry naming field from w, returning the
// number removed.
func (w *Map) removeField(field Field) int {
	n := 0
	for d, ev := range w.entries {
		if ev.Field == field {
			delete(w.entries, d)
			n++
		}
	}
	return n
}

// MapOp is one sub-operation of a batched Map.Update call.
type MapOp interface {
	apply(w *Map, d Dot) error
}

type mapAddOp struct{ Field Field }

// MapAdd does not read existing entries for Field: it unconditionally
// stamps a fresh, empty value under the batch's dot and discards any
// prior entries for Field. This mirrors the destructive "add" of the
// reference implementation this type is modeled on; it is deliberately
// not "add-if-absent".
func MapAdd(field Field) MapOp { return mapAddOp{Field: field} }

func (op mapAddOp) apply(w *Map, d Dot) error {
	w.removeField(op.Field)
	w.entries[d] = mapEntryValue{Field: op.Field, Value: Empty(op.Field.Kind)}
	return nil
}

type mapRemoveOp struct{ Field Field }

// MapRemove drops every entry naming field.
func MapRemove(field Field) MapOp { return mapRemoveOp{Field: field} }

func (op mapRemoveOp) apply(w *Map, _ Dot) error {
	if w.removeField(op.Field) == 0 {
		return wrapNotPresent(op.Field.Name)
	}
	return nil
}

type mapUpdateOp struct {
	Field Field
	Inner FieldOp
}

// MapUpdate merges every existing value for field into one working
// value, applies inner to it under the batch's shared dot, and replaces
// all prior entries for field with the single resulting entry.
func MapUpdate(field Field, inner FieldOp) MapOp {
	return mapUpdateOp{Field: field, Inner: inner}
}

func (op mapUpdateOp) apply(w *Map, d Dot) error {
	working := w.Get(op.Field)
	if working == nil {
		working = Empty(op.Field.Kind)
	}

	updated, err := op.Inner.apply(working, FromDot(d))
	if err != nil {
		return err
	}

	w.removeField(op.Field)
	w.entries[d] = mapEntryValue{Field: op.Field, Value: updated}
	return nil
}

// Update atomically applies ops, in order, all sharing one causal dot: a
// fresh dot allocated from src (or the pre-stamped dot src names, merged
// into the clock), exactly as Map.Update's outer step computes once per
// batch. On the first sub-op error, the whole batch is abandoned: nil is
// returned together with that error, and m is left unchanged.
func (m *Map) Update(ops []MapOp, src Source) (*Map, error) {
	newClock, d := src.resolve(m.clock)

	w := m.clone()
	w.clock = newClock

	for _, op := range ops {
		if err := op.apply(w, d); err != nil {
			return nil, err
		}
	}
	return w, nil
}

// Merge combines m and other: an entry present on one side only survives
// unless the other side's clock dominates its dot (meaning the other
// side has already replaced or removed that version); entries whose dot
// appears on both sides are kept as-is, since identical dots always
// carry identical payloads by construction. Merge is commutative,
// associative and idempotent.
func (m *Map) Merge(otherCRDT CRDT) CRDT {
	other, ok := otherCRDT.(*Map)
	if !ok {
		return m.clone()
	}

	merged := make(map[Dot]mapEntryValue, len(m.entries)+len(other.entries))
	matchedRight := make(map[Dot]struct{}, len(m.entries))

	for d, ev := range m.entries {
		if rev, ok := other.entries[d]; ok {
			merged[d] = rev
			matchedRight[d] = struct{}{}
			continue
		}
		if other.clock.DominatesDot(d) {
			continue
		}
		merged[d] = ev
	}

	for d, rev := range other.entries {
		if _, ok := matchedRight[d]; ok {
			continue
		}
		if m.clock.DominatesDot(d) {
			continue
		}
		merged[d] = rev
	}

	return &Map{
		clock:   m.clock.Merge(other.clock),
		entries: merged,
	}
}

// Equal reports whether m and other denote the same Map state: equal
// clocks, and sorted entry lists equal pairwise on (field, dot) with
// inner CRDTs equal via each field's own Equal.
func (m *Map) Equal(otherCRDT CRDT) bool {
	other, ok := otherCRDT.(*Map)
	if !ok {
		return false
	}
	if !m.clock.Equal(other.clock) {
		return false
	}
	if len(m.entries) != len(other.entries) {
		return false
	}
	a, b := m.sortedEntries(), other.sortedEntries()
	for i := range a {
		if a[i].Dot != b[i].Dot {
			return false
		}
		if a[i].Entry.Field != b[i].Entry.Field {
			return false
		}
		if !a[i].Entry.Value.Equal(b[i].Entry.Value) {
			return false
		}
	}
	return true
}

// PreconditionContext returns the whole state.
func (m *Map) PreconditionContext() CRDT {
	return m.clone()
}
