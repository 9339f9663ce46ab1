package crdt

import "testing"

// TestConvergenceBinaryRoundTripPreservesMerge executes a white-box unit
// test verifying that serializing both operands of a merge through
// ToBinary/FromBinary before merging produces the same result as merging
// the live values directly, for all three CRDT types.
func TestConvergenceBinaryRoundTripPreservesMerge(t *testing.T) {

	roundTrip := func(v CRDT) CRDT {
		blob, err := ToBinary(v)
		if err != nil {
			t.Fatalf("[crdt.TestConvergenceBinaryRoundTripPreservesMerge] Expected ToBinary to succeed but got: %v\n", err)
		}
		back, err := FromBinary(blob)
		if err != nil {
			t.Fatalf("[crdt.TestConvergenceBinaryRoundTripPreservesMerge] Expected FromBinary to succeed but got: %v\n", err)
		}
		return back
	}

	t.Run("orswot", func(t *testing.T) {
		a := NewORSWOT().Add("x", FromActor("a"))
		b := NewORSWOT().Add("y", FromActor("b"))
		if !a.Merge(b).Equal(roundTrip(a).Merge(roundTrip(b))) {
			t.Fatalf("[crdt.TestConvergenceBinaryRoundTripPreservesMerge] Expected ORSWOT merge to survive a round trip.\n")
		}
	})

	t.Run("flag", func(t *testing.T) {
		a := NewFlag().Enable(FromActor("a"))
		b := NewFlag().Enable(FromActor("b")).Disable()
		if !a.Merge(b).Equal(roundTrip(a).Merge(roundTrip(b))) {
			t.Fatalf("[crdt.TestConvergenceBinaryRoundTripPreservesMerge] Expected Flag merge to survive a round trip.\n")
		}
	})

	t.Run("map", func(t *testing.T) {
		f := Field{Name: "tags", Kind: KindORSWOT}
		a, _ := NewMap().Update([]MapOp{MapAdd(f), MapUpdate(f, ORSWOTFieldOp{Ops: []ORSWOTOp{AddOp("x")}})}, FromActor("a"))
		b, _ := NewMap().Update([]MapOp{MapAdd(f), MapUpdate(f, ORSWOTFieldOp{Ops: []ORSWOTOp{AddOp("y")}})}, FromActor("b"))
		if !a.Merge(b).Equal(roundTrip(a).Merge(roundTrip(b))) {
			t.Fatalf("[crdt.TestConvergenceBinaryRoundTripPreservesMerge] Expected Map merge to survive a round trip.\n")
		}
	})
}

// orswotReplica pairs a live ORSWOT with its reference model so a
// randomized sequence of operations can check both against each other
// at every step and after every merge.
type orswotReplica struct {
	actor Actor
	live  *ORSWOT
	model *orswotModel
}

func newORSWOTReplica(actor Actor) *orswotReplica {
	return &orswotReplica{actor: actor, live: NewORSWOT(), model: newORSWOTModel()}
}

func (r *orswotReplica) checkAgreement(t *testing.T, label string) {
	liveValue := make(map[Element]struct{})
	for _, e := range r.live.Value().([]Element) {
		liveValue[e] = struct{}{}
	}
	modelValue := r.model.value()

	if len(liveValue) != len(modelValue) {
		t.Fatalf("[crdt.TestConvergenceORSWOTReferenceModel] %s: live has %d elements, model has %d.\n", label, len(liveValue), len(modelValue))
	}
	for e := range modelValue {
		if _, ok := liveValue[e]; !ok {
			t.Fatalf("[crdt.TestConvergenceORSWOTReferenceModel] %s: model contains %q but live does not.\n", label, e)
		}
	}
}

// TestConvergenceORSWOTReferenceModel executes a fixed, deterministic
// sequence of adds, removes and merges across three replicas, checking at
// every step that the live ORSWOT's value agrees with the independent
// reference model built from first principles (the set of ever-added
// (element, id) pairs minus those since removed).
func TestConvergenceORSWOTReferenceModel(t *testing.T) {

	replicas := []*orswotReplica{
		newORSWOTReplica("r1"),
		newORSWOTReplica("r2"),
		newORSWOTReplica("r3"),
	}

	// A fixed, deterministic schedule; no PRNG is involved.
	type step struct {
		replica int
		op      string // "add", "remove", "merge"
		element Element
		with    int // merge partner, when op == "merge"
	}
	schedule := []step{
		{0, "add", "a", 0},
		{1, "add", "b", 0},
		{0, "merge", "", 1},
		{1, "merge", "", 0},
		{0, "remove", "a", 0},
		{1, "add", "a", 0},
		{2, "merge", "", 0},
		{2, "merge", "", 1},
		{0, "merge", "", 2},
		{1, "merge", "", 2},
		{2, "add", "c", 0},
		{2, "remove", "b", 0},
		{0, "merge", "", 2},
		{1, "add", "d", 0},
		{1, "remove", "d", 0},
		{2, "merge", "", 1},
	}

	for i, s := range schedule {
		r := replicas[s.replica]
		switch s.op {
		case "add":
			r.live = r.live.Add(s.element, FromActor(r.actor))
			r.model = r.model.add(s.element, string(r.actor))
		case "remove":
			if r.live.Contains(s.element) {
				removed, err := r.live.Remove(s.element)
				if err != nil {
					t.Fatalf("[crdt.TestConvergenceORSWOTReferenceModel] step %d: Remove(%q) failed but element was present: %v\n", i, s.element, err)
				}
				r.live = removed
				r.model = r.model.remove(s.element)
			}
		case "merge":
			other := replicas[s.with]
			r.live = r.live.Merge(other.live).(*ORSWOT)
			r.model = r.model.merge(other.model)
		}
		r.checkAgreement(t, "after step")
	}
}
