package crdt

import "strconv"

// orswotModel is an independent reference model for ORSWOT: A is the set
// of (element, unique id) pairs ever added, and R is the
// subset of A whose pairs have since been removed. Value() is the set of
// elements with at least one pair in A that is not also in R.
//
// This is test-only scaffolding, not part of the library's public
// surface: it exists purely so the convergence test has
// something independent of the ORSWOT implementation to check against.
type orswotModel struct {
	nextID int
	added  map[[2]string]struct{} // (element, id) pairs ever added
	removed map[[2]string]struct{} // the subset of added that was removed
}

func newORSWOTModel() *orswotModel {
	return &orswotModel{
		added:   make(map[[2]string]struct{}),
		removed: make(map[[2]string]struct{}),
	}
}

func (m *orswotModel) clone() *orswotModel {
	c := &orswotModel{
		nextID:  m.nextID,
		added:   make(map[[2]string]struct{}, len(m.added)),
		removed: make(map[[2]string]struct{}, len(m.removed)),
	}
	for k := range m.added {
		c.added[k] = struct{}{}
	}
	for k := range m.removed {
		c.removed[k] = struct{}{}
	}
	return c
}

func (m *orswotModel) add(e Element, idSeed string) *orswotModel {
	c := m.clone()
	c.nextID++
	c.added[[2]string{e, idSeed + "#" + strconv.Itoa(c.nextID)}] = struct{}{}
	return c
}

// remove moves every currently-in pair for e (present in added, absent
// from removed) into removed. It is a no-op if e has no such pair,
// mirroring the fact that the real ORSWOT fails instead; callers that
// want to test the failure path check Contains first.
func (m *orswotModel) remove(e Element) *orswotModel {
	c := m.clone()
	for k := range c.added {
		if k[0] != e {
			continue
		}
		if _, removed := c.removed[k]; removed {
			continue
		}
		c.removed[k] = struct{}{}
	}
	return c
}

func (m *orswotModel) merge(other *orswotModel) *orswotModel {
	c := m.clone()
	for k := range other.added {
		c.added[k] = struct{}{}
	}
	for k := range other.removed {
		c.removed[k] = struct{}{}
	}
	return c
}

func (m *orswotModel) value() map[Element]struct{} {
	out := make(map[Element]struct{})
	for k := range m.added {
		if _, removed := m.removed[k]; removed {
			continue
		}
		out[k[0]] = struct{}{}
	}
	return out
}

func (m *orswotModel) contains(e Element) bool {
	_, ok := m.value()[e]
	return ok
}
