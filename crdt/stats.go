package crdt

// Stat is one (key, value) pair of a CRDT's statistics, as returned by
// Stats.
type Stat struct {
	Key   string
	Value float64
}

// Stats returns the per-type statistics table for v:
//
//	ORSWOT: actor_count, element_count, max_dot_length
//	Flag:   actor_count, dot_length
//	Map:    actor_count, field_count, max_dot_length
//
// A fresh, empty Map returns nil rather than a table of zeros; ORSWOT and
// Flag always return their full table, even when empty.
func Stats(v CRDT) []Stat {
	switch s := v.(type) {
	case *ORSWOT:
		maxDots := 0
		for _, ds := range s.entries {
			if len(ds) > maxDots {
				maxDots = len(ds)
			}
		}
		return []Stat{
			{Key: "actor_count", Value: float64(len(s.clock))},
			{Key: "element_count", Value: float64(len(s.entries))},
			{Key: "max_dot_length", Value: float64(maxDots)},
		}
	case *Flag:
		return []Stat{
			{Key: "actor_count", Value: float64(len(s.clock))},
			{Key: "dot_length", Value: float64(len(s.enabled))},
		}
	case *Map:
		if len(s.entries) == 0 {
			return nil
		}
		perField := make(map[Field]int)
		for _, ev := range s.entries {
			perField[ev.Field]++
		}
		maxPerField := 0
		for _, n := range perField {
			if n > maxPerField {
				maxPerField = n
			}
		}
		return []Stat{
			{Key: "actor_count", Value: float64(len(s.clock))},
			{Key: "field_count", Value: float64(len(perField))},
			{Key: "max_dot_length", Value: float64(maxPerField)},
		}
	default:
		return nil
	}
}

// StatOf returns the value for key out of Stats(v), or false if Stats(v)
// has no such key (which, for an empty Map, is every key).
func StatOf(v CRDT, key string) (float64, bool) {
	for _, stat := range Stats(v) {
		if stat.Key == key {
			return stat.Value, true
		}
	}
	return 0, false
}
