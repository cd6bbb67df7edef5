package formstate

// Snapshot maps field names to the values they held when a debounced save
// fired. Snapshots are rebuilt from live field state on every capture; they
// are never mutated in place once written to a store.
type Snapshot map[string]string

// Clone returns a detached copy so stored snapshots stay immutable even if
// the caller keeps mutating their reference.
func (s Snapshot) Clone() Snapshot {
	if s == nil {
		return nil
	}
	out := make(Snapshot, len(s))
	for name, value := range s {
		out[name] = value
	}
	return out
}

// Equal reports whether both snapshots hold the same fields and values.
func (s Snapshot) Equal(other Snapshot) bool {
	if len(s) != len(other) {
		return false
	}
	for name, value := range s {
		got, ok := other[name]
		if !ok || got != value {
			return false
		}
	}
	return true
}

// Merge layers s over defaults: explicit entries in s win, missing fields
// fall back to the default value. Neither input is mutated.
func (s Snapshot) Merge(defaults Snapshot) Snapshot {
	out := defaults.Clone()
	if out == nil {
		out = make(Snapshot, len(s))
	}
	for name, value := range s {
		out[name] = value
	}
	return out
}

func (s Snapshot) binding() map[string]any {
	out := make(map[string]any, len(s))
	for name, value := range s {
		out[name] = value
	}
	return out
}
