// Package regime classifies months into macroeconomic regimes from the
// direction of each indicator relative to its trailing trend.
package regime

// Signal is a tri-state comparison outcome. Unknown never collapses to
// Down: every connective below follows three-valued (Kleene) logic.
type Signal int8

const (
	Unknown Signal = iota
	Up
	Down
)

func (s Signal) String() string {
	switch s {
	case Up:
		return "up"
	case Down:
		return "down"
	default:
		return "unknown"
	}
}

// Known reports whether s is Up or Down.
func (s Signal) Known() bool { return s != Unknown }

// Above compares value with its trend. Either side undefined yields Unknown.
func Above(value, trend *float64) Signal {
	if value == nil || trend == nil {
		return Unknown
	}
	if *value > *trend {
		return Up
	}
	return Down
}

// Not negates a known signal.
func Not(s Signal) Signal {
	switch s {
	case Up:
		return Down
	case Down:
		return Up
	default:
		return Unknown
	}
}

// And is Down if any operand is Down, Up if all are Up, Unknown otherwise.
func And(ss ...Signal) Signal {
	out := Up
	for _, s := range ss {
		switch s {
		case Down:
			return Down
		case Unknown:
			out = Unknown
		}
	}
	return out
}

// Or is Up if any operand is Up, Down if all are Down, Unknown otherwise.
func Or(ss ...Signal) Signal {
	out := Down
	for _, s := range ss {
		switch s {
		case Up:
			return Up
		case Unknown:
			out = Unknown
		}
	}
	return out
}
