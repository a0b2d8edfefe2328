package plugin

// State is the request-scoped lifecycle state of a plugin instance.
type State int

const (
	StateConstructed State = iota // Built, InitRequest not yet called
	StateActive                   // InitRequest kept it
	StateInactive                 // InitRequest returned false
	StateFailed                   // InitRequest returned an error
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateConstructed:
		return "constructed"
	case StateActive:
		return "active"
	case StateInactive:
		return "inactive"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Participates reports whether hooks of a plugin in this state run.
func (s State) Participates() bool {
	return s == StateActive
}
