package discovery

// State is the stage of a session's current or last fetch cycle.
type State int32

const (
	StateIdle State = iota
	StateResolvingLocation
	StateQueryingRemote
	StateNormalizing
	StateFallingBack
	StateRanking
	StateDone
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateResolvingLocation:
		return "resolving_location"
	case StateQueryingRemote:
		return "querying_remote"
	case StateNormalizing:
		return "normalizing"
	case StateFallingBack:
		return "falling_back"
	case StateRanking:
		return "ranking"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// MarshalText renders the state name in JSON.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
