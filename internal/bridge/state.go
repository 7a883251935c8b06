package bridge

// State is the loop's current phase.
type State int32

const (
	StateIdle State = iota
	StatePolling
	StateRouting
	StateDraining
	StateWaiting
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePolling:
		return "polling"
	case StateRouting:
		return "routing"
	case StateDraining:
		return "draining"
	case StateWaiting:
		return "waiting"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}
