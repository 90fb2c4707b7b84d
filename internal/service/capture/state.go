package capture

import "fmt"

// State is the lifecycle state of a capture session.
type State int

const (
	// Idle: no frame source active, no detections.
	Idle State = iota
	// Running: frame source active and detections accepted.
	Running
	// Stopped: frame source released and detections cleared.
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Stopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// MarshalText renders the state by name in JSON payloads.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a state name written by MarshalText.
func (s *State) UnmarshalText(text []byte) error {
	switch string(text) {
	case "idle":
		*s = Idle
	case "running":
		*s = Running
	case "stopped":
		*s = Stopped
	default:
		return fmt.Errorf("unknown session state %q", text)
	}
	return nil
}
