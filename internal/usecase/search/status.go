package search

// Status is the coordinator's execution state.
type Status int

// Execution states. Succeeded and Failed are recorded as the last outcome;
// the coordinator itself returns to Idle after every search.
const (
	StatusIdle Status = iota
	StatusSearching
	StatusSucceeded
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusSearching:
		return "searching"
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}
