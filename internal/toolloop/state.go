package toolloop

// State is a phase of an orchestration session.
type State int

const (
	AwaitingResponse State = iota
	InspectingResponse
	ExecutingTools
	Done
	Failed
)

func (s State) String() string {
	switch s {
	case AwaitingResponse:
		return "awaiting_response"
	case InspectingResponse:
		return "inspecting_response"
	case ExecutingTools:
		return "executing_tools"
	case Done:
		return "done"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transitions can happen from s.
func (s State) Terminal() bool {
	return s == Done || s == Failed
}
