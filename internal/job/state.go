package job

// Stage names the step of the pipeline a job is in.
type Stage string

const (
	StagePending      Stage = "pending"
	StageFetching     Stage = "fetching"
	StageTranscribing Stage = "transcribing"
	StageWriting      Stage = "writing"
)

// State tracks each pipeline step for a single job.
type State string

const (
	StatePending      State = "pending"
	StateFetching     State = "fetching"
	StateTranscribing State = "transcribing"
	StateWriting      State = "writing"
	StateSucceeded    State = "succeeded"
	StateFailed       State = "failed"
	StateCancelled    State = "cancelled"
)

// Terminal reports whether no further transition is allowed from s.
func (s State) Terminal() bool {
	switch s {
	case StateSucceeded, StateFailed, StateCancelled:
		return true
	default:
		return false
	}
}

// Active reports whether s is a running stage.
func (s State) Active() bool {
	switch s {
	case StateFetching, StateTranscribing, StateWriting:
		return true
	default:
		return false
	}
}

// Stage maps a running state to its stage; non-running states map to pending.
func (s State) Stage() Stage {
	switch s {
	case StateFetching:
		return StageFetching
	case StateTranscribing:
		return StageTranscribing
	case StateWriting:
		return StageWriting
	default:
		return StagePending
	}
}

// ValidTransition enforces the allowed job state machine edges.
func ValidTransition(from, to State) bool {
	switch from {
	case StatePending:
		return to == StateFetching || to == StateCancelled
	case StateFetching:
		return to == StateTranscribing || to == StateWriting || to == StateFailed || to == StateCancelled
	case StateTranscribing:
		return to == StateWriting || to == StateFailed || to == StateCancelled
	case StateWriting:
		return to == StateSucceeded || to == StateFailed || to == StateCancelled
	default:
		return false
	}
}
