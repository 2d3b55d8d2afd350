package tts

// RunState represents the state of the conversion system.
type RunState int

const (
	// StateIdle indicates no model is loaded and nothing is running.
	StateIdle RunState = iota
	// StateLoading indicates the engine model is being loaded.
	StateLoading
	// StateReady indicates the model is loaded and a run can start.
	StateReady
	// StateRunning indicates the pipeline is converting jobs.
	StateRunning
	// StatePaused indicates the run is paused between chunks.
	StatePaused
	// StateStopping indicates a stop was requested and the in-flight
	// chunk is being wound down.
	StateStopping
	// StateError indicates the engine or pipeline hit a fatal error.
	StateError
)

// String returns the string representation of the state.
func (s RunState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	case StateStopping:
		return "stopping"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// CanStart reports whether a run can begin from this state.
func (s RunState) CanStart() bool { return s == StateReady }

// CanPause reports whether the run can be paused.
func (s RunState) CanPause() bool { return s == StateRunning }

// CanResume reports whether a paused run can continue.
func (s RunState) CanResume() bool { return s == StatePaused }

// CanStop reports whether a stop request is meaningful.
func (s RunState) CanStop() bool { return s == StateRunning || s == StatePaused }

// Active reports whether a run is in progress.
func (s RunState) Active() bool {
	return s == StateRunning || s == StatePaused || s == StateStopping
}

// StateMachine validates run state transitions.
type StateMachine struct {
	current     RunState
	transitions map[RunState][]RunState
	onEnter     map[RunState]func()
}

// NewStateMachine creates a state machine in the idle state with the
// valid transition table.
func NewStateMachine() *StateMachine {
	return &StateMachine{
		current: StateIdle,
		transitions: map[RunState][]RunState{
			StateIdle:     {StateLoading},
			StateLoading:  {StateReady, StateError},
			StateReady:    {StateRunning, StateLoading, StateIdle},
			StateRunning:  {StatePaused, StateStopping, StateReady, StateError},
			StatePaused:   {StateRunning, StateStopping},
			StateStopping: {StateReady, StateIdle},
			StateError:    {StateIdle, StateLoading},
		},
		onEnter: make(map[RunState]func()),
	}
}

// Transition attempts to move to the given state, returning false when
// the transition table forbids it.
func (sm *StateMachine) Transition(to RunState) bool {
	valid := false
	for _, s := range sm.transitions[sm.current] {
		if s == to {
			valid = true
			break
		}
	}
	if !valid {
		return false
	}

	sm.current = to
	if fn, ok := sm.onEnter[to]; ok && fn != nil {
		fn()
	}
	return true
}

// Current returns the current state.
func (sm *StateMachine) Current() RunState {
	return sm.current
}

// OnEnter registers a callback invoked after entering state.
func (sm *StateMachine) OnEnter(state RunState, fn func()) {
	sm.onEnter[state] = fn
}
