package playback

// State is the controller lifecycle state.
type State int

const (
	// StateIdle means there is no resource to play.
	StateIdle State = iota
	// StateAssembling means a new resource is being built.
	StateAssembling
	// StateReady means a resource is attached and seekable.
	StateReady
	// StatePlaying means the transport is running.
	StatePlaying
	// StatePaused means playback is stopped at CurrentTime.
	StatePaused
	// StateEnded is entered when the transport reaches the end. The
	// controller moves on to StatePaused at 0 immediately.
	StateEnded
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAssembling:
		return "assembling"
	case StateReady:
		return "ready"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// Seekable reports whether a resource is attached in this state.
func (s State) Seekable() bool {
	return s == StateReady || s == StatePlaying || s == StatePaused || s == StateEnded
}

type stateMachine struct {
	current     State
	transitions map[State][]State
	onEnter     map[State]func()
	onExit      map[State]func()
}

func newStateMachine() *stateMachine {
	return &stateMachine{
		current: StateIdle,
		transitions: map[State][]State{
			StateIdle:       {StateAssembling},
			StateAssembling: {StateAssembling, StateReady, StateIdle},
			StateReady:      {StatePlaying, StatePaused, StateAssembling, StateIdle},
			StatePlaying:    {StatePaused, StateEnded, StateAssembling, StateIdle},
			StatePaused:     {StatePlaying, StateAssembling, StateIdle},
			StateEnded:      {StatePaused, StateAssembling, StateIdle},
		},
		onEnter: make(map[State]func()),
		onExit:  make(map[State]func()),
	}
}

// transition moves to the given state if the edge exists. Re-entering the
// current state runs no callbacks.
func (sm *stateMachine) transition(to State) bool {
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
	if sm.current == to {
		return true
	}
	if fn := sm.onExit[sm.current]; fn != nil {
		fn()
	}
	sm.current = to
	if fn := sm.onEnter[to]; fn != nil {
		fn()
	}
	return true
}
