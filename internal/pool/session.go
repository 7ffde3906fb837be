package pool

import (
	"fmt"
	"time"
)

// State is a session's position in the state machine spec §4.1 defines:
//
//	creating -> idle | failed
//	idle     -> inUse | refreshing | evicting
//	inUse    -> idle | refreshing | evicting
//	refreshing -> idle | evicting
//	evicting -> deleted
type State uint8

const (
	StateCreating State = iota
	StateIdle
	StateInUse
	StateRefreshing
	StateEvicting
	StateDeleted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateCreating:
		return "creating"
	case StateIdle:
		return "idle"
	case StateInUse:
		return "in_use"
	case StateRefreshing:
		return "refreshing"
	case StateEvicting:
		return "evicting"
	case StateDeleted:
		return "deleted"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

var validTransitions = map[State]map[State]bool{
	StateCreating:   {StateIdle: true, StateFailed: true},
	StateIdle:       {StateInUse: true, StateRefreshing: true, StateEvicting: true},
	StateInUse:      {StateIdle: true, StateRefreshing: true, StateEvicting: true},
	StateRefreshing: {StateIdle: true, StateEvicting: true},
	StateEvicting:   {StateDeleted: true},
}

// Session is a single pooled server-side session, spec §3's data model.
// Every field is mutated only under the owning TargetedPool's mutex; a
// Session never locks itself.
type Session struct {
	Name string
	Kind Kind
	TxID string

	RefreshTime  time.Time
	EvictionTime time.Time

	state   State
	lastErr error
}

func newSession(name string, kind Kind) *Session {
	return &Session{
		Name:  name,
		Kind:  kind,
		state: StateCreating,
	}
}

// transition moves s to next, panicking if the move is not one spec §4.1
// allows. A panic here means the engine's own bookkeeping is broken, not
// that the caller did something wrong.
func (s *Session) transition(next State) {
	if !validTransitions[s.state][next] {
		panic(fmt.Sprintf("session pool: illegal session transition %s -> %s", s.state, next))
	}
	s.state = next
}
