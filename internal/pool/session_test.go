package pool

import "testing"

func TestSessionTransitionIllegal(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on illegal transition")
		}
	}()

	s := newSession("s1", ReadOnly)
	s.transition(StateDeleted) // creating -> deleted is not allowed
}

func TestSessionTransitionLegalPath(t *testing.T) {
	s := newSession("s1", ReadOnly)
	s.transition(StateIdle)
	s.transition(StateInUse)
	s.transition(StateRefreshing)
	s.transition(StateIdle)
	s.transition(StateEvicting)
	s.transition(StateDeleted)

	if s.state != StateDeleted {
		t.Fatalf("got state %s, want %s", s.state, StateDeleted)
	}
}

func TestWaiterAccepts(t *testing.T) {
	ro := newWaiter(ReadOnly)
	rw := newWaiter(ReadWrite)

	if !ro.accepts(ReadOnly) || !ro.accepts(ReadWrite) {
		t.Fatal("a read-only waiter must accept either kind")
	}
	if rw.accepts(ReadOnly) {
		t.Fatal("a read-write waiter must not accept a read-only session")
	}
	if !rw.accepts(ReadWrite) {
		t.Fatal("a read-write waiter must accept a read-write session")
	}
}
