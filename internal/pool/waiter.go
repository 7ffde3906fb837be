package pool

import "container/list"

// waiter is a single pending Acquire call, parked in a TargetedPool's
// pendingAcquirers queue. Delivery and cancellation race against each
// other; the delivered flag, set only under the pool's mutex, is what
// lets both sides agree on who won (grounded on the teacher's
// getWaitCh/notify handoff in internal/table/pool.go, adapted so a
// waiter's slot and its queue membership change atomically together).
type waiter struct {
	kind      Kind
	ch        chan *Session
	delivered bool
}

func newWaiter(kind Kind) *waiter {
	return &waiter{
		kind: kind,
		ch:   make(chan *Session, 1),
	}
}

// accepts reports whether a session of kind satisfies this waiter. A
// read-only request accepts either kind; a read-write request needs a
// read-write session (spec §3).
func (w *waiter) accepts(kind Kind) bool {
	return w.kind == ReadOnly || kind == ReadWrite
}

// deliverLocked hands s directly to the oldest compatible waiter in q,
// removing it from the queue. It must be called with the pool's mutex
// held. It reports whether a waiter accepted the session.
func deliverLocked(q *list.List, s *Session) bool {
	for e := q.Front(); e != nil; e = e.Next() {
		w, _ := e.Value.(*waiter)
		if w == nil || !w.accepts(s.Kind) {
			continue
		}
		q.Remove(e)
		w.delivered = true
		w.ch <- s // buffered 1, never blocks
		return true
	}
	return false
}

// removeLocked drops el from q if the waiter behind it has not yet been
// delivered a session. It reports whether the removal happened: false
// means a delivery already won the race and the caller should receive
// from the waiter's channel instead of giving up.
func removeLocked(q *list.List, el *list.Element, w *waiter) bool {
	if w.delivered {
		return false
	}
	q.Remove(el)
	return true
}
