package tts

import "sync"

// eventQueue delivers events to an utterance in order from a dedicated
// goroutine. Once closed, further pushes are dropped and the goroutine exits
// after draining what was already queued.
type eventQueue struct {
	u      *Utterance
	mu     sync.Mutex
	cond   *sync.Cond
	events []Event
	closed bool
}

func newEventQueue(u *Utterance) *eventQueue {
	q := &eventQueue{u: u}
	q.cond = sync.NewCond(&q.mu)
	go q.run()
	return q
}

func (q *eventQueue) push(e Event) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.events = append(q.events, e)
	q.cond.Signal()
}

// finish queues a final event and closes the queue.
func (q *eventQueue) finish(e Event) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.events = append(q.events, e)
	q.closed = true
	q.cond.Broadcast()
}

// discard closes the queue and drops anything not yet delivered.
func (q *eventQueue) discard() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.events = nil
	q.closed = true
	q.cond.Broadcast()
}

func (q *eventQueue) run() {
	for {
		q.mu.Lock()
		for len(q.events) == 0 && !q.closed {
			q.cond.Wait()
		}
		if len(q.events) == 0 {
			q.mu.Unlock()
			return
		}
		e := q.events[0]
		q.events = q.events[1:]
		q.mu.Unlock()

		q.u.emit(e)
	}
}
