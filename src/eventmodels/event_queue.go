package eventmodels

// EventQueue is a strict FIFO queue of pending events. Events appended while
// a drain is in progress are drained in the same simulated time step, which
// preserves same-step causal ordering: a market update can produce a fill,
// which can produce a portfolio change and a risk alert, all resolved before
// the next step's data arrives.
type EventQueue struct {
	events []Event
}

func NewEventQueue() *EventQueue {
	return &EventQueue{
		events: make([]Event, 0),
	}
}

// Enqueue appends an event to the tail of the queue.
func (q *EventQueue) Enqueue(event Event) {
	q.events = append(q.events, event)
}

// Dequeue removes and returns the head of the queue. The second return value
// is false when the queue is empty.
func (q *EventQueue) Dequeue() (Event, bool) {
	if len(q.events) == 0 {
		return nil, false
	}

	event := q.events[0]
	q.events = q.events[1:]
	return event, true
}

func (q *EventQueue) IsEmpty() bool {
	return len(q.events) == 0
}

func (q *EventQueue) Size() int {
	return len(q.events)
}
