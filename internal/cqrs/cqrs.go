// Package cqrs is the event-sourcing kernel: a command is decided into one seed
// event, and events are played against the aggregate until none remain.
package cqrs

// EventID is the position of an event within one aggregate's history.
type EventID int64

// Next returns the id that directly follows id.
func (id EventID) Next() EventID {
	return id + 1
}

// Aggregate is anything that tracks the id of the last event applied to it.
type Aggregate interface {
	LastEventID() EventID
}

// Event is an immutable fact about an aggregate.
//
// Play applies the event to the aggregate and returns the new snapshot together
// with any follow-on events. Follow-on events must take their ids from ids, in the
// order they are returned.
type Event[A Aggregate] interface {
	EventID() EventID
	EventType() string
	Play(aggregate A, ids *Sequence) (Transition[A], error)
}

// Transition is the outcome of playing a single event.
type Transition[A Aggregate] struct {
	Aggregate A
	Events    []Event[A]
}

// Command is a request that is decided against the current snapshot. A successful
// decision yields exactly one seed event stamped with LastEventID()+1.
type Command[A Aggregate] interface {
	Decide(aggregate A) (Event[A], error)
}

// Result is the committed outcome of executing a command.
type Result[A Aggregate] struct {
	Events    []Event[A]
	Aggregate A
}

// Sequence hands out consecutive event ids.
type Sequence struct {
	last EventID
}

// NewSequence creates a sequence whose first Next() returns last+1.
func NewSequence(last EventID) *Sequence {
	return &Sequence{last: last}
}

// Next reserves and returns the next id.
func (s *Sequence) Next() EventID {
	s.last++
	return s.last
}

// Peek returns the id Next would return without reserving it.
func (s *Sequence) Peek() EventID {
	return s.last + 1
}

// Last returns the last reserved id.
func (s *Sequence) Last() EventID {
	return s.last
}
