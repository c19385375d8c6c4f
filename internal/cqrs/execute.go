package cqrs

import "fmt"

// Execute decides cmd against aggregate and cascades the resulting events in FIFO
// order until no event produces further events.
//
// On a decision error the untouched aggregate is returned with the error. On an
// invariant violation during the cascade the untouched aggregate is returned as
// well; a partially applied snapshot never leaves this function.
func Execute[A Aggregate](cmd Command[A], aggregate A) (Result[A], error) {
	seed, err := cmd.Decide(aggregate)
	if err != nil {
		return Result[A]{Aggregate: aggregate}, err
	}
	if seed == nil {
		return Result[A]{Aggregate: aggregate}, Violation("decision produced no seed event")
	}
	if expected := aggregate.LastEventID().Next(); seed.EventID() != expected {
		return Result[A]{Aggregate: aggregate}, Violation("seed event id %d, expected %d", seed.EventID(), expected)
	}

	ids := NewSequence(seed.EventID())
	pending := []Event[A]{seed}
	committed := make([]Event[A], 0, 4)
	current := aggregate

	for len(pending) > 0 {
		evt := pending[0]
		pending = pending[1:]

		next, err := play(current, evt, ids)
		if err != nil {
			return Result[A]{Aggregate: aggregate}, err
		}

		current = next.Aggregate
		committed = append(committed, evt)
		pending = append(pending, next.Events...)
	}

	if current.LastEventID() != ids.Last() {
		return Result[A]{Aggregate: aggregate}, Violation("reserved event id %d was never applied", ids.Last())
	}

	return Result[A]{Events: committed, Aggregate: current}, nil
}

// Replay applies already committed events without deciding anything. Follow-on
// events are discarded because they are part of the log being replayed.
func Replay[A Aggregate](aggregate A, events []Event[A]) (A, error) {
	current := aggregate
	for _, evt := range events {
		next, err := play(current, evt, NewSequence(evt.EventID()))
		if err != nil {
			return aggregate, fmt.Errorf("replay event %d: %w", evt.EventID(), err)
		}
		current = next.Aggregate
	}
	return current, nil
}

func play[A Aggregate](current A, evt Event[A], ids *Sequence) (Transition[A], error) {
	if expected := current.LastEventID().Next(); evt.EventID() != expected {
		return Transition[A]{}, Violation("%s has event id %d, expected %d", evt.EventType(), evt.EventID(), expected)
	}

	next, err := evt.Play(current, ids)
	if err != nil {
		if IsInvariantViolation(err) {
			return Transition[A]{}, err
		}
		return Transition[A]{}, fmt.Errorf("%w: play %s: %v", ErrInvariantViolation, evt.EventType(), err)
	}

	if next.Aggregate.LastEventID() != evt.EventID() {
		return Transition[A]{}, Violation("%s left last event id at %d, expected %d",
			evt.EventType(), next.Aggregate.LastEventID(), evt.EventID())
	}

	return next, nil
}
