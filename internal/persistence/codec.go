package persistence

import (
	"encoding/json"
	"fmt"

	"matching-core/internal/matching"
)

const recordVersion = 1

// EncodeEvent wraps an event into a versioned record and marshals it
func EncodeEvent(bookID matching.BookID, event matching.Event) ([]byte, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", event.EventType(), err)
	}
	data, err := json.Marshal(EventRecord{
		Version: recordVersion,
		BookID:  bookID,
		EventID: event.EventID(),
		Type:    event.EventType(),
		Payload: payload,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event record: %w", err)
	}
	return data, nil
}

// DecodeEvent unmarshals a record produced by EncodeEvent
func DecodeEvent(data []byte) (matching.Event, error) {
	var record EventRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event record: %w", err)
	}
	if record.Version != recordVersion {
		return nil, fmt.Errorf("unsupported event record version %d", record.Version)
	}

	event, err := newEvent(record.Type)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(record.Payload, event); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s: %w", record.Type, err)
	}
	if event.EventID() != record.EventID {
		return nil, fmt.Errorf("%s record id %d carries payload id %d", record.Type, record.EventID, event.EventID())
	}
	return event, nil
}

func newEvent(eventType string) (matching.Event, error) {
	switch eventType {
	case matching.EventTypeBooksCreated:
		return &matching.BooksCreatedEvent{}, nil
	case matching.EventTypeTradingStatusesUpdated:
		return &matching.TradingStatusesUpdatedEvent{}, nil
	case matching.EventTypeOrderPlaced:
		return &matching.OrderPlacedEvent{}, nil
	case matching.EventTypeOrderCancelled:
		return &matching.OrderCancelledEvent{}, nil
	case matching.EventTypeEntryAddedToBook:
		return &matching.EntryAddedToBookEvent{}, nil
	case matching.EventTypeTrade:
		return &matching.TradeEvent{}, nil
	case matching.EventTypeMassQuotePlaced:
		return &matching.MassQuotePlacedEvent{}, nil
	case matching.EventTypeMassQuoteCancelled:
		return &matching.MassQuoteCancelledEvent{}, nil
	default:
		return nil, fmt.Errorf("unknown event type: %s", eventType)
	}
}
