package engine

import (
	"context"
	"errors"
	"time"

	"matching-core/internal/matching"
)

// CommandType represents the type of command
type CommandType string

const (
	CommandTypeCreateBooks           CommandType = "CREATE_BOOKS"
	CommandTypeUpdateTradingStatuses CommandType = "UPDATE_TRADING_STATUSES"
	CommandTypePlaceOrder            CommandType = "PLACE_ORDER"
	CommandTypeCancelOrder           CommandType = "CANCEL_ORDER"
	CommandTypePlaceMassQuote        CommandType = "PLACE_MASS_QUOTE"
	CommandTypeCancelMassQuote       CommandType = "CANCEL_MASS_QUOTE"
	CommandTypeQuery                 CommandType = "QUERY"
)

// CommandEnvelope wraps a command with metadata
type CommandEnvelope struct {
	CommandID      string           // Unique command ID
	CommandType    CommandType      // Kind of Payload
	IdempotencyKey string           // Idempotency key for deduplication (optional)
	BookID         matching.BookID  // Routing key
	ClientID       string           // Idempotency scope, usually the firm id
	PayloadHash    string           // Hash of payload for conflict detection
	Payload        matching.Command // Nil for QUERY
	CreatedAt      time.Time        // Command creation time
}

// ErrorCode represents command execution error codes
type ErrorCode string

const (
	ErrorCodeNone              ErrorCode = ""
	ErrorCodeDuplicateRequest  ErrorCode = "DUPLICATE_REQUEST"
	ErrorCodeInvalidArgument   ErrorCode = "INVALID_ARGUMENT"
	ErrorCodeTradingNotAllowed ErrorCode = "TRADING_NOT_ALLOWED"
	ErrorCodeEntryNotFound     ErrorCode = "ENTRY_NOT_FOUND"
	ErrorCodeBookNotFound      ErrorCode = "BOOK_NOT_FOUND"
	ErrorCodeBookAlreadyExists ErrorCode = "BOOK_ALREADY_EXISTS"
	ErrorCodeInternalError     ErrorCode = "INTERNAL_ERROR"
)

var (
	ErrBookNotFound      = errors.New("book not found")
	ErrBookAlreadyExists = errors.New("book already exists")
	ErrShardStopped      = errors.New("shard is stopped")
	ErrIdempotencyClash  = errors.New("idempotency key conflict: same key with different payload")
)

// CommandExecResult represents the result of command execution
type CommandExecResult struct {
	Events    []matching.Event // Committed events, in generation order
	Books     *matching.Books  // Books after the command; nil on failure
	ErrorCode ErrorCode        // Error code if execution failed
	Err       error            // Detailed error
}

// Journal makes committed events durable
type Journal interface {
	Append(ctx context.Context, bookID matching.BookID, events []matching.Event) error
	SaveSnapshot(ctx context.Context, books matching.Books) error
}

// Publisher delivers committed events downstream
type Publisher interface {
	Publish(ctx context.Context, bookID matching.BookID, events []matching.Event) error
}

// Recoverer rebuilds every journaled book
type Recoverer interface {
	RecoverAll(ctx context.Context) ([]matching.Books, error)
}
