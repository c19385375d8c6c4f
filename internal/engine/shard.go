package engine

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"matching-core/internal/cqrs"
	"matching-core/internal/logging"
	"matching-core/internal/matching"
)

const defaultIdempotencyCleanupInterval = time.Minute

// Shard owns a disjoint set of books and applies their commands one at a time
type Shard struct {
	id        int
	cmdQueue  chan *commandRequest
	books     map[matching.BookID]matching.Books
	idemStore *IdempotencyStore

	journal          Journal
	publisher        Publisher
	snapshotInterval int64
	logger           *zap.Logger

	submitMu sync.RWMutex
	stopped  bool
	wg       sync.WaitGroup
}

// commandRequest wraps a command with a response channel
type commandRequest struct {
	envelope *CommandEnvelope
	restore  *matching.Books
	respChan chan *CommandExecResult
}

type shardDeps struct {
	journal          Journal
	publisher        Publisher
	snapshotInterval int64
	logger           *zap.Logger
}

// newShard creates a new shard
func newShard(id int, queueSize int, idemTTL time.Duration, deps shardDeps) *Shard {
	logger := logging.OrNop(deps.logger)
	return &Shard{
		id:               id,
		cmdQueue:         make(chan *commandRequest, queueSize),
		books:            make(map[matching.BookID]matching.Books),
		idemStore:        NewIdempotencyStore(idemTTL),
		journal:          deps.journal,
		publisher:        deps.publisher,
		snapshotInterval: deps.snapshotInterval,
		logger:           logger.With(zap.Int("shard", id)),
	}
}

// Start starts the shard's event loop in a goroutine
func (s *Shard) Start() {
	s.wg.Add(1)
	go s.eventLoop()
}

// Stop gracefully stops the shard event loop.
func (s *Shard) Stop() {
	s.submitMu.Lock()
	if s.stopped {
		s.submitMu.Unlock()
		return
	}
	s.stopped = true
	close(s.cmdQueue)
	s.submitMu.Unlock()

	s.wg.Wait()
}

// Submit submits a command to the shard and waits for the result
func (s *Shard) Submit(envelope *CommandEnvelope) *CommandExecResult {
	if envelope == nil {
		return failure(ErrorCodeInvalidArgument, fmt.Errorf("command envelope is nil"))
	}
	return s.send(&commandRequest{envelope: envelope})
}

// restore installs recovered books, replacing any books with the same id
func (s *Shard) restore(books matching.Books) error {
	return s.send(&commandRequest{restore: &books}).Err
}

func (s *Shard) send(req *commandRequest) *CommandExecResult {
	req.respChan = make(chan *CommandExecResult, 1)

	s.submitMu.RLock()
	if s.stopped {
		s.submitMu.RUnlock()
		return failure(ErrorCodeInternalError, ErrShardStopped)
	}
	s.cmdQueue <- req
	s.submitMu.RUnlock()
	return <-req.respChan
}

// eventLoop is the main event loop that processes commands serially
func (s *Shard) eventLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(defaultIdempotencyCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case req, ok := <-s.cmdQueue:
			if !ok {
				return
			}
			if req == nil {
				continue
			}
			if req.restore != nil {
				s.books[req.restore.BookID] = *req.restore
				req.respChan <- &CommandExecResult{Books: req.restore}
				continue
			}
			req.respChan <- s.processCommand(req.envelope)
		case <-ticker.C:
			if n := s.idemStore.Cleanup(); n > 0 {
				s.logger.Debug("idempotency records evicted", zap.Int("evicted", n))
			}
		}
	}
}

// processCommand processes a single command
func (s *Shard) processCommand(envelope *CommandEnvelope) *CommandExecResult {
	if envelope.CommandType == CommandTypeQuery {
		return s.query(envelope.BookID)
	}

	if envelope.IdempotencyKey == "" {
		return s.execute(envelope)
	}

	idemKey := IdempotencyKey{
		ClientID:       envelope.ClientID,
		BookID:         envelope.BookID,
		CommandType:    envelope.CommandType,
		IdempotencyKey: envelope.IdempotencyKey,
	}

	cachedResult, err := s.idemStore.Check(idemKey, envelope.PayloadHash)
	if err != nil {
		return failure(ErrorCodeDuplicateRequest, err)
	}
	if cachedResult != nil {
		return cachedResult
	}

	result := s.execute(envelope)

	// Internal failures commit nothing and may be retried under the same key
	if result.ErrorCode != ErrorCodeInternalError {
		s.idemStore.Store(idemKey, envelope.PayloadHash, result)
	}
	return result
}

func (s *Shard) query(bookID matching.BookID) *CommandExecResult {
	books, exists := s.books[bookID]
	if !exists {
		return failure(ErrorCodeBookNotFound, fmt.Errorf("%w: %s", ErrBookNotFound, bookID))
	}
	return &CommandExecResult{Books: &books}
}

// execute decides and cascades one command, then journals, snapshots and
// publishes the committed events
func (s *Shard) execute(envelope *CommandEnvelope) *CommandExecResult {
	if envelope.Payload == nil {
		return failure(ErrorCodeInvalidArgument, fmt.Errorf("missing payload for %s command", envelope.CommandType))
	}

	log := s.logger.With(
		zap.String("book_id", string(envelope.BookID)),
		zap.String("command_type", string(envelope.CommandType)),
		zap.String("command_id", envelope.CommandID),
	)

	current, exists := s.books[envelope.BookID]
	switch {
	case envelope.CommandType == CommandTypeCreateBooks && exists:
		return failure(ErrorCodeBookAlreadyExists, fmt.Errorf("%w: %s", ErrBookAlreadyExists, envelope.BookID))
	case envelope.CommandType == CommandTypeCreateBooks:
		current = matching.NewBooks(envelope.BookID)
	case !exists:
		return failure(ErrorCodeBookNotFound, fmt.Errorf("%w: %s", ErrBookNotFound, envelope.BookID))
	}

	result, err := cqrs.Execute[matching.Books](envelope.Payload, current)
	if err != nil {
		code := mapErrorCode(err)
		if cqrs.IsInvariantViolation(err) {
			log.Error("command aborted", zap.Bool("fatal", true), zap.Error(err))
		} else {
			log.Debug("command rejected", zap.String("error_code", string(code)), zap.Error(err))
		}
		return failure(code, err)
	}

	ctx := context.Background()
	if s.journal != nil {
		if err := s.journal.Append(ctx, envelope.BookID, result.Events); err != nil {
			log.Error("failed to journal events", zap.Int("events", len(result.Events)), zap.Error(err))
			return failure(ErrorCodeInternalError, fmt.Errorf("failed to journal events: %w", err))
		}
	}

	books := result.Aggregate
	s.books[envelope.BookID] = books
	log.Debug("command committed",
		zap.Int("events", len(result.Events)),
		zap.Int64("last_event_id", int64(books.LastEventID())),
	)

	if s.crossedSnapshotBoundary(current.LastEventID(), books.LastEventID()) {
		if err := s.journal.SaveSnapshot(ctx, books); err != nil {
			log.Warn("failed to save snapshot", zap.Error(err))
		}
	}

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, envelope.BookID, result.Events); err != nil {
			log.Error("failed to publish events", zap.Error(err))
		}
	}

	return &CommandExecResult{Events: result.Events, Books: &books}
}

func (s *Shard) crossedSnapshotBoundary(before, after cqrs.EventID) bool {
	if s.journal == nil || s.snapshotInterval <= 0 {
		return false
	}
	return int64(after)/s.snapshotInterval > int64(before)/s.snapshotInterval
}

func failure(code ErrorCode, err error) *CommandExecResult {
	return &CommandExecResult{ErrorCode: code, Err: err}
}

// mapErrorCode maps matching errors to error codes
func mapErrorCode(err error) ErrorCode {
	switch {
	case errors.Is(err, matching.ErrTradingNotAllowed):
		return ErrorCodeTradingNotAllowed
	case errors.Is(err, matching.ErrInvalidCommand):
		return ErrorCodeInvalidArgument
	case errors.Is(err, matching.ErrEntryNotFound):
		return ErrorCodeEntryNotFound
	case errors.Is(err, ErrBookNotFound):
		return ErrorCodeBookNotFound
	case errors.Is(err, ErrBookAlreadyExists):
		return ErrorCodeBookAlreadyExists
	case errors.Is(err, ErrIdempotencyClash):
		return ErrorCodeDuplicateRequest
	default:
		return ErrorCodeInternalError
	}
}

// ComputePayloadHash computes SHA256 hash of the payload
func ComputePayloadHash(payload any) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	hash := sha256.Sum256(data)
	return fmt.Sprintf("%x", hash), nil
}
