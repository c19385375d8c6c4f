package engine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"matching-core/internal/logging"
	"matching-core/internal/matching"
)

// Engine manages multiple shards and routes commands to them
type Engine struct {
	router *Router
	shards []*Shard
	logger *zap.Logger
}

// EngineConfig holds configuration for the engine
type EngineConfig struct {
	ShardCount       int           // Number of shards (default: 8)
	QueueSize        int           // Command queue size per shard (default: 1000)
	IdempotencyTTL   time.Duration // Idempotency record TTL (default: 24h)
	SnapshotInterval int64         // Save a snapshot every N events; 0 disables

	Journal   Journal   // Optional
	Publisher Publisher // Optional
	Logger    *zap.Logger
}

// DefaultEngineConfig returns default engine configuration
func DefaultEngineConfig() *EngineConfig {
	return &EngineConfig{
		ShardCount:       8,
		QueueSize:        1000,
		IdempotencyTTL:   24 * time.Hour,
		SnapshotInterval: 1000,
	}
}

// NewEngine creates a new engine with the given configuration
func NewEngine(config *EngineConfig) *Engine {
	if config == nil {
		config = DefaultEngineConfig()
	}
	logger := logging.OrNop(config.Logger)

	router := NewRouter(config.ShardCount)

	deps := shardDeps{
		journal:          config.Journal,
		publisher:        config.Publisher,
		snapshotInterval: config.SnapshotInterval,
		logger:           logger,
	}
	shards := make([]*Shard, config.ShardCount)
	for i := 0; i < config.ShardCount; i++ {
		shards[i] = newShard(i, config.QueueSize, config.IdempotencyTTL, deps)
		shards[i].Start()
	}

	return &Engine{
		router: router,
		shards: shards,
		logger: logger,
	}
}

// Submit submits a command to the appropriate shard and returns the result
func (e *Engine) Submit(envelope *CommandEnvelope) *CommandExecResult {
	if envelope == nil {
		return failure(ErrorCodeInvalidArgument, fmt.Errorf("command envelope is nil"))
	}
	return e.shard(envelope.BookID).Submit(envelope)
}

// Books returns the current books of bookID
func (e *Engine) Books(bookID matching.BookID) (matching.Books, error) {
	result := e.Submit(&CommandEnvelope{CommandType: CommandTypeQuery, BookID: bookID})
	if result.Err != nil {
		return matching.Books{}, result.Err
	}
	return *result.Books, nil
}

// Restore installs already committed books, typically after recovery
func (e *Engine) Restore(books matching.Books) error {
	if !books.IsCreated() {
		return fmt.Errorf("cannot restore %s before creation", books.BookID)
	}
	return e.shard(books.BookID).restore(books)
}

// Recover restores every book the recoverer rebuilds
func (e *Engine) Recover(ctx context.Context, r Recoverer) error {
	all, err := r.RecoverAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to recover books: %w", err)
	}
	for _, books := range all {
		if err := e.Restore(books); err != nil {
			return err
		}
		e.logger.Info("book recovered",
			zap.String("book_id", string(books.BookID)),
			zap.Int64("last_event_id", int64(books.LastEventID())),
			zap.Int("resting_buy", books.BuyLimitBook.Len()),
			zap.Int("resting_sell", books.SellLimitBook.Len()),
		)
	}
	return nil
}

// Close stops every shard after draining queued commands
func (e *Engine) Close() {
	for _, shard := range e.shards {
		shard.Stop()
	}
}

// GetShardID returns the shard a book is routed to
func (e *Engine) GetShardID(bookID matching.BookID) int {
	return e.router.Route(bookID)
}

func (e *Engine) shard(bookID matching.BookID) *Shard {
	return e.shards[e.router.Route(bookID)]
}
