package engine

import (
	"sync"
	"time"

	"matching-core/internal/matching"
)

// IdempotencyKey scopes a client supplied key to one book and command type
type IdempotencyKey struct {
	ClientID       string
	BookID         matching.BookID
	CommandType    CommandType
	IdempotencyKey string
}

type idempotencyRecord struct {
	payloadHash string
	result      *CommandExecResult
	expiresAt   time.Time
}

// IdempotencyStore caches command results for a TTL
type IdempotencyStore struct {
	mu      sync.RWMutex
	records map[IdempotencyKey]idempotencyRecord
	ttl     time.Duration
	now     func() time.Time
}

// NewIdempotencyStore creates a new idempotency store
func NewIdempotencyStore(ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{
		records: make(map[IdempotencyKey]idempotencyRecord),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Check looks up a previous execution of key.
// Returns:
// - (nil, nil) if not seen or expired (should execute)
// - (result, nil) if seen with the same payload (replay the cached result)
// - (nil, ErrIdempotencyClash) if seen with a different payload
func (s *IdempotencyStore) Check(key IdempotencyKey, payloadHash string) (*CommandExecResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[key]
	if !ok || s.now().After(record.expiresAt) {
		return nil, nil
	}
	if record.payloadHash != payloadHash {
		return nil, ErrIdempotencyClash
	}
	return cloneCommandExecResult(record.result), nil
}

// Store remembers the result of key until the TTL elapses
func (s *IdempotencyStore) Store(key IdempotencyKey, payloadHash string, result *CommandExecResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[key] = idempotencyRecord{
		payloadHash: payloadHash,
		result:      cloneCommandExecResult(result),
		expiresAt:   s.now().Add(s.ttl),
	}
}

// Cleanup evicts expired records and returns how many were evicted
func (s *IdempotencyStore) Cleanup() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	evicted := 0
	for key, record := range s.records {
		if now.After(record.expiresAt) {
			delete(s.records, key)
			evicted++
		}
	}
	return evicted
}

// Size returns the number of cached records
func (s *IdempotencyStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
