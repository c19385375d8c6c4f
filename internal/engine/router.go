package engine

import (
	"hash/fnv"

	"matching-core/internal/matching"
)

// Router routes commands to shards based on book id
type Router struct {
	shardCount int
}

// NewRouter creates a new router with the specified shard count
func NewRouter(shardCount int) *Router {
	return &Router{
		shardCount: shardCount,
	}
}

// Route calculates the shard ID for a given book
// Uses FNV-1a hash for stable, deterministic routing
func (r *Router) Route(bookID matching.BookID) int {
	h := fnv.New32a()
	h.Write([]byte(bookID))
	return int(h.Sum32() % uint32(r.shardCount))
}
