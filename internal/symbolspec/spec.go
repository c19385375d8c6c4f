package symbolspec

import (
	"fmt"
	"strings"
	"sync"
)

// MaxScale keeps 10^scale within int64
const MaxScale = 18

// Spec defines the decimal scales of a book. Prices and sizes travel through
// the core as integers in units of 10^-scale.
type Spec struct {
	BookID     string
	PriceScale int32
	SizeScale  int32
}

// Validate checks the scales
func (s Spec) Validate() error {
	if strings.TrimSpace(s.BookID) == "" {
		return fmt.Errorf("book id required")
	}
	if s.PriceScale < 0 || s.PriceScale > MaxScale || s.SizeScale < 0 || s.SizeScale > MaxScale {
		return fmt.Errorf("scales of %s must be within 0..%d", s.BookID, MaxScale)
	}
	return nil
}

// ParsePrice converts a decimal price string
func (s Spec) ParsePrice(value string) (int64, error) {
	return ParseScaledInt(value, s.PriceScale)
}

// ParseSize converts a decimal size string
func (s Spec) ParseSize(value string) (int64, error) {
	return ParseScaledInt(value, s.SizeScale)
}

func (s Spec) FormatPrice(v int64) string {
	return FormatScaledInt(v, s.PriceScale)
}

func (s Spec) FormatSize(v int64) string {
	return FormatScaledInt(v, s.SizeScale)
}

// Registry holds the specs of configured books. Books without an explicit
// spec use the fallback.
type Registry struct {
	mu       sync.RWMutex
	specs    map[string]Spec
	fallback Spec
}

// NewRegistry builds a registry; fallback scales apply to unknown books
func NewRegistry(fallback Spec, specs ...Spec) (*Registry, error) {
	r := &Registry{specs: make(map[string]Spec, len(specs)), fallback: fallback}
	for _, s := range specs {
		if err := r.Register(s); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds or replaces a spec
func (r *Registry) Register(s Spec) error {
	if err := s.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.specs[normalize(s.BookID)] = s
	return nil
}

// Get returns the spec of a book
func (r *Registry) Get(bookID string) Spec {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if s, ok := r.specs[normalize(bookID)]; ok {
		return s
	}
	s := r.fallback
	s.BookID = bookID
	return s
}

func normalize(bookID string) string {
	return strings.ToUpper(strings.TrimSpace(bookID))
}
