// Package idgen provides run ID generators.
package idgen

import (
	"strconv"
	"sync/atomic"

	"github.com/artpar/worldgate/ports"
	"github.com/google/uuid"
)

// RunPrefix prefixes every generated run ID.
const RunPrefix = "run_"

// UUID generates time-ordered UUIDv7 IDs, so ledger keys sort by creation.
type UUID struct {
	Prefix string
}

// New generates a new ID. It falls back to a random v4 UUID if the
// v7 clock sequence cannot be read.
func (g UUID) New() string {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return g.Prefix + id.String()
}

// Ensure interface compliance.
var _ ports.IDGenerator = UUID{}

// Sequential generates sequential IDs (for testing).
type Sequential struct {
	prefix  string
	counter atomic.Uint64
}

// NewSequential creates a sequential ID generator.
func NewSequential(prefix string) *Sequential {
	return &Sequential{prefix: prefix}
}

// New generates the next sequential ID.
func (s *Sequential) New() string {
	return s.prefix + strconv.FormatUint(s.counter.Add(1), 10)
}

// Ensure interface compliance.
var _ ports.IDGenerator = (*Sequential)(nil)
