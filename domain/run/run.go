// Package run describes the outcome of a single document parse.
// All functions are pure - no side effects.
package run

import (
	"encoding/hex"
	"time"

	"golang.org/x/crypto/blake2b"
)

// Status is the outcome of a parse.
type Status string

const (
	StatusOK     Status = "ok"
	StatusFailed Status = "failed"
)

// SourceRequest marks documents that arrived over HTTP rather than from a file.
const SourceRequest = "request"

// Run is one ledger entry (immutable value type).
// It records what happened to a document, never the parsed tree.
type Run struct {
	ID        string
	Source    string // file path or "request"
	Digest    string // blake2b-256 of the document, hex
	Status    Status
	ErrorCode string
	Error     string
	WorldName string
	Elements  int
	Duration  time.Duration
	CreatedAt time.Time
}

// OK reports whether the parse produced a world.
func (r Run) OK() bool {
	return r.Status == StatusOK
}

// Digest returns the hex blake2b-256 sum of doc.
func Digest(doc []byte) string {
	sum := blake2b.Sum256(doc)
	return hex.EncodeToString(sum[:])
}

// Summary totals a set of runs.
type Summary struct {
	Total       int
	Failed      int
	Elements    int
	AvgDuration time.Duration
	ByCode      map[string]int
}

// Summarize combines runs into a summary.
// This is a PURE function.
func Summarize(runs []Run) Summary {
	s := Summary{ByCode: make(map[string]int)}
	if len(runs) == 0 {
		return s
	}

	var total time.Duration
	for _, r := range runs {
		s.Total++
		s.Elements += r.Elements
		total += r.Duration
		if !r.OK() {
			s.Failed++
			s.ByCode[r.ErrorCode]++
		}
	}
	s.AvgDuration = total / time.Duration(len(runs))
	return s
}
