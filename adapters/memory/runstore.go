// Package memory provides in-memory implementations for testing and for
// one-shot CLI runs that should leave no ledger behind.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/artpar/worldgate/core/errors"
	"github.com/artpar/worldgate/domain/run"
	"github.com/artpar/worldgate/ports"
)

// RunStore is an in-memory implementation of ports.RunStore.
type RunStore struct {
	mu   sync.RWMutex
	runs map[string]run.Run // by ID
}

// NewRunStore creates a new in-memory run store.
func NewRunStore() *RunStore {
	return &RunStore{
		runs: make(map[string]run.Run),
	}
}

// Create stores a new run.
func (s *RunStore) Create(ctx context.Context, r run.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.runs[r.ID]; ok {
		return errors.New(errors.CodeInvalidState, "run %s already recorded", r.ID)
	}
	s.runs[r.ID] = r
	return nil
}

// Get retrieves a run by ID.
func (s *RunStore) Get(ctx context.Context, id string) (run.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.runs[id]
	if !ok {
		return run.Run{}, errors.New(errors.CodeNotFound, "run %s not found", id)
	}
	return r, nil
}

// List returns the most recent runs, newest first.
func (s *RunStore) List(ctx context.Context, limit int) ([]run.Run, error) {
	return s.filter(limit, func(run.Run) bool { return true }), nil
}

// ListBySource returns the most recent runs for one document.
func (s *RunStore) ListBySource(ctx context.Context, source string, limit int) ([]run.Run, error) {
	return s.filter(limit, func(r run.Run) bool { return r.Source == source }), nil
}

// DeleteBefore removes runs created before t.
func (s *RunStore) DeleteBefore(ctx context.Context, t time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for id, r := range s.runs {
		if r.CreatedAt.Before(t) {
			delete(s.runs, id)
			n++
		}
	}
	return n, nil
}

// Len returns the number of stored runs.
func (s *RunStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.runs)
}

func (s *RunStore) filter(limit int, keep func(run.Run) bool) []run.Run {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []run.Run
	for _, r := range s.runs {
		if keep(r) {
			result = append(result, r)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result
}

// Ensure interface compliance.
var _ ports.RunStore = (*RunStore)(nil)
