package operations

import (
	"sort"
	"sync"

	apperrors "clinicalqc/internal/errors"
	"clinicalqc/pkg/contracts/domain"
)

// DefaultRunHistory is how many runs a RunStore keeps
const DefaultRunHistory = 50

// RunStore keeps recent pipeline runs in memory
type RunStore struct {
	mu    sync.RWMutex
	runs  map[string]domain.PipelineRun
	order []string // oldest first
	limit int
}

// NewRunStore creates a store keeping at most limit runs; non-positive means DefaultRunHistory
func NewRunStore(limit int) *RunStore {
	if limit <= 0 {
		limit = DefaultRunHistory
	}
	return &RunStore{
		runs:  make(map[string]domain.PipelineRun),
		limit: limit,
	}
}

// Save stores or replaces a run, evicting the oldest when full
func (s *RunStore) Save(run domain.PipelineRun) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.runs[run.ID]; !exists {
		s.order = append(s.order, run.ID)
	}
	s.runs[run.ID] = run

	for len(s.order) > s.limit {
		delete(s.runs, s.order[0])
		s.order = s.order[1:]
	}
}

// Get retrieves a run by ID
func (s *RunStore) Get(id string) (domain.PipelineRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, exists := s.runs[id]
	if !exists {
		return domain.PipelineRun{}, apperrors.NewNotFoundError("run").WithContext("run_id", id)
	}
	return run, nil
}

// List returns stored runs, newest first
func (s *RunStore) List() []domain.PipelineRun {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.PipelineRun, 0, len(s.runs))
	for _, id := range s.order {
		out = append(out, s.runs[id])
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	return out
}

// Latest returns the most recently started run
func (s *RunStore) Latest() (domain.PipelineRun, bool) {
	runs := s.List()
	if len(runs) == 0 {
		return domain.PipelineRun{}, false
	}
	return runs[0], true
}
