package operations

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "clinicalqc/internal/errors"
	"clinicalqc/pkg/contracts/domain"
)

func TestRunStore(t *testing.T) {
	s := NewRunStore(2)
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		s.Save(domain.PipelineRun{ID: fmt.Sprintf("run-%d", i), StartedAt: base.Add(time.Duration(i) * time.Minute)})
	}

	_, err := s.Get("run-0")
	require.Error(t, err, "oldest run is evicted")
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeNotFound))

	runs := s.List()
	require.Len(t, runs, 2)
	assert.Equal(t, "run-2", runs[0].ID)
	assert.Equal(t, "run-1", runs[1].ID)

	latest, ok := s.Latest()
	require.True(t, ok)
	assert.Equal(t, "run-2", latest.ID)
}

func TestRunStore_SaveReplaces(t *testing.T) {
	s := NewRunStore(0)
	s.Save(domain.PipelineRun{ID: "x"})
	s.Save(domain.PipelineRun{ID: "x", Workbook: "book.xlsx"})

	assert.Len(t, s.List(), 1)
	got, err := s.Get("x")
	require.NoError(t, err)
	assert.Equal(t, "book.xlsx", got.Workbook)

	_, ok := NewRunStore(1).Latest()
	assert.False(t, ok)
}
