package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerationJobClone(t *testing.T) {
	now := time.Now()
	job := &GenerationJob{
		ID:          uuid.New(),
		Status:      JobStatusRunning,
		Progress:    1,
		Total:       3,
		Results:     []EnrichmentResult{NewSuccessResult(uuid.Nil, 0, []FieldValue{{Name: "name", Value: "Acme"}}, nil)},
		CompletedAt: &now,
	}

	cp := job.Clone()

	require.Equal(t, job.ID, cp.ID)
	require.Len(t, cp.Results, 1)

	// Mutating the clone leaves the original alone.
	cp.Results[0].Success = false
	cp.Results = append(cp.Results, NewFailedResult(uuid.Nil, 1, "boom"))
	*cp.CompletedAt = now.Add(time.Hour)

	assert.True(t, job.Results[0].Success)
	assert.Len(t, job.Results, 1)
	assert.True(t, job.CompletedAt.Equal(now))
}

func TestTerminal(t *testing.T) {
	assert.False(t, (&GenerationJob{Status: JobStatusPending}).Terminal())
	assert.False(t, (&GenerationJob{Status: JobStatusRunning}).Terminal())
	assert.True(t, (&GenerationJob{Status: JobStatusCompleted}).Terminal())
	assert.True(t, (&GenerationJob{Status: JobStatusFailed}).Terminal())
}

func TestConversationStateClone(t *testing.T) {
	state := &ConversationState{
		SessionID:     "s1",
		Phase:         PhaseAwaitingRowCount,
		Columns:       []Column{{Name: "name"}},
		Transcript:    []TranscriptEntry{{Role: "assistant", Content: "hi"}},
		TargetColumns: []string{"name"},
		SlotAttempts:  map[string]int{"rowCount": 1},
	}

	cp := state.Clone()
	cp.Transcript = append(cp.Transcript, TranscriptEntry{Role: "user", Content: "20"})
	cp.TargetColumns[0] = "email"
	cp.SlotAttempts["rowCount"] = 5

	assert.Len(t, state.Transcript, 1)
	assert.Equal(t, "name", state.TargetColumns[0])
	assert.Equal(t, 1, state.SlotAttempts["rowCount"])
}
