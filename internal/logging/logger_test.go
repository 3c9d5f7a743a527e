package logging_test

import (
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"whodunit/internal/logging"
)

func newLogger(t *testing.T) *logging.InterrogationLogger {
	t.Helper()

	logger, err := logging.NewInterrogationLoggerAt(filepath.Join(t.TempDir(), "interrogations.db"))
	require.NoError(t, err)
	t.Cleanup(func() { logger.Close() })
	return logger
}

func findBySuspect(t *testing.T, logs []logging.InterrogationLog, suspect string) logging.InterrogationLog {
	t.Helper()

	for _, entry := range logs {
		if entry.Suspect == suspect {
			return entry
		}
	}
	t.Fatalf("no log entry for suspect %s", suspect)
	return logging.InterrogationLog{}
}

func TestLogAndRecentRoundTrip(t *testing.T) {
	t.Parallel()

	logger := newLogger(t)

	err := logger.Log("session-1", "James", "Where were you at midnight?",
		"You are James.", "In the study, reading.", logging.InterrogationMetadata{
			Model:        "gpt-4o-mini",
			MaxTokens:    300,
			Temperature:  0.9,
			ResponseTime: 1200 * time.Millisecond,
			Traits:       map[string]int{"Anxious": 3, "Moody": 2, "Trust": 4},
		})
	require.NoError(t, err)

	failure := "generation failed: service unavailable"
	err = logger.Log("session-1", "Emma", "Did you know the victim?",
		"You are Emma.", "I... I'm sorry, my head is spinning right now.", logging.InterrogationMetadata{
			Model:        "gpt-4o-mini",
			MaxTokens:    300,
			Temperature:  0.9,
			ResponseTime: 40 * time.Millisecond,
			Fallback:     true,
			Error:        &failure,
		})
	require.NoError(t, err)

	logs, err := logger.Recent(10)
	require.NoError(t, err)
	require.Len(t, logs, 2)

	james := findBySuspect(t, logs, "James")
	require.Equal(t, "session-1", james.SessionID)
	require.Equal(t, "Where were you at midnight?", james.Question)
	require.Equal(t, "You are James.", james.SystemPrompt)
	require.Equal(t, "In the study, reading.", james.Response)
	require.False(t, james.Timestamp.IsZero())
	require.Nil(t, james.Rating)
	require.Nil(t, james.Notes)

	var metadata logging.InterrogationMetadata
	require.NoError(t, json.Unmarshal([]byte(james.Metadata), &metadata))
	require.Equal(t, "gpt-4o-mini", metadata.Model)
	require.Equal(t, 300, metadata.MaxTokens)
	require.InDelta(t, 0.9, metadata.Temperature, 0.001)
	require.Equal(t, 1200*time.Millisecond, metadata.ResponseTime)
	require.Equal(t, map[string]int{"Anxious": 3, "Moody": 2, "Trust": 4}, metadata.Traits)
	require.False(t, metadata.Fallback)
	require.Nil(t, metadata.Error)

	emma := findBySuspect(t, logs, "Emma")
	require.NoError(t, json.Unmarshal([]byte(emma.Metadata), &metadata))
	require.True(t, metadata.Fallback)
	require.NotNil(t, metadata.Error)
	require.Contains(t, *metadata.Error, "service unavailable")
	require.Nil(t, metadata.Traits)
}

func TestRecentHonorsLimit(t *testing.T) {
	t.Parallel()

	logger := newLogger(t)

	for _, suspect := range []string{"James", "Emma", "Nick"} {
		err := logger.Log("session-1", suspect, "Anything to add?",
			"prompt", "Nothing.", logging.InterrogationMetadata{Model: "gpt-4o-mini"})
		require.NoError(t, err)
	}

	logs, err := logger.Recent(2)
	require.NoError(t, err)
	require.Len(t, logs, 2)
}

func TestRateSetsRatingAndClearsEmptyNotes(t *testing.T) {
	t.Parallel()

	logger := newLogger(t)

	err := logger.Log("session-1", "Nick", "What did you see?",
		"prompt", "Someone on the cellar stairs.", logging.InterrogationMetadata{Model: "gpt-4o-mini"})
	require.NoError(t, err)

	logs, err := logger.Recent(1)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	id := logs[0].ID

	require.NoError(t, logger.Rate(id, 4, "stayed in character under pressure"))

	logs, err = logger.Recent(1)
	require.NoError(t, err)
	require.NotNil(t, logs[0].Rating)
	require.Equal(t, 4, *logs[0].Rating)
	require.NotNil(t, logs[0].Notes)
	require.Equal(t, "stayed in character under pressure", *logs[0].Notes)

	require.NoError(t, logger.Rate(id, 2, ""))

	logs, err = logger.Recent(1)
	require.NoError(t, err)
	require.NotNil(t, logs[0].Rating)
	require.Equal(t, 2, *logs[0].Rating)
	require.Nil(t, logs[0].Notes)
}
