package mystery_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"whodunit/internal/mystery"
)

func TestHistoryAppendOnly(t *testing.T) {
	h := mystery.NewHistory()
	require.Equal(t, 0, h.Len())

	first := h.Add("Where were you?", "In my room.", map[string]int{"Trust": 3})
	second := h.Add("Did you see anyone?", "No, I didn't.", map[string]int{"Trust": 2})

	require.Equal(t, 1, first.Ordinal)
	require.Equal(t, 2, second.Ordinal)
	require.Equal(t, 2, h.Len())

	records := h.Records()
	require.Len(t, records, 2)

	// Mutating the returned slice must not touch the history.
	records[0].Response = "tampered"
	require.Equal(t, "In my room.", h.Records()[0].Response)
}

func TestHistorySnapshotsAreCopies(t *testing.T) {
	h := mystery.NewHistory()
	traits := map[string]int{"Anxious": 2, "Trust": 4}
	h.Add("q", "a", traits)

	traits["Trust"] = 0
	require.Equal(t, 4, h.Records()[0].Traits["Trust"], "snapshot must not alias caller's map")
}

func TestBuildConversationContext(t *testing.T) {
	records := []mystery.InteractionRecord{
		{Ordinal: 1, Question: "Where were you?", Response: "In the library."},
	}

	ctx := mystery.BuildConversationContext(records, "Who else was there?")
	require.Contains(t, ctx, "DETECTIVE: Where were you?")
	require.Contains(t, ctx, "YOU: In the library.")
	require.Contains(t, ctx, "DETECTIVE: Who else was there?")

	require.Empty(t, mystery.BuildConversationContext(nil, ""))
}
