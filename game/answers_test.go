package game

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitterfly/go-chaos/kategorie/schema"
)

func TestRecordAnswer_WriteOnce(t *testing.T) {
	round := schema.Round{}
	require.NoError(t, RecordAnswer(&round, "a", schema.Answers{"Miasto": " Kraków "}))

	err := RecordAnswer(&round, "a", schema.Answers{"Miasto": "Kalisz"})
	assert.ErrorIs(t, err, ErrDuplicateSubmission)
	assert.Equal(t, " Kraków ", round.Answers["a"]["Miasto"])
}

func TestRecordAnswer_CopiesInput(t *testing.T) {
	round := schema.Round{}
	answers := schema.Answers{"Miasto": "Kraków"}
	require.NoError(t, RecordAnswer(&round, "a", answers))

	answers["Miasto"] = "Kalisz"
	assert.Equal(t, "Kraków", round.Answers["a"]["Miasto"])
}

func TestRecordAnswer_EmptySubmissionCounts(t *testing.T) {
	round := schema.Round{}
	require.NoError(t, RecordAnswer(&round, "a", nil))
	assert.True(t, IsComplete(round, []string{"a"}, time.Now()))
}

func TestIsComplete(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	end := now.Add(time.Minute)
	round := schema.Round{
		EndTime: &end,
		Answers: schema.AnswerSheet{"a": {}},
	}

	assert.False(t, IsComplete(round, []string{"a", "b"}, now))
	assert.True(t, IsComplete(round, []string{"a"}, now))
	assert.True(t, IsComplete(round, []string{"a", "b"}, end))
	assert.False(t, IsComplete(round, nil, now))
	assert.True(t, IsComplete(round, nil, end.Add(time.Second)))
}
