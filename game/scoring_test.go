package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/bitterfly/go-chaos/kategorie/schema"
)

type oracleMock struct {
	mock.Mock
}

func (o *oracleMock) IsValidWord(word, category, letter string) bool {
	args := o.Called(word, category, letter)
	return args.Bool(0)
}

func acceptAll(round *schema.Round) {
	for category, words := range round.Votes {
		for word := range words {
			round.Votes[category][word] = schema.Tally{Accept: []string{"judge"}, Reject: []string{}}
		}
	}
}

func TestPoints(t *testing.T) {
	tests := []struct {
		variant      schema.ScoringVariant
		totalCorrect int
		freq         int
		want         int
	}{
		{schema.VariantStandard, 1, 1, 15},
		{schema.VariantStandard, 3, 1, 10},
		{schema.VariantStandard, 3, 2, 5},
		{schema.VariantHardcore, 1, 1, 25},
		{schema.VariantHardcore, 3, 1, 20},
		{schema.VariantHardcore, 3, 2, 0},
		{schema.VariantEasy, 1, 1, 6},
		{schema.VariantEasy, 3, 1, 6},
		{schema.VariantEasy, 3, 2, 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Points(tt.variant, tt.totalCorrect, tt.freq), "%s total=%d freq=%d", tt.variant, tt.totalCorrect, tt.freq)
	}
}

func TestScoreRound_Standard(t *testing.T) {
	round := schema.Round{
		Letter:     "K",
		Categories: []string{"Miasto"},
		Answers: schema.AnswerSheet{
			"a": {"Miasto": "Kraków"},
			"b": {"Miasto": "kraków "},
			"c": {"Miasto": "Katowice"},
		},
	}
	round.Votes = PlanVotes(round)
	acceptAll(&round)

	scores := ScoreRound(round, players("a", "b", "c"), schema.VariantStandard, nil)
	assert.Equal(t, schema.Scores{"a": 5, "b": 5, "c": 10}, scores)
}

func TestScoreRound_HardcoreSingleCorrect(t *testing.T) {
	round := schema.Round{
		Letter:     "A",
		Categories: []string{"Miasto", "Imię"},
		Answers: schema.AnswerSheet{
			"a": {"Miasto": "Augustów", "Imię": "Anna"},
			"b": {"Imię": "Anna"},
			"c": {"Imię": "Adam"},
		},
	}
	round.Votes = PlanVotes(round)
	acceptAll(&round)

	scores := ScoreRound(round, players("a", "b", "c"), schema.VariantHardcore, nil)
	assert.Equal(t, schema.Scores{"a": 25, "b": 0, "c": 20}, scores)
}

func TestScoreRound_Easy(t *testing.T) {
	round := schema.Round{
		Letter:     "K",
		Categories: []string{"Miasto"},
		Answers: schema.AnswerSheet{
			"a": {"Miasto": "Kraków"},
			"b": {"Miasto": "Kraków"},
			"c": {"Miasto": "Kalisz"},
		},
	}
	round.Votes = PlanVotes(round)
	acceptAll(&round)

	scores := ScoreRound(round, players("a", "b", "c"), schema.VariantEasy, nil)
	assert.Equal(t, schema.Scores{"a": 1, "b": 1, "c": 6}, scores)
}

func TestScoreRound_TieRejects(t *testing.T) {
	round := schema.Round{
		Letter:     "K",
		Categories: []string{"Miasto"},
		Answers: schema.AnswerSheet{
			"a": {"Miasto": "Kraków"},
		},
		Votes: schema.Ballot{"Miasto": {"kraków": {Accept: []string{"b", "c"}, Reject: []string{"d", "e"}}}},
	}

	scores := ScoreRound(round, players("a", "b", "c", "d", "e"), schema.VariantStandard, nil)
	assert.Equal(t, schema.Scores{"a": 0, "b": 0, "c": 0, "d": 0, "e": 0}, scores)
}

func TestScoreRound_RejectedWordsDoNotCount(t *testing.T) {
	round := schema.Round{
		Letter:     "K",
		Categories: []string{"Miasto"},
		Answers: schema.AnswerSheet{
			"a": {"Miasto": "Kraków"},
			"b": {"Miasto": "Kapusta"},
		},
		Votes: schema.Ballot{"Miasto": {
			"kraków":  {Accept: []string{"b"}, Reject: []string{}},
			"kapusta": {Accept: []string{}, Reject: []string{"a"}},
		}},
	}

	scores := ScoreRound(round, players("a", "b"), schema.VariantStandard, nil)
	assert.Equal(t, schema.Scores{"a": 15, "b": 0}, scores)
}

func TestScoreRound_OracleFallback(t *testing.T) {
	round := schema.Round{
		Letter:     "K",
		Categories: []string{"Miasto"},
		Answers: schema.AnswerSheet{
			"a": {"Miasto": "Kraków"},
			"b": {"Miasto": "Kartofel"},
			"c": {"Miasto": "Katowice"},
		},
		Votes: schema.Ballot{"Miasto": {
			"kraków":   {Accept: []string{}, Reject: []string{}},
			"katowice": {Accept: []string{"a"}, Reject: []string{}},
		}},
	}

	oracle := &oracleMock{}
	oracle.On("IsValidWord", "kartofel", "Miasto", "K").Return(false)

	scores := ScoreRound(round, players("a", "b", "c"), schema.VariantStandard, oracle)
	assert.Equal(t, schema.Scores{"a": 0, "b": 0, "c": 15}, scores)
	oracle.AssertExpectations(t)
	oracle.AssertNotCalled(t, "IsValidWord", "kraków", "Miasto", "K")
	oracle.AssertNotCalled(t, "IsValidWord", "katowice", "Miasto", "K")
}

func TestScoreRound_SameWordWithoutVoters(t *testing.T) {
	round := schema.Round{
		Letter:     "K",
		Categories: []string{"Miasto"},
		Answers: schema.AnswerSheet{
			"a": {"Miasto": "Kraków"},
			"b": {"Miasto": " kraków "},
		},
	}
	round.Votes = PlanVotes(round)
	ps := players("a", "b")

	assert.Empty(t, EligibleVoters(round, ps, "Miasto", "Kraków"))
	assert.True(t, IsVotingComplete(round, ps))

	for _, variant := range []schema.ScoringVariant{schema.VariantStandard, schema.VariantHardcore, schema.VariantEasy} {
		scores := ScoreRound(round, ps, variant, nil)
		assert.Equal(t, schema.Scores{"a": 0, "b": 0}, scores, variant)
	}
}

func TestScoreRound_SinglePlayer(t *testing.T) {
	round := schema.Round{
		Letter:     "K",
		Categories: []string{"Miasto", "Imię"},
		Answers:    schema.AnswerSheet{"a": {"Miasto": "Kraków", "Imię": "Kasia"}},
	}
	round.Votes = PlanVotes(round)

	assert.True(t, IsVotingComplete(round, players("a")))
	assert.Equal(t, schema.Scores{"a": 0}, ScoreRound(round, players("a"), schema.VariantStandard, nil))
}

func TestScoreRound_DefaultAccept(t *testing.T) {
	round := schema.Round{
		Letter:     "K",
		Categories: []string{"Miasto"},
		Answers:    schema.AnswerSheet{"a": {"Miasto": "Kraków"}},
	}

	scores := ScoreRound(round, players("a", "b"), schema.VariantStandard, nil)
	assert.Equal(t, schema.Scores{"a": 15, "b": 0}, scores)
}

func TestScoreRound_Pure(t *testing.T) {
	round := schema.Round{
		Letter:     "K",
		Categories: []string{"Miasto", "Imię"},
		Answers: schema.AnswerSheet{
			"a": {"Miasto": "Kraków", "Imię": "Kasia"},
			"b": {"Miasto": "Kraków", "Imię": "Karol"},
		},
	}
	round.Votes = PlanVotes(round)
	acceptAll(&round)
	before := round.Clone()

	first := ScoreRound(round, players("a", "b"), schema.VariantStandard, nil)
	second := ScoreRound(round, players("a", "b"), schema.VariantStandard, nil)
	assert.Equal(t, first, second)
	assert.Equal(t, before, round)
}

func TestSummarize(t *testing.T) {
	summary := Summarize(schema.Scores{"a": 10, "b": 20, "c": 20, "d": 30, "e": 30})
	assert.Equal(t, 30, summary.Best)
	assert.Equal(t, []string{"d", "e"}, summary.Leaders)
	assert.InDelta(t, 22.0, summary.Mean, 1e-9)
	assert.InDelta(t, 8.3666, summary.StdDev, 1e-3)

	assert.Equal(t, Summary{Leaders: []string{}}, Summarize(nil))
	assert.Equal(t, Summary{Mean: 5, Best: 5, Leaders: []string{"a"}}, Summarize(schema.Scores{"a": 5}))
	assert.Equal(t, []string{}, Summarize(schema.Scores{"a": 0, "b": 0}).Leaders)
}
