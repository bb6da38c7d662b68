package game

import (
	"time"

	"github.com/bitterfly/go-chaos/kategorie/schema"
)

// RecordAnswer stores a player's answers for the round. Answers are written
// once; a second submission returns ErrDuplicateSubmission and changes nothing.
// Words are kept as typed; validation happens at adjudication.
func RecordAnswer(round *schema.Round, playerID string, answers schema.Answers) error {
	if _, ok := round.Answers[playerID]; ok {
		return ErrDuplicateSubmission
	}
	if round.Answers == nil {
		round.Answers = make(schema.AnswerSheet)
	}
	if answers == nil {
		answers = schema.Answers{}
	}
	round.Answers[playerID] = answers.Clone()
	return nil
}

// IsComplete is true once every active player has answered or the round's end
// time has passed.
func IsComplete(round schema.Round, activePlayerIDs []string, now time.Time) bool {
	if round.EndTime != nil && !now.Before(*round.EndTime) {
		return true
	}
	if len(activePlayerIDs) == 0 {
		return false
	}
	for _, id := range activePlayerIDs {
		if _, ok := round.Answers[id]; !ok {
			return false
		}
	}
	return true
}
