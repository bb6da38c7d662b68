package game

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/bitterfly/go-chaos/kategorie/schema"
)

// Normalize trims and case-folds a word. Ballot keys and eligibility checks
// both go through it.
func Normalize(word string) string {
	return cases.Fold().String(strings.TrimSpace(word))
}

// PlanVotes builds the initial ballot: every distinct non-empty normalized
// word of every category gets an empty tally. Nothing is auto-accepted.
func PlanVotes(round schema.Round) schema.Ballot {
	ballot := make(schema.Ballot, len(round.Categories))
	for _, category := range round.Categories {
		ballot[category] = make(map[string]schema.Tally)
		for _, answers := range round.Answers {
			word := Normalize(answers[category])
			if word == "" {
				continue
			}
			if _, ok := ballot[category][word]; !ok {
				ballot[category][word] = schema.Tally{Accept: []string{}, Reject: []string{}}
			}
		}
	}
	return ballot
}
