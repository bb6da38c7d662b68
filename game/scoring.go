package game

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/bitterfly/go-chaos/kategorie/schema"
)

// Oracle answers whether a word is a valid answer for a category and letter.
// It is only asked about words that were never put to vote.
type Oracle interface {
	IsValidWord(word, category, letter string) bool
}

// Accepted decides a single (category, word) pair. A word on the ballot is
// accepted on a strict majority, so ties, including no votes at all, are
// rejected. A word that never went to vote is left to the oracle and accepted
// when there is none.
func Accepted(round schema.Round, category, word string, oracle Oracle) bool {
	if tally, ok := round.Votes[category][word]; ok {
		return len(tally.Accept) > len(tally.Reject)
	}
	if oracle == nil {
		return true
	}
	return oracle.IsValidWord(word, category, round.Letter)
}

// Points returns what one accepted answer is worth. totalCorrect is the number
// of accepted answers in the category, freq the number of players who gave
// this exact word.
func Points(variant schema.ScoringVariant, totalCorrect, freq int) int {
	switch variant {
	case schema.VariantHardcore:
		switch {
		case totalCorrect == 1:
			return 25
		case freq == 1:
			return 20
		default:
			return 0
		}
	case schema.VariantEasy:
		if freq == 1 {
			return 6
		}
		return 1
	default:
		switch {
		case totalCorrect == 1:
			return 15
		case freq == 1:
			return 10
		default:
			return 5
		}
	}
}

// ScoreRound computes the points each listed player earned this round. The
// result has an entry for every player, zero included.
func ScoreRound(round schema.Round, players []schema.Player, variant schema.ScoringVariant, oracle Oracle) schema.Scores {
	scores := make(schema.Scores, len(players))
	for _, p := range players {
		scores[p.ID] = 0
	}

	for _, category := range round.Categories {
		accepted := make(map[string]bool)
		frequency := make(map[string]int)
		for _, p := range players {
			word := Normalize(round.Answers[p.ID][category])
			if word == "" {
				continue
			}
			ok, seen := accepted[word]
			if !seen {
				ok = Accepted(round, category, word, oracle)
				accepted[word] = ok
			}
			if ok {
				frequency[word]++
			}
		}

		totalCorrect := 0
		for _, n := range frequency {
			totalCorrect += n
		}

		for _, p := range players {
			word := Normalize(round.Answers[p.ID][category])
			if freq := frequency[word]; word != "" && freq > 0 {
				scores[p.ID] += Points(variant, totalCorrect, freq)
			}
		}
	}
	return scores
}

type Summary struct {
	Mean    float64  `json:"mean"`
	StdDev  float64  `json:"stdDev"`
	Best    int      `json:"best"`
	Leaders []string `json:"leaders"`
}

// Summarize describes the spread of a round's scores.
func Summarize(scores schema.Scores) Summary {
	if len(scores) == 0 {
		return Summary{Leaders: []string{}}
	}

	values := make([]float64, 0, len(scores))
	best := 0
	for _, v := range scores {
		values = append(values, float64(v))
		if v > best {
			best = v
		}
	}

	leaders := []string{}
	for id, v := range scores {
		if v == best && best > 0 {
			leaders = append(leaders, id)
		}
	}
	sort.Strings(leaders)

	summary := Summary{Best: best, Leaders: leaders}
	if len(values) == 1 {
		summary.Mean = values[0]
		return summary
	}
	summary.Mean, summary.StdDev = stat.MeanStdDev(values, nil)
	return summary
}
