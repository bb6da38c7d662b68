package game

import (
	"golang.org/x/exp/slices"

	"github.com/bitterfly/go-chaos/kategorie/schema"
)

// CastVote records voterID's latest opinion on a disputed word. The voter is
// removed from both sides before being added to one, so repeating or flipping
// a vote is safe.
func CastVote(round *schema.Round, category, word, voterID string, accept bool) error {
	word = Normalize(word)
	tally, ok := round.Votes[category][word]
	if !ok {
		return ErrUnknownBallotEntry
	}
	if Normalize(round.Answers[voterID][category]) == word {
		return ErrIneligibleVoter
	}

	tally.Accept = without(tally.Accept, voterID)
	tally.Reject = without(tally.Reject, voterID)
	if accept {
		tally.Accept = insertSorted(tally.Accept, voterID)
	} else {
		tally.Reject = insertSorted(tally.Reject, voterID)
	}
	round.Votes[category][word] = tally
	return nil
}

// EligibleVoters lists the players allowed to vote on word in category: all
// players whose own normalized answer there is something else.
func EligibleVoters(round schema.Round, players []schema.Player, category, word string) []string {
	word = Normalize(word)
	res := make([]string, 0, len(players))
	for _, p := range players {
		if Normalize(round.Answers[p.ID][category]) != word {
			res = append(res, p.ID)
		}
	}
	return res
}

// IsVotingComplete is true when every ballot entry has at least as many votes
// as it has eligible voters.
func IsVotingComplete(round schema.Round, players []schema.Player) bool {
	for category, words := range round.Votes {
		for word, tally := range words {
			if tally.Total() < len(EligibleVoters(round, players, category, word)) {
				return false
			}
		}
	}
	return true
}

func without(ids []string, id string) []string {
	res := make([]string, 0, len(ids))
	for _, v := range ids {
		if v != id {
			res = append(res, v)
		}
	}
	return res
}

func insertSorted(ids []string, id string) []string {
	i, found := slices.BinarySearch(ids, id)
	if found {
		return ids
	}
	return slices.Insert(ids, i, id)
}
