package game

import "github.com/bitterfly/go-chaos/kategorie/schema"

var transitions = map[schema.State][]schema.State{
	schema.StateLobby:   {schema.StatePlaying},
	schema.StatePlaying: {schema.StateVoting},
	schema.StateVoting:  {schema.StateSummary},
	schema.StateSummary: {schema.StatePlaying, schema.StateFinished, schema.StateLobby},
}

// CanTransition reports whether the room state machine has an edge from -> to.
// FINISHED has no outgoing edges.
func CanTransition(from, to schema.State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
