package game

import (
	"sort"

	"github.com/bitterfly/go-chaos/kategorie/schema"
)

func Me(players []schema.Player, id string) (schema.Player, bool) {
	for _, p := range players {
		if p.ID == id {
			return p, true
		}
	}
	return schema.Player{}, false
}

func IsHost(room schema.Room, id string) bool {
	return id != "" && room.HostID == id
}

// AllReady is true when there is at least one active player and every active
// player is ready.
func AllReady(players []schema.Player) bool {
	active := 0
	for _, p := range players {
		if !p.IsActive {
			continue
		}
		active++
		if !p.IsReady {
			return false
		}
	}
	return active > 0
}

func ActivePlayerIDs(players []schema.Player) []string {
	res := make([]string, 0, len(players))
	for _, p := range players {
		if p.IsActive {
			res = append(res, p.ID)
		}
	}
	return res
}

// Standings orders players by score, then by name.
func Standings(players []schema.Player) []schema.Player {
	res := append([]schema.Player{}, players...)
	sort.SliceStable(res, func(i, j int) bool {
		if res[i].Score != res[j].Score {
			return res[i].Score > res[j].Score
		}
		return res[i].Name < res[j].Name
	})
	return res
}
