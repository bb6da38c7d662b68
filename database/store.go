package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/bitterfly/go-chaos/kategorie/game"
	"github.com/bitterfly/go-chaos/kategorie/schema"
)

// Channel is the LISTEN/NOTIFY channel every write reports to.
const Channel = "kategorie_changes"

// Store keeps rooms in PostgreSQL. Every write runs in one transaction that
// locks the room row first, and reports its changes with pg_notify so they
// are delivered only on commit.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// transaction runs fn and separates game rule failures, which are returned
// as they are, from database failures, which become ErrStoreUnavailable.
func (s *Store) transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	var ruleErr error
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := fn(tx)
		var dbErr *DatabaseError
		if err != nil && !errors.As(err, &dbErr) {
			ruleErr = err
		}
		return err
	})
	if ruleErr != nil {
		return ruleErr
	}
	return storeError(err)
}

func lockRoom(tx *gorm.DB, code string, strength string) (schema.Room, error) {
	var room schema.Room
	err := tx.Clauses(clause.Locking{Strength: strength}).
		Where("code = ?", code).
		First(&room).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return schema.Room{}, game.ErrRoomNotFound
	}
	return room, newQueryError(err)
}

func listPlayers(tx *gorm.DB, code string) ([]schema.Player, error) {
	players := []schema.Player{}
	err := tx.Where("room_code = ?", code).Order("joined_at, id").Find(&players).Error
	return players, newQueryError(err)
}

func lockRound(tx *gorm.DB, code string, number int) (*schema.Round, error) {
	var round schema.Round
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("room_code = ? AND number = ?", code, number).
		First(&round).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, newQueryError(err)
	}
	return &round, nil
}

func notify(tx *gorm.DB, changes ...game.Change) error {
	for _, c := range changes {
		payload, err := json.Marshal(c)
		if err != nil {
			return newQueryError(err)
		}
		if err := tx.Exec("SELECT pg_notify(?, ?)", Channel, string(payload)).Error; err != nil {
			return newQueryError(err)
		}
	}
	return nil
}

func (s *Store) CreateRoom(ctx context.Context, room schema.Room, host schema.Player) error {
	return s.transaction(ctx, func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&room)
		if res.Error != nil {
			return newInsertError(res.Error)
		}
		if res.RowsAffected == 0 {
			return game.ErrRoomExists
		}
		host.RoomCode = room.Code
		if err := tx.Create(&host).Error; err != nil {
			return newInsertError(err)
		}
		return notify(tx,
			game.Change{Room: room.Code, Kind: game.RoomChanged},
			game.Change{Room: room.Code, Kind: game.PlayersChanged})
	})
}

func (s *Store) AddPlayer(ctx context.Context, code string, player schema.Player) error {
	return s.transaction(ctx, func(tx *gorm.DB) error {
		room, err := lockRoom(tx, code, "UPDATE")
		if err != nil {
			return err
		}
		if room.State == schema.StateFinished {
			return fmt.Errorf("%w: game is over", game.ErrWrongPhase)
		}

		var count int64
		if err := tx.Model(&schema.Player{}).Where("room_code = ?", code).Count(&count).Error; err != nil {
			return newQueryError(err)
		}
		if count >= int64(room.Settings.MaxPlayers) {
			return game.ErrRoomFull
		}

		player.RoomCode = code
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&player)
		if res.Error != nil {
			return newInsertError(res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: player %s already joined", game.ErrInvalidTransition, player.ID)
		}
		return notify(tx, game.Change{Room: code, Kind: game.PlayersChanged})
	})
}

func (s *Store) SetPlayerReady(ctx context.Context, code, playerID string, ready bool) error {
	return s.updatePlayer(ctx, code, playerID, "is_ready", ready)
}

func (s *Store) SetPlayerActive(ctx context.Context, code, playerID string, active bool) error {
	return s.updatePlayer(ctx, code, playerID, "is_active", active)
}

func (s *Store) updatePlayer(ctx context.Context, code, playerID, column string, value bool) error {
	return s.transaction(ctx, func(tx *gorm.DB) error {
		res := tx.Model(&schema.Player{}).
			Where("room_code = ? AND id = ?", code, playerID).
			Update(column, value)
		if res.Error != nil {
			return newUpdateError(res.Error)
		}
		if res.RowsAffected == 0 {
			return game.ErrPlayerNotFound
		}
		return notify(tx, game.Change{Room: code, Kind: game.PlayersChanged})
	})
}

func (s *Store) GetRoom(ctx context.Context, code string) (schema.Room, error) {
	var room schema.Room
	err := s.db.WithContext(ctx).Where("code = ?", code).First(&room).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return schema.Room{}, game.ErrRoomNotFound
	}
	if err != nil {
		return schema.Room{}, storeError(newQueryError(err))
	}
	return room, nil
}

func (s *Store) GetPlayer(ctx context.Context, code, playerID string) (schema.Player, error) {
	var player schema.Player
	err := s.db.WithContext(ctx).Where("room_code = ? AND id = ?", code, playerID).First(&player).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		if _, err := s.GetRoom(ctx, code); err != nil {
			return schema.Player{}, err
		}
		return schema.Player{}, game.ErrPlayerNotFound
	}
	if err != nil {
		return schema.Player{}, storeError(newQueryError(err))
	}
	return player, nil
}

func (s *Store) ListPlayers(ctx context.Context, code string) ([]schema.Player, error) {
	if _, err := s.GetRoom(ctx, code); err != nil {
		return nil, err
	}
	players, err := listPlayers(s.db.WithContext(ctx), code)
	if err != nil {
		return nil, storeError(err)
	}
	return players, nil
}

func (s *Store) GetRound(ctx context.Context, code string, number int) (schema.Round, error) {
	var round schema.Round
	err := s.db.WithContext(ctx).Where("room_code = ? AND number = ?", code, number).First(&round).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		if _, err := s.GetRoom(ctx, code); err != nil {
			return schema.Round{}, err
		}
		return schema.Round{}, game.ErrRoundNotFound
	}
	if err != nil {
		return schema.Round{}, storeError(newQueryError(err))
	}
	return round, nil
}

func (s *Store) ListRoomsInState(ctx context.Context, states ...schema.State) ([]string, error) {
	codes := []string{}
	err := s.db.WithContext(ctx).Model(&schema.Room{}).
		Where("state IN ?", states).
		Order("code").
		Pluck("code", &codes).Error
	if err != nil {
		return nil, storeError(newQueryError(err))
	}
	return codes, nil
}

func (s *Store) Transition(ctx context.Context, code string, t game.Transition) (schema.Room, error) {
	var next schema.Room
	err := s.transaction(ctx, func(tx *gorm.DB) error {
		room, err := lockRoom(tx, code, "UPDATE")
		if err != nil {
			return err
		}
		if room.State != t.From {
			return fmt.Errorf("%w: room is %s, expected %s", game.ErrStaleTransition, room.State, t.From)
		}
		if !game.CanTransition(t.From, t.To) {
			return fmt.Errorf("%w: %s to %s", game.ErrInvalidTransition, t.From, t.To)
		}

		players, err := listPlayers(tx, code)
		if err != nil {
			return err
		}
		current, err := lockRound(tx, code, room.CurrentRoundIndex)
		if err != nil {
			return err
		}

		if t.Guard != nil {
			if err := t.Guard(room.Clone(), players, current); err != nil {
				return err
			}
		}

		next = room.Clone()
		changes := []game.Change{{Room: code, Kind: game.RoomChanged}}
		var changed *schema.Round
		switch {
		case t.NewRound != nil:
			round, err := t.NewRound(room.Clone())
			if err != nil {
				return err
			}
			round.RoomCode = code
			round.Number = room.CurrentRoundIndex + 1
			if err := tx.Create(&round).Error; err != nil {
				return newInsertError(err)
			}
			next.CurrentRoundIndex = round.Number
			changed = &round
		case t.Update != nil:
			if current == nil {
				return game.ErrRoundNotFound
			}
			if err := t.Update(room.Clone(), current, players); err != nil {
				return err
			}
			if err := saveRound(tx, current); err != nil {
				return err
			}
			changed = current
		}
		if changed != nil {
			changes = append(changes, game.Change{Room: code, Kind: game.RoundChanged, Round: changed.Number})
		}

		if t.AddScores && changed != nil {
			for id, points := range changed.Scores {
				if points == 0 {
					continue
				}
				err := tx.Model(&schema.Player{}).
					Where("room_code = ? AND id = ?", code, id).
					UpdateColumn("score", gorm.Expr("score + ?", points)).Error
				if err != nil {
					return newUpdateError(err)
				}
			}
			changes = append(changes, game.Change{Room: code, Kind: game.PlayersChanged})
		}

		res := tx.Model(&schema.Room{}).
			Where("code = ? AND state = ?", code, t.From).
			Updates(map[string]any{
				"state":               t.To,
				"current_round_index": next.CurrentRoundIndex,
			})
		if res.Error != nil {
			return newUpdateError(res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: room left %s", game.ErrStaleTransition, t.From)
		}
		next.State = t.To
		return notify(tx, changes...)
	})
	if err != nil {
		return schema.Room{}, err
	}
	return next, nil
}

func (s *Store) UpdateRound(ctx context.Context, code string, number int, state schema.State, mutate func(*schema.Round, []schema.Player) error) (schema.Round, error) {
	var round schema.Round
	err := s.transaction(ctx, func(tx *gorm.DB) error {
		room, err := lockRoom(tx, code, "SHARE")
		if err != nil {
			return err
		}
		if room.State != state || room.CurrentRoundIndex != number {
			return fmt.Errorf("%w: room is %s in round %d", game.ErrWrongPhase, room.State, room.CurrentRoundIndex)
		}

		current, err := lockRound(tx, code, number)
		if err != nil {
			return err
		}
		if current == nil {
			return game.ErrRoundNotFound
		}
		players, err := listPlayers(tx, code)
		if err != nil {
			return err
		}

		if err := mutate(current, players); err != nil {
			return err
		}
		if err := saveRound(tx, current); err != nil {
			return err
		}
		round = *current
		return notify(tx, game.Change{Room: code, Kind: game.RoundChanged, Round: number})
	})
	if err != nil {
		return schema.Round{}, err
	}
	return round, nil
}

func saveRound(tx *gorm.DB, round *schema.Round) error {
	return newUpdateError(tx.Model(&schema.Round{}).
		Where("room_code = ? AND number = ?", round.RoomCode, round.Number).
		Updates(map[string]any{
			"answers": round.Answers,
			"votes":   round.Votes,
			"scores":  round.Scores,
		}).Error)
}
