package schema

import "time"

type Player struct {
	RoomCode   string    `json:"-" gorm:"primaryKey;size:6"`
	ID         string    `json:"id" gorm:"primaryKey"`
	Name       string    `json:"name" gorm:"notnull"`
	IsHost     bool      `json:"isHost"`
	IsReady    bool      `json:"isReady"`
	IsActive   bool      `json:"isActive"`
	Score      int       `json:"score" gorm:"notnull;default:0"`
	JoinedAt   time.Time `json:"joinedAt"`
	SecretHash []byte    `json:"-"`
}
