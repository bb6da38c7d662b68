package schema

import (
	"fmt"
	"time"

	"github.com/lib/pq"
)

type Round struct {
	RoomCode   string         `json:"-" gorm:"primaryKey;size:6"`
	Number     int            `json:"roundNumber" gorm:"primaryKey;autoIncrement:false"`
	Letter     string         `json:"letter" gorm:"size:1;notnull"`
	Categories pq.StringArray `json:"categories" gorm:"type:text[]"`
	StartTime  *time.Time     `json:"startTime"`
	EndTime    *time.Time     `json:"endTime"`
	Answers    AnswerSheet    `json:"answers" gorm:"type:jsonb"`
	Votes      Ballot         `json:"votes" gorm:"type:jsonb"`
	Scores     Scores         `json:"scores" gorm:"type:jsonb"`
}

// RoundID is the document-style identifier of the n-th round.
func RoundID(number int) string {
	return fmt.Sprintf("round_%d", number)
}

func (r Round) ID() string {
	return RoundID(r.Number)
}

// Clone returns a deep copy; stores hand out clones so callers never share maps.
func (r Round) Clone() Round {
	r.Categories = append(pq.StringArray{}, r.Categories...)
	if r.StartTime != nil {
		t := *r.StartTime
		r.StartTime = &t
	}
	if r.EndTime != nil {
		t := *r.EndTime
		r.EndTime = &t
	}
	r.Answers = r.Answers.Clone()
	r.Votes = r.Votes.Clone()
	r.Scores = r.Scores.Clone()
	return r
}
