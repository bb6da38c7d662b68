package schema

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Answers maps a category to the word a player wrote for it.
type Answers map[string]string

// AnswerSheet maps a player id to that player's answers.
type AnswerSheet map[string]Answers

// Tally holds the voter ids on each side of one disputed word.
type Tally struct {
	Accept []string `json:"accept"`
	Reject []string `json:"reject"`
}

func (t Tally) Total() int {
	return len(t.Accept) + len(t.Reject)
}

// Ballot maps category -> normalized word -> tally.
type Ballot map[string]map[string]Tally

// Scores maps a player id to points.
type Scores map[string]int

func (a Answers) Clone() Answers {
	if a == nil {
		return nil
	}
	res := make(Answers, len(a))
	for k, v := range a {
		res[k] = v
	}
	return res
}

func (s AnswerSheet) Clone() AnswerSheet {
	if s == nil {
		return nil
	}
	res := make(AnswerSheet, len(s))
	for id, answers := range s {
		res[id] = answers.Clone()
	}
	return res
}

func (b Ballot) Clone() Ballot {
	if b == nil {
		return nil
	}
	res := make(Ballot, len(b))
	for category, words := range b {
		res[category] = make(map[string]Tally, len(words))
		for word, t := range words {
			res[category][word] = Tally{
				Accept: append([]string{}, t.Accept...),
				Reject: append([]string{}, t.Reject...),
			}
		}
	}
	return res
}

func (s Scores) Clone() Scores {
	if s == nil {
		return nil
	}
	res := make(Scores, len(s))
	for k, v := range s {
		res[k] = v
	}
	return res
}

func (s AnswerSheet) Value() (driver.Value, error) { return jsonValue(s) }
func (s *AnswerSheet) Scan(src any) error         { return jsonScan(src, s) }

func (b Ballot) Value() (driver.Value, error) { return jsonValue(b) }
func (b *Ballot) Scan(src any) error         { return jsonScan(src, b) }

func (s Scores) Value() (driver.Value, error) { return jsonValue(s) }
func (s *Scores) Scan(src any) error         { return jsonScan(src, s) }

func jsonValue(v any) (driver.Value, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func jsonScan(src any, dst any) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into json column", src)
	}
	return json.Unmarshal(data, dst)
}
