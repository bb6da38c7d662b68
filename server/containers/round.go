package containers

import (
	"fmt"
	"io"

	"github.com/bitterfly/go-chaos/kategorie/schema"
	"github.com/bitterfly/go-chaos/kategorie/utils"
)

type Answers struct {
	Answers schema.Answers `json:"answers"`
}

func ParseAnswers(data io.ReadCloser) (*Answers, error) {
	var container interface{} = &Answers{}
	res, err := utils.Parse(data, container)
	if err != nil {
		return nil, err
	}

	answers, ok := res.(*Answers)
	if !ok {
		return nil, fmt.Errorf("could not convert to server Answers")
	}
	return answers, nil
}

type Vote struct {
	Category string `json:"category"`
	Word     string `json:"word"`
	Accept   bool   `json:"accept"`
}

func ParseVote(data io.ReadCloser) (*Vote, error) {
	var container interface{} = &Vote{}
	res, err := utils.Parse(data, container)
	if err != nil {
		return nil, err
	}

	vote, ok := res.(*Vote)
	if !ok {
		return nil, fmt.Errorf("could not convert to server Vote")
	}
	if vote.Category == "" || vote.Word == "" {
		return nil, fmt.Errorf("category and word are required")
	}
	return vote, nil
}
