package utils

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
)

func Parse(data io.ReadCloser, container interface{}) (interface{}, error) {
	if err := json.NewDecoder(data).Decode(container); err != nil {
		return nil, err
	}
	return container, nil
}

func ParseInt(vars map[string]string, name string) (int, error) {
	valueS, ok := vars[name]
	if !ok {
		return 0, fmt.Errorf("missing parameter for %s", name)
	}
	value, err := strconv.ParseInt(valueS, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("could not parse %s as int", valueS)
	}
	return int(value), nil
}

// ParseCode reads a room code from the route variables, upper-cased.
func ParseCode(vars map[string]string) (string, error) {
	code, ok := vars["code"]
	if !ok || code == "" {
		return "", fmt.Errorf("missing parameter for code")
	}
	return strings.ToUpper(code), nil
}
