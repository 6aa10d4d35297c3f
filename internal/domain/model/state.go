package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// State is the lifecycle state of a device. The numeric values are part of
// the wire contract and are persisted as-is.
type State int

const (
	StateAvailable State = iota + 1
	StateInUse
	StateInactive
)

var stateNames = map[State]string{
	StateAvailable: "available",
	StateInUse:     "in-use",
	StateInactive:  "inactive",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}

	return "unknown(" + strconv.Itoa(int(s)) + ")"
}

func (s State) IsValid() bool {
	_, ok := stateNames[s]

	return ok
}

// ParseState accepts either the state name ("in-use") or its numeric value ("2").
func ParseState(s string) (State, error) {
	value := strings.ToLower(strings.TrimSpace(s))

	if n, err := strconv.Atoi(value); err == nil {
		if state := State(n); state.IsValid() {
			return state, nil
		}

		return 0, fmt.Errorf("%w: %s", ErrInvalidState, s)
	}

	for state, name := range stateNames {
		if name == value {
			return state, nil
		}
	}

	return 0, fmt.Errorf("%w: %s", ErrInvalidState, s)
}

func (s State) MarshalJSON() ([]byte, error) {
	return json.Marshal(int(s))
}

func (s *State) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		*s = State(n)

		return nil
	}

	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidState, string(data))
	}

	parsed, err := ParseState(name)
	if err != nil {
		return err
	}

	*s = parsed

	return nil
}
