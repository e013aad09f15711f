package booking

import (
	"fmt"
	"strings"
)

type Status string

const (
	StatusWaiting  Status = "WAITING"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
	StatusCanceled Status = "CANCELED"
)

var transitions = map[Status][]Status{
	StatusWaiting:  {StatusApproved, StatusRejected, StatusCanceled},
	StatusApproved: {StatusCanceled},
	StatusRejected: {},
	StatusCanceled: {},
}

// CanTransitionTo reports whether the lifecycle allows moving from s to target.
func (s Status) CanTransitionTo(target Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is possible.
func (s Status) IsTerminal() bool {
	next, ok := transitions[s]
	return ok && len(next) == 0
}

// Blocks reports whether a booking in this status holds its time slot.
func (s Status) Blocks() bool {
	return s == StatusWaiting || s == StatusApproved
}

func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ToUpper(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", fmt.Errorf("unknown booking status %q", raw)
	}
	return s, nil
}
