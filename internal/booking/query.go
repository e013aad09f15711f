package booking

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"

	"github.com/nekogravitycat/item-share-backend/internal/pkg/apperror"
	"github.com/nekogravitycat/item-share-backend/internal/pkg/paging"
)

// State selects which of a user's bookings a listing returns.
type State string

const (
	StateAll      State = "ALL"
	StateCurrent  State = "CURRENT"
	StatePast     State = "PAST"
	StateFuture   State = "FUTURE"
	StateWaiting  State = "WAITING"
	StateRejected State = "REJECTED"
)

var states = []State{StateAll, StateCurrent, StatePast, StateFuture, StateWaiting, StateRejected}

// ParseState accepts any case; blank means ALL.
func ParseState(raw string) (State, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return StateAll, nil
	}
	st := State(strings.ToUpper(trimmed))
	for _, known := range states {
		if st == known {
			return st, nil
		}
	}
	return "", UnknownState(raw)
}

// UnknownState builds the error reported for an unrecognised state string.
func UnknownState(raw string) error {
	return apperror.Wrap(ErrUnknownState, http.StatusBadRequest, fmt.Sprintf("Unknown state: %s", raw))
}

// Matches reports whether b belongs to the state at instant now.
func (s State) Matches(b *Booking, now time.Time) bool {
	switch s {
	case StateCurrent:
		return b.Range.Contains(now)
	case StatePast:
		return b.Range.End.Before(now)
	case StateFuture:
		return b.Range.Start.After(now)
	case StateWaiting:
		return b.Status == StatusWaiting
	case StateRejected:
		return b.Status == StatusRejected
	default:
		return true
	}
}

// condition is the SQL form of Matches over the b.start_time/b.end_time/b.status columns.
// It returns nil for ALL.
func (s State) condition(now time.Time) squirrel.Sqlizer {
	switch s {
	case StateCurrent:
		return squirrel.And{
			squirrel.LtOrEq{"b.start_time": now},
			squirrel.GtOrEq{"b.end_time": now},
		}
	case StatePast:
		return squirrel.Lt{"b.end_time": now}
	case StateFuture:
		return squirrel.Gt{"b.start_time": now}
	case StateWaiting:
		return squirrel.Eq{"b.status": StatusWaiting}
	case StateRejected:
		return squirrel.Eq{"b.status": StatusRejected}
	default:
		return nil
	}
}

// Query is one page of a state-filtered listing evaluated at Now.
type Query struct {
	State State
	Page  paging.Page
	Now   time.Time
}

// apply filters, orders newest start first (ties by id) and pages bookings.
// It returns the page and the number of matches before paging.
func (q Query) apply(bookings []*Booking) ([]*Booking, int) {
	matched := make([]*Booking, 0, len(bookings))
	for _, b := range bookings {
		if q.State.Matches(b, q.Now) {
			matched = append(matched, b)
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].Range.Start.Equal(matched[j].Range.Start) {
			return matched[i].Range.Start.After(matched[j].Range.Start)
		}
		return matched[i].ID < matched[j].ID
	})

	return paging.Slice(matched, q.Page), len(matched)
}
