package sprint

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"sprintreport/internal/domain"
)

// PreviousLookback is how far back "previous" looks: the previous sprint is
// the one running at this instant before now.
const PreviousLookback = 14 * 24 * time.Hour

var ErrNoMatchingSprint = errors.New("no sprint matches selection")

type Choice int

const (
	Current Choice = iota
	Next
	Previous
)

func (c Choice) String() string {
	switch c {
	case Current:
		return "current"
	case Next:
		return "next"
	case Previous:
		return "previous"
	default:
		return fmt.Sprintf("Choice(%d)", int(c))
	}
}

func ParseChoice(s string) (Choice, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "current", "":
		return Current, nil
	case "next":
		return Next, nil
	case "previous", "prev":
		return Previous, nil
	default:
		return 0, fmt.Errorf("unknown sprint %q: want current, next or previous", s)
	}
}

// Select returns the first sprint, in board order, that satisfies choice at
// now. Sprints without both dates never match.
func Select(sprints []domain.Sprint, choice Choice, now time.Time) (domain.Sprint, error) {
	var match func(domain.Sprint) bool
	switch choice {
	case Current:
		match = func(s domain.Sprint) bool { return contains(s, now) }
	case Next:
		match = func(s domain.Sprint) bool { return !s.StartDate.IsZero() && s.StartDate.After(now) }
	case Previous:
		lookback := now.Add(-PreviousLookback)
		match = func(s domain.Sprint) bool { return contains(s, lookback) }
	default:
		return domain.Sprint{}, fmt.Errorf("unsupported sprint choice %s", choice)
	}

	for _, s := range sprints {
		if match(s) {
			return s, nil
		}
	}
	return domain.Sprint{}, fmt.Errorf("%w: %s sprint at %s among %d sprints",
		ErrNoMatchingSprint, choice, now.Format(time.RFC3339), len(sprints))
}

func contains(s domain.Sprint, at time.Time) bool {
	if s.StartDate.IsZero() || s.EndDate.IsZero() {
		return false
	}
	return s.StartDate.Before(at) && s.EndDate.After(at)
}
