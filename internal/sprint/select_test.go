package sprint

import (
	"testing"
	"time"

	"sprintreport/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 3, 18, 12, 0, 0, 0, time.UTC)

func day(offset int) time.Time {
	return now.AddDate(0, 0, offset)
}

func boardSprints() []domain.Sprint {
	return []domain.Sprint{
		{ID: 1, Name: "Sprint 40", State: "closed", StartDate: day(-28), EndDate: day(-14).Add(-time.Hour)},
		{ID: 2, Name: "Sprint 41", State: "closed", StartDate: day(-15), EndDate: day(-1)},
		{ID: 3, Name: "Sprint 42", State: "active", StartDate: day(-1), EndDate: day(13)},
		{ID: 4, Name: "Sprint 43", State: "future", StartDate: day(13), EndDate: day(27)},
		{ID: 5, Name: "Sprint 44", State: "future", StartDate: day(27), EndDate: day(41)},
	}
}

func TestParseChoice(t *testing.T) {
	t.Parallel()
	tests := map[string]Choice{
		"current":   Current,
		"":          Current,
		"NEXT":      Next,
		" previous": Previous,
		"prev":      Previous,
	}
	for in, want := range tests {
		got, err := ParseChoice(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseChoice("last")
	require.Error(t, err)
}

func TestChoiceString(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "current", Current.String())
	assert.Equal(t, "next", Next.String())
	assert.Equal(t, "previous", Previous.String())
	assert.Equal(t, "Choice(9)", Choice(9).String())
}

func TestSelect(t *testing.T) {
	t.Parallel()
	sprints := boardSprints()

	current, err := Select(sprints, Current, now)
	require.NoError(t, err)
	assert.Equal(t, int64(3), current.ID)

	next, err := Select(sprints, Next, now)
	require.NoError(t, err)
	assert.Equal(t, int64(4), next.ID, "first future sprint in board order wins")

	previous, err := Select(sprints, Previous, now)
	require.NoError(t, err)
	assert.Equal(t, int64(2), previous.ID)
}

func TestSelect_FirstMatchInBoardOrder(t *testing.T) {
	t.Parallel()
	sprints := []domain.Sprint{
		{ID: 7, StartDate: day(-3), EndDate: day(3)},
		{ID: 8, StartDate: day(-2), EndDate: day(5)},
	}
	got, err := Select(sprints, Current, now)
	require.NoError(t, err)
	assert.Equal(t, int64(7), got.ID)
}

func TestSelect_BoundariesAreExclusive(t *testing.T) {
	t.Parallel()
	sprints := []domain.Sprint{
		{ID: 1, StartDate: now, EndDate: day(14)},
		{ID: 2, StartDate: day(-14), EndDate: now},
	}
	_, err := Select(sprints, Current, now)
	require.ErrorIs(t, err, ErrNoMatchingSprint)

	_, err = Select([]domain.Sprint{{ID: 3, StartDate: now, EndDate: day(14)}}, Next, now)
	require.ErrorIs(t, err, ErrNoMatchingSprint)
}

func TestSelect_SkipsSprintsWithoutDates(t *testing.T) {
	t.Parallel()
	sprints := []domain.Sprint{
		{ID: 1, State: "future"},
		{ID: 2, State: "active", EndDate: day(3)},
	}
	for _, choice := range []Choice{Current, Next, Previous} {
		_, err := Select(sprints, choice, now)
		require.ErrorIs(t, err, ErrNoMatchingSprint, choice.String())
	}
}

func TestSelect_NoMatchIsAnError(t *testing.T) {
	t.Parallel()
	_, err := Select(nil, Current, now)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoMatchingSprint)
	assert.Contains(t, err.Error(), "current sprint")

	_, err = Select(boardSprints(), Choice(42), now)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoMatchingSprint)
}
