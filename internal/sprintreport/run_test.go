package sprintreport

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"sprintreport/internal/aggregate"
	"sprintreport/internal/sprint"
	"sprintreport/internal/storage/sqlite"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBoard struct {
	sprints   []Sprint
	epics     []Epic
	issues    map[int64][]Issue
	sprintErr error
	epicErr   error
	issueErr  error
}

func (f *fakeBoard) FetchSprints(context.Context) ([]Sprint, error) {
	return f.sprints, f.sprintErr
}

func (f *fakeBoard) FetchEpics(context.Context) ([]Epic, error) {
	return f.epics, f.epicErr
}

func (f *fakeBoard) FetchSprintIssues(_ context.Context, sprintID int64) ([]Issue, error) {
	return f.issues[sprintID], f.issueErr
}

type fakeNotifier struct {
	table     string
	narrative string
	calls     int
	err       error
}

func (f *fakeNotifier) PostReport(_ context.Context, table, narrative string) error {
	f.calls++
	f.table = table
	f.narrative = narrative
	return f.err
}

type fakeSummarizer struct {
	inputs []SummaryInput
	text   string
	err    error
}

func (f *fakeSummarizer) Summarize(_ context.Context, in SummaryInput) (string, LLMUsage, error) {
	f.inputs = append(f.inputs, in)
	return f.text, LLMUsage{}, f.err
}

func day(d int) time.Time {
	return time.Date(2026, 3, d, 9, 0, 0, 0, time.UTC)
}

func pts(v float64) *float64 { return &v }

func testBoard() *fakeBoard {
	return &fakeBoard{
		sprints: []Sprint{
			{ID: 41, Name: "Sprint 41", StartDate: day(2).AddDate(0, 0, -14), EndDate: day(2)},
			{ID: 42, Name: "Sprint 42", StartDate: day(2), EndDate: day(16)},
			{ID: 43, Name: "Sprint 43", StartDate: day(16), EndDate: day(30)},
		},
		epics: []Epic{
			{ID: 1, Name: "GEO", Summary: "Geosharding phase 2"},
			{ID: 2, Name: "CDC", Summary: "Care Data Centre"},
		},
		issues: map[int64][]Issue{
			42: {
				{Key: "CARE-1", StatusName: "Done", ParentSummary: "Care Data Centre", ResolutionDate: day(4), Points: pts(3)},
				{Key: "CARE-2", StatusName: "New", ParentSummary: "Geosharding phase 2", Points: pts(5)},
				{Key: "CARE-3", StatusName: "In Progress", Points: pts(2)},
				{Key: "CARE-4", StatusName: "Done", ParentSummary: "Care Data Centre", ResolutionDate: day(1), Points: pts(8)},
				{Key: "CARE-5", StatusName: "New", ParentSummary: "Care Live Tasks"},
			},
		},
	}
}

func testAggregator(t *testing.T) *aggregate.Aggregator {
	t.Helper()
	mapping, err := aggregate.NewEpicMapping(
		[]string{"Athena", "Apollo", "Geosharding"},
		"Apollo",
		[]aggregate.EpicRule{
			{Epic: "Geosharding", Team: "Geosharding"},
			{Epic: "Care Data Centre", Team: "Athena"},
			{Epic: "Care Live Tasks", Team: "Athena"},
		},
	)
	require.NoError(t, err)
	return aggregate.New(mapping, aggregate.DefaultStatusRules())
}

func testRunner(t *testing.T, board *fakeBoard) *Runner {
	t.Helper()
	return &Runner{
		Board:      board,
		Aggregator: testAggregator(t),
		OutputDir:  t.TempDir(),
		TeamName:   "Care Team",
		Location:   time.UTC,
		Now:        func() time.Time { return day(6) },
	}
}

func TestRunCurrentSprint(t *testing.T) {
	t.Parallel()
	r := testRunner(t, testBoard())

	res, err := r.Run(context.Background(), sprint.Current)
	require.NoError(t, err)

	assert.Equal(t, int64(42), res.Sprint.ID)
	assert.Equal(t, []ReportRow{
		{Label: "Total", Points: 10, NotStarted: 5, Started: 2, Done: 3},
		{Label: "Athena", Points: 3, Done: 3},
		{Label: "Apollo", Points: 2, Started: 2},
		{Label: "Geosharding", Points: 5, NotStarted: 5},
	}, res.Rows)
	assert.Equal(t, []string{"CARE-5"}, res.Stats.Unestimated)
	assert.Equal(t, []string{"Care Live Tasks"}, res.UnmatchedEpics)
	assert.Equal(t, int64(0), res.RunID)

	assert.Equal(t, "Care_Team_sprint-42_current_20260306.csv", filepath.Base(res.CSVPath))
	data, err := os.ReadFile(res.CSVPath)
	require.NoError(t, err)
	assert.Equal(t, "Epic,Not Started,Started,Done\nTotal,5,2,3\nAthena,0,0,3\nApollo,0,2,0\nGeosharding,5,0,0\n", string(data))

	assert.True(t, strings.HasPrefix(res.Table, "Care Team: Sprint 42 (current sprint), Mar 2 to Mar 16\n"), res.Table)
}

func TestRunIncludesEpicRows(t *testing.T) {
	t.Parallel()
	r := testRunner(t, testBoard())
	r.IncludeEpicRows = true

	res, err := r.Run(context.Background(), sprint.Current)
	require.NoError(t, err)

	var labels []string
	for _, row := range res.Rows {
		labels = append(labels, row.Label)
	}
	assert.Equal(t, []string{"Total", "Athena", "Apollo", "Geosharding", "Geosharding (epic)", "Care Data Centre (epic)"}, labels)
}

func TestRunNoMatchingSprint(t *testing.T) {
	t.Parallel()
	board := testBoard()
	board.sprints = board.sprints[:2]
	r := testRunner(t, board)

	_, err := r.Run(context.Background(), sprint.Next)
	assert.ErrorIs(t, err, sprint.ErrNoMatchingSprint)

	entries, err := os.ReadDir(r.OutputDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRunFetchErrors(t *testing.T) {
	t.Parallel()
	boom := errors.New("boom")

	board := testBoard()
	board.sprintErr = boom
	_, err := testRunner(t, board).Run(context.Background(), sprint.Current)
	assert.ErrorIs(t, err, boom)

	board = testBoard()
	board.issueErr = boom
	_, err = testRunner(t, board).Run(context.Background(), sprint.Current)
	assert.ErrorIs(t, err, boom)
}

func TestRunEpicFetchFailureIsNotFatal(t *testing.T) {
	t.Parallel()
	board := testBoard()
	board.epicErr = errors.New("forbidden")

	res, err := testRunner(t, board).Run(context.Background(), sprint.Current)
	require.NoError(t, err)
	assert.Empty(t, res.UnmatchedEpics)
	assert.Len(t, res.Rows, 4)
}

func TestRunAmbiguousEpicFails(t *testing.T) {
	t.Parallel()
	board := testBoard()
	board.issues[42] = append(board.issues[42], Issue{
		Key: "CARE-9", StatusName: "New", ParentSummary: "Geosharding for Care Live Tasks", Points: pts(1),
	})

	_, err := testRunner(t, board).Run(context.Background(), sprint.Current)
	assert.ErrorIs(t, err, aggregate.ErrAmbiguousEpic)
	assert.Contains(t, err.Error(), "CARE-9")
}

func TestRunSideChannels(t *testing.T) {
	t.Parallel()
	db, err := sqlite.InitDB(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	notifier := &fakeNotifier{}
	summarizer := &fakeSummarizer{text: "Athena is done."}
	r := testRunner(t, testBoard())
	r.DB = db
	r.Notifier = notifier
	r.Summarizer = summarizer

	first, err := r.Run(context.Background(), sprint.Current)
	require.NoError(t, err)
	assert.NotZero(t, first.RunID)
	assert.Equal(t, "Athena is done.", first.Narrative)
	assert.Equal(t, 1, notifier.calls)
	assert.Equal(t, first.Table, notifier.table)
	assert.Equal(t, "Athena is done.", notifier.narrative)
	require.Len(t, summarizer.inputs, 1)
	assert.Empty(t, summarizer.inputs[0].Previous)
	assert.Equal(t, []string{"CARE-5"}, summarizer.inputs[0].Unestimated)

	r.Now = func() time.Time { return day(6).Add(time.Hour) }
	second, err := r.Run(context.Background(), sprint.Current)
	require.NoError(t, err)
	assert.Greater(t, second.RunID, first.RunID)
	require.Len(t, summarizer.inputs, 2)
	assert.Equal(t, first.Rows, summarizer.inputs[1].Previous)

	runs, err := sqlite.GetRecentRuns(db, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, second.RunID, runs[0].ID)
	assert.Equal(t, "current", runs[0].Choice)
}

func TestRunSideChannelFailuresAreLogged(t *testing.T) {
	t.Parallel()
	notifier := &fakeNotifier{err: errors.New("channel_not_found")}
	summarizer := &fakeSummarizer{err: errors.New("overloaded")}
	r := testRunner(t, testBoard())
	r.Notifier = notifier
	r.Summarizer = summarizer

	res, err := r.Run(context.Background(), sprint.Current)
	require.NoError(t, err)
	assert.Empty(t, res.Narrative)
	assert.Equal(t, 1, notifier.calls)
	assert.FileExists(t, res.CSVPath)
}

func TestUnmatchedRules(t *testing.T) {
	t.Parallel()
	rules := []aggregate.EpicRule{
		{Epic: "Geosharding", Team: "Geosharding"},
		{Epic: "CDC", Team: "Athena"},
		{Epic: "Care Live Tasks", Team: "Athena"},
	}
	epics := []Epic{{Name: "CDC", Summary: "Care Data Centre"}, {Name: "GEO", Summary: "Geosharding phase 2"}}

	assert.Equal(t, []aggregate.EpicRule{{Epic: "Care Live Tasks", Team: "Athena"}}, UnmatchedRules(rules, epics))
	assert.Len(t, UnmatchedRules(rules, nil), 3)
}
