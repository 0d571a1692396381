package sprintreport

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"
	"time"

	"sprintreport/internal/aggregate"
	"sprintreport/internal/report"
	"sprintreport/internal/sprint"
	"sprintreport/internal/storage/sqlite"
)

// Runner executes one sprint report: select a sprint, fetch and filter its
// issues, aggregate them and write the CSV. History, Slack and the LLM
// narrative are optional and only logged on failure.
type Runner struct {
	Board           BoardClient
	Aggregator      *aggregate.Aggregator
	IncludeEpicRows bool
	OutputDir       string
	TeamName        string
	Location        *time.Location

	DB         *sql.DB    // nil disables run history
	Notifier   Notifier   // nil disables Slack
	Summarizer Summarizer // nil disables the narrative

	Now func() time.Time
}

type Result struct {
	Sprint         Sprint
	Choice         sprint.Choice
	GeneratedAt    time.Time
	Stats          *aggregate.Stats
	Rows           []ReportRow
	CSVPath        string
	Table          string
	Narrative      string
	RunID          int64    // 0 when history is disabled or the insert failed
	UnmatchedEpics []string // mapped epic names with no epic on the board
}

func (r *Runner) now() time.Time {
	now := time.Now()
	if r.Now != nil {
		now = r.Now()
	}
	if r.Location != nil {
		now = now.In(r.Location)
	}
	return now
}

func (r *Runner) Run(ctx context.Context, choice sprint.Choice) (Result, error) {
	now := r.now()

	sprints, err := r.Board.FetchSprints(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("fetching sprints: %w", err)
	}
	selected, err := sprint.Select(sprints, choice, now)
	if err != nil {
		return Result{}, err
	}
	log.Printf("sprint selected choice=%s id=%d name=%q start=%s end=%s",
		choice, selected.ID, selected.Name,
		selected.StartDate.Format(time.RFC3339), selected.EndDate.Format(time.RFC3339))

	res := Result{Sprint: selected, Choice: choice, GeneratedAt: now}

	epics, err := r.Board.FetchEpics(ctx)
	if err != nil {
		log.Printf("epic cross-check skipped: %v", err)
	} else {
		for _, rule := range UnmatchedRules(r.Aggregator.Mapping().Rules(), epics) {
			res.UnmatchedEpics = append(res.UnmatchedEpics, rule.Epic)
			log.Printf("warning: mapped epic %q (team %s) matches no epic on the board", rule.Epic, rule.Team)
		}
	}

	issues, err := r.Board.FetchSprintIssues(ctx, selected.ID)
	if err != nil {
		return Result{}, fmt.Errorf("fetching issues for sprint %d: %w", selected.ID, err)
	}
	legit := sprint.LegitimateIssues(selected, issues)
	log.Printf("sprint issues fetched=%d kept=%d", len(issues), len(legit))

	stats, err := r.Aggregator.Aggregate(legit)
	if err != nil {
		return Result{}, fmt.Errorf("aggregating sprint %d: %w", selected.ID, err)
	}
	if len(stats.Unestimated) > 0 {
		log.Printf("warning: %d issues have no story points and count as 0: %s",
			len(stats.Unestimated), strings.Join(stats.Unestimated, ", "))
	}
	res.Stats = stats
	res.Rows = stats.Rows(r.IncludeEpicRows)

	res.CSVPath, err = report.WriteCSVFile(res.Rows, r.OutputDir, r.TeamName, selected, choice.String(), now)
	if err != nil {
		return Result{}, fmt.Errorf("writing report: %w", err)
	}
	log.Printf("report written path=%s rows=%d", res.CSVPath, len(res.Rows))

	res.Table = report.RenderText(Title(r.TeamName, selected, choice), res.Rows)

	var previous []ReportRow
	if r.DB != nil {
		previous = r.previousRows(selected.ID, now)
		res.RunID = r.storeRun(res)
	}

	if r.Summarizer != nil {
		narrative, _, err := r.Summarizer.Summarize(ctx, SummaryInput{
			Sprint:      selected,
			Choice:      choice.String(),
			Rows:        res.Rows,
			Previous:    previous,
			Unestimated: stats.Unestimated,
		})
		if err != nil {
			log.Printf("llm summary failed: %v", err)
		} else {
			res.Narrative = narrative
		}
	}

	if r.Notifier != nil {
		if err := r.Notifier.PostReport(ctx, res.Table, res.Narrative); err != nil {
			log.Printf("slack post failed: %v", err)
		}
	}

	return res, nil
}

func (r *Runner) previousRows(sprintID int64, before time.Time) []ReportRow {
	prev, ok, err := sqlite.GetLatestRunForSprint(r.DB, sprintID, before.UTC())
	if err != nil {
		log.Printf("history lookup failed sprint=%d: %v", sprintID, err)
		return nil
	}
	if !ok {
		return nil
	}
	return prev.Rows
}

func (r *Runner) storeRun(res Result) int64 {
	id, err := sqlite.InsertReportRun(r.DB, sqlite.ReportRun{
		SprintID:    res.Sprint.ID,
		SprintName:  res.Sprint.Name,
		Choice:      res.Choice.String(),
		GeneratedAt: res.GeneratedAt.UTC(),
		CSVPath:     res.CSVPath,
		Rows:        res.Rows,
	})
	if err != nil {
		log.Printf("history insert failed sprint=%d: %v", res.Sprint.ID, err)
		return 0
	}
	return id
}

func Title(teamName string, s Sprint, choice sprint.Choice) string {
	title := fmt.Sprintf("%s: %s (%s sprint)", teamName, s.Name, choice)
	if !s.StartDate.IsZero() && !s.EndDate.IsZero() {
		title += fmt.Sprintf(", %s to %s", s.StartDate.Format("Jan 2"), s.EndDate.Format("Jan 2"))
	}
	return title
}

// UnmatchedRules returns the mapping rules whose epic name is not contained
// in the name or summary of any board epic.
func UnmatchedRules(rules []aggregate.EpicRule, epics []Epic) []aggregate.EpicRule {
	var out []aggregate.EpicRule
	for _, rule := range rules {
		found := false
		for _, e := range epics {
			if strings.Contains(e.Summary, rule.Epic) || strings.Contains(e.Name, rule.Epic) {
				found = true
				break
			}
		}
		if !found {
			out = append(out, rule)
		}
	}
	return out
}
