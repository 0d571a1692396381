package sprintreport

import (
	"context"

	"sprintreport/internal/domain"
	illm "sprintreport/internal/integrations/llm"
)

type Sprint = domain.Sprint
type Epic = domain.Epic
type Issue = domain.Issue
type ReportRow = domain.ReportRow
type SummaryInput = illm.SummaryInput
type LLMUsage = illm.LLMUsage

// BoardClient is the subset of the Jira client a run needs.
type BoardClient interface {
	FetchSprints(ctx context.Context) ([]Sprint, error)
	FetchEpics(ctx context.Context) ([]Epic, error)
	FetchSprintIssues(ctx context.Context, sprintID int64) ([]Issue, error)
}

type Notifier interface {
	PostReport(ctx context.Context, table, narrative string) error
}

type Summarizer interface {
	Summarize(ctx context.Context, in SummaryInput) (string, LLMUsage, error)
}
