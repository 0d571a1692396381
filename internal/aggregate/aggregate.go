package aggregate

import (
	"fmt"
	"strings"

	"sprintreport/internal/domain"
)

const TotalLabel = "Total"

var (
	DefaultNotStartedStatuses = []string{"Prioritised", "New"}
	DefaultDoneStatuses       = []string{"Done"}
)

type Bucket struct {
	Points     float64
	NotStarted float64
	Started    float64
	Done       float64
}

func (b *Bucket) Add(other Bucket) {
	b.Points += other.Points
	b.NotStarted += other.NotStarted
	b.Started += other.Started
	b.Done += other.Done
}

func (b Bucket) Sub(other Bucket) Bucket {
	return Bucket{
		Points:     b.Points - other.Points,
		NotStarted: b.NotStarted - other.NotStarted,
		Started:    b.Started - other.Started,
		Done:       b.Done - other.Done,
	}
}

func (b Bucket) row(label string) domain.ReportRow {
	return domain.ReportRow{
		Label:      label,
		Points:     b.Points,
		NotStarted: b.NotStarted,
		Started:    b.Started,
		Done:       b.Done,
	}
}

type StatusCategory int

const (
	StatusStarted StatusCategory = iota
	StatusNotStarted
	StatusDone
)

// StatusRules maps workflow status names onto the three report columns.
// Statuses in neither list count as started.
type StatusRules struct {
	NotStarted []string
	Done       []string
}

func DefaultStatusRules() StatusRules {
	return StatusRules{
		NotStarted: append([]string(nil), DefaultNotStartedStatuses...),
		Done:       append([]string(nil), DefaultDoneStatuses...),
	}
}

func (r StatusRules) Classify(status string) StatusCategory {
	for _, s := range r.Done {
		if s == status {
			return StatusDone
		}
	}
	for _, s := range r.NotStarted {
		if s == status {
			return StatusNotStarted
		}
	}
	return StatusStarted
}

func (r StatusRules) bucketFor(issue domain.Issue) Bucket {
	sp := issue.StoryPoints()
	b := Bucket{Points: sp}
	switch r.Classify(issue.StatusName) {
	case StatusDone:
		b.Done = sp
	case StatusNotStarted:
		b.NotStarted = sp
	default:
		b.Started = sp
	}
	return b
}

type Aggregator struct {
	mapping *EpicMapping
	rules   StatusRules
}

func New(mapping *EpicMapping, rules StatusRules) *Aggregator {
	return &Aggregator{mapping: mapping, rules: rules}
}

func (a *Aggregator) Mapping() *EpicMapping {
	return a.mapping
}

// Stats holds the buckets of a single aggregation run.
type Stats struct {
	Total       Bucket
	Teams       map[string]Bucket
	Epics       map[string]Bucket
	Unestimated []string // keys of issues without story points

	teamOrder []string
	epicOrder []string
}

// Aggregate computes the Total bucket, the per-epic and per-team buckets and
// finally the unmapped team's residual. Every call starts from fresh state.
// Issues matching more than one mapped epic fail the whole aggregation.
func (a *Aggregator) Aggregate(issues []domain.Issue) (*Stats, error) {
	stats := &Stats{
		Teams:     make(map[string]Bucket, len(a.mapping.teams)),
		Epics:     make(map[string]Bucket, len(a.mapping.rules)),
		teamOrder: a.mapping.Teams(),
	}
	for _, team := range a.mapping.teams {
		stats.Teams[team] = Bucket{}
	}
	for _, rule := range a.mapping.rules {
		stats.Epics[rule.Epic] = Bucket{}
		stats.epicOrder = append(stats.epicOrder, rule.Epic)
	}

	var ambiguous []string
	for _, issue := range issues {
		if !issue.Estimated() {
			stats.Unestimated = append(stats.Unestimated, issue.Key)
		}
		b := a.rules.bucketFor(issue)
		stats.Total.Add(b)

		rule, ok, err := a.mapping.Match(issue.ParentSummary)
		if err != nil {
			ambiguous = append(ambiguous, fmt.Sprintf("%s (%v)", issue.Key, err))
			continue
		}
		if !ok {
			continue
		}
		epic := stats.Epics[rule.Epic]
		epic.Add(b)
		stats.Epics[rule.Epic] = epic
		team := stats.Teams[rule.Team]
		team.Add(b)
		stats.Teams[rule.Team] = team
	}
	if len(ambiguous) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrAmbiguousEpic, strings.Join(ambiguous, "; "))
	}

	var mapped Bucket
	for _, team := range a.mapping.teams {
		if team == a.mapping.unmappedTeam {
			continue
		}
		mapped.Add(stats.Teams[team])
	}
	stats.Teams[a.mapping.unmappedTeam] = stats.Total.Sub(mapped)

	return stats, nil
}

// Rows returns the report rows in a fixed order: Total, teams in configured
// order, then epics in mapping order when includeEpics is set. Buckets with
// zero total points are dropped.
func (s *Stats) Rows(includeEpics bool) []domain.ReportRow {
	var rows []domain.ReportRow
	if s.Total.Points != 0 {
		rows = append(rows, s.Total.row(TotalLabel))
	}
	for _, team := range s.teamOrder {
		if b := s.Teams[team]; b.Points != 0 {
			rows = append(rows, b.row(team))
		}
	}
	if includeEpics {
		for _, epic := range s.epicOrder {
			if b := s.Epics[epic]; b.Points != 0 {
				rows = append(rows, b.row(EpicLabel(epic)))
			}
		}
	}
	return rows
}

// EpicLabel keeps epic rows distinct from team rows that share a name.
func EpicLabel(epic string) string {
	return epic + " (epic)"
}
