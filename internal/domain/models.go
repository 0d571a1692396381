package domain

import "time"

type Sprint struct {
	ID           int64
	Name         string
	State        string // "active", "closed", "future"
	StartDate    time.Time
	EndDate      time.Time
	CompleteDate time.Time // zero until the sprint is closed
	Goal         string
}

type Epic struct {
	ID      int64
	Name    string
	Summary string
	Done    bool
}

type Issue struct {
	ID             string
	Key            string
	Summary        string
	StatusName     string
	StatusCategory string
	ParentKey      string
	ParentSummary  string    // summary of the parent epic, empty when the issue has no parent
	ResolutionDate time.Time // zero when unresolved
	Points         *float64  // nil when the issue has no estimate
}

// StoryPoints returns the estimate, or 0 for an unestimated issue.
func (i Issue) StoryPoints() float64 {
	if i.Points == nil {
		return 0
	}
	return *i.Points
}

func (i Issue) Estimated() bool {
	return i.Points != nil
}

// ReportRow is one line of the sprint report: a label (Total, a team or an
// epic) and the story points per status bucket.
type ReportRow struct {
	Label      string
	Points     float64
	NotStarted float64
	Started    float64
	Done       float64
}

type ReportRun struct {
	ID          int64
	SprintID    int64
	SprintName  string
	Choice      string
	GeneratedAt time.Time
	CSVPath     string
	Rows        []ReportRow
}
