package sprint

import "sprintreport/internal/domain"

// LegitimateIssues drops issues resolved before the sprint started: stale
// carry-over tickets that were done before the sprint began. Unresolved
// issues are always kept.
func LegitimateIssues(s domain.Sprint, issues []domain.Issue) []domain.Issue {
	kept := make([]domain.Issue, 0, len(issues))
	for _, issue := range issues {
		if issue.ResolutionDate.IsZero() || issue.ResolutionDate.After(s.StartDate) {
			kept = append(kept, issue)
		}
	}
	return kept
}
