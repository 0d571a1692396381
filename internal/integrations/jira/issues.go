package jira

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

type issuePage struct {
	StartAt    int             `json:"startAt"`
	MaxResults int             `json:"maxResults"`
	Total      int             `json:"total"`
	Issues     []issueResponse `json:"issues"`
}

type issueResponse struct {
	ID     string          `json:"id"`
	Key    string          `json:"key"`
	Fields json.RawMessage `json:"fields"`
}

type issueFields struct {
	Summary        string `json:"summary"`
	ResolutionDate string `json:"resolutiondate"`
	Status         struct {
		Name           string `json:"name"`
		StatusCategory struct {
			Key  string `json:"key"`
			Name string `json:"name"`
		} `json:"statusCategory"`
	} `json:"status"`
	Parent *struct {
		ID     string `json:"id"`
		Key    string `json:"key"`
		Fields struct {
			Summary string `json:"summary"`
		} `json:"fields"`
	} `json:"parent"`
}

// FetchSprintIssues returns all issues of a sprint. The issue endpoint reports
// a total count rather than isLast, so paging stops once total is reached.
func (c *Client) FetchSprintIssues(ctx context.Context, sprintID int64) ([]Issue, error) {
	path := fmt.Sprintf("/rest/agile/1.0/sprint/%d/issue", sprintID)
	fields := strings.Join([]string{"issuekey", "summary", "status", "parent", "resolutiondate", c.StoryPointsField}, ",")

	raw, err := paginate(ctx, fmt.Sprintf("sprint %d issues", sprintID), c.MaxPages, func(ctx context.Context, startAt int) (page[issueResponse], error) {
		q := c.pageQuery(startAt)
		q.Set("fields", fields)
		var resp issuePage
		if err := c.getJSON(ctx, path, q, &resp); err != nil {
			return page[issueResponse]{}, err
		}
		last := startAt+len(resp.Issues) >= resp.Total
		return page[issueResponse]{values: resp.Issues, last: last}, nil
	})
	if err != nil {
		return nil, err
	}

	issues := make([]Issue, 0, len(raw))
	for _, r := range raw {
		issue, err := c.convertIssue(r)
		if err != nil {
			return nil, err
		}
		issues = append(issues, issue)
	}
	return issues, nil
}

func (c *Client) convertIssue(r issueResponse) (Issue, error) {
	var f issueFields
	if err := json.Unmarshal(r.Fields, &f); err != nil {
		return Issue{}, fmt.Errorf("issue %s fields: %w", r.Key, err)
	}
	var all map[string]json.RawMessage
	if err := json.Unmarshal(r.Fields, &all); err != nil {
		return Issue{}, fmt.Errorf("issue %s fields: %w", r.Key, err)
	}

	points, err := parsePoints(all[c.StoryPointsField])
	if err != nil {
		return Issue{}, fmt.Errorf("issue %s %s: %w", r.Key, c.StoryPointsField, err)
	}
	resolved, err := parseJiraTime(f.ResolutionDate)
	if err != nil {
		return Issue{}, fmt.Errorf("issue %s resolutiondate: %w", r.Key, err)
	}

	issue := Issue{
		ID:             r.ID,
		Key:            r.Key,
		Summary:        f.Summary,
		StatusName:     f.Status.Name,
		StatusCategory: f.Status.StatusCategory.Name,
		ResolutionDate: resolved,
		Points:         points,
	}
	if f.Parent != nil {
		issue.ParentKey = f.Parent.Key
		issue.ParentSummary = f.Parent.Fields.Summary
	}
	return issue, nil
}

// parsePoints returns nil for a missing or null estimate and an error for any
// value that is not a JSON number.
func parsePoints(raw json.RawMessage) (*float64, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	var v float64
	if err := json.Unmarshal(trimmed, &v); err != nil {
		return nil, fmt.Errorf("story points %s are not numeric", string(trimmed))
	}
	return &v, nil
}

var jiraTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.000-0700",
	"2006-01-02T15:04:05-0700",
}

// parseJiraTime accepts the RFC3339 timestamps of the Agile API and the
// "+0000" offsets used by issue fields. An empty string is the zero time.
func parseJiraTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range jiraTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}
