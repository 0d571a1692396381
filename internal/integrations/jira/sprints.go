package jira

import (
	"context"
	"fmt"
)

type sprintResponse struct {
	ID           int64  `json:"id"`
	State        string `json:"state"`
	Name         string `json:"name"`
	StartDate    string `json:"startDate"`
	EndDate      string `json:"endDate"`
	CompleteDate string `json:"completeDate"`
	Goal         string `json:"goal"`
}

type sprintPage struct {
	MaxResults int              `json:"maxResults"`
	StartAt    int              `json:"startAt"`
	IsLast     bool             `json:"isLast"`
	Values     []sprintResponse `json:"values"`
}

type epicResponse struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Summary string `json:"summary"`
	Done    bool   `json:"done"`
}

type epicPage struct {
	MaxResults int            `json:"maxResults"`
	StartAt    int            `json:"startAt"`
	IsLast     bool           `json:"isLast"`
	Values     []epicResponse `json:"values"`
}

// FetchSprints returns every sprint of the board in the order Jira lists them.
func (c *Client) FetchSprints(ctx context.Context) ([]Sprint, error) {
	path := fmt.Sprintf("/rest/agile/1.0/board/%d/sprint", c.BoardID)
	raw, err := paginate(ctx, "sprints", c.MaxPages, func(ctx context.Context, startAt int) (page[sprintResponse], error) {
		var resp sprintPage
		if err := c.getJSON(ctx, path, c.pageQuery(startAt), &resp); err != nil {
			return page[sprintResponse]{}, err
		}
		return page[sprintResponse]{values: resp.Values, last: resp.IsLast}, nil
	})
	if err != nil {
		return nil, err
	}

	sprints := make([]Sprint, 0, len(raw))
	for _, s := range raw {
		converted, err := convertSprint(s)
		if err != nil {
			return nil, err
		}
		sprints = append(sprints, converted)
	}
	return sprints, nil
}

func convertSprint(s sprintResponse) (Sprint, error) {
	start, err := parseJiraTime(s.StartDate)
	if err != nil {
		return Sprint{}, fmt.Errorf("sprint %d startDate: %w", s.ID, err)
	}
	end, err := parseJiraTime(s.EndDate)
	if err != nil {
		return Sprint{}, fmt.Errorf("sprint %d endDate: %w", s.ID, err)
	}
	complete, err := parseJiraTime(s.CompleteDate)
	if err != nil {
		return Sprint{}, fmt.Errorf("sprint %d completeDate: %w", s.ID, err)
	}
	return Sprint{
		ID:           s.ID,
		Name:         s.Name,
		State:        s.State,
		StartDate:    start,
		EndDate:      end,
		CompleteDate: complete,
		Goal:         s.Goal,
	}, nil
}

// FetchEpics returns every epic of the board.
func (c *Client) FetchEpics(ctx context.Context) ([]Epic, error) {
	path := fmt.Sprintf("/rest/agile/1.0/board/%d/epic", c.BoardID)
	raw, err := paginate(ctx, "epics", c.MaxPages, func(ctx context.Context, startAt int) (page[epicResponse], error) {
		var resp epicPage
		if err := c.getJSON(ctx, path, c.pageQuery(startAt), &resp); err != nil {
			return page[epicResponse]{}, err
		}
		return page[epicResponse]{values: resp.Values, last: resp.IsLast}, nil
	})
	if err != nil {
		return nil, err
	}

	epics := make([]Epic, 0, len(raw))
	for _, e := range raw {
		epics = append(epics, Epic{ID: e.ID, Name: e.Name, Summary: e.Summary, Done: e.Done})
	}
	return epics, nil
}
