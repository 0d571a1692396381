package jira

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

var (
	ErrPageLimit  = errors.New("page limit reached before the last page")
	ErrNoProgress = errors.New("empty page before the last page")
)

// Client reads sprints, epics and sprint issues from one Jira Agile board.
type Client struct {
	BaseURL          string
	Credentials      string // "user:api-token", sent as HTTP basic auth
	BoardID          int
	PageSize         int
	MaxPages         int
	StoryPointsField string
	HTTPClient       *http.Client
}

func NewClient(cfg Config) *Client {
	return &Client{
		BaseURL:          strings.TrimRight(cfg.JiraURL, "/"),
		Credentials:      cfg.JiraCredentials,
		BoardID:          cfg.BoardID,
		PageSize:         cfg.PageSize,
		MaxPages:         cfg.MaxPages,
		StoryPointsField: cfg.StoryPointsField,
		HTTPClient:       externalHTTPClient,
	}
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, v any) error {
	apiURL := c.BaseURL + path
	if len(query) > 0 {
		apiURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(c.Credentials)))
	req.Header.Set("Accept", "application/json")

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = externalHTTPClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("fetching %s: %w", path, err)
	}

	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("Jira API returned %d for %s: %s", resp.StatusCode, path, strings.TrimSpace(string(body)))
	}

	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("parsing response from %s: %w", path, err)
	}
	return nil
}

func (c *Client) pageQuery(startAt int) url.Values {
	q := url.Values{}
	q.Set("startAt", strconv.Itoa(startAt))
	if c.PageSize > 0 {
		q.Set("maxResults", strconv.Itoa(c.PageSize))
	}
	return q
}

type page[T any] struct {
	values []T
	last   bool
}

// paginate requests pages from startAt=0 until a page reports it is the last
// one, advancing by the number of values returned. It stops with an error
// after maxPages pages or when a non-final page is empty.
func paginate[T any](ctx context.Context, what string, maxPages int, fetch func(ctx context.Context, startAt int) (page[T], error)) ([]T, error) {
	var all []T
	startAt := 0
	for n := 1; ; n++ {
		if maxPages > 0 && n > maxPages {
			return nil, fmt.Errorf("%s: %w (max_pages=%d)", what, ErrPageLimit, maxPages)
		}
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%s: %w", what, err)
		}

		log.Printf("jira fetch %s page=%d startAt=%d", what, n, startAt)
		p, err := fetch(ctx, startAt)
		if err != nil {
			return nil, fmt.Errorf("%s page %d: %w", what, n, err)
		}
		all = append(all, p.values...)
		if p.last {
			break
		}
		if len(p.values) == 0 {
			return nil, fmt.Errorf("%s page %d: %w", what, n, ErrNoProgress)
		}
		startAt += len(p.values)
	}
	log.Printf("jira fetch %s done total=%d", what, len(all))
	return all, nil
}
