package redmine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"ninetofiver/metrics"
)

const (
	apiKeyHeader    = "X-Redmine-API-Key"
	defaultPageSize = 100
	maxErrorBody    = 4096
)

// ErrNotConfigured is returned by NewClient when URL or API key are missing.
var ErrNotConfigured = errors.New("redmine url and api key are not configured")

// Client defines the read-only Redmine API operations used for reconciliation.
type Client interface {
	BaseURL() string
	ListUsers(ctx context.Context) ([]User, error)
	FindUsersByName(ctx context.Context, name string, limit int) ([]User, error)
	ListProjects(ctx context.Context) ([]Project, error)
	ListIssues(ctx context.Context, filter IssueFilter) ([]Issue, error)
	ListTimeEntries(ctx context.Context, filter TimeEntryFilter) ([]TimeEntry, error)
}

type ClientConfig struct {
	BaseURL  string
	APIKey   string
	Timeout  time.Duration
	PageSize int
	// HTTPClient overrides the transport, mainly for tests.
	HTTPClient *http.Client
	Logger     zerolog.Logger
}

type HTTPClient struct {
	baseURL  string
	pageSize int
	http     *resty.Client
	log      zerolog.Logger
}

func NewClient(cfg ClientConfig) (*HTTPClient, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	apiKey := strings.TrimSpace(cfg.APIKey)
	if baseURL == "" || apiKey == "" {
		return nil, ErrNotConfigured
	}

	parsedBase, err := url.Parse(baseURL)
	if err != nil || parsedBase.Scheme == "" || parsedBase.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q", cfg.BaseURL)
	}

	pageSize := cfg.PageSize
	if pageSize <= 0 || pageSize > defaultPageSize {
		pageSize = defaultPageSize
	}

	var rc *resty.Client
	if cfg.HTTPClient != nil {
		rc = resty.NewWithClient(cfg.HTTPClient)
	} else {
		rc = resty.New()
	}
	rc.SetBaseURL(baseURL).
		SetHeader(apiKeyHeader, apiKey).
		SetHeader("Accept", "application/json")
	if cfg.Timeout > 0 {
		rc.SetTimeout(cfg.Timeout)
	}

	return &HTTPClient{
		baseURL:  baseURL,
		pageSize: pageSize,
		http:     rc,
		log:      cfg.Logger,
	}, nil
}

func (c *HTTPClient) BaseURL() string {
	return c.baseURL
}

func (c *HTTPClient) ListUsers(ctx context.Context) ([]User, error) {
	return listAll(ctx, c, "users", "/users.json", nil, func(p *usersPage) ([]User, page) {
		return p.Users, p.page
	})
}

// FindUsersByName issues a single filtered lookup; Redmine matches the name
// against login, first name, last name and mail.
func (c *HTTPClient) FindUsersByName(ctx context.Context, name string, limit int) ([]User, error) {
	if limit <= 0 {
		limit = c.pageSize
	}
	var out usersPage
	query := map[string]string{
		"name":  name,
		"limit": strconv.Itoa(limit),
	}
	if err := c.getJSON(ctx, "users", "/users.json", query, &out); err != nil {
		return nil, err
	}
	return out.Users, nil
}

func (c *HTTPClient) ListProjects(ctx context.Context) ([]Project, error) {
	return listAll(ctx, c, "projects", "/projects.json", nil, func(p *projectsPage) ([]Project, page) {
		return p.Projects, p.page
	})
}

func (c *HTTPClient) ListIssues(ctx context.Context, filter IssueFilter) ([]Issue, error) {
	query := make(map[string]string, 3)
	if len(filter.IDs) > 0 {
		query["issue_id"] = JoinIDs(filter.IDs)
	}
	if filter.AssignedToID > 0 {
		query["assigned_to_id"] = strconv.FormatInt(filter.AssignedToID, 10)
	}
	if strings.TrimSpace(filter.StatusID) != "" {
		query["status_id"] = strings.TrimSpace(filter.StatusID)
	}
	return listAll(ctx, c, "issues", "/issues.json", query, func(p *issuesPage) ([]Issue, page) {
		return p.Issues, p.page
	})
}

func (c *HTTPClient) ListTimeEntries(ctx context.Context, filter TimeEntryFilter) ([]TimeEntry, error) {
	query := make(map[string]string, 3)
	if !filter.From.IsZero() {
		query["from"] = filter.From.Format(dayLayout)
	}
	if !filter.To.IsZero() {
		query["to"] = filter.To.Format(dayLayout)
	}
	if filter.UserID > 0 {
		query["user_id"] = strconv.FormatInt(filter.UserID, 10)
	}
	return listAll(ctx, c, "time_entries", "/time_entries.json", query, func(p *timeEntriesPage) ([]TimeEntry, page) {
		return p.TimeEntries, p.page
	})
}

// JoinIDs renders ids as a sorted, de-duplicated comma list.
func JoinIDs(ids []int64) string {
	unique := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		unique[id] = struct{}{}
	}
	sorted := make([]int64, 0, len(unique))
	for id := range unique {
		sorted = append(sorted, id)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	items := make([]string, 0, len(sorted))
	for _, id := range sorted {
		items = append(items, strconv.FormatInt(id, 10))
	}
	return strings.Join(items, ",")
}

func listAll[P any, T any](
	ctx context.Context,
	c *HTTPClient,
	endpoint, path string,
	params map[string]string,
	items func(*P) ([]T, page),
) ([]T, error) {
	out := make([]T, 0)
	offset := 0
	for {
		query := make(map[string]string, len(params)+2)
		for key, value := range params {
			query[key] = value
		}
		query["offset"] = strconv.Itoa(offset)
		query["limit"] = strconv.Itoa(c.pageSize)

		var body P
		if err := c.getJSON(ctx, endpoint, path, query, &body); err != nil {
			return nil, err
		}
		batch, meta := items(&body)
		out = append(out, batch...)
		offset += len(batch)
		if len(batch) == 0 || offset >= meta.TotalCount {
			return out, nil
		}
	}
}

func (c *HTTPClient) getJSON(ctx context.Context, endpoint, path string, query map[string]string, out any) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(query).
		Get(path)
	if err != nil {
		metrics.ObserveRequest(endpoint, 0)
		return fmt.Errorf("request GET %s failed: %w", path, err)
	}
	metrics.ObserveRequest(endpoint, resp.StatusCode())
	c.log.Debug().
		Str("path", path).
		Interface("query", query).
		Int("status", resp.StatusCode()).
		Dur("took", resp.Time()).
		Msg("redmine request")

	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		body := resp.String()
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}
		return fmt.Errorf(
			"request GET %s failed with status %d: %s",
			path,
			resp.StatusCode(),
			strings.TrimSpace(body),
		)
	}

	if out == nil || len(resp.Body()) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("decode response GET %s: %w", path, err)
	}
	return nil
}
