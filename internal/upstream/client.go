// Package upstream provides the typed client for the upstream issue
// tracker's REST API. Every call consumes one unit of the upstream rate
// budget, which is why the gateway caches responses aggressively.
package upstream

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v41/github"
	"golang.org/x/oauth2"

	"github.com/nightfallstudio/bugboard/internal/config"
	"github.com/nightfallstudio/bugboard/internal/logging"
	"github.com/nightfallstudio/bugboard/internal/models"
)

// maxPerPage is the upstream's listing page-size ceiling.
const maxPerPage = 100

// ListOptions narrows an issue listing. Zero values select the upstream
// defaults: open issues, most recent first.
type ListOptions struct {
	State     string   // open, closed, all
	Labels    []string // all must be present
	Sort      string   // created, updated, comments
	Direction string   // asc, desc
	Page      int
	PerPage   int
}

// Release describes a published upstream release.
type Release struct {
	TagName     string    `json:"tag_name"`
	Name        string    `json:"name"`
	Body        string    `json:"body"`
	URL         string    `json:"url"`
	Prerelease  bool      `json:"prerelease"`
	PublishedAt time.Time `json:"published_at"`
}

// API is the upstream surface the gateway depends on. Tests substitute a
// fake; Client is the production implementation.
type API interface {
	ListIssues(ctx context.Context, opts ListOptions) ([]models.Issue, error)
	CreateIssue(ctx context.Context, title, body string, labels []string) (*models.Issue, error)
	ReplaceLabels(ctx context.Context, number int, labels []string) ([]string, error)
	ListReleases(ctx context.Context) ([]Release, error)
}

// Client encapsulates the upstream tracker API client for one repository.
type Client struct {
	client *github.Client
	owner  string
	repo   string
}

// NewClient creates an authenticated upstream client from configuration.
// The repository must be in owner/repo form. A non-empty domain selects a
// GitHub Enterprise host.
func NewClient(cfg config.UpstreamConfig) (*Client, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("upstream token not configured")
	}

	parts := strings.Split(cfg.Repo, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return nil, fmt.Errorf("invalid repository format: %q, expected owner/repo", cfg.Repo)
	}

	domain := cfg.Domain
	if domain == "" {
		domain = "github.com"
	}

	var apiURL string
	if domain == "github.com" {
		apiURL = "https://api.github.com/"
	} else {
		apiURL = fmt.Sprintf("https://%s/api/v3/", domain)
	}

	logging.Info("upstream configuration",
		"repo", cfg.Repo,
		"api_url", apiURL,
		"token", logging.MaskSensitive(cfg.Token))

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token})
	tc := oauth2.NewClient(context.Background(), ts)

	client := github.NewClient(tc)
	if domain != "github.com" {
		parsedURL, err := url.Parse(apiURL)
		if err != nil {
			return nil, fmt.Errorf("invalid upstream api url: %w", err)
		}
		client.BaseURL = parsedURL
		client.UploadURL = parsedURL
	}

	return &Client{client: client, owner: parts[0], repo: parts[1]}, nil
}

// ListIssues retrieves issues matching opts. Pull requests, which the
// upstream issues API also returns, are filtered out.
func (c *Client) ListIssues(ctx context.Context, opts ListOptions) ([]models.Issue, error) {
	state := opts.State
	if state == "" {
		state = "open"
	}
	perPage := opts.PerPage
	if perPage <= 0 || perPage > maxPerPage {
		perPage = maxPerPage
	}

	ghOpts := &github.IssueListByRepoOptions{
		State:     state,
		Labels:    opts.Labels,
		Sort:      opts.Sort,
		Direction: opts.Direction,
		ListOptions: github.ListOptions{
			Page:    opts.Page,
			PerPage: perPage,
		},
	}

	issues, resp, err := c.client.Issues.ListByRepo(ctx, c.owner, c.repo, ghOpts)
	if err != nil {
		return nil, classify(resp, err)
	}

	result := make([]models.Issue, 0, len(issues))
	for _, issue := range issues {
		// Skip pull requests (they're also returned by the issues API)
		if issue.PullRequestLinks != nil {
			continue
		}
		result = append(result, convertIssue(issue))
	}
	return result, nil
}

// CreateIssue files a new issue. Title and body must be non-empty.
func (c *Client) CreateIssue(ctx context.Context, title, body string, labels []string) (*models.Issue, error) {
	if title == "" || body == "" {
		return nil, fmt.Errorf("issue title and body are required")
	}

	req := &github.IssueRequest{
		Title:  github.String(title),
		Body:   github.String(body),
		Labels: &labels,
	}
	issue, resp, err := c.client.Issues.Create(ctx, c.owner, c.repo, req)
	if err != nil {
		return nil, classify(resp, err)
	}

	logging.Info("created upstream issue", "number", issue.GetNumber(), "title", title)
	created := convertIssue(issue)
	return &created, nil
}

// ReplaceLabels sets the complete label set on an issue. The upstream
// applies the replacement atomically.
func (c *Client) ReplaceLabels(ctx context.Context, number int, labels []string) ([]string, error) {
	applied, resp, err := c.client.Issues.ReplaceLabelsForIssue(ctx, c.owner, c.repo, number, labels)
	if err != nil {
		return nil, classify(resp, err)
	}

	names := make([]string, len(applied))
	for i, label := range applied {
		names[i] = label.GetName()
	}
	logging.Debug("replaced labels", "number", number, "labels", names)
	return names, nil
}

// ListReleases retrieves the repository's published releases, most recent
// first.
func (c *Client) ListReleases(ctx context.Context) ([]Release, error) {
	ghReleases, resp, err := c.client.Repositories.ListReleases(ctx, c.owner, c.repo, &github.ListOptions{PerPage: 20})
	if err != nil {
		return nil, classify(resp, err)
	}

	releases := make([]Release, 0, len(ghReleases))
	for _, r := range ghReleases {
		if r.GetDraft() {
			continue
		}
		rel := Release{
			TagName:    r.GetTagName(),
			Name:       r.GetName(),
			Body:       r.GetBody(),
			URL:        r.GetHTMLURL(),
			Prerelease: r.GetPrerelease(),
		}
		if r.PublishedAt != nil {
			rel.PublishedAt = r.PublishedAt.Time
		}
		releases = append(releases, rel)
	}
	return releases, nil
}

// classify maps a go-github error to the package's typed errors. The
// upstream credential never appears in the resulting message.
func classify(resp *github.Response, err error) error {
	var ghErr *github.ErrorResponse
	if errors.As(err, &ghErr) {
		status := ghErr.Response.StatusCode
		if status == 404 {
			return ErrNotFound
		}
		return &RejectedError{StatusCode: status, Message: ghErr.Message}
	}
	if resp != nil && resp.StatusCode >= 400 {
		return &RejectedError{StatusCode: resp.StatusCode, Message: "request rejected"}
	}
	return &UnavailableError{Err: err}
}

// convertIssue maps an upstream issue onto the internal model. Label order
// is preserved exactly as returned; the board mapper relies on it to break
// ties between duplicate family labels.
func convertIssue(issue *github.Issue) models.Issue {
	labels := make([]string, 0, len(issue.Labels))
	for _, label := range issue.Labels {
		labels = append(labels, label.GetName())
	}

	m := models.Issue{
		Number:   issue.GetNumber(),
		Title:    issue.GetTitle(),
		Body:     issue.GetBody(),
		State:    issue.GetState(),
		Labels:   labels,
		Comments: issue.GetComments(),
		URL:      issue.GetHTMLURL(),
	}
	if issue.Assignee != nil {
		m.Assignee = issue.Assignee.GetLogin()
	}
	if issue.CreatedAt != nil {
		m.CreatedAt = *issue.CreatedAt
	}
	if issue.UpdatedAt != nil {
		m.UpdatedAt = *issue.UpdatedAt
	}
	if issue.ClosedAt != nil {
		m.ClosedAt = issue.ClosedAt
	}
	return m
}
