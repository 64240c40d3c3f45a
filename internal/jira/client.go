// Package jira is a minimal Jira REST client covering issue creation and the
// recent-ticket listing the duplicate-suppression prompt needs.
package jira

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/SmartNewbieProject/sometimes-work-helper/internal/models"
)

const defaultTimeout = 10 * time.Second

// Issue-type ids as configured in the target Jira project. Unknown types
// normalize to task.
var issueTypeIDs = map[string]string{
	"task":  "10021",
	"bug":   "10022",
	"story": "10023",
}

var validPriorities = map[string]struct{}{
	"Highest": {},
	"High":    {},
	"Medium":  {},
	"Low":     {},
}

// Options configures the Client. AssigneeMapping translates display names
// coming out of analysis into Jira account names; it is injected
// configuration, not logic.
type Options struct {
	ServerURL       string
	User            string
	APIToken        string
	ProjectKey      string
	AssigneeMapping map[string]string
	HTTPClient      *http.Client
}

type Client struct {
	http       *http.Client
	serverURL  string
	user       string
	token      string
	projectKey string
	assignees  map[string]string
	logger     *zap.Logger
}

func New(opts Options, logger *zap.Logger) *Client {
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{
		http:       opts.HTTPClient,
		serverURL:  strings.TrimSuffix(opts.ServerURL, "/"),
		user:       opts.User,
		token:      opts.APIToken,
		projectKey: opts.ProjectKey,
		assignees:  opts.AssigneeMapping,
		logger:     logger,
	}
}

type createIssueRequest struct {
	Fields issueFields `json:"fields"`
}

type issueFields struct {
	Project     keyRef   `json:"project"`
	Summary     string   `json:"summary"`
	Description string   `json:"description"`
	IssueType   idRef    `json:"issuetype"`
	Priority    nameRef  `json:"priority"`
	Assignee    *nameRef `json:"assignee,omitempty"`
}

type keyRef struct {
	Key string `json:"key"`
}

type idRef struct {
	ID string `json:"id"`
}

type nameRef struct {
	Name string `json:"name"`
}

type createIssueResponse struct {
	Key string `json:"key"`
}

type searchResponse struct {
	Issues []struct {
		Key    string `json:"key"`
		Fields struct {
			Summary string `json:"summary"`
		} `json:"fields"`
	} `json:"issues"`
}

// CreateTicket creates an issue from the draft and returns its key. Unknown
// issue types and priorities are normalized rather than rejected, and the
// assignee display name is resolved through the configured mapping.
func (c *Client) CreateTicket(ctx context.Context, draft models.TicketDraft) (string, error) {
	fields := issueFields{
		Project:     keyRef{Key: c.projectKey},
		Summary:     draft.Summary,
		Description: draft.Description,
		IssueType:   idRef{ID: c.issueTypeID(draft.IssueType)},
		Priority:    nameRef{Name: c.normalizePriority(draft.Priority)},
	}
	if draft.Assignee != "" {
		fields.Assignee = &nameRef{Name: c.resolveAssignee(draft.Assignee)}
	}

	body, err := json.Marshal(createIssueRequest{Fields: fields})
	if err != nil {
		return "", fmt.Errorf("encode issue fields: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.serverURL+"/rest/api/2/issue", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.user, c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("create issue: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("create issue status %d", resp.StatusCode)
	}

	var created createIssueResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return "", fmt.Errorf("decode create response: %w", err)
	}
	if created.Key == "" {
		return "", fmt.Errorf("create response carried no issue key")
	}

	c.logger.Info("Jira issue created", zap.String("key", created.Key))
	return created.Key, nil
}

// GetRecentTickets lists the newest issues in the project, newest first.
// Failure degrades to an empty list; duplicate suppression is advisory.
func (c *Client) GetRecentTickets(ctx context.Context, max int) []models.RecentTicket {
	params := url.Values{}
	params.Set("jql", fmt.Sprintf("project=%s ORDER BY created DESC", c.projectKey))
	params.Set("maxResults", strconv.Itoa(max))
	params.Set("fields", "summary")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.serverURL+"/rest/api/2/search?"+params.Encode(), nil)
	if err != nil {
		c.logger.Error("Failed to build recent-ticket request", zap.Error(err))
		return nil
	}
	req.SetBasicAuth(c.user, c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error("Failed to fetch recent tickets", zap.Error(err))
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("Recent-ticket search failed",
			zap.Int("status", resp.StatusCode))
		return nil
	}

	var search searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&search); err != nil {
		c.logger.Error("Failed to decode recent tickets", zap.Error(err))
		return nil
	}

	tickets := make([]models.RecentTicket, 0, len(search.Issues))
	for _, issue := range search.Issues {
		tickets = append(tickets, models.RecentTicket{
			Key:     issue.Key,
			Summary: issue.Fields.Summary,
		})
	}
	return tickets
}

// BrowseURL returns the deep link for an issue key.
func (c *Client) BrowseURL(key string) string {
	return c.serverURL + "/browse/" + key
}

func (c *Client) issueTypeID(issueType string) string {
	if id, ok := issueTypeIDs[strings.ToLower(issueType)]; ok {
		return id
	}
	return issueTypeIDs["task"]
}

func (c *Client) normalizePriority(priority string) string {
	if priority == "" {
		return "Medium"
	}
	if _, ok := validPriorities[priority]; !ok {
		c.logger.Warn("Unsupported priority, falling back to Medium",
			zap.String("priority", priority))
		return "Medium"
	}
	return priority
}

func (c *Client) resolveAssignee(name string) string {
	if account, ok := c.assignees[name]; ok {
		return account
	}
	return name
}
