// Package slack is a minimal Slack Web API client covering the calls the
// ticket pipeline needs: channel history, thread replies, user lookup and
// the approval-prompt message lifecycle.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/SmartNewbieProject/sometimes-work-helper/internal/models"
)

const (
	defaultBaseURL = "https://slack.com/api"
	defaultTimeout = 10 * time.Second
	historyLimit   = 100
)

// Message subtypes that are never user conversation.
var excludedSubtypes = map[string]struct{}{
	"bot_message":   {},
	"channel_join":  {},
	"channel_leave": {},
}

// Options configures the Client. BaseURL and HTTPClient exist so tests can
// point the client at an httptest server.
type Options struct {
	BotToken   string
	ChannelID  string
	BaseURL    string
	HTTPClient *http.Client
}

type Client struct {
	http      *http.Client
	baseURL   string
	token     string
	channelID string
	logger    *zap.Logger
	now       func() time.Time
}

func New(opts Options, logger *zap.Logger) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{
		http:      opts.HTTPClient,
		baseURL:   opts.BaseURL,
		token:     opts.BotToken,
		channelID: opts.ChannelID,
		logger:    logger,
		now:       time.Now,
	}
}

type apiResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

type apiMessage struct {
	Type     string `json:"type"`
	Subtype  string `json:"subtype"`
	User     string `json:"user"`
	Text     string `json:"text"`
	TS       string `json:"ts"`
	ThreadTS string `json:"thread_ts"`
}

type historyResponse struct {
	apiResponse
	Messages []apiMessage `json:"messages"`
}

type userInfoResponse struct {
	apiResponse
	User struct {
		Name     string `json:"name"`
		RealName string `json:"real_name"`
	} `json:"user"`
}

type postMessageResponse struct {
	apiResponse
	TS string `json:"ts"`
}

// GetRecentMessages fetches channel history over the lookback window,
// excluding bot and system subtypes. This is the one call whose failure is
// surfaced to the caller: without input there is nothing to degrade to.
func (c *Client) GetRecentMessages(ctx context.Context, lookback time.Duration) ([]models.Message, error) {
	oldest := c.now().Add(-lookback)

	params := url.Values{}
	params.Set("channel", c.channelID)
	params.Set("oldest", fmt.Sprintf("%.6f", float64(oldest.UnixNano())/1e9))
	params.Set("limit", strconv.Itoa(historyLimit))

	var resp historyResponse
	if err := c.get(ctx, "conversations.history", params, &resp); err != nil {
		return nil, fmt.Errorf("fetch channel history: %w", err)
	}

	messages := make([]models.Message, 0, len(resp.Messages))
	for _, m := range resp.Messages {
		if _, excluded := excludedSubtypes[m.Subtype]; excluded {
			continue
		}
		messages = append(messages, models.Message{
			TS:        m.TS,
			ThreadTS:  m.ThreadTS,
			User:      userOrUnknown(m.User),
			Text:      m.Text,
			Channel:   c.channelID,
			Timestamp: tsToTime(m.TS),
		})
	}
	return messages, nil
}

// GetThreadContext fetches a full thread and renders it as one "[user] text"
// line per message, ascending by timestamp.
func (c *Client) GetThreadContext(ctx context.Context, threadTS string) (string, error) {
	params := url.Values{}
	params.Set("channel", c.channelID)
	params.Set("ts", threadTS)
	params.Set("limit", strconv.Itoa(historyLimit))

	var resp historyResponse
	if err := c.get(ctx, "conversations.replies", params, &resp); err != nil {
		return "", fmt.Errorf("fetch thread replies: %w", err)
	}

	replies := resp.Messages
	sort.Slice(replies, func(i, j int) bool {
		return tsToFloat(replies[i].TS) < tsToFloat(replies[j].TS)
	})

	lines := make([]string, 0, len(replies))
	for _, m := range replies {
		lines = append(lines, fmt.Sprintf("[%s] %s", userOrUnknown(m.User), m.Text))
	}
	return strings.Join(lines, "\n"), nil
}

// GetUserName resolves a user id to a display name.
func (c *Client) GetUserName(ctx context.Context, userID string) (string, error) {
	params := url.Values{}
	params.Set("user", userID)

	var resp userInfoResponse
	if err := c.get(ctx, "users.info", params, &resp); err != nil {
		return "", fmt.Errorf("fetch user info: %w", err)
	}

	if resp.User.RealName != "" {
		return resp.User.RealName, nil
	}
	return resp.User.Name, nil
}

// SendApprovalMessage posts the interactive create/skip prompt. The draft
// travels inside the button values so the interaction handler needs no
// server-side state.
func (c *Client) SendApprovalMessage(ctx context.Context, draft models.TicketDraft, original models.Message) (string, error) {
	draftJSON, err := json.Marshal(draft)
	if err != nil {
		return "", fmt.Errorf("encode ticket draft: %w", err)
	}

	body := map[string]any{
		"channel": c.channelID,
		"text":    "Ticket creation request",
		"blocks":  approvalBlocks(draft, string(draftJSON)),
	}

	var resp postMessageResponse
	if err := c.post(ctx, "chat.postMessage", body, &resp); err != nil {
		return "", fmt.Errorf("post approval message: %w", err)
	}

	c.logger.Info("Approval message posted",
		zap.String("ts", resp.TS),
		zap.String("summary", draft.Summary),
		zap.String("original_ts", original.TS))
	return resp.TS, nil
}

// UpdateMessage rewrites an existing prompt, used to reflect the created
// ticket reference.
func (c *Client) UpdateMessage(ctx context.Context, channelID, ts, text string) error {
	body := map[string]any{
		"channel": channelID,
		"ts":      ts,
		"text":    text,
		"blocks":  []block{sectionBlock(text)},
	}

	var resp apiResponse
	if err := c.post(ctx, "chat.update", body, &resp); err != nil {
		return fmt.Errorf("update message: %w", err)
	}
	return nil
}

// DeleteMessage removes a prompt, used when the proposal is skipped.
func (c *Client) DeleteMessage(ctx context.Context, channelID, ts string) error {
	body := map[string]any{
		"channel": channelID,
		"ts":      ts,
	}

	var resp apiResponse
	if err := c.post(ctx, "chat.delete", body, &resp); err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, method string, params url.Values, out interface{ apiError() error }) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+method+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, method string, body any, out interface{ apiError() error }) error {
	encoded, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+method, bytes.NewReader(encoded))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{ apiError() error }) error {
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack api status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode slack response: %w", err)
	}
	return out.apiError()
}

func (r apiResponse) apiError() error {
	if !r.OK {
		return fmt.Errorf("slack api error: %s", r.Error)
	}
	return nil
}

func userOrUnknown(user string) string {
	if user == "" {
		return "unknown"
	}
	return user
}

func tsToFloat(ts string) float64 {
	f, _ := strconv.ParseFloat(ts, 64)
	return f
}

func tsToTime(ts string) time.Time {
	f := tsToFloat(ts)
	sec := int64(f)
	return time.Unix(sec, int64((f-float64(sec))*1e9))
}
