package slack

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/SmartNewbieProject/sometimes-work-helper/internal/models"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := New(Options{
		BotToken:   "xoxb-test",
		ChannelID:  "C123",
		BaseURL:    srv.URL,
		HTTPClient: srv.Client(),
	}, zap.NewNop())
	return client, srv
}

func TestGetRecentMessagesExcludesSystemSubtypes(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/conversations.history", r.URL.Path)
		require.Equal(t, "C123", r.URL.Query().Get("channel"))
		require.Equal(t, "Bearer xoxb-test", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"ok": true,
			"messages": [
				{"type":"message","user":"U1","text":"first","ts":"1.000100"},
				{"type":"message","subtype":"bot_message","text":"I am a bot","ts":"2.000100"},
				{"type":"message","subtype":"channel_join","user":"U2","ts":"3.000100"},
				{"type":"message","user":"U2","text":"second","ts":"4.000100","thread_ts":"1.000100"}
			]
		}`))
	}))

	msgs, err := client.GetRecentMessages(context.Background(), 5*time.Minute)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "first", msgs[0].Text)
	assert.Equal(t, "second", msgs[1].Text)
	assert.Equal(t, "1.000100", msgs[1].ThreadTS)
	assert.Equal(t, "C123", msgs[0].Channel)
}

func TestGetRecentMessagesSurfacesAPIError(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok": false, "error": "invalid_auth"}`))
	}))

	_, err := client.GetRecentMessages(context.Background(), 5*time.Minute)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid_auth")
}

func TestGetThreadContextAscendingOrder(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/conversations.replies", r.URL.Path)
		require.Equal(t, "10.000", r.URL.Query().Get("ts"))

		// Replies deliberately out of order.
		w.Write([]byte(`{
			"ok": true,
			"messages": [
				{"user":"U2","text":"on which file?","ts":"12.000"},
				{"user":"U1","text":"the importer crashes","ts":"10.000"},
				{"user":"U1","text":"any csv","ts":"14.000"}
			]
		}`))
	}))

	transcript, err := client.GetThreadContext(context.Background(), "10.000")
	require.NoError(t, err)
	assert.Equal(t,
		"[U1] the importer crashes\n[U2] on which file?\n[U1] any csv",
		transcript)
}

func TestGetUserNamePrefersRealName(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/users.info", r.URL.Path)
		w.Write([]byte(`{"ok": true, "user": {"name": "alice", "real_name": "Alice Kim"}}`))
	}))

	name, err := client.GetUserName(context.Background(), "U1")
	require.NoError(t, err)
	assert.Equal(t, "Alice Kim", name)
}

func TestSendApprovalMessageCarriesDraft(t *testing.T) {
	var posted struct {
		Channel string `json:"channel"`
		Text    string `json:"text"`
		Blocks  []struct {
			Type     string `json:"type"`
			Elements []struct {
				ActionID string `json:"action_id"`
				Value    string `json:"value"`
			} `json:"elements"`
		} `json:"blocks"`
	}

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat.postMessage", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&posted))
		w.Write([]byte(`{"ok": true, "ts": "999.000"}`))
	}))

	draft := models.TicketDraft{
		Summary:   "Fix export",
		IssueType: "bug",
		Priority:  "High",
		Assignee:  "alice",
	}

	ts, err := client.SendApprovalMessage(context.Background(), draft, models.Message{TS: "1.000"})
	require.NoError(t, err)
	assert.Equal(t, "999.000", ts)
	assert.Equal(t, "C123", posted.Channel)

	// Section + actions, with both buttons carrying the serialized draft.
	require.Len(t, posted.Blocks, 2)
	actions := posted.Blocks[1]
	require.Len(t, actions.Elements, 2)
	assert.Equal(t, models.ActionCreateTicket, actions.Elements[0].ActionID)
	assert.Equal(t, models.ActionSkipTicket, actions.Elements[1].ActionID)

	var embedded models.TicketDraft
	require.NoError(t, json.Unmarshal([]byte(actions.Elements[0].Value), &embedded))
	assert.Equal(t, draft, embedded)
}

func TestUpdateAndDeleteMessage(t *testing.T) {
	var paths []string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		w.Write([]byte(`{"ok": true}`))
	}))

	require.NoError(t, client.UpdateMessage(context.Background(), "C123", "999.000", "done"))
	require.NoError(t, client.DeleteMessage(context.Background(), "C123", "999.000"))
	assert.Equal(t, []string{"/chat.update", "/chat.delete"}, paths)
}
