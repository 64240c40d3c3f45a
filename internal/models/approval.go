package models

import (
	"time"

	"github.com/google/uuid"
)

// Action identifiers carried by the approval prompt buttons.
const (
	ActionCreateTicket = "create_ticket"
	ActionSkipTicket   = "skip_ticket"
)

// ApprovalRequest correlates a posted approval prompt with the draft and the
// message that produced it.
type ApprovalRequest struct {
	ID        string      `json:"id"`
	PromptTS  string      `json:"prompt_ts"`
	Draft     TicketDraft `json:"draft"`
	Original  Message     `json:"original"`
	CreatedAt time.Time   `json:"created_at"`
}

func NewApprovalRequest(promptTS string, draft TicketDraft, original Message) ApprovalRequest {
	return ApprovalRequest{
		ID:        uuid.New().String(),
		PromptTS:  promptTS,
		Draft:     draft,
		Original:  original,
		CreatedAt: time.Now(),
	}
}

// InteractionPayload is the subset of the chat platform's interaction
// callback the approval flow consumes. The button value carries the
// serialized TicketDraft, so the decision is self-contained.
type InteractionPayload struct {
	Type    string              `json:"type"`
	Actions []InteractionAction `json:"actions"`
	Channel struct {
		ID string `json:"id"`
	} `json:"channel"`
	User struct {
		ID string `json:"id"`
	} `json:"user"`
	Message struct {
		TS string `json:"ts"`
	} `json:"message"`
}

type InteractionAction struct {
	ActionID string `json:"action_id"`
	Value    string `json:"value"`
}

// InteractionResult is the structured outcome of handling one interaction.
// It is always returned, never an error; collaborator failures are folded
// into Error.
type InteractionResult struct {
	OK       bool   `json:"ok"`
	IssueKey string `json:"issue_key,omitempty"`
	Skipped  bool   `json:"skipped,omitempty"`
	Error    string `json:"error,omitempty"`
}
