package slack

import (
	"fmt"

	"github.com/SmartNewbieProject/sometimes-work-helper/internal/models"
)

// Minimal Block Kit shapes for the approval prompt.

type block struct {
	Type     string    `json:"type"`
	Text     *text     `json:"text,omitempty"`
	Elements []element `json:"elements,omitempty"`
}

type text struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type element struct {
	Type     string `json:"type"`
	Text     *text  `json:"text,omitempty"`
	Style    string `json:"style,omitempty"`
	ActionID string `json:"action_id,omitempty"`
	Value    string `json:"value,omitempty"`
}

func sectionBlock(body string) block {
	return block{
		Type: "section",
		Text: &text{Type: "mrkdwn", Text: body},
	}
}

func approvalBlocks(draft models.TicketDraft, draftJSON string) []block {
	summary := fmt.Sprintf(
		"🎫 *Ticket creation request*\n\n*Summary:* %s\n*Type:* %s\n*Priority:* %s\n*Assignee:* %s",
		draft.Summary, draft.IssueType, draft.Priority, draft.Assignee)

	return []block{
		sectionBlock(summary),
		{
			Type: "actions",
			Elements: []element{
				{
					Type:     "button",
					Text:     &text{Type: "plain_text", Text: "✅ Create the ticket"},
					Style:    "primary",
					ActionID: models.ActionCreateTicket,
					Value:    draftJSON,
				},
				{
					Type:     "button",
					Text:     &text{Type: "plain_text", Text: "❌ Skip it"},
					Style:    "danger",
					ActionID: models.ActionSkipTicket,
					Value:    draftJSON,
				},
			},
		},
	}
}
