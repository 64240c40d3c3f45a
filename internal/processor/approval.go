package processor

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/SmartNewbieProject/sometimes-work-helper/internal/models"
)

// HandleInteraction resolves one approval-button decision. It never returns
// an error: every collaborator failure is logged and folded into a
// structured InteractionResult.
func (p *Processor) HandleInteraction(ctx context.Context, payload models.InteractionPayload) models.InteractionResult {
	if len(payload.Actions) == 0 {
		return models.InteractionResult{Error: "no actions in payload"}
	}

	action := payload.Actions[0]
	switch action.ActionID {
	case models.ActionCreateTicket:
		return p.confirmTicket(ctx, payload, action)
	case models.ActionSkipTicket:
		return p.skipTicket(ctx, payload)
	default:
		p.logger.Warn("Unknown interaction action",
			zap.String("action_id", action.ActionID))
		return models.InteractionResult{Error: "unknown action_id"}
	}
}

func (p *Processor) confirmTicket(ctx context.Context, payload models.InteractionPayload, action models.InteractionAction) models.InteractionResult {
	var draft models.TicketDraft
	if err := json.Unmarshal([]byte(action.Value), &draft); err != nil {
		p.logger.Error("Failed to decode embedded ticket draft",
			zap.Error(err),
			zap.String("value", action.Value))
		return models.InteractionResult{Error: "invalid ticket draft"}
	}

	issueKey, err := p.tracker.CreateTicket(ctx, draft)
	if err != nil || issueKey == "" {
		p.logger.Error("Ticket creation failed",
			zap.Error(err),
			zap.String("summary", draft.Summary))
		return models.InteractionResult{Error: "ticket creation failed"}
	}

	// Reflect the created ticket on the original prompt. An edit failure is
	// logged but does not undo a successful creation.
	channelID := payload.Channel.ID
	promptTS := payload.Message.TS
	if channelID != "" && promptTS != "" {
		updated := fmt.Sprintf("[%s] Jira ticket created: %s (<%s|link>)",
			draft.Assignee, issueKey, p.tracker.BrowseURL(issueKey))
		if err := p.chat.UpdateMessage(ctx, channelID, promptTS, updated); err != nil {
			p.logger.Error("Failed to update approval prompt",
				zap.Error(err),
				zap.String("issue_key", issueKey),
				zap.String("ts", promptTS))
		}
	}

	return models.InteractionResult{OK: true, IssueKey: issueKey}
}

func (p *Processor) skipTicket(ctx context.Context, payload models.InteractionPayload) models.InteractionResult {
	channelID := payload.Channel.ID
	promptTS := payload.Message.TS
	if channelID == "" || promptTS == "" {
		return models.InteractionResult{Error: "failed to delete prompt message"}
	}

	if err := p.chat.DeleteMessage(ctx, channelID, promptTS); err != nil {
		p.logger.Error("Failed to delete approval prompt",
			zap.Error(err),
			zap.String("ts", promptTS))
		return models.InteractionResult{Error: "failed to delete prompt message"}
	}

	return models.InteractionResult{OK: true, Skipped: true}
}
