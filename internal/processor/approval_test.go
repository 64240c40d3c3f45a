package processor

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SmartNewbieProject/sometimes-work-helper/internal/models"
)

func interactionPayload(actionID string, draft models.TicketDraft) models.InteractionPayload {
	value, _ := json.Marshal(draft)

	payload := models.InteractionPayload{
		Type: "block_actions",
		Actions: []models.InteractionAction{
			{ActionID: actionID, Value: string(value)},
		},
	}
	payload.Channel.ID = "C123"
	payload.Message.TS = "555.000"
	return payload
}

func TestHandleInteractionCreate(t *testing.T) {
	ctx := context.Background()

	chat := &fakeChat{}
	tracker := &fakeTracker{createKey: "WORK-42"}
	proc := newTestProcessor(chat, tracker, &fakeAnalyzer{})

	d := *draft("Fix export")
	result := proc.HandleInteraction(ctx, interactionPayload(models.ActionCreateTicket, d))

	assert.True(t, result.OK)
	assert.Equal(t, "WORK-42", result.IssueKey)

	// The tracker got the embedded draft verbatim.
	require.Len(t, tracker.created, 1)
	assert.Equal(t, d, tracker.created[0])

	// The prompt message was rewritten with the key and a deep link.
	require.Len(t, chat.updates, 1)
	assert.Contains(t, chat.updates[0], "WORK-42")
	assert.Contains(t, chat.updates[0], "https://jira.example.com/browse/WORK-42")
}

func TestHandleInteractionCreateFailure(t *testing.T) {
	ctx := context.Background()

	chat := &fakeChat{}
	tracker := &fakeTracker{createErr: errors.New("jira unreachable")}
	proc := newTestProcessor(chat, tracker, &fakeAnalyzer{})

	result := proc.HandleInteraction(ctx, interactionPayload(models.ActionCreateTicket, *draft("Fix export")))

	assert.False(t, result.OK)
	assert.NotEmpty(t, result.Error)
	// The prompt is left unedited on failure.
	assert.Empty(t, chat.updates)
}

func TestHandleInteractionSkip(t *testing.T) {
	ctx := context.Background()

	chat := &fakeChat{}
	tracker := &fakeTracker{createKey: "WORK-42"}
	proc := newTestProcessor(chat, tracker, &fakeAnalyzer{})

	result := proc.HandleInteraction(ctx, interactionPayload(models.ActionSkipTicket, *draft("Fix export")))

	assert.True(t, result.OK)
	assert.True(t, result.Skipped)
	// The prompt was deleted and no ticket was created.
	assert.Equal(t, []string{"555.000"}, chat.deletes)
	assert.Empty(t, tracker.created)
}

func TestHandleInteractionUnknownAction(t *testing.T) {
	ctx := context.Background()

	chat := &fakeChat{}
	tracker := &fakeTracker{}
	proc := newTestProcessor(chat, tracker, &fakeAnalyzer{})

	result := proc.HandleInteraction(ctx, interactionPayload("snooze_ticket", *draft("Fix export")))

	assert.False(t, result.OK)
	assert.Equal(t, "unknown action_id", result.Error)
	assert.Empty(t, tracker.created)
	assert.Empty(t, chat.updates)
	assert.Empty(t, chat.deletes)
}

func TestHandleInteractionNoActions(t *testing.T) {
	proc := newTestProcessor(&fakeChat{}, &fakeTracker{}, &fakeAnalyzer{})

	result := proc.HandleInteraction(context.Background(), models.InteractionPayload{})

	assert.False(t, result.OK)
	assert.Equal(t, "no actions in payload", result.Error)
}

func TestHandleInteractionMalformedDraft(t *testing.T) {
	proc := newTestProcessor(&fakeChat{}, &fakeTracker{}, &fakeAnalyzer{})

	payload := models.InteractionPayload{
		Actions: []models.InteractionAction{
			{ActionID: models.ActionCreateTicket, Value: "not json"},
		},
	}

	result := proc.HandleInteraction(context.Background(), payload)
	assert.False(t, result.OK)
	assert.Equal(t, "invalid ticket draft", result.Error)
}
