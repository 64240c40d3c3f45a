package analyzer

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/SmartNewbieProject/sometimes-work-helper/internal/models"
)

const defaultSystemPrompt = `You are an assistant that reviews Slack conversations for a product team and
decides whether a tracked Jira work item should be created.

Return a JSON object with this structure:
{
    "need_ticket": true/false,
    "confidence": 0.0-1.0,
    "reasoning": "why this does or does not warrant a ticket",
    "ticket_info": {
        "summary": "short issue summary",
        "description": "full issue description",
        "issue_type": "task" | "bug" | "story",
        "assignee": "display name of the best owner, if any",
        "priority": "Highest" | "High" | "Medium" | "Low"
    }
}

Only include ticket_info when need_ticket is true. Casual chatter, greetings
and status acknowledgements never warrant a ticket.`

const threadSystemPrompt = `You are an assistant that reviews an entire Slack thread and makes a single
decision about whether the thread as a whole warrants one Jira work item.

The thread is given as one "[author] text" line per message, oldest first.
Return a JSON object with the fields need_ticket, confidence, reasoning and,
when need_ticket is true, ticket_info with summary, description, issue_type
(task, bug or story), assignee and priority (Highest, High, Medium or Low).
Judge the conversation as a unit; do not propose one ticket per message.`

// BuildBatchPrompt renders the batch-mode analysis request: base
// instructions, the recent-ticket list with duplicate guidance, then the
// batch as "[author] text" lines in timestamp order.
func BuildBatchPrompt(messages []models.Message, systemPrompt string, recentTickets []models.RecentTicket) string {
	lines := make([]string, 0, len(messages))
	for _, m := range messages {
		lines = append(lines, fmt.Sprintf("[%s] %s", m.User, m.Text))
	}

	ticketLines := make([]string, 0, len(recentTickets))
	for _, t := range recentTickets {
		if t.Summary == "" {
			continue
		}
		ticketLines = append(ticketLines, fmt.Sprintf("- [%s] %s", t.Key, t.Summary))
	}

	guideline := "\n## Recently created tickets\n" +
		strings.Join(ticketLines, "\n") +
		"\n\n## Guidelines\n" +
		"- Do not propose a ticket that duplicates a recent one.\n" +
		"- Every item must include 'is_duplicate': true/false and 'duplicate_reason'.\n" +
		"- Every item must include 'message_index': the zero-based index of the source message below.\n"

	return systemPrompt + "\n" + guideline +
		"\n---\n" + strings.Join(lines, "\n") + "\n---\n" +
		"Return a JSON array containing only the messages that warrant a ticket."
}

// stripCodeFence removes an optional ``` fence (with optional language tag)
// around a model response, leaving the raw JSON.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}

	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 && !strings.ContainsAny(s[:i], "{[") {
		// First line is a language tag such as "json"
		s = s[i+1:]
	}
	if j := strings.LastIndex(s, "```"); j >= 0 {
		s = s[:j]
	}
	return strings.TrimSpace(s)
}

// parseResult decodes a single-unit analysis response. Anything unparseable
// yields the absent result, never an error.
func parseResult(response string) models.AnalysisResult {
	var result models.AnalysisResult
	if err := json.Unmarshal([]byte(stripCodeFence(response)), &result); err != nil {
		return models.NoResult()
	}
	result.OK = true
	return result
}

// parseBatch decodes a batch classification response. A parse failure yields
// nil, distinct from a successfully parsed empty list.
func parseBatch(response string) []models.BatchCandidate {
	var candidates []models.BatchCandidate
	if err := json.Unmarshal([]byte(stripCodeFence(response)), &candidates); err != nil {
		return nil
	}
	for i := range candidates {
		candidates[i].OK = true
	}
	return candidates
}
