package models

import "time"

// Message is a single channel utterance fetched from the chat platform.
// The Fingerprint field is derived during filtering; everything else is
// immutable once fetched.
type Message struct {
	TS          string    `json:"ts"`
	ThreadTS    string    `json:"thread_ts,omitempty"`
	User        string    `json:"user"`
	Text        string    `json:"text"`
	Channel     string    `json:"channel,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
	Fingerprint string    `json:"-"`
}

// TicketDraft holds the proposed fields for a not-yet-created Jira issue.
// It only exists in flight between analysis and creation or discard.
type TicketDraft struct {
	Summary     string `json:"summary"`
	Description string `json:"description"`
	IssueType   string `json:"issue_type"`
	Assignee    string `json:"assignee,omitempty"`
	Priority    string `json:"priority,omitempty"`
}

// AnalysisResult is the model's verdict on one conversational unit. The OK
// flag distinguishes "analysis produced nothing usable" from a negative
// verdict; callers must treat !OK as "do nothing".
type AnalysisResult struct {
	OK              bool         `json:"-"`
	NeedTicket      bool         `json:"need_ticket"`
	Confidence      float64      `json:"confidence"`
	Reasoning       string       `json:"reasoning"`
	TicketInfo      *TicketDraft `json:"ticket_info,omitempty"`
	IsDuplicate     bool         `json:"is_duplicate"`
	DuplicateReason string       `json:"duplicate_reason,omitempty"`
}

// NoResult is the absent analysis outcome.
func NoResult() AnalysisResult {
	return AnalysisResult{}
}

// BatchCandidate is one element of a batch classification response.
// MessageIndex is the zero-based index into the analyzed batch.
type BatchCandidate struct {
	AnalysisResult
	MessageIndex int `json:"message_index"`
}

// RecentTicket is a summary line of an already-created issue, used to steer
// the model away from duplicate proposals.
type RecentTicket struct {
	Key     string `json:"key"`
	Summary string `json:"summary"`
}

// ProcessedRecord is the payload persisted alongside a fingerprint in the
// dedup store. TTL is the expiry instant in epoch seconds.
type ProcessedRecord struct {
	ProcessedAt time.Time `json:"processed_at"`
	MessageData string    `json:"message_data"`
	TTL         int64     `json:"ttl"`
}
