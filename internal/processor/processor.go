// Package processor drives conversational units through analysis, the
// confidence threshold and the human approval flow.
package processor

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/SmartNewbieProject/sometimes-work-helper/internal/dedup"
	"github.com/SmartNewbieProject/sometimes-work-helper/internal/models"
)

// ChatClient is the chat-platform collaborator.
type ChatClient interface {
	GetRecentMessages(ctx context.Context, lookback time.Duration) ([]models.Message, error)
	GetThreadContext(ctx context.Context, threadTS string) (string, error)
	GetUserName(ctx context.Context, userID string) (string, error)
	SendApprovalMessage(ctx context.Context, draft models.TicketDraft, original models.Message) (string, error)
	UpdateMessage(ctx context.Context, channelID, ts, text string) error
	DeleteMessage(ctx context.Context, channelID, ts string) error
}

// IssueTracker is the issue-tracking collaborator.
type IssueTracker interface {
	CreateTicket(ctx context.Context, draft models.TicketDraft) (string, error)
	GetRecentTickets(ctx context.Context, max int) []models.RecentTicket
	BrowseURL(key string) string
}

// Analyzer is the language-model collaborator.
type Analyzer interface {
	AnalyzeMessage(ctx context.Context, text, userName string) models.AnalysisResult
	AnalyzeThread(ctx context.Context, transcript string) models.AnalysisResult
	ClassifyBatch(ctx context.Context, messages []models.Message, recentTickets []models.RecentTicket) []models.BatchCandidate
}

type Config struct {
	Lookback time.Duration
	// ConfidenceThreshold is applied as configured; zero admits any result
	// with positive confidence.
	ConfidenceThreshold float64
	RecentTicketLimit   int
}

// Stats summarizes one pipeline invocation.
type Stats struct {
	Processed        int `json:"processed"`
	TicketsRequested int `json:"tickets_requested"`
}

type Processor struct {
	chat     ChatClient
	tracker  IssueTracker
	analyzer Analyzer
	filter   *dedup.Filter
	cfg      Config
	logger   *zap.Logger
}

func New(chat ChatClient, tracker IssueTracker, analyzer Analyzer, filter *dedup.Filter, cfg Config, logger *zap.Logger) *Processor {
	if cfg.RecentTicketLimit == 0 {
		cfg.RecentTicketLimit = 30
	}
	return &Processor{
		chat:     chat,
		tracker:  tracker,
		analyzer: analyzer,
		filter:   filter,
		cfg:      cfg,
		logger:   logger,
	}
}

// ProcessRecentMessages runs one polling invocation: fetch, filter, analyze
// each new unit, request approval where warranted. Only the fetch itself is
// fatal; every per-unit failure is logged and skipped.
func (p *Processor) ProcessRecentMessages(ctx context.Context) (Stats, error) {
	messages, err := p.chat.GetRecentMessages(ctx, p.cfg.Lookback)
	if err != nil {
		return Stats{}, err
	}
	if len(messages) == 0 {
		p.logger.Info("No messages found")
		return Stats{}, nil
	}

	fresh := p.filter.FilterNew(ctx, messages)
	if len(fresh) == 0 {
		p.logger.Info("No new messages to process")
		return Stats{}, nil
	}

	stats := Stats{Processed: len(fresh)}
	for _, msg := range fresh {
		if p.processUnit(ctx, msg) {
			stats.TicketsRequested++
		}
	}

	p.logger.Info("Batch complete",
		zap.Int("processed", stats.Processed),
		zap.Int("tickets_requested", stats.TicketsRequested))
	return stats, nil
}

// processUnit analyzes one conversational unit and reports whether an
// approval was requested. An analyzed unit is marked processed whether or not
// it met the threshold; a unit with no analysis result is left unmarked so the
// next poll retries it.
func (p *Processor) processUnit(ctx context.Context, msg models.Message) bool {
	userName := msg.User
	if name, err := p.chat.GetUserName(ctx, msg.User); err != nil {
		p.logger.Warn("Failed to resolve user name",
			zap.Error(err),
			zap.String("user", msg.User))
	} else if name != "" {
		userName = name
	}

	var result models.AnalysisResult
	if msg.ThreadTS != "" {
		transcript, err := p.chat.GetThreadContext(ctx, msg.ThreadTS)
		if err != nil {
			p.logger.Error("Failed to fetch thread context",
				zap.Error(err),
				zap.String("thread_ts", msg.ThreadTS))
		} else if transcript != "" {
			result = p.analyzer.AnalyzeThread(ctx, transcript)
		}
	} else {
		result = p.analyzer.AnalyzeMessage(ctx, msg.Text, userName)
	}

	if !result.OK {
		p.logger.Warn("No analysis result for message, will retry next poll",
			zap.String("ts", msg.TS))
		return false
	}

	requested := false
	if p.qualifies(result) {
		requested = p.requestApproval(ctx, *result.TicketInfo, msg)
	}

	p.markProcessed(ctx, msg, userName, result)
	return requested
}

// ProcessBatch runs the batch classification path: one model request covers
// the whole filtered batch, with recent tickets as duplicate context. The
// same confidence threshold applies as in single-unit mode.
func (p *Processor) ProcessBatch(ctx context.Context) (Stats, error) {
	messages, err := p.chat.GetRecentMessages(ctx, p.cfg.Lookback)
	if err != nil {
		return Stats{}, err
	}

	fresh := p.filter.FilterNew(ctx, messages)
	if len(fresh) == 0 {
		p.logger.Info("No new messages to process")
		return Stats{}, nil
	}

	recentTickets := p.tracker.GetRecentTickets(ctx, p.cfg.RecentTicketLimit)
	candidates := p.analyzer.ClassifyBatch(ctx, fresh, recentTickets)
	if candidates == nil {
		// Classification itself failed; leave the batch unmarked so the next
		// poll retries it.
		p.logger.Warn("No batch classification result, will retry next poll",
			zap.Int("messages", len(fresh)))
		return Stats{}, nil
	}

	stats := Stats{Processed: len(fresh)}
	for _, candidate := range candidates {
		if candidate.IsDuplicate {
			p.logger.Info("Skipping duplicate ticket candidate",
				zap.String("reason", candidate.DuplicateReason))
			continue
		}
		if !p.qualifies(candidate.AnalysisResult) {
			continue
		}
		if candidate.MessageIndex < 0 || candidate.MessageIndex >= len(fresh) {
			p.logger.Warn("Candidate references no batch message",
				zap.Int("message_index", candidate.MessageIndex))
			continue
		}
		if p.requestApproval(ctx, *candidate.TicketInfo, fresh[candidate.MessageIndex]) {
			stats.TicketsRequested++
		}
	}

	// Every analyzed message is seen, proposed or not.
	for _, msg := range fresh {
		p.markProcessed(ctx, msg, msg.User, models.NoResult())
	}

	return stats, nil
}

// MentionEvent is an app-mention delivered by the event callback.
type MentionEvent struct {
	User     string
	Text     string
	TS       string
	ThreadTS string
	Channel  string
}

// HandleMention analyzes the mentioned thread as one unit and requests
// approval when warranted. The event path leaves fingerprint bookkeeping to
// the polling path.
func (p *Processor) HandleMention(ctx context.Context, ev MentionEvent) {
	threadTS := ev.ThreadTS
	if threadTS == "" {
		threadTS = ev.TS
	}

	transcript, err := p.chat.GetThreadContext(ctx, threadTS)
	if err != nil {
		p.logger.Error("Failed to fetch thread context for mention",
			zap.Error(err),
			zap.String("thread_ts", threadTS))
		return
	}
	if transcript == "" {
		return
	}

	result := p.analyzer.AnalyzeThread(ctx, transcript)
	if !result.OK || !p.qualifies(result) {
		return
	}

	p.requestApproval(ctx, *result.TicketInfo, models.Message{
		TS:       ev.TS,
		ThreadTS: ev.ThreadTS,
		User:     ev.User,
		Text:     ev.Text,
		Channel:  ev.Channel,
	})
}

// qualifies applies the approval threshold: need_ticket with confidence
// strictly above the cutoff, and a draft to propose.
func (p *Processor) qualifies(result models.AnalysisResult) bool {
	return result.NeedTicket &&
		result.Confidence > p.cfg.ConfidenceThreshold &&
		result.TicketInfo != nil
}

func (p *Processor) requestApproval(ctx context.Context, draft models.TicketDraft, original models.Message) bool {
	promptTS, err := p.chat.SendApprovalMessage(ctx, draft, original)
	if err != nil {
		p.logger.Error("Failed to send approval message",
			zap.Error(err),
			zap.String("summary", draft.Summary))
		return false
	}

	approval := models.NewApprovalRequest(promptTS, draft, original)
	p.logger.Info("Approval request sent",
		zap.String("approval_id", approval.ID),
		zap.String("prompt_ts", promptTS),
		zap.String("summary", draft.Summary))
	return true
}

func (p *Processor) markProcessed(ctx context.Context, msg models.Message, userName string, result models.AnalysisResult) {
	data, err := json.Marshal(struct {
		User     string                `json:"user"`
		Text     string                `json:"text"`
		Analysis models.AnalysisResult `json:"analysis"`
	}{
		User:     userName,
		Text:     msg.Text,
		Analysis: result,
	})
	if err != nil {
		p.logger.Error("Failed to encode message data",
			zap.Error(err),
			zap.String("fingerprint", msg.Fingerprint))
		data = nil
	}
	p.filter.MarkProcessed(ctx, msg.Fingerprint, string(data))
}
