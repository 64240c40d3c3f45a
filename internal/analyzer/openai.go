package analyzer

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/SmartNewbieProject/sometimes-work-helper/internal/models"
)

// GPTAnalyzer asks an OpenAI chat model whether a conversational unit
// warrants a ticket. Every failure path degrades to an absent result; the
// caller decides what absence means.
type GPTAnalyzer struct {
	client       *openai.Client
	model        string
	maxTokens    int
	temperature  float64
	systemPrompt string
	threadPrompt string
	logger       *zap.Logger
}

func NewGPTAnalyzer(apiKey string, model string, maxTokens int, temperature float64, logger *zap.Logger) *GPTAnalyzer {
	return &GPTAnalyzer{
		client:       openai.NewClient(apiKey),
		model:        model,
		maxTokens:    maxTokens,
		temperature:  temperature,
		systemPrompt: defaultSystemPrompt,
		threadPrompt: threadSystemPrompt,
		logger:       logger,
	}
}

// AnalyzeMessage judges a single standalone message.
func (a *GPTAnalyzer) AnalyzeMessage(ctx context.Context, text, userName string) models.AnalysisResult {
	prompt := fmt.Sprintf("User: %s\nMessage: %s\n\nDecide whether this message warrants a Jira ticket and, if so, provide the ticket fields.", userName, text)

	response, err := a.complete(ctx, a.systemPrompt, prompt)
	if err != nil {
		a.logger.Error("Failed to analyze message", zap.Error(err))
		return models.NoResult()
	}

	result := parseResult(response)
	if !result.OK {
		a.logger.Error("Failed to parse analysis response",
			zap.String("response", response))
	}
	return result
}

// AnalyzeThread judges an entire thread transcript as one unit.
func (a *GPTAnalyzer) AnalyzeThread(ctx context.Context, transcript string) models.AnalysisResult {
	response, err := a.complete(ctx, a.threadPrompt, transcript)
	if err != nil {
		a.logger.Error("Failed to analyze thread", zap.Error(err))
		return models.NoResult()
	}

	result := parseResult(response)
	if !result.OK {
		a.logger.Error("Failed to parse thread analysis response",
			zap.String("response", response))
	}
	return result
}

// ClassifyBatch judges a filtered batch in one request, with recent tickets
// as duplicate-suppression context. A failed call or unparseable response
// yields an empty candidate list.
func (a *GPTAnalyzer) ClassifyBatch(ctx context.Context, messages []models.Message, recentTickets []models.RecentTicket) []models.BatchCandidate {
	prompt := BuildBatchPrompt(messages, a.systemPrompt, recentTickets)

	response, err := a.complete(ctx, a.systemPrompt, prompt)
	if err != nil {
		a.logger.Error("Failed to classify batch", zap.Error(err))
		return nil
	}

	candidates := parseBatch(response)
	if candidates == nil {
		a.logger.Error("Failed to parse batch classification response",
			zap.String("response", response))
	}
	return candidates
}

func (a *GPTAnalyzer) complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	resp, err := a.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: a.model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleSystem,
					Content: systemPrompt,
				},
				{
					Role:    openai.ChatMessageRoleUser,
					Content: userPrompt,
				},
			},
			MaxTokens:   a.maxTokens,
			Temperature: float32(a.temperature),
		},
	)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty completion response")
	}
	return resp.Choices[0].Message.Content, nil
}
