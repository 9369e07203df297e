package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/bookwise-ai/booking-assistant/internal/llm"
	"github.com/bookwise-ai/booking-assistant/pkg/logger"
)

const titlePrompt = "Suggest a concise meeting title, at most five words, for the appointment described by the user's message. Reply with the title only."

const titleTimeout = 5 * time.Second

// LLMTitler derives meeting titles from the user's own words. Any failure or
// empty answer falls back to the default title upstream, so the core flow
// stays deterministic without a model.
type LLMTitler struct {
	client llm.Client
	logger *logger.Logger
}

// NewLLMTitler creates a titler over an LLM client.
func NewLLMTitler(client llm.Client, log *logger.Logger) *LLMTitler {
	return &LLMTitler{client: client, logger: log}
}

// MeetingTitle implements dialog.Titler.
func (t *LLMTitler) MeetingTitle(ctx context.Context, text string) string {
	if t.client == nil || strings.TrimSpace(text) == "" {
		return ""
	}

	cctx, cancel := context.WithTimeout(ctx, titleTimeout)
	defer cancel()

	resp, err := t.client.Complete(cctx, &llm.CompletionRequest{
		Messages: []llm.ChatMessage{
			{Role: "system", Content: titlePrompt},
			{Role: "user", Content: text},
		},
		MaxTokens: 32,
	})
	if err != nil {
		t.logger.Warn("meeting title suggestion failed", zap.Error(err))
		return ""
	}

	title := strings.TrimSpace(strings.Trim(strings.TrimSpace(resp.Content), "\"“”"))
	if title == "" || len(title) > 80 || strings.Contains(title, "\n") {
		return ""
	}
	return title
}
