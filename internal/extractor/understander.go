// Package extractor turns free-text patient descriptions, trial descriptions,
// and registry eligibility criteria into the structured types the engine
// consumes. Entity recognition is delegated to a text-understanding
// collaborator behind the Understander interface; everything after that call
// is deterministic normalization.
package extractor

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/trialscout/trialscout/internal/config"
	"github.com/trialscout/trialscout/internal/model"
	"github.com/trialscout/trialscout/internal/resilience"
	"github.com/trialscout/trialscout/pkg/anthropic"
)

// Understander maps free text to a partial field map. Implementations must be
// safe for concurrent use. Tests inject a deterministic stub.
type Understander interface {
	Understand(ctx context.Context, systemPrompt, text string) (map[string]any, error)
}

// claudeUnderstander delegates to the Anthropic API and parses the JSON
// answer.
type claudeUnderstander struct {
	client    anthropic.Client
	model     string
	maxTokens int64
	timeout   time.Duration
	retry     resilience.RetryConfig
}

// NewClaudeUnderstander wraps an Anthropic client as an Understander.
// Transient API failures are retried with backoff before the call is
// reported unavailable.
func NewClaudeUnderstander(client anthropic.Client, cfg config.AnthropicConfig) Understander {
	retry := resilience.DefaultRetryConfig()
	retry.OnRetry = func(attempt int, err error) {
		zap.L().Warn("extractor: retrying",
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}
	return &claudeUnderstander{
		client:    client,
		model:     cfg.Model,
		maxTokens: int64(cfg.MaxTokens),
		timeout:   time.Duration(cfg.TimeoutSecs) * time.Second,
		retry:     retry,
	}
}

func (c *claudeUnderstander) Understand(ctx context.Context, systemPrompt, text string) (map[string]any, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := resilience.DoVal(ctx, c.retry, func(ctx context.Context) (*anthropic.MessageResponse, error) {
		return c.client.CreateMessage(ctx, anthropic.MessageRequest{
			Model:     c.model,
			MaxTokens: c.maxTokens,
			System:    anthropic.BuildCachedSystemBlocks(systemPrompt),
			Messages:  []anthropic.Message{{Role: "user", Content: text}},
		})
	})
	if err != nil {
		return nil, &model.ExtractionUnavailableError{Err: err}
	}
	resp.Usage.LogCost(c.model, "extract")

	var raw string
	for _, block := range resp.Content {
		if block.Type == "text" {
			raw = block.Text
			break
		}
	}

	var fields map[string]any
	if err := json.Unmarshal([]byte(cleanJSON(raw)), &fields); err != nil {
		// A garbled answer is as unusable as no answer; never fall back to a
		// silently empty profile.
		return nil, &model.ExtractionUnavailableError{
			Err: eris.Wrap(err, "extractor: parse response"),
		}
	}
	return fields, nil
}

// cleanJSON strips markdown fences and extracts the JSON object.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}

	return strings.TrimSpace(text)
}
