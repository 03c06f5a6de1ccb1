// Package extractor turns lease contract text into a structured
// LeaseExtraction via the Anthropic API.
package extractor

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/mietwerk/leasescan/internal/config"
	"github.com/mietwerk/leasescan/internal/model"
	"github.com/mietwerk/leasescan/pkg/anthropic"
)

// retryAttempts is the max number of attempts per document.
const retryAttempts = 3

// Extractor calls the model and decodes its JSON answer. Safe for
// concurrent use; the shared limiter spreads batch traffic across time.
type Extractor struct {
	client  anthropic.Client
	cfg     config.AnthropicConfig
	limiter *rate.Limiter
	system  []anthropic.SystemBlock
}

// New creates an Extractor. RateLimit <= 0 disables throttling.
func New(client anthropic.Client, cfg config.AnthropicConfig) *Extractor {
	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	return &Extractor{
		client:  client,
		cfg:     cfg,
		limiter: rate.NewLimiter(limit, 1),
		system:  anthropic.BuildCachedSystemBlocks(systemPrompt),
	}
}

// Extract sends the contract text to the model and decodes the structured
// record. Transient API failures are retried with exponential backoff.
func (x *Extractor) Extract(ctx context.Context, contractText string) (*model.LeaseExtraction, error) {
	if err := x.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "extractor: rate limit wait")
	}

	req := anthropic.MessageRequest{
		Model:     x.cfg.Model,
		MaxTokens: x.cfg.MaxTokens,
		System:    x.system,
		Messages: []anthropic.Message{
			{Role: "user", Content: buildUserPrompt(contractText)},
		},
	}

	var resp *anthropic.MessageResponse
	var lastErr error
	backoff := 500 * time.Millisecond

	for attempt := 0; attempt < retryAttempts; attempt++ {
		resp, lastErr = x.client.CreateMessage(ctx, req)
		if lastErr == nil {
			break
		}
		if attempt < retryAttempts-1 {
			zap.L().Warn("extractor: message failed, retrying",
				zap.Int("attempt", attempt+1),
				zap.Error(lastErr),
			)
			timer := time.NewTimer(backoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, eris.Wrap(ctx.Err(), "extractor: canceled")
			case <-timer.C:
			}
			backoff *= 2
		}
	}
	if lastErr != nil {
		return nil, eris.Wrap(lastErr, "extractor: create message")
	}

	resp.Usage.LogCost(x.cfg.Model, "extract")

	e, err := decodeExtraction(resp.Text())
	if err != nil {
		return nil, err
	}
	e.ExtractedAt = time.Now().UTC()
	e.AIModel = resp.Model
	if e.AIModel == "" {
		e.AIModel = x.cfg.Model
	}
	return e, nil
}

// decodeExtraction parses the model's JSON answer into a normalized record.
func decodeExtraction(text string) (*model.LeaseExtraction, error) {
	cleaned := cleanJSON(text)

	var e model.LeaseExtraction
	if err := json.Unmarshal([]byte(cleaned), &e); err != nil {
		return nil, eris.Wrap(err, "extractor: parse model response")
	}

	// Out-of-range confidences would distort scoring downstream.
	for k, v := range e.ConfidenceScores {
		if v < 0 {
			e.ConfidenceScores[k] = 0
		} else if v > 1 {
			e.ConfidenceScores[k] = 1
		}
	}
	if e.RentIncreaseType != "" && !e.RentIncreaseType.Valid() {
		zap.L().Warn("extractor: unknown rent increase type",
			zap.String("type", string(e.RentIncreaseType)),
		)
		e.RentIncreaseType = model.IncreaseUnknown
	}

	e.Normalize()
	return &e, nil
}

// cleanJSON strips markdown code fences and surrounding prose from a model
// response, keeping the outermost JSON object.
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
