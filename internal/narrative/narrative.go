// Package narrative asks the language model for the prose market brief.
package narrative

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/pjm-brief/internal/failure"
	"github.com/sells-group/pjm-brief/pkg/anthropic"
)

// Settings selects the model and output budget.
type Settings struct {
	Model     string
	MaxTokens int64
}

// Generator produces a narrative from a digest.
type Generator struct {
	client   anthropic.Client
	settings Settings
}

// New creates a Generator.
func New(client anthropic.Client, settings Settings) *Generator {
	return &Generator{client: client, settings: settings}
}

// Generate sends the digest to the model and returns its text. The call is
// bounded only by ctx and the provider's own limits.
func (g *Generator) Generate(ctx context.Context, digest string) (string, error) {
	log := zap.L().With(zap.String("component", "narrative"), zap.String("model", g.settings.Model))

	start := time.Now()
	resp, err := g.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     g.settings.Model,
		MaxTokens: g.settings.MaxTokens,
		Messages:  []anthropic.Message{{Role: "user", Content: Prompt(digest)}},
	})
	if err != nil {
		return "", failure.Wrap(err, failure.Generation, "narrative: create message")
	}

	resp.Usage.LogCost(g.settings.Model, "narrative")

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", failure.New(failure.Generation, "narrative: model returned no text")
	}
	if resp.StopReason == "max_tokens" {
		log.Warn("narrative: output truncated at max_tokens", zap.Int64("max_tokens", g.settings.MaxTokens))
	}

	log.Info("narrative: generated",
		zap.Int("chars", len(text)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return text, nil
}
