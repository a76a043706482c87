// Package haiku asks the remote text-generation API for a short verse about
// the session. Failures are always retryable notices, never fatal.
package haiku

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/kmoroz/aurora/internal/config"
	"github.com/kmoroz/aurora/internal/logger"
)

var (
	// ErrRateLimited means the API asked us to slow down (429).
	ErrRateLimited = errors.New("haiku generation rate limited, try again shortly")
	// ErrQuotaExhausted means the account is out of credit (402).
	ErrQuotaExhausted = errors.New("haiku generation quota exhausted")
	// ErrGenerationFailed covers every other remote failure.
	ErrGenerationFailed = errors.New("haiku generation failed")
)

const (
	model       = openai.GPT4oMini
	temperature = 0.9
	maxTokens   = 60

	systemPrompt = "You write a single English haiku (5-7-5) about an ambient, " +
		"aurora-like audiovisual moment. Reply with the haiku only, three lines, " +
		"no title, no quotes."
)

// fallback is served when generation fails and the caller still wants text.
const fallback = "colors drift and hum\nthe room breathes in slow circles\nlight remembers sound"

// Generator wraps the remote completion call.
type Generator struct {
	client *openai.Client
}

// New builds a generator from the config. It fails fast with
// config.ErrMissingCredential when no API key is set; the feature must not
// silently degrade into the fallback on a missing secret.
func New(cfg *config.Config) (*Generator, error) {
	key, err := cfg.RequireOpenAIKey()
	if err != nil {
		return nil, err
	}
	return &Generator{client: openai.NewClient(key)}, nil
}

// newWithBaseURL is the test seam for pointing the client at a fake server.
func newWithBaseURL(key, baseURL string) *Generator {
	cc := openai.DefaultConfig(key)
	cc.BaseURL = baseURL
	return &Generator{client: openai.NewClientWithConfig(cc)}
}

// Generate requests one haiku, optionally themed. Remote failures map to
// the package sentinel errors so the UI can present distinct notices.
func (g *Generator) Generate(ctx context.Context, theme string) (string, error) {
	prompt := "Write the haiku."
	if theme != "" {
		prompt = fmt.Sprintf("Write the haiku. Mood of the moment: %s.", theme)
	}

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       model,
		MaxTokens:   maxTokens,
		Temperature: temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", mapError(err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: empty response", ErrGenerationFailed)
	}

	verse := strings.TrimSpace(resp.Choices[0].Message.Content)
	if verse == "" {
		return "", fmt.Errorf("%w: blank verse", ErrGenerationFailed)
	}
	return verse, nil
}

func mapError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusTooManyRequests:
			return fmt.Errorf("%w: %v", ErrRateLimited, err)
		case http.StatusPaymentRequired:
			return fmt.Errorf("%w: %v", ErrQuotaExhausted, err)
		}
	}
	logger.Error("haiku request failed", err)
	return fmt.Errorf("%w: %v", ErrGenerationFailed, err)
}

// Fallback returns the built-in verse used when generation fails but the
// reflection panel still needs text.
func Fallback() string {
	return fallback
}
