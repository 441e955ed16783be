// Package moderation screens queries and answers for policy violations.
//
// Moderation fails open: when the moderation service itself is down the
// text passes with a warning rather than blocking the whole query. A
// flagged result is surfaced to the user as a refusal, not an error.
package moderation

import (
	"context"
	"fmt"
	"os"

	"github.com/sashabaranov/go-openai"

	"medrag/internal/errdefs"
)

// Result reports whether a text was flagged and which categories fired.
type Result struct {
	Flagged    bool
	Categories []string
}

// Moderator screens a single text.
type Moderator interface {
	Check(ctx context.Context, text string) (Result, error)
}

// OpenAIModerator calls the OpenAI Moderations API.
type OpenAIModerator struct {
	client *openai.Client
}

func NewOpenAI(apiKey, baseURL string) (*OpenAIModerator, error) {
	if apiKey == "" && baseURL == "" {
		return nil, errdefs.Config("moderation.api_key", "OpenAI API key is required")
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIModerator{client: openai.NewClientWithConfig(cfg)}, nil
}

// Check screens text. Service failures pass the text through unflagged
// with a warning; moderation outages must not take queries down.
func (m *OpenAIModerator) Check(ctx context.Context, text string) (Result, error) {
	if text == "" {
		return Result{}, nil
	}

	resp, err := m.client.Moderations(ctx, openai.ModerationRequest{
		Input: text,
		Model: openai.ModerationOmniLatest,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: moderation unavailable, passing text through: %v\n", err)
		return Result{}, nil
	}

	if len(resp.Results) == 0 {
		return Result{}, nil
	}

	r := resp.Results[0]
	if !r.Flagged {
		return Result{}, nil
	}
	return Result{Flagged: true, Categories: flaggedCategories(r.Categories)}, nil
}

func flaggedCategories(c openai.ResultCategories) []string {
	categories := []struct {
		name    string
		flagged bool
	}{
		{"hate", c.Hate},
		{"hate/threatening", c.HateThreatening},
		{"harassment", c.Harassment},
		{"harassment/threatening", c.HarassmentThreatening},
		{"self-harm", c.SelfHarm},
		{"self-harm/intent", c.SelfHarmIntent},
		{"self-harm/instructions", c.SelfHarmInstructions},
		{"sexual", c.Sexual},
		{"sexual/minors", c.SexualMinors},
		{"violence", c.Violence},
		{"violence/graphic", c.ViolenceGraphic},
	}
	var out []string
	for _, cat := range categories {
		if cat.flagged {
			out = append(out, cat.name)
		}
	}
	return out
}

// ViolationMessage is the user-facing refusal for a flagged stage
// ("input" or "output").
func ViolationMessage(stage string) string {
	if stage == "output" {
		return "The generated answer was withheld because it violated the content policy."
	}
	return "This query cannot be processed because it violates the content policy."
}
