// Package openai rewrites template bodies into fresh post text through the
// OpenAI chat API. Callers treat rewrite failure as non-fatal and fall back
// to the original body.
package openai

import (
	"context"
	"fmt"
	"strings"

	openailib "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/sirupsen/logrus"

	"github.com/ymzk/threadpilot/pkg/httpretry"
)

const (
	rewriteTemperature = 0.7
	rewriteMaxTokens   = 120

	systemPrompt = "You are a concise social media copywriter. Keep the " +
		"voice of the reference text and its language. Never include " +
		"personal data, harassment or discriminatory content. Return " +
		"exactly one short post with no quotes, no hashtags beyond those " +
		"in the reference, and no explanations."
)

type Rewriter struct {
	client openailib.Client
	model  string
	retry  httpretry.Policy
}

func NewRewriter(apiKey, model string, retry httpretry.Policy) *Rewriter {
	return &Rewriter{
		client: openailib.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
		retry:  retry,
	}
}

func userPrompt(reference string) string {
	return fmt.Sprintf("Rewrite the following post so it reads fresh while keeping its meaning and length:\n\n%s", reference)
}

// Rewrite returns a reworded variant of reference. Transient API errors are
// retried; anything else surfaces to the caller.
func (r *Rewriter) Rewrite(ctx context.Context, reference string) (string, error) {
	var text string
	err := httpretry.DoFunc(ctx, r.retry, func() error {
		completion, err := r.client.Chat.Completions.New(ctx, openailib.ChatCompletionNewParams{
			Model: openailib.ChatModel(r.model),
			Messages: []openailib.ChatCompletionMessageParamUnion{
				openailib.SystemMessage(systemPrompt),
				openailib.UserMessage(userPrompt(reference)),
			},
			Temperature: openailib.Float(rewriteTemperature),
			MaxTokens:   openailib.Int(rewriteMaxTokens),
		})
		if err != nil {
			return err
		}
		if len(completion.Choices) == 0 {
			return fmt.Errorf("no response from openai")
		}
		text = strings.TrimSpace(completion.Choices[0].Message.Content)
		return nil
	})
	if err != nil {
		return "", err
	}
	if text == "" {
		return "", fmt.Errorf("openai returned an empty rewrite")
	}

	logrus.WithField("model", r.model).Debug("[OPENAI] Rewrite completed")
	return text, nil
}
