// Package gemini rewrites template bodies into fresh post text through the
// Google Gemini API. It mirrors the OpenAI rewriter so either provider can
// back the content resolver.
package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"google.golang.org/genai"

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
	apiKey string
	model  string
	retry  httpretry.Policy
}

func NewRewriter(apiKey, model string, retry httpretry.Policy) *Rewriter {
	return &Rewriter{apiKey: apiKey, model: model, retry: retry}
}

func userPrompt(reference string) string {
	return fmt.Sprintf("Rewrite the following post so it reads fresh while keeping its meaning and length:\n\n%s", reference)
}

// Rewrite returns a reworded variant of reference. Transient API errors are
// retried; anything else surfaces to the caller.
func (r *Rewriter) Rewrite(ctx context.Context, reference string) (string, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  r.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return "", err
	}

	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt, ""),
		Temperature:       genai.Ptr[float32](rewriteTemperature),
		MaxOutputTokens:   rewriteMaxTokens,
	}
	contents := []*genai.Content{{
		Role:  genai.RoleUser,
		Parts: []*genai.Part{{Text: userPrompt(reference)}},
	}}

	var text string
	err = httpretry.DoFunc(ctx, r.retry, func() error {
		result, err := client.Models.GenerateContent(ctx, r.model, contents, cfg)
		if err != nil {
			return err
		}
		text = strings.TrimSpace(result.Text())
		return nil
	})
	if err != nil {
		return "", err
	}
	if text == "" {
		return "", fmt.Errorf("gemini returned an empty rewrite")
	}

	logrus.WithField("model", r.model).Debug("[GEMINI] Rewrite completed")
	return text, nil
}
