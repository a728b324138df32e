// Package triage suggests a severity and category for bug reports that
// arrive without them. An LLM does the suggestion when an API key is
// configured; otherwise a keyword heuristic runs.
package triage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/nightfallstudio/bugboard/internal/models"
)

// Suggestion holds the proposed classification for a report.
type Suggestion struct {
	Severity models.Severity `json:"severity"`
	Category string          `json:"category"`
}

// Client wraps the Anthropic API for report triage.
type Client struct {
	api   *anthropic.Client
	model anthropic.Model
}

// NewClient creates a triage client with the given API key and model.
func NewClient(apiKey, model string) *Client {
	opts := []option.RequestOption{}
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	client := anthropic.NewClient(opts...)
	return &Client{
		api:   &client,
		model: anthropic.Model(model),
	}
}

const systemPrompt = `You triage bug reports for an application support board. Given a report's title and description, return ONLY a JSON object with exactly two fields:
- "severity": one of "critical", "high", "medium", "low"
- "category": a short lowercase noun naming the affected area (e.g. "crash", "ui", "performance", "audio", "general")

Rules:
- "critical" is reserved for crashes, data loss, or the application being unusable
- Default to "medium" when the impact is unclear
- Return valid JSON only, no markdown fencing or explanation`

// Suggest sends the report to the LLM and returns its classification.
func (c *Client) Suggest(ctx context.Context, title, description string) (*Suggestion, error) {
	user := fmt.Sprintf("Title: %s\n\nDescription:\n%s\n", title, description)

	msg, err := c.api.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: 256,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("anthropic API call: %w", err)
	}

	var text string
	for _, block := range msg.Content {
		if block.Type == "text" {
			text = block.Text
			break
		}
	}
	if text == "" {
		return nil, fmt.Errorf("no text content in API response")
	}

	// Strip markdown fencing if present
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		lines := strings.SplitN(text, "\n", 2)
		if len(lines) > 1 {
			text = lines[1]
		}
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		text = strings.TrimSpace(text)
	}

	var suggestion Suggestion
	if err := json.Unmarshal([]byte(text), &suggestion); err != nil {
		return nil, fmt.Errorf("parse LLM response as JSON: %w", err)
	}
	if !suggestion.Severity.Valid() {
		suggestion.Severity = models.SeverityMedium
	}
	if suggestion.Category == "" {
		suggestion.Category = models.DefaultCategory
	}
	return &suggestion, nil
}

// severityKeywords orders families from most to least severe; the first
// family with a hit wins.
var severityKeywords = []struct {
	severity models.Severity
	words    []string
}{
	{models.SeverityCritical, []string{"crash", "data loss", "corrupt", "unusable", "freeze"}},
	{models.SeverityHigh, []string{"error", "fail", "broken", "cannot", "can't"}},
	{models.SeverityLow, []string{"typo", "cosmetic", "minor", "suggestion"}},
}

// Heuristic classifies a report by keyword when no LLM is configured.
func Heuristic(title, description string) Suggestion {
	text := strings.ToLower(title + " " + description)
	for _, family := range severityKeywords {
		for _, word := range family.words {
			if strings.Contains(text, word) {
				return Suggestion{Severity: family.severity, Category: models.DefaultCategory}
			}
		}
	}
	return Suggestion{Severity: models.SeverityMedium, Category: models.DefaultCategory}
}
