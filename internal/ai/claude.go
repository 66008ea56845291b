// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package ai

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

const anthropicVersion = "2023-06-01"

// claudeProvider uses the Anthropic Messages API.
type claudeProvider struct {
	config ProviderConfig
	client *http.Client
}

func newClaude(cfg ProviderConfig) *claudeProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.anthropic.com"
	}
	if cfg.Model == "" {
		cfg.Model = "claude-haiku-4-5"
	}
	return &claudeProvider{config: cfg, client: &http.Client{Timeout: requestTimeout}}
}

func (p *claudeProvider) Name() string { return "claude" }

// Generate joins the text blocks of the reply. A reply cut at the token
// limit is an error so a half sentence never reaches a card.
func (p *claudeProvider) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	header := http.Header{
		"X-Api-Key":         {p.config.APIKey},
		"Anthropic-Version": {anthropicVersion},
	}
	req := claudeRequest{
		Model:       p.config.Model,
		MaxTokens:   suggestionTokens,
		Temperature: suggestionTemperature,
		System:      systemPrompt,
		Messages:    []chatMessage{{Role: "user", Content: userPrompt}},
	}
	var resp claudeResponse
	if err := postJSON(ctx, p.client, p.Name(), p.config.BaseURL+"/v1/messages", header, req, &resp); err != nil {
		return "", err
	}
	if resp.StopReason == "max_tokens" {
		return "", fmt.Errorf("claude: reply truncated at %d tokens", suggestionTokens)
	}

	var b strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("claude: no text content in response")
	}
	return b.String(), nil
}

type claudeRequest struct {
	Model       string        `json:"model"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
	System      string        `json:"system,omitempty"`
	Messages    []chatMessage `json:"messages"`
}

type claudeResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}
