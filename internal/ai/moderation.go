// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package ai

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strings"
	"time"
)

// ModerationResult contains the outcome of a text safety check.
type ModerationResult struct {
	Safe       bool     `json:"safe"`
	Categories []string `json:"categories,omitempty"` // flagged categories, sorted
}

// Moderator checks greeting text for policy violations.
type Moderator interface {
	CheckSafety(ctx context.Context, text string) (*ModerationResult, error)
}

// moderationClient calls a POST /moderations endpoint. OpenAI and Mistral
// share the request shape; only Mistral omits the top-level flag.
type moderationClient struct {
	name    string
	model   string
	url     string
	apiKey  string
	client  *http.Client
	flagged bool // response carries results[0].flagged
}

func newOpenAIModerator(apiKey, baseURL string) *moderationClient {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	return &moderationClient{
		name:    "openai",
		model:   "omni-moderation-latest",
		url:     baseURL + "/moderations",
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 10 * time.Second},
		flagged: true,
	}
}

func newMistralModerator(apiKey, baseURL string) *moderationClient {
	if baseURL == "" {
		baseURL = "https://api.mistral.ai/v1"
	}
	return &moderationClient{
		name:   "mistral",
		model:  "mistral-moderation-latest",
		url:    baseURL + "/moderations",
		apiKey: apiKey,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (m *moderationClient) CheckSafety(ctx context.Context, text string) (*ModerationResult, error) {
	var result moderationResponse
	if err := postJSON(ctx, m.client, m.name+" moderation", m.url, bearer(m.apiKey), moderationRequest{Model: m.model, Input: text}, &result); err != nil {
		return nil, err
	}
	if len(result.Results) == 0 {
		return &ModerationResult{Safe: true}, nil
	}

	r := result.Results[0]
	if m.flagged && !r.Flagged {
		return &ModerationResult{Safe: true}, nil
	}

	var flagged []string
	for cat, on := range r.Categories {
		if on {
			flagged = append(flagged, categoryLabel(cat))
		}
	}
	sort.Strings(flagged)
	return &ModerationResult{Safe: len(flagged) == 0, Categories: flagged}, nil
}

// categoryLabel turns "hate/threatening" into "hate (threatening)".
func categoryLabel(cat string) string {
	label := cat
	if head, tail, ok := strings.Cut(cat, "/"); ok {
		label = head + " (" + tail + ")"
	}
	return strings.ReplaceAll(label, "_", " ")
}

// fallbackModerator tries each moderator in order. It moves on only when
// a moderator rejects the credentials, which happens with project-scoped
// OpenAI keys.
type fallbackModerator []Moderator

func (f fallbackModerator) CheckSafety(ctx context.Context, text string) (*ModerationResult, error) {
	var err error
	for _, m := range f {
		var res *ModerationResult
		res, err = m.CheckSafety(ctx, text)
		if err == nil {
			return res, nil
		}
		var se *StatusError
		if !errors.As(err, &se) || !se.Unauthorized() {
			return nil, err
		}
	}
	return nil, err
}

type moderationRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type moderationResponse struct {
	Results []struct {
		Flagged    bool            `json:"flagged"`
		Categories map[string]bool `json:"categories"`
	} `json:"results"`
}
