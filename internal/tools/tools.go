// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package tools implements the greeting tools shared by the HTTP MCP
// endpoint and the stdio MCP server. Each tool call is a typed value
// decoded from JSON arguments; Service.Dispatch switches on the type.
package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"tyohaarify/internal/ai"
	"tyohaarify/internal/cardtmpl"
	"tyohaarify/internal/festival"
	"tyohaarify/internal/generator"
	"tyohaarify/internal/models"
)

// Tool names.
const (
	CreateGreeting    = "create_greeting"
	SearchFestivals   = "search_festivals"
	CustomizeTemplate = "customize_template"
	ValidateGreeting  = "validate_greeting"
	FestivalAnalytics = "festival_analytics"
)

// Names lists every tool in a stable order.
var Names = []string{CreateGreeting, SearchFestivals, CustomizeTemplate, ValidateGreeting, FestivalAnalytics}

var (
	// ErrUnknownTool is returned for a tool name outside Names.
	ErrUnknownTool = errors.New("unknown tool")

	// ErrInvalidArguments wraps argument decoding and validation failures.
	ErrInvalidArguments = errors.New("invalid arguments")
)

// Call is one decoded tool invocation.
type Call interface {
	Tool() string
}

// CreateGreetingArgs are the arguments of create_greeting.
type CreateGreetingArgs struct {
	FestivalID string `json:"festivalId"`
	TemplateID string `json:"templateId,omitempty"`
	ImageIndex *int   `json:"imageIndex,omitempty"`
	Message    string `json:"message,omitempty"`
	SenderName string `json:"senderName,omitempty"`
}

// SearchFestivalsArgs are the arguments of search_festivals.
type SearchFestivalsArgs struct {
	Region string `json:"region,omitempty"`
	Query  string `json:"query,omitempty"`
}

// CustomizeTemplateArgs are the arguments of customize_template.
type CustomizeTemplateArgs struct {
	TemplateID string `json:"templateId"`
	FestivalID string `json:"festivalId"`
	Message    string `json:"message,omitempty"`
	SenderName string `json:"senderName,omitempty"`
	ImageIndex *int   `json:"imageIndex,omitempty"`
}

// ValidateGreetingArgs are the arguments of validate_greeting.
type ValidateGreetingArgs struct {
	Message    string `json:"message"`
	SenderName string `json:"senderName,omitempty"`
}

// FestivalAnalyticsArgs are the arguments of festival_analytics.
type FestivalAnalyticsArgs struct {
	FestivalID string `json:"festivalId,omitempty"`
}

func (CreateGreetingArgs) Tool() string    { return CreateGreeting }
func (SearchFestivalsArgs) Tool() string   { return SearchFestivals }
func (CustomizeTemplateArgs) Tool() string { return CustomizeTemplate }
func (ValidateGreetingArgs) Tool() string  { return ValidateGreeting }
func (FestivalAnalyticsArgs) Tool() string { return FestivalAnalytics }

// Decode parses raw JSON arguments for the named tool. Empty or null
// arguments decode to the zero value.
func Decode(name string, raw json.RawMessage) (Call, error) {
	switch name {
	case CreateGreeting:
		return decode[CreateGreetingArgs](raw)
	case SearchFestivals:
		return decode[SearchFestivalsArgs](raw)
	case CustomizeTemplate:
		return decode[CustomizeTemplateArgs](raw)
	case ValidateGreeting:
		return decode[ValidateGreetingArgs](raw)
	case FestivalAnalytics:
		return decode[FestivalAnalyticsArgs](raw)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownTool, name)
}

func decode[T Call](raw json.RawMessage) (Call, error) {
	var args T
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return args, nil
	}
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArguments, err)
	}
	return args, nil
}

// StatsReader reads aggregated analytics. An empty festivalID returns
// every festival with recorded events.
type StatsReader interface {
	FestivalStats(ctx context.Context, festivalID string) ([]models.FestivalStats, error)
}

// Service executes tool calls.
type Service struct {
	gen   *generator.Generator
	ai    *ai.Registry
	stats StatsReader
}

// NewService returns a Service. registry and stats may be nil: validation
// then skips moderation and analytics returns sample numbers.
func NewService(gen *generator.Generator, registry *ai.Registry, stats StatsReader) *Service {
	return &Service{gen: gen, ai: registry, stats: stats}
}

// Run decodes and dispatches one call by name.
func (s *Service) Run(ctx context.Context, name string, raw json.RawMessage) (any, error) {
	call, err := Decode(name, raw)
	if err != nil {
		return nil, err
	}
	return s.Dispatch(ctx, call)
}

// Dispatch executes a decoded call.
func (s *Service) Dispatch(ctx context.Context, call Call) (any, error) {
	switch c := call.(type) {
	case CreateGreetingArgs:
		return s.CreateGreeting(c)
	case SearchFestivalsArgs:
		return s.SearchFestivals(c), nil
	case CustomizeTemplateArgs:
		return s.CustomizeTemplate(c)
	case ValidateGreetingArgs:
		return s.ValidateGreeting(ctx, c), nil
	case FestivalAnalyticsArgs:
		return s.FestivalAnalytics(ctx, c)
	}
	return nil, fmt.Errorf("%w: %T", ErrUnknownTool, call)
}

// Status maps a tool error to an HTTP status code.
func Status(err error) int {
	switch {
	case errors.Is(err, ErrUnknownTool):
		return http.StatusInternalServerError
	case errors.Is(err, ErrInvalidArguments):
		return http.StatusBadRequest
	case errors.Is(err, festival.ErrNotFound),
		errors.Is(err, festival.ErrImageOutOfRange),
		errors.Is(err, cardtmpl.ErrUnknownTemplate):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}
