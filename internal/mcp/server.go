// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package mcp exposes the greeting tools over the Model Context Protocol
// on stdio.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"tyohaarify/internal/tools"
)

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	tools.CreateGreeting: {
		def: mcp.NewTool(tools.CreateGreeting,
			mcp.WithDescription("Render a festival greeting card as a standalone HTML document."),
			mcp.WithString("festivalId", mcp.Required(), mcp.Description("Festival id, e.g. diwali")),
			mcp.WithString("templateId", mcp.Description("Card template id; defaults to classic")),
			mcp.WithNumber("imageIndex", mcp.Description("Index into the festival images; defaults to 0")),
			mcp.WithString("message", mcp.Description("Greeting text; defaults to the festival message")),
			mcp.WithString("senderName", mcp.Description("Name printed under the message")),
		),
		handler: func(h *Handlers) server.ToolHandlerFunc { return handle[tools.CreateGreetingArgs](h) },
	},
	tools.SearchFestivals: {
		def: mcp.NewTool(tools.SearchFestivals,
			mcp.WithDescription("List festivals, optionally filtered by region and free text."),
			mcp.WithString("region", mcp.Description("Region, matched case-insensitively")),
			mcp.WithString("query", mcp.Description("Text searched in names and descriptions")),
		),
		handler: func(h *Handlers) server.ToolHandlerFunc { return handle[tools.SearchFestivalsArgs](h) },
	},
	tools.CustomizeTemplate: {
		def: mcp.NewTool(tools.CustomizeTemplate,
			mcp.WithDescription("Render one template for a festival and report its natural size."),
			mcp.WithString("templateId", mcp.Required(), mcp.Description("Card template id")),
			mcp.WithString("festivalId", mcp.Required(), mcp.Description("Festival id")),
			mcp.WithString("message", mcp.Description("Greeting text")),
			mcp.WithString("senderName", mcp.Description("Sender name")),
			mcp.WithNumber("imageIndex", mcp.Description("Index into the festival images")),
		),
		handler: func(h *Handlers) server.ToolHandlerFunc { return handle[tools.CustomizeTemplateArgs](h) },
	},
	tools.ValidateGreeting: {
		def: mcp.NewTool(tools.ValidateGreeting,
			mcp.WithDescription("Check a greeting message for length limits and unsafe content."),
			mcp.WithString("message", mcp.Required(), mcp.Description("Greeting text")),
			mcp.WithString("senderName", mcp.Description("Sender name")),
		),
		handler: func(h *Handlers) server.ToolHandlerFunc { return handle[tools.ValidateGreetingArgs](h) },
	},
	tools.FestivalAnalytics: {
		def: mcp.NewTool(tools.FestivalAnalytics,
			mcp.WithDescription("Report how often cards were generated, exported and shared."),
			mcp.WithString("festivalId", mcp.Description("Limit the report to one festival")),
		),
		handler: func(h *Handlers) server.ToolHandlerFunc { return handle[tools.FestivalAnalyticsArgs](h) },
	},
}

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	service *tools.Service
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(service *tools.Service) *Handlers {
	return &Handlers{service: service}
}

// NewServer creates an MCP server with every greeting tool registered.
func NewServer(service *tools.Service, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"tyohaarify",
		version,
		server.WithToolCapabilities(true),
	)

	h := NewHandlers(service)
	for _, name := range tools.Names {
		entry := toolRegistry[name]
		s.AddTool(entry.def, entry.handler(h))
	}
	return s
}

// Run serves the tools on stdin/stdout until the input closes.
func Run(service *tools.Service, version string) error {
	return server.ServeStdio(NewServer(service, version))
}

// handle decodes the request into T and dispatches it.
func handle[T tools.Call](h *Handlers) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, err := decode[T](req)
		if err != nil {
			return errorResult(errors.Join(tools.ErrInvalidArguments, err)), nil
		}
		data, err := h.service.Dispatch(ctx, args)
		if err != nil {
			return errorResult(err), nil
		}
		return successResult(data)
	}
}

// decode unmarshals MCP request arguments into a typed struct.
func decode[T any](req mcp.CallToolRequest) (T, error) {
	var result T
	b, err := json.Marshal(req.GetArguments())
	if err != nil {
		return result, err
	}
	err = json.Unmarshal(b, &result)
	return result, err
}

// errorResult reports a tool failure as JSON text with IsError set.
func errorResult(err error) *mcp.CallToolResult {
	status := tools.Status(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "an internal error occurred"
	}
	content, _ := json.Marshal(map[string]any{
		"error": map[string]any{"message": msg, "status": status},
	})
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
