// Package tool turns MCP tool calls into backend gateway calls.
package tool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/qumail/qumail-client/internal/logger"
	"github.com/qumail/qumail-client/internal/parser"
	"github.com/qumail/qumail-client/internal/requester"
	"go.uber.org/zap"
)

// Caller is the gateway operation tools are executed with.
type Caller interface {
	Call(ctx context.Context, operationID string, params requester.Params) (json.RawMessage, error)
}

// Handler executes tools against the backend.
type Handler struct {
	caller Caller
}

// NewHandler creates a new tool handler.
func NewHandler(caller Caller) *Handler {
	return &Handler{caller: caller}
}

// CreateHandler creates a handler function for a specific tool.
func (h *Handler) CreateHandler(rt *parser.RouteTool) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		params, err := BuildParams(rt, request.GetArguments())
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		logger.Debug("Tool call", zap.String("tool", rt.Tool.Name), zap.String("operation", rt.RouteConfig.OperationID))

		body, err := h.caller.Call(ctx, rt.RouteConfig.OperationID, params)
		if err != nil {
			var apiErr *requester.APIError
			switch {
			case errors.Is(err, requester.ErrUnauthenticated):
				return mcp.NewToolResultError(fmt.Sprintf("Not signed in to QuMail (HTTP %d). Run `qumail login` and retry.", statusOf(err))), nil
			case errors.As(err, &apiErr):
				return mcp.NewToolResultError(fmt.Sprintf("HTTP Error %d: %s", apiErr.StatusCode, string(apiErr.Body))), nil
			case errors.Is(err, requester.ErrMalformedResponse):
				return mcp.NewToolResultError(err.Error()), nil
			}
			return nil, fmt.Errorf("failed to execute request for tool %s: %w", rt.Tool.Name, err)
		}

		return mcp.NewToolResultText(string(body)), nil
	}
}

// BuildParams splits tool arguments into path parameters and body fields.
func BuildParams(rt *parser.RouteTool, args map[string]any) (requester.Params, error) {
	params := requester.Params{Path: make(map[string]string, len(rt.RouteConfig.PathParams))}

	for _, name := range rt.RouteConfig.PathParams {
		value, ok := args[name]
		if !ok || value == nil || fmt.Sprint(value) == "" {
			return params, fmt.Errorf("missing required argument %q", name)
		}
		params.Path[name] = fmt.Sprint(value)
	}

	if !rt.RouteConfig.HasBody {
		return params, nil
	}
	body := make(map[string]any, len(rt.BodyFields))
	for _, field := range rt.BodyFields {
		if value, ok := args[field]; ok {
			body[field] = normalizeNumber(value)
		}
	}
	params.Body = body
	return params, nil
}

// normalizeNumber keeps whole JSON numbers integral, e.g. security_level 3
// instead of 3.0.
func normalizeNumber(v any) any {
	f, ok := v.(float64)
	if !ok || f != math.Trunc(f) || math.Abs(f) > 1<<53 {
		return v
	}
	return int64(f)
}

func statusOf(err error) int {
	var apiErr *requester.APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}
