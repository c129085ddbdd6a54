package requester

import (
	"io"
	"net/http"
	"net/url"
)

// RouteConfig holds the configuration for a specific backend route
type RouteConfig struct {
	OperationID string            `json:"operation_id"`
	Path        string            `json:"path"`
	Method      string            `json:"method"`
	Description string            `json:"description,omitempty"`
	Headers     map[string]string `json:"headers"`
	// HasBody is set when the route accepts a JSON request body.
	HasBody bool `json:"has_body"`
	// PathParams lists the {placeholders} in Path.
	PathParams []string `json:"path_params,omitempty"`
	// Public routes never carry the session credential, and their 401/403
	// responses say nothing about it.
	Public bool `json:"public,omitempty"`
}

// RouteTable maps operation IDs to routes.
type RouteTable map[string]*RouteConfig

// Params are the per-call inputs to a route.
type Params struct {
	Path  map[string]string
	Query url.Values
	// Body is JSON-encoded for routes with HasBody.
	Body any
}

// Request represents a fully built HTTP request
type Request struct {
	URL         string
	Method      string
	Body        io.Reader
	Headers     map[string]string
	ContentType string
	RequestID   string
	// Authenticated is set when a bearer credential was attached.
	Authenticated bool
	HttpRequest   *http.Request // The actual HTTP request
}

// Response represents an HTTP response
type Response struct {
	StatusCode    int
	Body          []byte
	Headers       http.Header
	RequestID     string
	Authenticated bool
}
