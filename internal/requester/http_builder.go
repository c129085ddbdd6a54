package requester

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/qumail/qumail-client/internal/auth/constants"
	"github.com/qumail/qumail-client/internal/config"
)

// HTTPRequestBuilder turns a route and its params into an authenticated
// *http.Request.
type HTTPRequestBuilder struct {
	backendCfg *config.BackendConfig
	authMgr    AuthManager
}

// NewHTTPRequestBuilder creates a new HTTPRequestBuilder
func NewHTTPRequestBuilder(backendCfg *config.BackendConfig, authMgr AuthManager) *HTTPRequestBuilder {
	return &HTTPRequestBuilder{
		backendCfg: backendCfg,
		authMgr:    authMgr,
	}
}

// BuildRequest builds a request for route with params
func (b *HTTPRequestBuilder) BuildRequest(ctx context.Context, route *RouteConfig, params Params) (*Request, error) {
	if route == nil {
		return nil, fmt.Errorf("route config is nil")
	}

	u, err := b.BuildURL(route, params)
	if err != nil {
		return nil, err
	}

	body, contentType, err := b.createRequestBody(route, params)
	if err != nil {
		return nil, fmt.Errorf("failed to create request body: %w", err)
	}

	// Merge headers
	headers := make(map[string]string)
	for k, v := range b.backendCfg.Headers {
		headers[k] = v
	}
	for k, v := range route.Headers {
		headers[k] = v
	}
	if contentType == "" {
		delete(headers, "Content-Type")
	}

	requestID := uuid.NewString()

	httpReq, err := http.NewRequestWithContext(ctx, route.Method, u, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}

	for key, value := range headers {
		httpReq.Header.Set(key, value)
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	if b.backendCfg.UserAgent != "" {
		httpReq.Header.Set("User-Agent", b.backendCfg.UserAgent)
	}
	httpReq.Header.Set(constants.RequestIDHeader, requestID)

	var authenticated bool
	if !route.Public {
		authenticated, err = b.authMgr.ApplyAuth(httpReq)
		if err != nil {
			return nil, fmt.Errorf("failed to apply authentication: %w", err)
		}
	}

	return &Request{
		URL:           u,
		Method:        route.Method,
		Body:          body,
		Headers:       headers,
		ContentType:   contentType,
		RequestID:     requestID,
		Authenticated: authenticated,
		HttpRequest:   httpReq,
	}, nil
}

// BuildURL resolves route against the backend base URL, substituting path
// parameters and appending the query.
func (b *HTTPRequestBuilder) BuildURL(route *RouteConfig, params Params) (string, error) {
	path := route.Path
	for _, name := range route.PathParams {
		value, ok := params.Path[name]
		if !ok || value == "" {
			return "", fmt.Errorf("missing path parameter %q for %s", name, route.OperationID)
		}
		path = strings.ReplaceAll(path, "{"+name+"}", url.PathEscape(value))
	}

	raw := strings.TrimRight(b.backendCfg.BaseURL, "/") + path
	if len(params.Query) == 0 {
		return raw, nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid backend URL: %w", err)
	}
	q := u.Query()
	for key, values := range params.Query {
		for _, v := range values {
			q.Add(key, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (b *HTTPRequestBuilder) createRequestBody(route *RouteConfig, params Params) (io.Reader, string, error) {
	if !route.HasBody {
		return nil, "", nil
	}

	body := params.Body
	if body == nil {
		body = struct{}{}
	}
	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to marshal request body: %w", err)
	}
	return bytes.NewReader(jsonData), "application/json", nil
}
