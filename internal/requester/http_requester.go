package requester

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/qumail/qumail-client/internal/config"
	"github.com/qumail/qumail-client/internal/logger"
	"go.uber.org/zap"
)

const defaultTimeout = 30 * time.Second

// HTTPRequester builds and executes backend requests. Every call goes
// through the AuthManager.
type HTTPRequester struct {
	client  *http.Client
	builder *HTTPRequestBuilder
	authMgr AuthManager
}

// NewHTTPRequester creates a new HTTPRequester with default configuration
func NewHTTPRequester(cfg *config.Config, authMgr AuthManager) *HTTPRequester {
	timeout := cfg.Backend.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &HTTPRequester{
		client: &http.Client{
			Timeout: timeout,
		},
		builder: NewHTTPRequestBuilder(&cfg.Backend, authMgr),
		authMgr: authMgr,
	}
}

// SetHTTPClient replaces the underlying client.
func (r *HTTPRequester) SetHTTPClient(client *http.Client) {
	r.client = client
}

// SetTimeout sets the timeout for the HTTP client
func (r *HTTPRequester) SetTimeout(timeout time.Duration) {
	r.client.Timeout = timeout
}

// Builder exposes the request builder, e.g. to compute browser URLs.
func (r *HTTPRequester) Builder() *HTTPRequestBuilder {
	return r.builder
}

// Do builds and executes a request for route. Non-2xx responses are
// returned together with an *APIError; the body is never interpreted.
func (r *HTTPRequester) Do(ctx context.Context, route *RouteConfig, params Params) (*Response, error) {
	req, err := r.builder.BuildRequest(ctx, route, params)
	if err != nil {
		return nil, err
	}
	logger.Debug("request route",
		zap.String("operation", route.OperationID),
		zap.String("method", req.Method),
		zap.String("url", req.URL),
		zap.String("request_id", req.RequestID),
		zap.Bool("authenticated", req.Authenticated),
	)

	resp, err := r.execute(req)
	if err != nil {
		logger.Error("failed to execute request", zap.String("operation", route.OperationID), zap.Error(err))
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{
			StatusCode:  resp.StatusCode,
			Body:        resp.Body,
			OperationID: route.OperationID,
			RequestID:   resp.RequestID,
		}
		if errors.Is(apiErr, ErrUnauthenticated) && resp.Authenticated {
			r.revoke(route)
		}
		return resp, apiErr
	}
	return resp, nil
}

// revoke clears a credential the backend refused.
func (r *HTTPRequester) revoke(route *RouteConfig) {
	clearer, ok := r.authMgr.(interface{ Clear() error })
	if !ok {
		return
	}
	logger.Warn("Backend rejected the session credential, signing out", zap.String("operation", route.OperationID))
	if err := clearer.Clear(); err != nil {
		logger.Error("Failed to clear rejected session", zap.Error(err))
	}
}

// execute performs the actual HTTP request execution
func (r *HTTPRequester) execute(req *Request) (resp *Response, err error) {
	httpResp, err := r.client.Do(req.HttpRequest)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		if closeErr := httpResp.Body.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close response body: %w", closeErr)
		}
	}()

	bodyBytes, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return &Response{
		StatusCode:    httpResp.StatusCode,
		Body:          bodyBytes,
		Headers:       httpResp.Header,
		RequestID:     req.RequestID,
		Authenticated: req.Authenticated,
	}, nil
}
