package tests

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/qumail/qumail-client/internal/config"
	"github.com/qumail/qumail-client/internal/parser"
	"github.com/qumail/qumail-client/internal/requester"
	"github.com/qumail/qumail-client/internal/session"
	"github.com/stretchr/testify/require"
)

// newGateway serves handler on a test backend and returns a gateway over the
// embedded route table.
func newGateway(t *testing.T, store session.Store, handler http.HandlerFunc) *requester.Gateway {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	routes, err := parser.NewRouteTable(parser.NewOpenAPIParser())
	require.NoError(t, err)

	cfg := &config.Config{
		Backend: config.BackendConfig{
			BaseURL:   srv.URL,
			Timeout:   5 * time.Second,
			UserAgent: "qumail-client/test",
		},
	}
	r := requester.NewHTTPRequester(cfg, requester.NewSessionAuthManager(store))
	return requester.NewGateway(r, routes)
}

type staticAuth struct {
	header string
}

func (a *staticAuth) ApplyAuth(req *http.Request) (bool, error) {
	if a.header == "" {
		return false, nil
	}
	req.Header.Set("Authorization", a.header)
	return true, nil
}
