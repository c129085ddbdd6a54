package requester

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/qumail/qumail-client/internal/auth/constants"
)

// SecurityLevel selects the encryption scheme the backend applies. The
// client forwards it verbatim and never interprets it.
type SecurityLevel int

// Named levels accepted on the command line. Any integer is forwarded.
const (
	SecurityOTP         SecurityLevel = 1
	SecurityAESGCM      SecurityLevel = 2
	SecurityPostQuantum SecurityLevel = 3
	SecurityRSAHybrid   SecurityLevel = 4
)

var securityLevelNames = map[string]SecurityLevel{
	"otp":    SecurityOTP,
	"aes":    SecurityAESGCM,
	"pqc":    SecurityPostQuantum,
	"hybrid": SecurityRSAHybrid,
}

// ParseSecurityLevel accepts a level name (otp, aes, pqc, hybrid) or any integer.
func ParseSecurityLevel(s string) (SecurityLevel, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if level, ok := securityLevelNames[s]; ok {
		return level, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid security level %q: use otp, aes, pqc, hybrid or a number", s)
	}
	return SecurityLevel(n), nil
}

// SendRequest is the body of POST /messages/send.
type SendRequest struct {
	To            string        `json:"to"`
	Subject       string        `json:"subject"`
	Body          string        `json:"body"`
	SecurityLevel SecurityLevel `json:"security_level"`
}

// Gateway is the only path to the backend. Each call reads the session and
// attaches it when present.
type Gateway struct {
	requester *HTTPRequester
	routes    RouteTable
}

// NewGateway creates a gateway over the given route table.
func NewGateway(requester *HTTPRequester, routes RouteTable) *Gateway {
	return &Gateway{
		requester: requester,
		routes:    routes,
	}
}

// Route returns the route registered for operationID.
func (g *Gateway) Route(operationID string) (*RouteConfig, error) {
	route, ok := g.routes[operationID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRoute, operationID)
	}
	return route, nil
}

// URL resolves an operation to an absolute URL without sending anything.
func (g *Gateway) URL(operationID string, params Params) (string, error) {
	route, err := g.Route(operationID)
	if err != nil {
		return "", err
	}
	return g.requester.Builder().BuildURL(route, params)
}

// Call sends one request and returns the JSON body untouched.
func (g *Gateway) Call(ctx context.Context, operationID string, params Params) (json.RawMessage, error) {
	route, err := g.Route(operationID)
	if err != nil {
		return nil, err
	}

	resp, err := g.requester.Do(ctx, route, params)
	if err != nil {
		return nil, err
	}

	if len(resp.Body) == 0 {
		return json.RawMessage("null"), nil
	}
	if !json.Valid(resp.Body) {
		return nil, fmt.Errorf("%w from %s", ErrMalformedResponse, operationID)
	}
	return json.RawMessage(resp.Body), nil
}

// SendEncryptedEmail asks the backend to encrypt and send a message.
func (g *Gateway) SendEncryptedEmail(ctx context.Context, msg SendRequest) (json.RawMessage, error) {
	return g.Call(ctx, constants.OpSendMessage, Params{Body: msg})
}

// ListInbox returns the backend's inbox listing.
func (g *Gateway) ListInbox(ctx context.Context) (json.RawMessage, error) {
	return g.Call(ctx, constants.OpListInbox, Params{})
}

// DecryptMessage asks the backend to decrypt message id.
func (g *Gateway) DecryptMessage(ctx context.Context, id string) (json.RawMessage, error) {
	return g.Call(ctx, constants.OpDecryptMessage, Params{
		Path: map[string]string{"id": id},
		Body: struct{}{},
	})
}
