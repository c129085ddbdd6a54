package constants

const (
	// DefaultRedirectURI is where the login flow ends when nothing else is
	// configured. Embedded hosts register the qumail scheme.
	DefaultRedirectURI = "qumail://oauth"

	// TokenType for Bearer authentication
	TokenType = "Bearer"

	// AuthHeaderName is the name of the Authorization header
	AuthHeaderName = "Authorization"

	// AuthHeaderPrefix is the prefix for the Authorization header value
	AuthHeaderPrefix = "Bearer "

	// CodeQueryParam carries the authorization code on the redirect URI
	CodeQueryParam = "code"

	// RedirectURIQueryParam tells the backend where to send the browser back to
	RedirectURIQueryParam = "redirect_uri"

	// RequestIDHeader correlates client requests with backend logs
	RequestIDHeader = "X-Request-ID"
)

// Operation IDs of the backend routes, as named in api/openapi.yaml.
const (
	OpInitLogin      = "initLogin"
	OpExchangeCode   = "exchangeCode"
	OpSendMessage    = "sendMessage"
	OpListInbox      = "listInbox"
	OpDecryptMessage = "decryptMessage"
)

// SupportedProviders are the identity providers the backend federates.
var SupportedProviders = []string{"google", "github"}
