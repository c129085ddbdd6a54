package models

// ExchangeResult is the credential payload returned by the backend for an
// authorization code.
type ExchangeResult struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Token  string `json:"token"`
}

// Valid reports whether the payload carries everything a session needs.
func (r *ExchangeResult) Valid() bool {
	return r != nil && r.UserID != "" && r.Token != ""
}
