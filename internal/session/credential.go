// Package session persists the single signed-in user's credential.
package session

import (
	"time"

	"go.uber.org/zap/zapcore"
)

// Credential is the bearer token plus the identity it was issued for.
type Credential struct {
	UserID   string
	Email    string
	Token    string
	IssuedAt time.Time
}

// MarshalLogObject implements zapcore.ObjectMarshaler. The token is never
// written to logs.
func (c *Credential) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("user_id", c.UserID)
	enc.AddString("email", c.Email)
	enc.AddBool("has_token", c.Token != "")
	enc.AddTime("issued_at", c.IssuedAt)
	return nil
}
