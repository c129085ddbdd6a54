package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/qumail/qumail-client/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type brokenStore struct {
	session.MemoryStore
}

func (*brokenStore) Load() (*session.Credential, bool, error) {
	return nil, false, &session.StoreError{Op: "load", Cause: errors.New("permission denied")}
}

func TestHandleHealth(t *testing.T) {
	signedIn := session.NewMemoryStore()
	_, err := signedIn.Save("u1", "a@b.com", "tok")
	require.NoError(t, err)

	tests := []struct {
		name       string
		store      session.Store
		wantStatus int
		wantSigned bool
	}{
		{name: "signed out", store: session.NewMemoryStore(), wantStatus: http.StatusOK},
		{name: "signed in", store: signedIn, wantStatus: http.StatusOK, wantSigned: true},
		{name: "store error", store: &brokenStore{}, wantStatus: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(tt.store).CreateHTTPHandler(http.NotFoundHandler())
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus != http.StatusOK {
				return
			}
			var body map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, "ok", body["status"])
			assert.Equal(t, tt.wantSigned, body["signed_in"])
		})
	}
}

func TestCreateHTTPHandler_MountsMCP(t *testing.T) {
	var hit bool
	mcp := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hit = true
		w.WriteHeader(http.StatusAccepted)
	})
	h := NewHandler(session.NewMemoryStore()).CreateHTTPHandler(mcp)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/mcp", nil))
	assert.True(t, hit)
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	hit = false
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/mcp", nil))
	assert.False(t, hit, "preflight is answered by the CORS layer")
	assert.Equal(t, http.StatusOK, rec.Code)
}
