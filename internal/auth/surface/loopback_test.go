package surface

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())
	return port
}

func TestNewLoopback(t *testing.T) {
	tests := []struct {
		uri     string
		wantErr bool
	}{
		{uri: "http://127.0.0.1:53682/oauth"},
		{uri: "http://localhost:8080/"},
		{uri: "http://[::1]:9000/cb"},
		{uri: "qumail://oauth", wantErr: true},
		{uri: "https://127.0.0.1:53682/oauth", wantErr: true},
		{uri: "http://example.com:80/oauth", wantErr: true},
		{uri: "http://127.0.0.1/oauth", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			_, err := NewLoopback(tt.uri, nil)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrNotLoopback)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestLoopback_DeliversRedirect(t *testing.T) {
	port := freePort(t)
	redirect := fmt.Sprintf("http://127.0.0.1:%d/oauth", port)

	var opened string
	l, err := NewLoopback(redirect, OpenerFunc(func(u string) error {
		opened = u
		return nil
	}))
	require.NoError(t, err)

	var mu sync.Mutex
	var seen []Navigation
	s, err := l.Launch(context.Background(), "https://backend.example/auth/google/init", func(nav Navigation) Decision {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, nav)
		return Deny
	})
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, "https://backend.example/auth/google/init", opened)

	resp, err := http.Get(redirect + "?code=abc123")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "Sign-in received")

	resp, err = http.Get(fmt.Sprintf("http://127.0.0.1:%d/favicon.ico", port))
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, seen, 1)
	assert.Equal(t, redirect+"?code=abc123", seen[0].URL)
	assert.Equal(t, Redirect, seen[0].Kind)
}

func TestLoopback_CloseSignalsClosed(t *testing.T) {
	l, err := NewLoopback(fmt.Sprintf("http://127.0.0.1:%d/oauth", freePort(t)), nil)
	require.NoError(t, err)

	s, err := l.Launch(context.Background(), "https://backend.example", func(Navigation) Decision { return Deny })
	require.NoError(t, err)

	select {
	case <-s.Closed():
		t.Fatal("surface closed before Close")
	default:
	}

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	select {
	case <-s.Closed():
	case <-time.After(time.Second):
		t.Fatal("Closed not signalled")
	}
}

func TestLoopback_OpenerFailure(t *testing.T) {
	l, err := NewLoopback(fmt.Sprintf("http://127.0.0.1:%d/oauth", freePort(t)), OpenerFunc(func(string) error {
		return errors.New("no display")
	}))
	require.NoError(t, err)

	_, err = l.Launch(context.Background(), "https://backend.example", func(Navigation) Decision { return Deny })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no display")
}

func TestLoopback_PortInUse(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	l, err := NewLoopback(fmt.Sprintf("http://%s/oauth", ln.Addr().String()), nil)
	require.NoError(t, err)

	_, err = l.Launch(context.Background(), "https://backend.example", func(Navigation) Decision { return Deny })
	assert.Error(t, err)
}
