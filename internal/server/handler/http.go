// Package handler provides HTTP request handling for the MCP server.
package handler

import (
	"net/http"
	"time"

	"github.com/qumail/qumail-client/internal/logger"
	"github.com/qumail/qumail-client/internal/session"
	"github.com/qumail/qumail-client/internal/utils"
	"go.uber.org/zap"
)

// Handler builds the HTTP surface around the MCP transport.
type Handler struct {
	store session.Store
}

// NewHandler creates a new HTTP handler.
func NewHandler(store session.Store) *Handler {
	return &Handler{store: store}
}

// CreateHTTPHandler mounts the MCP transport at / next to a health endpoint.
func (h *Handler) CreateHTTPHandler(mcpHandler http.Handler) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", h.HandleHealth)
	mux.Handle("/", LoggingMiddleware(mcpHandler))
	return CORSMiddleware(mux)
}

// HandleHealth reports liveness and whether a session is stored.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	_, signedIn, err := h.store.Load()
	if err != nil {
		logger.Warn("Health check could not read the session", zap.Error(err))
		utils.WriteError(w, "session_unavailable", err.Error(), http.StatusServiceUnavailable)
		return
	}
	utils.WriteJSON(w, map[string]any{
		"status":    "ok",
		"signed_in": signedIn,
	})
}

// CORSMiddleware allows browser-based MCP clients.
func CORSMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS, DELETE")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Mcp-Session-Id")
		w.Header().Set("Access-Control-Expose-Headers", "Mcp-Session-Id")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// LoggingMiddleware logs information about each incoming request
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		logger.Debug("HTTP Request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rw.statusCode),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

// responseWriter captures the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Flush keeps streaming responses working through the wrapper.
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
