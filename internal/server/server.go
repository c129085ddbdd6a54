// Package server exposes the mail gateway as MCP tools.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/qumail/qumail-client/internal/config"
	"github.com/qumail/qumail-client/internal/logger"
	"github.com/qumail/qumail-client/internal/parser"
	"github.com/qumail/qumail-client/internal/requester"
	"github.com/qumail/qumail-client/internal/server/handler"
	"github.com/qumail/qumail-client/internal/server/tool"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	// shutdownTimeout is the maximum time to wait for server shutdown
	shutdownTimeout = 5 * time.Second
)

// ErrNoTools is returned when the backend description marks no route as a tool.
var ErrNoTools = errors.New("backend description exposes no MCP tools")

// Server serves the gateway's mail operations over MCP, on stdio or
// streamable HTTP.
type Server struct {
	config  *config.Config
	parser  parser.Parser
	mcp     *mcpserver.MCPServer
	handler *handler.Handler
	tool    *tool.Handler
	tools   []string
}

// NewServer creates a server with one tool per exposed route.
func NewServer(cfg *config.Config, p parser.Parser, caller tool.Caller, h *handler.Handler) (*Server, error) {
	if cfg == nil || p == nil || caller == nil {
		return nil, errors.New("server requires config, parser and gateway")
	}

	srv := &Server{
		config:  cfg,
		parser:  p,
		mcp:     mcpserver.NewMCPServer(cfg.Server.Name, cfg.Server.Version),
		handler: h,
		tool:    tool.NewHandler(caller),
	}
	if err := srv.setupTools(); err != nil {
		return nil, err
	}
	return srv, nil
}

func (s *Server) setupTools() error {
	routes := s.parser.GetRouteTools()
	if len(routes) == 0 {
		return ErrNoTools
	}
	for _, route := range routes {
		logger.Debug("Adding tool", zap.String("name", route.Tool.Name), zap.String("operation", route.RouteConfig.OperationID))
		s.mcp.AddTool(route.Tool, s.tool.CreateHandler(route))
		s.tools = append(s.tools, route.Tool.Name)
	}
	return nil
}

// Tools lists the registered tool names.
func (s *Server) Tools() []string {
	return s.tools
}

func (s *Server) ServeHTTP(ctx context.Context) error {
	logger.Info("Starting HTTP server")
	httpServer := mcpserver.NewStreamableHTTPServer(s.mcp)
	return s.serveHTTP(ctx, httpServer, "HTTP")
}

func (s *Server) serveHTTP(ctx context.Context, mcpHandler http.Handler, mode string) error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	var h http.Handler = mcpHandler
	if s.handler != nil {
		h = s.handler.CreateHTTPHandler(mcpHandler)
	}
	server := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		logger.Info("Starting server",
			zap.String("mode", mode),
			zap.String("address", addr),
		)

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutting down server",
			zap.String("mode", mode),
			zap.Duration("timeout", shutdownTimeout),
		)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		return nil

	case err := <-errChan:
		return err
	}
}

func (s *Server) ServeSTDIO(ctx context.Context) error {
	return s.serveSTDIO(ctx, os.Stdin, os.Stdout)
}

func (s *Server) serveSTDIO(ctx context.Context, in io.Reader, out io.Writer) error {
	logger.Info("Starting STDIO server")
	stdioServer := mcpserver.NewStdioServer(s.mcp)
	err := stdioServer.Listen(ctx, in, out)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Start starts the server in the configured mode.
func (s *Server) Start(ctx context.Context) error {
	logger.Info("Starting server",
		zap.String("mode", string(s.config.Server.Mode)),
		zap.String("version", s.config.Server.Version),
		zap.Strings("tools", s.tools),
	)

	switch s.config.Server.Mode {
	case config.ServerModeHTTP:
		return s.ServeHTTP(ctx)
	case config.ServerModeSTDIO, "":
		return s.ServeSTDIO(ctx)
	default:
		return fmt.Errorf("unsupported server mode: %s", s.config.Server.Mode)
	}
}

// Module provides the MCP server dependencies
var Module = fx.Module("mcp_server",
	fx.Provide(
		handler.NewHandler,
		NewGatewayServer,
	),
)

// NewGatewayServer serves the request gateway's routes.
func NewGatewayServer(cfg *config.Config, p parser.Parser, gateway *requester.Gateway, h *handler.Handler) (*Server, error) {
	return NewServer(cfg, p, gateway, h)
}
