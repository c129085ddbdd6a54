package parser

import (
	"io"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/qumail/qumail-client/internal/requester"
)

// RouteTool combines a route configuration with the MCP tool exposing it
type RouteTool struct {
	RouteConfig *requester.RouteConfig
	Tool        mcp.Tool
	// BodyFields are the tool arguments that go into the JSON body; the rest
	// are path parameters.
	BodyFields []string
}

// Parser loads the backend route description
type Parser interface {
	// Init parses the description at path, or the embedded one when path is empty
	Init(path string) error
	// ParseReader parses a description from a reader
	ParseReader(reader io.Reader) error
	// Routes returns the route table keyed by operation ID
	Routes() requester.RouteTable
	// GetRouteTools returns the routes marked for MCP exposure
	GetRouteTools() []*RouteTool
}

// OpenAPIParser parses OpenAPI 3 documents into routes and tools
type OpenAPIParser struct {
	doc        *openapi3.T
	routes     requester.RouteTable
	routeTools []*RouteTool
}
