package parser

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/qumail/qumail-client/api"
	"github.com/qumail/qumail-client/internal/auth/constants"
	"github.com/qumail/qumail-client/internal/logger"
	"github.com/qumail/qumail-client/internal/requester"
	"go.uber.org/zap"
)

// mcpToolExtension names the operation extension that exposes a route as an MCP tool.
const mcpToolExtension = "x-mcp-tool"

// requiredOperations must be present in any backend description.
var requiredOperations = []string{
	constants.OpInitLogin,
	constants.OpExchangeCode,
	constants.OpSendMessage,
	constants.OpListInbox,
	constants.OpDecryptMessage,
}

// NewOpenAPIParser creates a new OpenAPIParser instance
func NewOpenAPIParser() *OpenAPIParser {
	return &OpenAPIParser{
		routes:     make(requester.RouteTable),
		routeTools: make([]*RouteTool, 0),
	}
}

// NewRouteTable parses the embedded backend description.
func NewRouteTable(p Parser) (requester.RouteTable, error) {
	if err := p.Init(""); err != nil {
		return nil, err
	}
	return p.Routes(), nil
}

// Routes returns the parsed route table
func (p *OpenAPIParser) Routes() requester.RouteTable {
	return p.routes
}

// GetRouteTools returns the parsed route tools, sorted by tool name
func (p *OpenAPIParser) GetRouteTools() []*RouteTool {
	return p.routeTools
}

// Init parses the description at path, or the embedded one when path is empty
func (p *OpenAPIParser) Init(path string) error {
	data := api.OpenAPI
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read API description: %w", err)
		}
	}
	return p.parse(data)
}

// ParseReader parses an OpenAPI description from a reader
func (p *OpenAPIParser) ParseReader(reader io.Reader) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return fmt.Errorf("failed to read API description: %w", err)
	}
	return p.parse(data)
}

func (p *OpenAPIParser) parse(data []byte) error {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(data)
	if err != nil {
		logger.Error("Failed to parse OpenAPI document", zap.Error(err))
		return fmt.Errorf("failed to parse OpenAPI document: %w", err)
	}
	if doc == nil || doc.Paths == nil {
		return fmt.Errorf("failed to parse OpenAPI document: document is empty")
	}
	if err := doc.Validate(context.Background()); err != nil {
		return fmt.Errorf("invalid OpenAPI document: %w", err)
	}

	p.doc = doc
	p.routes = make(requester.RouteTable)
	p.routeTools = make([]*RouteTool, 0)
	if err := p.processOperations(); err != nil {
		return err
	}

	logger.Debug("Parsed backend routes", zap.Int("routes", len(p.routes)), zap.Int("tools", len(p.routeTools)))
	return nil
}

// processOperations iterates through paths and operations in the document
func (p *OpenAPIParser) processOperations() error {
	for path, pathItem := range p.doc.Paths.Map() {
		for method, operation := range pathItem.Operations() {
			if operation.OperationID == "" {
				logger.Debug("Skipping operation without operationId", zap.String("path", path), zap.String("method", method))
				continue
			}
			if _, dup := p.routes[operation.OperationID]; dup {
				return fmt.Errorf("duplicate operationId %q", operation.OperationID)
			}

			routeConfig := p.createRouteConfig(path, method, operation)
			p.routes[operation.OperationID] = routeConfig

			if toolName := extensionString(operation.Extensions, mcpToolExtension); toolName != "" {
				p.routeTools = append(p.routeTools, p.generateTool(toolName, routeConfig, operation))
			}
		}
	}

	var missing []string
	for _, op := range requiredOperations {
		if _, ok := p.routes[op]; !ok {
			missing = append(missing, op)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("OpenAPI document is missing operations: %s", strings.Join(missing, ", "))
	}

	sort.Slice(p.routeTools, func(i, j int) bool {
		return p.routeTools[i].Tool.Name < p.routeTools[j].Tool.Name
	})
	return nil
}

// createRouteConfig creates a route configuration from a path and operation
func (p *OpenAPIParser) createRouteConfig(path, method string, operation *openapi3.Operation) *requester.RouteConfig {
	routeConfig := &requester.RouteConfig{
		OperationID: operation.OperationID,
		Path:        path,
		Method:      strings.ToUpper(method),
		Headers: map[string]string{
			"Accept": "application/json",
		},
		PathParams: extractPathParams(path),
		// `security: []` opts an operation out of the session scheme.
		Public: operation.Security != nil && len(*operation.Security) == 0,
	}

	if operation.Description != "" {
		routeConfig.Description = operation.Description
	} else {
		routeConfig.Description = operation.Summary
	}

	if operation.RequestBody != nil && operation.RequestBody.Value != nil {
		routeConfig.HasBody = true
		routeConfig.Headers["Content-Type"] = "application/json"
	} else if routeConfig.Method == http.MethodPost || routeConfig.Method == http.MethodPut || routeConfig.Method == http.MethodPatch {
		// Writes always carry a JSON body, even an empty one.
		routeConfig.HasBody = true
	}

	return routeConfig
}

// generateTool creates an MCP tool from a route configuration
func (p *OpenAPIParser) generateTool(name string, route *requester.RouteConfig, operation *openapi3.Operation) *RouteTool {
	opts := []mcp.ToolOption{
		mcp.WithDescription(route.Description),
	}

	for _, param := range operation.Parameters {
		if param.Value == nil || param.Value.In != openapi3.ParameterInPath {
			continue
		}
		desc := param.Value.Description
		if desc == "" {
			desc = fmt.Sprintf("Path parameter: %s", param.Value.Name)
		}
		opts = append(opts, mcp.WithString(param.Value.Name,
			mcp.Required(),
			mcp.Description(desc),
		))
	}

	var bodyFields []string
	if schema := getJSONBodySchema(operation); schema != nil && schema.Value != nil {
		required := make(map[string]bool, len(schema.Value.Required))
		for _, r := range schema.Value.Required {
			required[r] = true
		}
		names := make([]string, 0, len(schema.Value.Properties))
		for propName := range schema.Value.Properties {
			names = append(names, propName)
		}
		sort.Strings(names)
		for _, propName := range names {
			opts = append(opts, schemaToMCPOptions(schema.Value.Properties[propName], propName, required[propName]))
			bodyFields = append(bodyFields, propName)
		}
	}

	return &RouteTool{
		RouteConfig: route,
		Tool:        mcp.NewTool(name, opts...),
		BodyFields:  bodyFields,
	}
}

func getJSONBodySchema(operation *openapi3.Operation) *openapi3.SchemaRef {
	if operation.RequestBody == nil || operation.RequestBody.Value == nil {
		return nil
	}
	mediaType := operation.RequestBody.Value.Content.Get("application/json")
	if mediaType == nil {
		return nil
	}
	return mediaType.Schema
}

// extractPathParams extracts path parameters from a URL path
func extractPathParams(path string) []string {
	var params []string
	for _, part := range strings.Split(path, "/") {
		if strings.HasPrefix(part, "{") && strings.HasSuffix(part, "}") {
			params = append(params, strings.TrimSuffix(strings.TrimPrefix(part, "{"), "}"))
		}
	}
	return params
}

func extensionString(ext map[string]any, key string) string {
	switch v := ext[key].(type) {
	case string:
		return v
	case json.RawMessage:
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			return s
		}
	}
	return ""
}
