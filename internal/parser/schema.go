package parser

import (
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/mark3labs/mcp-go/mcp"
)

// schemaToMCPOptions converts one body property schema to an MCP tool argument
func schemaToMCPOptions(schema *openapi3.SchemaRef, name string, required bool) mcp.ToolOption {
	var baseOpts []mcp.PropertyOption
	if required {
		baseOpts = append(baseOpts, mcp.Required())
	}
	if schema == nil || schema.Value == nil || schema.Value.Type == nil {
		return mcp.WithObject(name, append(baseOpts, mcp.Description(name))...)
	}
	if schema.Value.Description != "" {
		baseOpts = append(baseOpts, mcp.Description(schema.Value.Description))
	}

	switch {
	case schema.Value.Type.Includes(openapi3.TypeString):
		return createStringOption(schema, name, baseOpts)
	case schema.Value.Type.Includes(openapi3.TypeNumber) || schema.Value.Type.Includes(openapi3.TypeInteger):
		return createNumberOption(schema, name, baseOpts)
	case schema.Value.Type.Includes(openapi3.TypeBoolean):
		return mcp.WithBoolean(name, baseOpts...)
	case schema.Value.Type.Includes(openapi3.TypeArray):
		if schema.Value.Items != nil {
			baseOpts = append(baseOpts, mcp.Items(schema.Value.Items))
		}
		return mcp.WithArray(name, baseOpts...)
	default:
		return mcp.WithObject(name, baseOpts...)
	}
}

func createStringOption(schema *openapi3.SchemaRef, name string, baseOpts []mcp.PropertyOption) mcp.ToolOption {
	stringOpts := baseOpts
	if len(schema.Value.Enum) > 0 {
		enumValues := make([]string, 0, len(schema.Value.Enum))
		for _, val := range schema.Value.Enum {
			if strVal, ok := val.(string); ok {
				enumValues = append(enumValues, strVal)
			}
		}
		if len(enumValues) > 0 {
			stringOpts = append(stringOpts, mcp.Enum(enumValues...))
		}
	}
	if schema.Value.MaxLength != nil {
		stringOpts = append(stringOpts, mcp.MaxLength(int(*schema.Value.MaxLength)))
	}
	if schema.Value.MinLength != 0 {
		stringOpts = append(stringOpts, mcp.MinLength(int(schema.Value.MinLength)))
	}
	if schema.Value.Pattern != "" {
		stringOpts = append(stringOpts, mcp.Pattern(schema.Value.Pattern))
	}
	return mcp.WithString(name, stringOpts...)
}

func createNumberOption(schema *openapi3.SchemaRef, name string, baseOpts []mcp.PropertyOption) mcp.ToolOption {
	numberOpts := baseOpts
	if schema.Value.Max != nil {
		numberOpts = append(numberOpts, mcp.Max(*schema.Value.Max))
	}
	if schema.Value.Min != nil {
		numberOpts = append(numberOpts, mcp.Min(*schema.Value.Min))
	}
	if schema.Value.MultipleOf != nil {
		numberOpts = append(numberOpts, mcp.MultipleOf(*schema.Value.MultipleOf))
	}
	return mcp.WithNumber(name, numberOpts...)
}
