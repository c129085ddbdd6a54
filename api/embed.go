// Package api embeds the description of the backend routes the client calls.
package api

import _ "embed"

// OpenAPI is the OpenAPI 3 document for the QuMail backend.
//
//go:embed openapi.yaml
var OpenAPI []byte
