package parser

import "go.uber.org/fx"

// Module provides the parser dependencies
var Module = fx.Module("parser",
	fx.Provide(
		fx.Annotate(
			NewOpenAPIParser,
			fx.As(new(Parser)),
		),
		NewRouteTable,
	),
)
