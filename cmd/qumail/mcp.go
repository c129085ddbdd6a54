package main

import (
	"github.com/qumail/qumail-client/internal/app"
	"github.com/qumail/qumail-client/internal/server"
	"github.com/spf13/cobra"
)

func newMCPCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve the mail operations as MCP tools",
		Long: `mcp exposes send_email, list_inbox and decrypt_message to MCP clients
over stdio (default) or streamable HTTP, using the stored session.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var srv *server.Server
			if err := app.Populate(cfg, &srv); err != nil {
				return err
			}
			return srv.Start(cmd.Context())
		},
	}
	cmd.Flags().String("server.mode", "", "Transport (stdio|http)")
	cmd.Flags().String("server.host", "", "HTTP listen host")
	cmd.Flags().Int("server.port", 0, "HTTP listen port")
	return cmd
}
