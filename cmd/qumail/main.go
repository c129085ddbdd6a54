package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/qumail/qumail-client/internal/app"
	"github.com/qumail/qumail-client/internal/config"
	"github.com/qumail/qumail-client/internal/logger"
	"github.com/spf13/cobra"
)

func main() {
	Execute()
}

var (
	cfg          *config.Config
	outputFormat string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "qumail",
	Short: "QuMail command line client",
	Long: `qumail signs you in to a QuMail backend through your identity provider
and sends, lists and decrypts quantum-secure email on your behalf.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		versionFlag, _ := cmd.Flags().GetBool("version")
		if versionFlag {
			pterm.Info.Println(config.GetVersionInfo())
			os.Exit(0)
		}
		if _, err := parseFormat(outputFormat); err != nil {
			return err
		}
		if cmd == rootCmd || cmd.Name() == "help" {
			return nil
		}

		var err error
		cfg, err = app.Bootstrap(cmd.Flags())
		return err
	}
	rootCmd.PersistentPostRun = func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	config.InitFlags(rootCmd.PersistentFlags())
	rootCmd.PersistentFlags().BoolP("version", "v", false, "Show version information")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", string(formatText), "Output format (text|json|yaml)")

	rootCmd.AddCommand(
		newLoginCmd(),
		newLogoutCmd(),
		newWhoamiCmd(),
		newSendCmd(),
		newInboxCmd(),
		newDecryptCmd(),
		newMCPCmd(),
	)
}
