package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/pterm/pterm"
	"github.com/qumail/qumail-client/internal/app"
	"github.com/qumail/qumail-client/internal/requester"
	"github.com/spf13/cobra"
)

func gateway() (*requester.Gateway, error) {
	var gw *requester.Gateway
	if err := app.Populate(cfg, &gw); err != nil {
		return nil, err
	}
	return gw, nil
}

// printResponse renders a backend body, or points at `qumail login` when the
// backend refused the request's credential.
func printResponse(body json.RawMessage, err error) error {
	if err != nil {
		if errors.Is(err, requester.ErrUnauthenticated) {
			return fmt.Errorf("not signed in or the session was rejected, run `qumail login`: %w", err)
		}
		return err
	}
	f, _ := parseFormat(outputFormat)
	return writeRaw(os.Stdout, f, body)
}

func newSendCmd() *cobra.Command {
	var (
		msg   requester.SendRequest
		level string
	)

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send an encrypted email",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if msg.SecurityLevel, err = requester.ParseSecurityLevel(level); err != nil {
				return err
			}
			gw, err := gateway()
			if err != nil {
				return err
			}

			body, err := gw.SendEncryptedEmail(cmd.Context(), msg)
			if err == nil {
				if f, _ := parseFormat(outputFormat); f == formatText {
					pterm.Success.Printfln("Sent to %s", msg.To)
				}
			}
			return printResponse(body, err)
		},
	}
	cmd.Flags().StringVar(&msg.To, "to", "", "Recipient address")
	cmd.Flags().StringVar(&msg.Subject, "subject", "", "Subject line")
	cmd.Flags().StringVar(&msg.Body, "body", "", "Message body")
	cmd.Flags().StringVar(&level, "security-level", "aes", "Security level: otp, aes, pqc, hybrid or a number")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func newInboxCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inbox",
		Short: "List received messages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			gw, err := gateway()
			if err != nil {
				return err
			}
			return printResponse(gw.ListInbox(cmd.Context()))
		},
	}
}

func newDecryptCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decrypt <message-id>",
		Short: "Decrypt a received message",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			gw, err := gateway()
			if err != nil {
				return err
			}
			return printResponse(gw.DecryptMessage(cmd.Context(), args[0]))
		},
	}
}
