// Package tui renders the interactive login screen.
package tui

import (
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/qumail/qumail-client/internal/auth/providers"
)

// RunLogin shows the login screen on out until attempt settles or the user
// cancels it. The attempt's outcome is read with Attempt.Wait afterwards.
func RunLogin(attempt Attempt, provider providers.Info, in io.Reader, out io.Writer) error {
	p := tea.NewProgram(NewLoginModel(attempt, provider), tea.WithInput(in), tea.WithOutput(out))
	final, err := p.Run()
	if err != nil {
		attempt.Cancel()
		return fmt.Errorf("login screen: %w", err)
	}
	if m, ok := final.(LoginModel); ok && !m.Finished() {
		// Killed from outside before the attempt settled.
		attempt.Cancel()
	}
	return nil
}
