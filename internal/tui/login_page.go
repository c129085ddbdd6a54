package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/qumail/qumail-client/internal/auth"
	"github.com/qumail/qumail-client/internal/auth/providers"
)

// Attempt is the login attempt the screen waits on.
type Attempt interface {
	ID() string
	State() auth.State
	Done() <-chan struct{}
	Cancel()
}

// LoginKeyMap holds key bindings for the login screen
type LoginKeyMap struct {
	cancel key.Binding
}

func newLoginKeyMap() *LoginKeyMap {
	return &LoginKeyMap{
		cancel: key.NewBinding(
			key.WithKeys("ctrl+c", "q", "esc"),
			key.WithHelp("q/esc", "Cancel sign-in"),
		),
	}
}

// attemptDoneMsg is sent once the attempt reaches a terminal state
type attemptDoneMsg struct{}

// LoginModel shows a waiting screen while the user signs in with the
// identity provider. Cancelling closes the browsing surface.
type LoginModel struct {
	keys       *LoginKeyMap
	spinner    spinner.Model
	attempt    Attempt
	provider   providers.Info
	width      int
	cancelling bool
	finished   bool
	finalState auth.State
}

// NewLoginModel creates the login screen for attempt.
func NewLoginModel(attempt Attempt, provider providers.Info) LoginModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	return LoginModel{
		keys:     newLoginKeyMap(),
		spinner:  s,
		attempt:  attempt,
		provider: provider,
	}
}

func waitForAttempt(a Attempt) tea.Cmd {
	return func() tea.Msg {
		<-a.Done()
		return attemptDoneMsg{}
	}
}

// Init starts the spinner and the attempt watcher
func (m LoginModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, waitForAttempt(m.attempt))
}

// Update handles messages for the login screen
func (m LoginModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, m.keys.cancel) && !m.cancelling {
			// The attempt settles as cancelled unless the code is already
			// being exchanged; either way attemptDoneMsg ends the program.
			m.cancelling = true
			m.attempt.Cancel()
		}
		return m, nil

	case attemptDoneMsg:
		m.finished = true
		m.finalState = m.attempt.State()
		return m, tea.Quit

	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// Finished reports whether the attempt settled while the screen was up.
func (m LoginModel) Finished() bool {
	return m.finished
}

// View renders the login screen
func (m LoginModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("QuMail sign-in"))
	b.WriteString("\n\n")

	if m.finished {
		switch m.finalState {
		case auth.StateSucceeded:
			b.WriteString(completeMessageStyle("Signed in."))
		default:
			b.WriteString(statusMessageStyle(fmt.Sprintf("Sign-in %s.", strings.ReplaceAll(m.finalState.String(), "_", " "))))
		}
		b.WriteString("\n")
		return docStyle.Render(b.String())
	}

	name := m.provider.DisplayName
	if name == "" {
		name = m.provider.Name
	}
	fmt.Fprintf(&b, "Continue with %s in your browser", name)
	if host := m.provider.ConsentHost(); host != "" {
		fmt.Fprintf(&b, " (%s)", hostStyle.Render(host))
	}
	b.WriteString(".\n\n")

	status := "Waiting for the sign-in to complete..."
	switch {
	case m.attempt.State() == auth.StateExchanging:
		status = "Finishing sign-in..."
	case m.cancelling:
		status = "Cancelling..."
	}
	fmt.Fprintf(&b, "%s %s\n\n", m.spinner.View(), statusMessageStyle(status))
	b.WriteString(helpStyle(fmt.Sprintf("%s: %s", m.keys.cancel.Help().Key, m.keys.cancel.Help().Desc)))

	return docStyle.Render(b.String())
}
