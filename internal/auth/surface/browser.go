package surface

import (
	"io"

	"github.com/pkg/browser"
)

// SystemBrowser opens URLs in the operating system's default browser.
type SystemBrowser struct{}

// NewSystemBrowser silences the launcher's own output, which would otherwise
// land in the terminal UI.
func NewSystemBrowser() *SystemBrowser {
	browser.Stdout = io.Discard
	browser.Stderr = io.Discard
	return &SystemBrowser{}
}

func (*SystemBrowser) Open(url string) error {
	return browser.OpenURL(url)
}

// ManualOpener asks the user to open URLs themselves, for hosts without a
// usable browser.
type ManualOpener struct {
	Out io.Writer
}

func (o *ManualOpener) Open(url string) error {
	_, err := io.WriteString(o.Out, "Open this URL in your browser:\n\n  "+url+"\n\n")
	return err
}
