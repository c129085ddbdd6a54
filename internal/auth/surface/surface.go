// Package surface abstracts the browsing surface a delegated login runs in.
//
// A Launcher opens one surface per login attempt. The surface reports every
// navigation to a single Handler and signals on Closed when it goes away,
// whether the user closed it or Close was called.
package surface

import "context"

// Decision is a handler's verdict on a navigation.
type Decision int

const (
	// Allow lets the surface load the target.
	Allow Decision = iota
	// Deny stops the surface from loading the target.
	Deny
)

func (d Decision) String() string {
	if d == Deny {
		return "deny"
	}
	return "allow"
}

// EventKind tells which surface event produced a navigation. Surfaces may
// report the same URL more than once under different kinds.
type EventKind int

const (
	WillNavigate EventKind = iota
	DidNavigate
	Redirect
)

func (k EventKind) String() string {
	switch k {
	case WillNavigate:
		return "will-navigate"
	case DidNavigate:
		return "did-navigate"
	case Redirect:
		return "redirect"
	default:
		return "unknown"
	}
}

// Navigation is one observed navigation target.
type Navigation struct {
	URL  string
	Kind EventKind
}

// Handler is called synchronously for every navigation, in arrival order.
type Handler func(Navigation) Decision

// Surface is an open browsing surface.
type Surface interface {
	// Close tears the surface down. Safe to call more than once.
	Close() error
	// Closed is closed once the surface is gone.
	Closed() <-chan struct{}
}

// Launcher opens a surface at startURL.
type Launcher interface {
	Launch(ctx context.Context, startURL string, handler Handler) (Surface, error)
}

// Opener hands a URL to something outside the surface, usually the
// operating system's default browser.
type Opener interface {
	Open(url string) error
}

// OpenerFunc adapts a function to Opener.
type OpenerFunc func(url string) error

func (f OpenerFunc) Open(url string) error {
	return f(url)
}
