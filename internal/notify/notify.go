// Package notify holds the user-facing side effects of the client: short
// non-blocking messages and page navigation.
package notify

import (
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"

	"github.com/leo/leo-picture-client/internal/logging"
)

// Notifier surfaces short messages without blocking the caller.
type Notifier interface {
	Warning(message string)
	Error(message string)
}

// Navigator exposes the current location and lets the client move away
// from it.
type Navigator interface {
	Location() string
	Redirect(target string)
}

// TerminalNotifier prints messages on a writer. Server supplied text is
// stripped of markup first.
type TerminalNotifier struct {
	mu     sync.Mutex
	out    io.Writer
	policy *bluemonday.Policy
	logger zerolog.Logger
}

// NewTerminalNotifier writes to out.
func NewTerminalNotifier(out io.Writer) *TerminalNotifier {
	return &TerminalNotifier{
		out:    out,
		policy: bluemonday.StrictPolicy(),
		logger: logging.Component("notify"),
	}
}

func (n *TerminalNotifier) Warning(message string) {
	n.print("warning", message)
}

func (n *TerminalNotifier) Error(message string) {
	n.print("error", message)
}

func (n *TerminalNotifier) print(level, message string) {
	clean := strings.TrimSpace(n.policy.Sanitize(message))
	if clean == "" {
		return
	}
	n.logger.Debug().Str("level", level).Str("message", clean).Msg("notification")

	n.mu.Lock()
	defer n.mu.Unlock()
	fmt.Fprintf(n.out, "[%s] %s\n", level, clean)
}

// LocationNavigator tracks a location in memory. Redirects replace the
// location and are forwarded to OnRedirect when set.
type LocationNavigator struct {
	mu         sync.RWMutex
	location   string
	OnRedirect func(target string)
}

// NewLocationNavigator starts at location.
func NewLocationNavigator(location string) *LocationNavigator {
	return &LocationNavigator{location: location}
}

func (n *LocationNavigator) Location() string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.location
}

// Navigate moves to location without counting as a redirect.
func (n *LocationNavigator) Navigate(location string) {
	n.mu.Lock()
	n.location = location
	n.mu.Unlock()
}

func (n *LocationNavigator) Redirect(target string) {
	n.mu.Lock()
	n.location = target
	hook := n.OnRedirect
	n.mu.Unlock()
	if hook != nil {
		hook(target)
	}
}

// LocationPath returns the path component of a location, tolerating
// locations that are bare paths.
func LocationPath(location string) string {
	u, err := url.Parse(location)
	if err != nil {
		return location
	}
	return u.Path
}
