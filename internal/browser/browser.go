// Package browser hands URLs to the desktop's web browser.
package browser

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

// ErrUnsupportedURL is returned for anything but http and https.
var ErrUnsupportedURL = errors.New("browser: only http and https URLs can be opened")

// System opens URLs with the platform's default handler, or with $BROWSER
// when it is set.
type System struct {
	// GOOS selects the launcher; empty means runtime.GOOS.
	GOOS string
	// Getenv defaults to os.Getenv.
	Getenv func(string) string
	// start runs the launcher without waiting for it.
	start func(name string, args ...string) error
}

// New returns an opener for the running platform.
func New() *System {
	return &System{}
}

// Command returns the program and arguments that would open u.
func (s *System) Command(u string) (string, []string) {
	getenv := s.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	// $BROWSER may list several programs separated by colons; the first wins.
	if b := getenv("BROWSER"); b != "" {
		first, _, _ := strings.Cut(b, ":")
		fields := strings.Fields(first)
		if len(fields) > 0 {
			return fields[0], append(fields[1:], u)
		}
	}

	goos := s.GOOS
	if goos == "" {
		goos = runtime.GOOS
	}
	switch goos {
	case "darwin":
		return "open", []string{u}
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler", u}
	default:
		return "xdg-open", []string{u}
	}
}

// Open implements app.Opener.
func (s *System) Open(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("%w: %s", ErrUnsupportedURL, raw)
	}
	name, args := s.Command(u.String())
	start := s.start
	if start == nil {
		start = launch
	}
	if err := start(name, args...); err != nil {
		return fmt.Errorf("launch %s: %w", name, err)
	}
	return nil
}

func launch(name string, args ...string) error {
	// #nosec G204 - the program is the platform opener or the user's $BROWSER
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() { _ = cmd.Wait() }()
	return nil
}
