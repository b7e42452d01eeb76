package shared

import (
	"fmt"
	"net/url"
	"os/exec"
	"runtime"
)

// OpenBrowser opens an http(s) link, such as a track cover or download URL, in the default browser.
func OpenBrowser(link string) error {
	name, args, err := openCommand(runtime.GOOS, link)
	if err != nil {
		return err
	}

	if err := exec.Command(name, args...).Start(); err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}
	return nil
}

// openCommand returns the launcher invocation for link on goos.
func openCommand(goos, link string) (string, []string, error) {
	u, err := url.Parse(link)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", nil, fmt.Errorf("%w: not an http(s) link: %q", ErrInvalidInput, link)
	}

	switch goos {
	case "darwin":
		return "open", []string{link}, nil
	case "linux", "freebsd", "openbsd":
		return "xdg-open", []string{link}, nil
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler", link}, nil
	default:
		return "", nil, fmt.Errorf("unsupported platform: %s", goos)
	}
}
