package shared

import (
	"fmt"
	"net/url"
	"os/exec"
	"runtime"
)

var getRuntime = func() string { return runtime.GOOS }

// openerCommand returns the platform launcher for rawURL.
func openerCommand(goos, rawURL string) (*exec.Cmd, error) {
	switch goos {
	case "darwin":
		return exec.Command("open", rawURL), nil
	case "linux", "freebsd", "openbsd":
		return exec.Command("xdg-open", rawURL), nil
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", rawURL), nil
	default:
		return nil, fmt.Errorf("%w: cannot open media on %s", ErrNotImplemented, goos)
	}
}

// OpenBrowser hands a media item's URL to the system opener.
//
// Only absolute http(s) URLs are accepted so a malformed feed entry never reaches the shell.
func OpenBrowser(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("%w: media url %q", ErrInvalidArgument, rawURL)
	}

	cmd, err := openerCommand(getRuntime(), u.String())
	if err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to open media: %w", err)
	}
	return cmd.Process.Release()
}
