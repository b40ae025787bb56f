package shared

import (
	"fmt"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

var getRuntime = func() string { return runtime.GOOS }

// OpenInBrowser hands target to the platform's default opener. Local paths
// are made absolute and turned into file:// URLs so exported decks open in
// the browser rather than an editor.
func OpenInBrowser(target string) error {
	url, err := browserURL(target)
	if err != nil {
		return err
	}

	var cmd *exec.Cmd
	switch rt := getRuntime(); rt {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", url)
	default:
		return fmt.Errorf("unsupported platform: %s", rt)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}
	return nil
}

func browserURL(target string) (string, error) {
	if strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://") || strings.HasPrefix(target, "file://") {
		return target, nil
	}
	abs, err := filepath.Abs(target)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	return "file://" + filepath.ToSlash(abs), nil
}
