package plot

import (
	"errors"
	"os/exec"
	"runtime"
)

// Viewer shows the image file at path and returns the exit status of the
// viewer process. A non-nil error means the viewer could not be launched.
type Viewer func(path string) (exitCode int, err error)

// SystemViewer opens path with the platform's default image viewer:
// open on macOS, start on Windows, ImageMagick display elsewhere.
func SystemViewer(path string) (int, error) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", path)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", "", path)
	default:
		cmd = exec.Command("display", path)
	}

	err := cmd.Run()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	if err != nil {
		return -1, err
	}
	return 0, nil
}
