// Package browser opens portal files: in the system browser, into a local
// directory, or not at all when a web page will open them itself.
package browser

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"runtime"
	"time"

	"github.com/abrezinsky/hackportal/internal/logger"
)

// Opener makes a file URL available to the user. It returns where the file
// ended up: the URL itself, or a local path.
type Opener interface {
	Open(ctx context.Context, fileURL string) (string, error)
}

// Commander is an interface for executing commands (for testing)
type Commander interface {
	Start(name string, args ...string) error
}

// RealCommander executes actual commands
type RealCommander struct{}

// Start executes a command and starts it
func (RealCommander) Start(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	return cmd.Start()
}

// System opens URLs in the default browser
type System struct {
	Commander Commander
	GOOS      string
}

// NewSystem returns an Opener for the running platform
func NewSystem() *System {
	return &System{Commander: RealCommander{}, GOOS: runtime.GOOS}
}

// Open launches the platform browser on fileURL
func (s *System) Open(ctx context.Context, fileURL string) (string, error) {
	if err := OpenWithCommander(fileURL, s.Commander, s.GOOS); err != nil {
		return "", err
	}
	return fileURL, nil
}

// OpenWithCommander opens the URL using the specified commander and OS (for testing)
func OpenWithCommander(url string, commander Commander, goos string) error {
	var name string
	var args []string

	switch goos {
	case "linux", "freebsd", "openbsd":
		name = "xdg-open"
		args = []string{url}
	case "darwin":
		name = "open"
		args = []string{url}
	case "windows":
		name = "rundll32"
		args = []string{"url.dll,FileProtocolHandler", url}
	default:
		return fmt.Errorf("unsupported platform: %s", goos)
	}

	return commander.Start(name, args...)
}

// Saver downloads files into a directory instead of opening a browser
type Saver struct {
	Dir    string
	Client *http.Client
	Log    logger.Logger
}

// NewSaver creates a Saver writing into dir
func NewSaver(dir string, log logger.Logger) *Saver {
	return &Saver{
		Dir:    dir,
		Client: &http.Client{Timeout: 5 * time.Minute},
		Log:    log,
	}
}

// Open downloads fileURL into the directory and returns the local path
func (s *Saver) Open(ctx context.Context, fileURL string) (string, error) {
	name, err := fileName(fileURL)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create download directory: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := s.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to download %s: %w", fileURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download %s returned status %d", fileURL, resp.StatusCode)
	}

	dest := filepath.Join(s.Dir, name)
	tmp, err := os.CreateTemp(s.Dir, name+".*.part")
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	n, copyErr := io.Copy(tmp, resp.Body)
	closeErr := tmp.Close()
	if copyErr != nil || closeErr != nil {
		os.Remove(tmp.Name())
		if copyErr != nil {
			return "", fmt.Errorf("failed to write %s: %w", dest, copyErr)
		}
		return "", fmt.Errorf("failed to write %s: %w", dest, closeErr)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to move %s into place: %w", dest, err)
	}

	if s.Log != nil {
		s.Log.Info("File saved", "path", dest, "bytes", n)
	}
	return dest, nil
}

func fileName(fileURL string) (string, error) {
	u, err := url.Parse(fileURL)
	if err != nil {
		return "", fmt.Errorf("invalid file URL %q: %w", fileURL, err)
	}
	name := path.Base(u.Path)
	if name == "." || name == "/" || name == "" {
		return "", fmt.Errorf("file URL %q has no file name", fileURL)
	}
	return name, nil
}

// Passthrough does not open anything; the caller hands the URL to a web page
type Passthrough struct{}

// Open returns fileURL unchanged
func (Passthrough) Open(ctx context.Context, fileURL string) (string, error) {
	return fileURL, nil
}

var (
	_ Opener = (*System)(nil)
	_ Opener = (*Saver)(nil)
	_ Opener = Passthrough{}
)
