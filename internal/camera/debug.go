package camera

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Dumper writes sampled frames under $XDG_STATE_HOME/baserah/debug for
// offline inspection.
type Dumper struct {
	dir string
	now func() time.Time
}

// NewDumper resolves and creates the debug directory.
func NewDumper() (*Dumper, error) {
	stateDir, err := resolveStateDir()
	if err != nil {
		return nil, err
	}
	dir := filepath.Join(stateDir, "baserah", "debug")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create debug dir: %w", err)
	}
	return &Dumper{dir: dir, now: time.Now}, nil
}

// Dir returns the dump directory.
func (d *Dumper) Dir() string {
	return d.dir
}

// Dump writes f as a timestamped JPEG and returns its path.
func (d *Dumper) Dump(f Frame) (string, error) {
	timestamp := d.now().Format("20060102-150405.000")
	path := filepath.Join(d.dir, fmt.Sprintf("frame-%s-%06d.jpg", timestamp, f.Seq))
	if err := os.WriteFile(path, f.JPEG, 0o600); err != nil {
		return "", fmt.Errorf("write debug frame %q: %w", path, err)
	}
	return path, nil
}

// resolveStateDir returns XDG_STATE_HOME or its ~/.local/state fallback.
func resolveStateDir() (string, error) {
	if xdg := strings.TrimSpace(os.Getenv("XDG_STATE_HOME")); xdg != "" {
		return xdg, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory for state: %w", err)
	}
	return filepath.Join(home, ".local", "state"), nil
}
