package presence

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

const autostartRelPath = "autostart/pushd.desktop"

// DefaultAutostartPath returns the XDG autostart entry location.
func DefaultAutostartPath() (string, error) {
	return xdg.ConfigFile(autostartRelPath)
}

// AutostartHook installs a desktop autostart entry so pushd comes back after login.
type AutostartHook struct {
	path    string
	command string
}

// NewAutostartHook creates a hook writing an entry at path that runs command.
func NewAutostartHook(path, command string) *AutostartHook {
	return &AutostartHook{path: filepath.Clean(path), command: command}
}

// Path returns the entry location.
func (h *AutostartHook) Path() string {
	return h.path
}

func (h *AutostartHook) entry() []byte {
	var b bytes.Buffer
	b.WriteString("[Desktop Entry]\n")
	b.WriteString("Type=Application\n")
	b.WriteString("Name=pushd\n")
	b.WriteString("Comment=Mail push notifications\n")
	fmt.Fprintf(&b, "Exec=%s serve\n", h.command)
	b.WriteString("NoDisplay=true\n")
	b.WriteString("X-GNOME-Autostart-enabled=true\n")
	return b.Bytes()
}

// Start writes the entry unless an identical one exists.
func (h *AutostartHook) Start() error {
	want := h.entry()
	if have, err := os.ReadFile(h.path); err == nil && bytes.Equal(have, want) {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(h.path), 0750); err != nil {
		return fmt.Errorf("failed to create autostart directory: %w", err)
	}
	if err := os.WriteFile(h.path, want, 0600); err != nil {
		return fmt.Errorf("failed to write autostart entry: %w", err)
	}
	return nil
}

// Stop removes the entry.
func (h *AutostartHook) Stop() error {
	if err := os.Remove(h.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove autostart entry: %w", err)
	}
	return nil
}
