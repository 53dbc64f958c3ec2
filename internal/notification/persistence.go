package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

//go:generate mockgen -destination=mocks/mock_status_persistence.go -package=mocks -source=persistence.go StatusPersistence

// StatusFileName is the default name of the status file inside the data directory.
const StatusFileName = "status.json"

// Status is the persisted form of the notification state.
type Status struct {
	State   State  `json:"state"`
	Message string `json:"message"`
	PID     int    `json:"pid,omitempty"`
	// Version is the pushd release that wrote the file.
	Version string `json:"version,omitempty"`
	// Accounts lists the accounts with a running push worker.
	Accounts  []string  `json:"accounts,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// StatusPersistence stores the latest status for other processes to read.
//
//nolint:revive // This name is fine
type StatusPersistence interface {
	// SaveStatus replaces the stored status.
	SaveStatus(ctx context.Context, status *Status) error
	// LoadStatus returns the stored status. A missing file yields a Disabled status.
	LoadStatus(ctx context.Context) (*Status, error)
}

type fileStatusPersistence struct {
	path string
}

// NewFileStatusPersistence creates a file based persistence writing to path.
func NewFileStatusPersistence(path string) StatusPersistence {
	return &fileStatusPersistence{path: path}
}

func (f *fileStatusPersistence) SaveStatus(_ context.Context, status *Status) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0750); err != nil {
		return fmt.Errorf("failed to create status directory: %w", err)
	}

	data, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal status: %w", err)
	}

	// Write to a temporary file and rename so readers never see a partial file.
	tempPath := f.path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temporary status file: %w", err)
	}
	if err := os.Rename(tempPath, f.path); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to rename status file: %w", err)
	}
	return nil
}

func (f *fileStatusPersistence) LoadStatus(_ context.Context) (*Status, error) {
	// #nosec G304 -- path comes from configuration
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Status{State: StateDisabled, Message: StateDisabled.Message()}, nil
		}
		return nil, fmt.Errorf("failed to read status file: %w", err)
	}

	var status Status
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, fmt.Errorf("failed to unmarshal status: %w", err)
	}
	return &status, nil
}
