// Package account holds the mail account model and the account registry that
// the push orchestrator reads on every reconciliation pass.
package account

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// ErrAccountNotFound is returned when an account UUID is not present in the registry.
var ErrAccountNotFound = errors.New("account not found")

// FolderMode selects which folders of an account are pushed.
type FolderMode string

const (
	// FolderModeNone disables push for the account.
	FolderModeNone FolderMode = "NONE"
	// FolderModeAll pushes every folder.
	FolderModeAll FolderMode = "ALL"
	// FolderModeFirstClass pushes first class folders only.
	FolderModeFirstClass FolderMode = "FIRST_CLASS"
	// FolderModeFirstAndSecondClass pushes first and second class folders.
	FolderModeFirstAndSecondClass FolderMode = "FIRST_AND_SECOND_CLASS"
	// FolderModeNotSecondClass pushes everything except second class folders.
	FolderModeNotSecondClass FolderMode = "NOT_SECOND_CLASS"
)

// ParseFolderMode accepts the canonical names as well as the lower camel case
// spelling used in configuration files ("firstClass").
func ParseFolderMode(s string) (FolderMode, error) {
	normalized := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "-", "_"))
	switch normalized {
	case "", "NONE":
		return FolderModeNone, nil
	case "ALL":
		return FolderModeAll, nil
	case "FIRST_CLASS", "FIRSTCLASS":
		return FolderModeFirstClass, nil
	case "FIRST_AND_SECOND_CLASS", "FIRSTANDSECONDCLASS":
		return FolderModeFirstAndSecondClass, nil
	case "NOT_SECOND_CLASS", "NOTSECONDCLASS":
		return FolderModeNotSecondClass, nil
	default:
		return FolderModeNone, fmt.Errorf("unknown folder push mode %q", s)
	}
}

// Server protocol types.
const (
	ServerTypeIMAP = "imap"
	ServerTypePOP3 = "pop3"
)

// Connection security values.
const (
	SecuritySSL      = "ssl"
	SecuritySTARTTLS = "starttls"
	SecurityNone     = "none"
)

// DefaultPushFolder is watched when an account does not list push folders.
const DefaultPushFolder = "INBOX"

// ServerSettings describes the incoming server of an account.
type ServerSettings struct {
	Type     string   `json:"type" yaml:"type"`
	Host     string   `json:"host" yaml:"host"`
	Port     int      `json:"port" yaml:"port"`
	Security string   `json:"security" yaml:"security"`
	Username string   `json:"username" yaml:"username"`
	Folders  []string `json:"folders,omitempty" yaml:"folders,omitempty"`
}

// Key returns a stable fingerprint of the settings. Two settings with the same
// key resolve to the same backend instance.
func (s ServerSettings) Key() string {
	h := sha256.New()
	for _, part := range []string{
		strings.ToLower(s.Type),
		strings.ToLower(s.Host),
		strconv.Itoa(s.Port),
		strings.ToLower(s.Security),
		s.Username,
		strings.Join(s.Folders, "\x00"),
	} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// PushFolder returns the folder a push connection selects.
func (s ServerSettings) PushFolder() string {
	if len(s.Folders) > 0 && s.Folders[0] != "" {
		return s.Folders[0]
	}
	return DefaultPushFolder
}

// Account is a configured mail account.
type Account struct {
	UUID           string         `json:"uuid"`
	Name           string         `json:"name"`
	Email          string         `json:"email"`
	FolderPushMode FolderMode     `json:"folderPushMode"`
	Incoming       ServerSettings `json:"incoming"`
}

// IsPushEnabled reports whether the user asked for push on this account.
func (a Account) IsPushEnabled() bool {
	return a.FolderPushMode != "" && a.FolderPushMode != FolderModeNone
}

// Validate checks the fields the registry relies on.
func (a Account) Validate() error {
	var errs []error
	if _, err := uuid.Parse(a.UUID); err != nil {
		errs = append(errs, fmt.Errorf("invalid uuid %q: %w", a.UUID, err))
	}
	if _, err := ParseFolderMode(string(a.FolderPushMode)); err != nil {
		errs = append(errs, err)
	}
	switch a.Incoming.Type {
	case ServerTypeIMAP, ServerTypePOP3:
	default:
		errs = append(errs, fmt.Errorf("unsupported server type %q", a.Incoming.Type))
	}
	switch a.Incoming.Security {
	case SecuritySSL, SecuritySTARTTLS, SecurityNone:
	default:
		errs = append(errs, fmt.Errorf("unsupported connection security %q", a.Incoming.Security))
	}
	if a.Incoming.Host == "" {
		errs = append(errs, errors.New("incoming host is required"))
	}
	if a.Incoming.Port <= 0 || a.Incoming.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid incoming port %d", a.Incoming.Port))
	}
	return errors.Join(errs...)
}

// NewUUID returns a fresh account identifier.
func NewUUID() string {
	return uuid.New().String()
}
