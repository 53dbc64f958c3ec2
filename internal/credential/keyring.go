// Package credential stores account passwords in the operating system keyring.
package credential

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/zalando/go-keyring"
)

// DefaultService is the keyring service name entries are stored under.
const DefaultService = "pushd"

// ErrNoPassword is returned when no password is available for an account.
var ErrNoPassword = errors.New("no password stored for account")

// Provider resolves the password used to log in to an account's server.
type Provider interface {
	Password(accountUUID string) (string, error)
}

// Keyring reads and writes passwords through go-keyring.
type Keyring struct {
	service string
}

// NewKeyring creates a keyring store. An empty service selects DefaultService.
func NewKeyring(service string) *Keyring {
	if service == "" {
		service = DefaultService
	}
	return &Keyring{service: service}
}

// Password returns the stored password for the account.
func (k *Keyring) Password(accountUUID string) (string, error) {
	secret, err := keyring.Get(k.service, accountUUID)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", fmt.Errorf("%w %s", ErrNoPassword, accountUUID)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read password for account %s: %w", accountUUID, err)
	}
	return secret, nil
}

// SetPassword stores a password for the account.
func (k *Keyring) SetPassword(accountUUID, password string) error {
	if err := keyring.Set(k.service, accountUUID, password); err != nil {
		return fmt.Errorf("failed to store password for account %s: %w", accountUUID, err)
	}
	return nil
}

// DeletePassword removes the stored password. Missing entries are not an error.
func (k *Keyring) DeletePassword(accountUUID string) error {
	err := keyring.Delete(k.service, accountUUID)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("failed to delete password for account %s: %w", accountUUID, err)
	}
	return nil
}

// FileOverrides serves passwords from files, falling back to another provider.
// It is used for accounts whose configuration names a password file, which is
// the usual setup on headless hosts without a keyring daemon.
type FileOverrides struct {
	Files    map[string]string
	Fallback Provider
}

// Password reads the account's password file when one is configured.
func (f FileOverrides) Password(accountUUID string) (string, error) {
	if path, ok := f.Files[accountUUID]; ok && path != "" {
		// #nosec G304 -- path comes from the operator's configuration file
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("failed to read password file for account %s: %w", accountUUID, err)
		}
		return strings.TrimSpace(string(data)), nil
	}
	if f.Fallback == nil {
		return "", fmt.Errorf("%w %s", ErrNoPassword, accountUUID)
	}
	return f.Fallback.Password(accountUUID)
}
