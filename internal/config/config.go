// Package config provides configuration loading for pushd.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"

	"github.com/mailpush/pushd/internal/account"
	"github.com/mailpush/pushd/internal/connectivity"
	"github.com/mailpush/pushd/internal/imap"
	"github.com/mailpush/pushd/internal/push"
	"github.com/mailpush/pushd/internal/push/worker"
	"github.com/mailpush/pushd/internal/settings"
	"github.com/mailpush/pushd/internal/telemetry"
)

const (
	// AppName names the XDG directories
	AppName = "pushd"

	// DefaultAPIAddress is where the status API listens unless configured
	DefaultAPIAddress = "127.0.0.1:8089"

	databaseFileName = "pushd.db"
	statusFileName   = "status.json"
	lockFileName     = "pushd.lock"
	policyFileName   = "policy.yaml"
)

// Option defines the interface for configuration options
type Option func(*loaderConfig) error

type loaderConfig struct {
	path string
}

// WithConfigPath loads configuration from a YAML file
func WithConfigPath(path string) Option {
	return func(cfg *loaderConfig) error {
		if path == "" {
			return fmt.Errorf("path is required")
		}

		// Resolve symlinks; this also cleans the path.
		realPath, err := filepath.EvalSymlinks(path)
		if err != nil {
			return fmt.Errorf("failed to evaluate symlinks: %w", err)
		}
		if !filepath.IsAbs(realPath) && !filepath.IsLocal(realPath) {
			return fmt.Errorf("path is not local or contains invalid traversal: %s", path)
		}

		cfg.path = realPath
		return nil
	}
}

// Config represents the root configuration structure
type Config struct {
	// DataDir holds the database, status file and lock file.
	// Defaults to $XDG_DATA_HOME/pushd
	DataDir string `yaml:"dataDir,omitempty"`

	Database *DatabaseConfig `yaml:"database,omitempty"`

	// BackgroundSync seeds the setting when the database has none (ALWAYS, NEVER, FOLLOW_SYSTEM)
	BackgroundSync string `yaml:"backgroundSync,omitempty"`

	// Accounts are written to the registry on serve
	Accounts []AccountConfig `yaml:"accounts,omitempty"`

	Push         *PushConfig         `yaml:"push,omitempty"`
	Connectivity *ConnectivityConfig `yaml:"connectivity,omitempty"`
	SystemPolicy *SystemPolicyConfig `yaml:"systemPolicy,omitempty"`
	Presence     *PresenceConfig     `yaml:"presence,omitempty"`
	Desktop      *DesktopConfig      `yaml:"desktop,omitempty"`
	Status       *StatusConfig       `yaml:"status,omitempty"`
	API          *APIConfig          `yaml:"api,omitempty"`
	Telemetry    *telemetry.Config   `yaml:"telemetry,omitempty"`
}

// DatabaseConfig defines the SQLite database location
type DatabaseConfig struct {
	Path string `yaml:"path,omitempty"`
}

// AccountConfig declares an account in the configuration file
type AccountConfig struct {
	UUID     string       `yaml:"uuid"`
	Name     string       `yaml:"name,omitempty"`
	Email    string       `yaml:"email,omitempty"`
	PushMode string       `yaml:"pushMode,omitempty"`
	Incoming ServerConfig `yaml:"incoming"`

	// PasswordFile is read instead of the keyring for this account.
	// The file should contain only the password with optional trailing whitespace
	PasswordFile string `yaml:"passwordFile,omitempty"`
}

// ServerConfig defines the incoming server of an account
type ServerConfig struct {
	Type     string   `yaml:"type"`
	Host     string   `yaml:"host"`
	Port     int      `yaml:"port"`
	Security string   `yaml:"security,omitempty"`
	Username string   `yaml:"username"`
	Folders  []string `yaml:"folders,omitempty"`
}

// PushConfig tunes the push workers. Durations use Go syntax ("30s", "5m").
type PushConfig struct {
	InitialBackoff  string `yaml:"initialBackoff,omitempty"`
	MaxBackoff      string `yaml:"maxBackoff,omitempty"`
	IdleRefresh     string `yaml:"idleRefresh,omitempty"`
	ConnectTimeout  string `yaml:"connectTimeout,omitempty"`
	StopGracePeriod string `yaml:"stopGracePeriod,omitempty"`
}

// ConnectivityConfig defines how network availability is probed
type ConnectivityConfig struct {
	// ProbeAddresses switches from the interface probe to TCP reachability of these host:port pairs
	ProbeAddresses []string `yaml:"probeAddresses,omitempty"`
	Interval       string   `yaml:"interval,omitempty"`
	Timeout        string   `yaml:"timeout,omitempty"`
}

// SystemPolicyConfig locates the system policy file
type SystemPolicyConfig struct {
	// Path defaults to $XDG_CONFIG_HOME/pushd/policy.yaml
	Path string `yaml:"path,omitempty"`

	// RequireExactAlarms makes a missing exactAlarms grant block push
	RequireExactAlarms bool `yaml:"requireExactAlarms,omitempty"`
}

// PresenceConfig defines the presence services
type PresenceConfig struct {
	LockFile  string `yaml:"lockFile,omitempty"`
	Autostart bool   `yaml:"autostart,omitempty"`
}

// DesktopConfig controls the session bus status notification
type DesktopConfig struct {
	Notifications bool `yaml:"notifications,omitempty"`
}

// StatusConfig locates the status file
type StatusConfig struct {
	Path string `yaml:"path,omitempty"`
}

// APIConfig defines the status API listener
type APIConfig struct {
	Disabled bool   `yaml:"disabled,omitempty"`
	Address  string `yaml:"address,omitempty"`
}

// LoadConfig loads and parses configuration. Without WithConfigPath it
// returns an empty configuration, which means defaults everywhere.
func LoadConfig(opts ...Option) (*Config, error) {
	loaderCfg := &loaderConfig{}
	for _, opt := range opts {
		if err := opt(loaderCfg); err != nil {
			return nil, err
		}
	}

	var config Config
	if loaderCfg.path != "" {
		data, err := os.ReadFile(loaderCfg.path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// GetDataDir returns the data directory
func (c *Config) GetDataDir() string {
	if c.DataDir != "" {
		return filepath.Clean(c.DataDir)
	}
	return filepath.Join(xdg.DataHome, AppName)
}

// GetDatabasePath returns the SQLite database file
func (c *Config) GetDatabasePath() string {
	if c.Database != nil && c.Database.Path != "" {
		return filepath.Clean(c.Database.Path)
	}
	return filepath.Join(c.GetDataDir(), databaseFileName)
}

// GetStatusPath returns the status file
func (c *Config) GetStatusPath() string {
	if c.Status != nil && c.Status.Path != "" {
		return filepath.Clean(c.Status.Path)
	}
	return filepath.Join(c.GetDataDir(), statusFileName)
}

// GetLockPath returns the presence lock file
func (c *Config) GetLockPath() string {
	if c.Presence != nil && c.Presence.LockFile != "" {
		return filepath.Clean(c.Presence.LockFile)
	}
	return filepath.Join(c.GetDataDir(), lockFileName)
}

// GetAutostart reports whether the autostart entry is managed
func (c *Config) GetAutostart() bool {
	return c.Presence != nil && c.Presence.Autostart
}

// GetDesktopNotifications reports whether the status notification is shown
func (c *Config) GetDesktopNotifications() bool {
	return c.Desktop != nil && c.Desktop.Notifications
}

// GetPolicyPath returns the system policy file
func (c *Config) GetPolicyPath() string {
	if c.SystemPolicy != nil && c.SystemPolicy.Path != "" {
		return filepath.Clean(c.SystemPolicy.Path)
	}
	return filepath.Join(xdg.ConfigHome, AppName, policyFileName)
}

// GetRequireExactAlarms reports whether exact alarms gate push
func (c *Config) GetRequireExactAlarms() bool {
	return c.SystemPolicy != nil && c.SystemPolicy.RequireExactAlarms
}

// GetAPIAddress returns the status API address, or "" when the API is disabled
func (c *Config) GetAPIAddress() string {
	if c.API == nil {
		return DefaultAPIAddress
	}
	if c.API.Disabled {
		return ""
	}
	if c.API.Address == "" {
		return DefaultAPIAddress
	}
	return c.API.Address
}

// GetBackgroundSync returns the configured seed value and whether one was set
func (c *Config) GetBackgroundSync() (settings.BackgroundSync, bool) {
	if c.BackgroundSync == "" {
		return settings.DefaultBackgroundSync, false
	}
	bg, err := settings.ParseBackgroundSync(c.BackgroundSync)
	if err != nil {
		return settings.DefaultBackgroundSync, false
	}
	return bg, true
}

// GetInitialBackoff returns the first reconnect delay
func (c *Config) GetInitialBackoff() time.Duration {
	if c.Push == nil {
		return worker.DefaultInitialBackoff
	}
	return durationOr(c.Push.InitialBackoff, worker.DefaultInitialBackoff)
}

// GetMaxBackoff returns the reconnect delay cap
func (c *Config) GetMaxBackoff() time.Duration {
	if c.Push == nil {
		return worker.DefaultMaxBackoff
	}
	return durationOr(c.Push.MaxBackoff, worker.DefaultMaxBackoff)
}

// GetIdleRefresh returns how long one IDLE command may last
func (c *Config) GetIdleRefresh() time.Duration {
	if c.Push == nil {
		return imap.DefaultIdleRefresh
	}
	return durationOr(c.Push.IdleRefresh, imap.DefaultIdleRefresh)
}

// GetConnectTimeout returns the IMAP dial timeout
func (c *Config) GetConnectTimeout() time.Duration {
	if c.Push == nil {
		return imap.DefaultDialTimeout
	}
	return durationOr(c.Push.ConnectTimeout, imap.DefaultDialTimeout)
}

// GetStopGracePeriod returns how long a worker may take to stop
func (c *Config) GetStopGracePeriod() time.Duration {
	if c.Push == nil {
		return push.DefaultStopGracePeriod
	}
	return durationOr(c.Push.StopGracePeriod, push.DefaultStopGracePeriod)
}

// GetProbeAddresses returns the TCP probe targets; empty means the interface probe
func (c *Config) GetProbeAddresses() []string {
	if c.Connectivity == nil {
		return nil
	}
	return c.Connectivity.ProbeAddresses
}

// GetConnectivityInterval returns the probe interval
func (c *Config) GetConnectivityInterval() time.Duration {
	if c.Connectivity == nil {
		return connectivity.DefaultInterval
	}
	return durationOr(c.Connectivity.Interval, connectivity.DefaultInterval)
}

// GetConnectivityTimeout returns the probe timeout
func (c *Config) GetConnectivityTimeout() time.Duration {
	if c.Connectivity == nil {
		return connectivity.DefaultTimeout
	}
	return durationOr(c.Connectivity.Timeout, connectivity.DefaultTimeout)
}

// PasswordFiles maps account UUIDs to their configured password files
func (c *Config) PasswordFiles() map[string]string {
	files := make(map[string]string)
	for _, acc := range c.Accounts {
		if acc.PasswordFile != "" {
			files[acc.UUID] = filepath.Clean(acc.PasswordFile)
		}
	}
	return files
}

// ToAccount converts the declaration into a registry account
func (a *AccountConfig) ToAccount() (account.Account, error) {
	mode := account.FolderModeNone
	if a.PushMode != "" {
		parsed, err := account.ParseFolderMode(a.PushMode)
		if err != nil {
			return account.Account{}, err
		}
		mode = parsed
	}

	security := a.Incoming.Security
	if security == "" {
		security = account.SecuritySSL
	}

	acc := account.Account{
		UUID:           a.UUID,
		Name:           a.Name,
		Email:          a.Email,
		FolderPushMode: mode,
		Incoming: account.ServerSettings{
			Type:     a.Incoming.Type,
			Host:     a.Incoming.Host,
			Port:     a.Incoming.Port,
			Security: security,
			Username: a.Incoming.Username,
			Folders:  a.Incoming.Folders,
		},
	}
	if err := acc.Validate(); err != nil {
		return account.Account{}, err
	}
	return acc, nil
}

func durationOr(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func (c *Config) validate() error {
	if c == nil {
		return fmt.Errorf("config cannot be nil")
	}

	if c.BackgroundSync != "" {
		if _, err := settings.ParseBackgroundSync(c.BackgroundSync); err != nil {
			return fmt.Errorf("backgroundSync: %w", err)
		}
	}

	seen := make(map[string]bool)
	for i := range c.Accounts {
		acc := &c.Accounts[i]
		if acc.UUID == "" {
			return fmt.Errorf("accounts[%d]: uuid is required", i)
		}
		if seen[acc.UUID] {
			return fmt.Errorf("accounts[%d]: duplicate uuid '%s'", i, acc.UUID)
		}
		seen[acc.UUID] = true

		if _, err := acc.ToAccount(); err != nil {
			return fmt.Errorf("accounts[%d] (%s): %w", i, acc.UUID, err)
		}
	}

	if c.Push != nil {
		if err := validateDurations("push", map[string]string{
			"initialBackoff":  c.Push.InitialBackoff,
			"maxBackoff":      c.Push.MaxBackoff,
			"idleRefresh":     c.Push.IdleRefresh,
			"connectTimeout":  c.Push.ConnectTimeout,
			"stopGracePeriod": c.Push.StopGracePeriod,
		}); err != nil {
			return err
		}
		if c.GetInitialBackoff() > c.GetMaxBackoff() {
			return fmt.Errorf("push: initialBackoff must not exceed maxBackoff")
		}
	}

	if c.Connectivity != nil {
		if err := validateDurations("connectivity", map[string]string{
			"interval": c.Connectivity.Interval,
			"timeout":  c.Connectivity.Timeout,
		}); err != nil {
			return err
		}
	}

	if err := c.Telemetry.Validate(); err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}

	return nil
}

func validateDurations(section string, values map[string]string) error {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	for _, key := range keys {
		value := values[key]
		if value == "" {
			continue
		}
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("%s.%s must be a valid duration (e.g., '30s', '5m'): %w", section, key, err)
		}
		if d <= 0 {
			return fmt.Errorf("%s.%s must be positive, got %s", section, key, value)
		}
	}
	return nil
}
