package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/netip"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/mailpush/pushd/internal/account"
	"github.com/mailpush/pushd/internal/api"
	"github.com/mailpush/pushd/internal/backend"
	"github.com/mailpush/pushd/internal/config"
	"github.com/mailpush/pushd/internal/connectivity"
	"github.com/mailpush/pushd/internal/credential"
	"github.com/mailpush/pushd/internal/desktop"
	"github.com/mailpush/pushd/internal/imap"
	"github.com/mailpush/pushd/internal/notification"
	"github.com/mailpush/pushd/internal/presence"
	"github.com/mailpush/pushd/internal/push"
	"github.com/mailpush/pushd/internal/push/worker"
	"github.com/mailpush/pushd/internal/settings"
	"github.com/mailpush/pushd/internal/store"
	"github.com/mailpush/pushd/internal/syspolicy"
	"github.com/mailpush/pushd/internal/telemetry"
)

const (
	defaultRequestTimeout = 10 * time.Second
	defaultReadTimeout    = 10 * time.Second
	defaultWriteTimeout   = 15 * time.Second
	defaultIdleTimeout    = 60 * time.Second
)

// PushAppOptions configures the push app builder
type PushAppOptions func(*pushAppConfig) error

type pushAppConfig struct {
	config *config.Config

	// Optional component overrides (primarily for testing)
	storage   Storage
	passwords credential.Provider
	probe     connectivity.Probe
	telemetry *telemetry.Telemetry
	desktop   desktop.Server

	// HTTP server options
	address        string
	addressSet     bool
	middlewares    []func(http.Handler) http.Handler
	requestTimeout time.Duration
	readTimeout    time.Duration
	writeTimeout   time.Duration
	idleTimeout    time.Duration

	autostartCommand string
}

func baseConfig(opts ...PushAppOptions) (*pushAppConfig, error) {
	cfg := &pushAppConfig{
		requestTimeout: defaultRequestTimeout,
		readTimeout:    defaultReadTimeout,
		writeTimeout:   defaultWriteTimeout,
		idleTimeout:    defaultIdleTimeout,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	if cfg.config == nil {
		cfg.config = &config.Config{}
	}
	if !cfg.addressSet {
		cfg.address = cfg.config.GetAPIAddress()
	}

	return cfg, nil
}

// NewPushApp wires the daemon from its configuration
func NewPushApp(ctx context.Context, opts ...PushAppOptions) (*PushApp, error) {
	cfg, err := baseConfig(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to build base configuration: %w", err)
	}

	if cfg.storage == nil {
		cfg.storage, err = openStorage(cfg.config)
		if err != nil {
			return nil, err
		}
	}

	cleanupNeeded := true
	defer func() {
		if cleanupNeeded {
			_ = cfg.storage.Close()
		}
	}()

	registry := account.NewRegistry(cfg.storage)
	settingsManager := settings.NewManager(cfg.storage)

	if err := InitializeConfiguredAccounts(ctx, cfg.config, registry); err != nil {
		return nil, fmt.Errorf("failed to initialize configured accounts: %w", err)
	}
	if err := InitializeBackgroundSync(ctx, cfg.config, cfg.storage, settingsManager); err != nil {
		return nil, fmt.Errorf("failed to initialize background sync setting: %w", err)
	}

	if cfg.telemetry == nil {
		cfg.telemetry, err = telemetry.New(ctx, telemetry.WithTelemetryConfig(cfg.config.Telemetry))
		if err != nil {
			return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
		}
	}

	metrics, err := telemetry.NewPushMetrics(cfg.telemetry.MeterProvider())
	if err != nil {
		return nil, fmt.Errorf("failed to create push metrics: %w", err)
	}

	backends := buildBackends(cfg)
	policy := syspolicy.NewWatcher(cfg.config.GetPolicyPath())
	autoSync := syspolicy.NewAutoSync(policy, settingsManager)
	alarms := syspolicy.NewAlarms(policy, cfg.config.GetRequireExactAlarms())
	monitor := buildConnectivityMonitor(cfg)

	presenceController, err := buildPresence(cfg, monitor, autoSync, alarms)
	if err != nil {
		return nil, fmt.Errorf("failed to build presence: %w", err)
	}

	publisher := notification.NewPublisher()

	factory := push.NewWorkerFactory(backends,
		worker.WithBackOff(worker.ExponentialBackOff(cfg.config.GetInitialBackoff(), cfg.config.GetMaxBackoff())),
		worker.WithReceiver(push.MailLogReceiver(metrics)),
		worker.WithStateObserver(push.TransitionRecorder(metrics)),
	)

	controller := push.New(push.Dependencies{
		Accounts:     registry,
		Backends:     backends,
		Settings:     settingsManager,
		AutoSync:     autoSync,
		Alarms:       alarms,
		Connectivity: monitor,
		Workers:      factory,
		Publisher:    publisher,
		Presence:     presenceController,
	},
		push.WithMetrics(metrics),
		push.WithTracer(cfg.telemetry.Tracer()),
		push.WithStopGracePeriod(cfg.config.GetStopGracePeriod()),
	)

	components := &AppComponents{
		Storage:      cfg.storage,
		Accounts:     registry,
		Settings:     settingsManager,
		Backends:     backends,
		Policy:       policy,
		Connectivity: monitor,
		Publisher:    publisher,
		Controller:   controller,
		Telemetry:    cfg.telemetry,
		Desktop:      buildDesktopNotifier(cfg, controller),
	}

	var httpServer *http.Server
	if cfg.address != "" {
		httpServer, err = buildHTTPServer(cfg, components)
		if err != nil {
			if components.Desktop != nil {
				_ = components.Desktop.Close()
			}
			return nil, fmt.Errorf("failed to build HTTP server: %w", err)
		}
	}

	appCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	cleanupNeeded = false

	return &PushApp{
		config:     cfg.config,
		components: components,
		httpServer: httpServer,
		ctx:        appCtx,
		cancelFunc: cancel,
	}, nil
}

// WithConfig sets the configuration
func WithConfig(c *config.Config) PushAppOptions {
	return func(cfg *pushAppConfig) error {
		cfg.config = c
		return nil
	}
}

// WithAddress overrides the API address. An empty address disables the API.
func WithAddress(addr string) PushAppOptions {
	return func(cfg *pushAppConfig) error {
		cfg.addressSet = true
		if addr == "" {
			cfg.address = ""
			return nil
		}

		host, port, found := strings.Cut(addr, ":")
		if !found || port == "" {
			return fmt.Errorf("address is not a valid port: %s", addr)
		}
		if host == "localhost" {
			host = "127.0.0.1"
		}
		if host == "" {
			host = "0.0.0.0"
		}
		if _, err := netip.ParseAddrPort(host + ":" + port); err != nil {
			return fmt.Errorf("address is not a valid port: %w", err)
		}

		cfg.address = addr
		return nil
	}
}

// WithMiddlewares replaces the default HTTP middlewares
func WithMiddlewares(mw ...func(http.Handler) http.Handler) PushAppOptions {
	return func(cfg *pushAppConfig) error {
		cfg.middlewares = mw
		return nil
	}
}

// WithStorage injects the persistence (for testing)
func WithStorage(s Storage) PushAppOptions {
	return func(cfg *pushAppConfig) error {
		if s == nil {
			return fmt.Errorf("storage cannot be nil")
		}
		cfg.storage = s
		return nil
	}
}

// WithPasswords replaces the keyring as the fallback password provider
func WithPasswords(p credential.Provider) PushAppOptions {
	return func(cfg *pushAppConfig) error {
		cfg.passwords = p
		return nil
	}
}

// WithConnectivityProbe replaces the configured network probe (for testing)
func WithConnectivityProbe(p connectivity.Probe) PushAppOptions {
	return func(cfg *pushAppConfig) error {
		cfg.probe = p
		return nil
	}
}

// WithTelemetry injects already initialized telemetry
func WithTelemetry(t *telemetry.Telemetry) PushAppOptions {
	return func(cfg *pushAppConfig) error {
		cfg.telemetry = t
		return nil
	}
}

// WithDesktopServer replaces the session bus notification server (for testing)
func WithDesktopServer(s desktop.Server) PushAppOptions {
	return func(cfg *pushAppConfig) error {
		cfg.desktop = s
		return nil
	}
}

// WithAutostartCommand sets the command written to the autostart entry
func WithAutostartCommand(command string) PushAppOptions {
	return func(cfg *pushAppConfig) error {
		cfg.autostartCommand = command
		return nil
	}
}

func openStorage(cfg *config.Config) (Storage, error) {
	dbPath := cfg.GetDatabasePath()
	if err := os.MkdirAll(cfg.GetDataDir(), 0750); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	s, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", dbPath, err)
	}
	slog.Info("Opened database", "path", dbPath)
	return s, nil
}

func buildBackends(b *pushAppConfig) *backend.Manager {
	fallback := b.passwords
	if fallback == nil {
		fallback = credential.NewKeyring(credential.DefaultService)
	}
	passwords := credential.FileOverrides{
		Files:    b.config.PasswordFiles(),
		Fallback: fallback,
	}

	return backend.NewManager(map[string]backend.Factory{
		account.ServerTypeIMAP: backend.NewIMAPFactory(passwords,
			imap.WithIdleRefresh(b.config.GetIdleRefresh()),
			imap.WithDialTimeout(b.config.GetConnectTimeout()),
		),
		account.ServerTypePOP3: backend.NewPollOnlyFactory(),
	})
}

func buildConnectivityMonitor(b *pushAppConfig) *connectivity.Monitor {
	probe := b.probe
	if probe == nil {
		if addresses := b.config.GetProbeAddresses(); len(addresses) > 0 {
			probe = connectivity.TCPProbe(addresses)
		} else {
			probe = connectivity.InterfaceProbe()
		}
	}
	return connectivity.NewMonitor(
		connectivity.WithProbe(probe),
		connectivity.WithInterval(b.config.GetConnectivityInterval()),
		connectivity.WithTimeout(b.config.GetConnectivityTimeout()),
	)
}

func buildPresence(
	b *pushAppConfig,
	monitor *connectivity.Monitor,
	autoSync *syspolicy.AutoSync,
	alarms *syspolicy.Alarms,
) (*presence.Controller, error) {
	pcfg := presence.Config{
		KeepAlive:    presence.NewLockService(b.config.GetLockPath()),
		Connectivity: monitor,
		AutoSync:     autoSync,
		Alarms:       alarms,
	}

	if b.config.GetAutostart() {
		path, err := presence.DefaultAutostartPath()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve autostart path: %w", err)
		}
		command := b.autostartCommand
		if command == "" {
			if command, err = os.Executable(); err != nil {
				return nil, fmt.Errorf("failed to resolve executable: %w", err)
			}
		}
		pcfg.BootHook = presence.NewAutostartHook(path, command)
	}

	return presence.New(pcfg), nil
}

// buildDesktopNotifier returns nil when notifications are off or no session
// bus is reachable; push works without them.
func buildDesktopNotifier(b *pushAppConfig, controller push.Controller) *desktop.Notifier {
	server := b.desktop
	if server == nil {
		if !b.config.GetDesktopNotifications() {
			return nil
		}
		var err error
		if server, err = desktop.Connect(); err != nil {
			slog.Warn("Desktop notifications disabled", "error", err)
			return nil
		}
	}
	return desktop.NewNotifier(server, controller.DisablePushForAllAccounts)
}

func buildHTTPServer(b *pushAppConfig, c *AppComponents) (*http.Server, error) {
	if b.middlewares == nil {
		b.middlewares = []func(http.Handler) http.Handler{
			middleware.RequestID,
			middleware.Recoverer,
			middleware.Timeout(b.requestTimeout),
			api.LoggingMiddleware,
		}
	}

	httpMetrics, err := telemetry.NewHTTPMetrics(c.Telemetry.MeterProvider())
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP metrics: %w", err)
	}
	// Metrics and tracing wrap everything so that rejected requests are seen too.
	middlewares := append([]func(http.Handler) http.Handler{
		telemetry.TracingMiddleware(c.Telemetry.TracerProvider()),
		httpMetrics.Middleware,
	}, b.middlewares...)

	router := api.NewServer(pushService{
		Publisher:  c.Publisher,
		Controller: c.Controller,
		accounts:   c.Accounts,
		settings:   c.Settings,
	},
		api.WithMiddlewares(middlewares...),
		api.WithMetricsHandler(c.Telemetry.MetricsHandler()),
	)

	slog.Info("HTTP server configured", "address", b.address)
	return &http.Server{
		Addr:         b.address,
		Handler:      router,
		ReadTimeout:  b.readTimeout,
		WriteTimeout: b.writeTimeout,
		IdleTimeout:  b.idleTimeout,
	}, nil
}
