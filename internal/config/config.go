package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/oshokin/lvc/internal/logger"
)

// Config holds the settings of the controller and its client.
type Config struct {
	// ListenAddress is the address the controller's gRPC API listens on.
	ListenAddress string `yaml:"listen_addr"`
	// ServerAddress is the controller address the client dials.
	ServerAddress string `yaml:"server_addr"`
	// Timeout is the duration for network operations and RPC calls.
	Timeout time.Duration `yaml:"timeout"`
	// CycleInterval is the period of the control cycle.
	CycleInterval time.Duration `yaml:"cycle_interval"`
	// SnapshotFile is the YAML file the acquisition readings are taken from.
	SnapshotFile string `yaml:"snapshot_file"`
	// StateFile is the JSON file the fleet state is carried over in.
	StateFile string `yaml:"state_file"`
	// LogLevel is the minimum level of the process log.
	LogLevel string `yaml:"log_level"`
	// TerminateOnReportFailure stops the controller when a belly-up report cannot be delivered.
	TerminateOnReportFailure bool `yaml:"terminate_on_report_failure"`
	// RecentEvents is the number of events kept in memory for ListEvents.
	RecentEvents int `yaml:"recent_events"`
	// Journal configures the SQL event journal. An empty DSN disables it.
	Journal Journal `yaml:"journal"`
	// Redis configures the Redis event stream. An empty address disables it.
	Redis Redis `yaml:"redis"`
}

// Journal holds the SQL event journal settings.
type Journal struct {
	// Driver is "sqlite" or "pgx".
	Driver string `yaml:"driver"`
	// DSN is the data source name passed to the driver.
	DSN string `yaml:"dsn"`
}

// Redis holds the Redis event stream settings.
type Redis struct {
	// Address is the host:port of the Redis server.
	Address string `yaml:"addr"`
	// Password is the optional Redis password.
	Password string `yaml:"password"`
	// KeyPrefix namespaces the lists and channel events are written to.
	KeyPrefix string `yaml:"key_prefix"`
}

const (
	// DefaultConfigFilename is the default filename for settings.
	DefaultConfigFilename = "lvc-settings.yaml"

	// DefaultStateFilename is the default filename for the carried-over state.
	DefaultStateFilename = "lvc-state.json"

	// DefaultSnapshotFilename is the default filename for acquisition readings.
	DefaultSnapshotFilename = "lvc-snapshot.yaml"

	// DefaultListenAddress is the default gRPC listen address of the controller.
	DefaultListenAddress = "127.0.0.1:8090"

	// DefaultTimeout is the default duration for network operations.
	DefaultTimeout = 5 * time.Second

	// DefaultCycleInterval is the default control cycle period.
	DefaultCycleInterval = 30 * time.Second

	// DefaultRecentEvents is the default size of the in-memory event buffer.
	DefaultRecentEvents = 256

	// DefaultJournalDriver is used when a journal DSN is set without a driver.
	DefaultJournalDriver = "sqlite"

	// DefaultFilePermissions is the default file permission for settings and state files.
	DefaultFilePermissions = 0o600
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errUnknownLogLevel is returned for log levels zap does not know.
	errUnknownLogLevel = errors.New("unknown log level")
	// errUnknownJournalDriver is returned for journal drivers other than sqlite and pgx.
	errUnknownJournalDriver = errors.New("unknown journal driver")
)

// Load reads configuration from the provided path and validates it.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadOrDefault behaves like Load but returns validated defaults when the file does not exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if err == nil {
		return cfg, nil
	}

	if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	cfg = new(Config)
	if err = Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes settings to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks the provided settings for formatting and fills in defaults.
func Validate(settings *Config) error {
	if settings == nil {
		return errConfigIsNotSet
	}

	if settings.ListenAddress == "" {
		settings.ListenAddress = DefaultListenAddress
	}

	if _, err := net.ResolveTCPAddr("tcp", settings.ListenAddress); err != nil {
		return fmt.Errorf("invalid listen socket: %w", err)
	}

	// The client dials the local controller unless told otherwise.
	if settings.ServerAddress == "" {
		settings.ServerAddress = settings.ListenAddress
	}

	if _, err := net.ResolveTCPAddr("tcp", settings.ServerAddress); err != nil {
		return fmt.Errorf("invalid server socket: %w", err)
	}

	if settings.Timeout <= 0 {
		settings.Timeout = DefaultTimeout
	}

	if settings.CycleInterval <= 0 {
		settings.CycleInterval = DefaultCycleInterval
	}

	if settings.StateFile == "" {
		settings.StateFile = DefaultStateFilename
	}

	if settings.SnapshotFile == "" {
		settings.SnapshotFile = DefaultSnapshotFilename
	}

	if settings.RecentEvents <= 0 {
		settings.RecentEvents = DefaultRecentEvents
	}

	if settings.LogLevel != "" {
		if _, ok := logger.ParseLogLevel(settings.LogLevel); !ok {
			return fmt.Errorf("%w: %q", errUnknownLogLevel, settings.LogLevel)
		}
	}

	return validateJournal(&settings.Journal)
}

// validateJournal checks the journal driver when a DSN is configured.
func validateJournal(j *Journal) error {
	if j.DSN == "" {
		return nil
	}

	if j.Driver == "" {
		j.Driver = DefaultJournalDriver
	}

	switch j.Driver {
	case "sqlite", "pgx":
		return nil
	default:
		return fmt.Errorf("%w: %q", errUnknownJournalDriver, j.Driver)
	}
}
