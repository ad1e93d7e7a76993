package config

import (
	"errors"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration struct. All fields have safe
// defaults so callers can start with Default() and override only what they
// need.
type Config struct {
	// Render Scheduler worker pool, one count per pipeline class (§4.5).
	Workers WorkerConfig `yaml:"workers"`

	// Autosave policy (§4.10).
	Autosave AutosaveConfig `yaml:"autosave"`

	// Pipeline Cache bound: maximum retained node intermediates, per
	// pipeline (§3 "bounding the number of retained intermediates per
	// pipeline").
	PipelineCacheSize int `yaml:"pipeline_cache_size"`

	// wait_hash poll interval/timeout (§4.4).
	WaitHashPollInterval time.Duration `yaml:"wait_hash_poll_interval"`
	WaitHashTimeout      time.Duration `yaml:"wait_hash_timeout"`

	// Persistence Layer (§4.8).
	Persistence PersistenceConfig `yaml:"persistence"`

	// Logging.
	LogLevel string `yaml:"log_level"` // "debug", "info", "warn", "error"
}

// WorkerConfig sizes the Render Scheduler's three worker classes.
type WorkerConfig struct {
	Full      int `yaml:"full"`
	Preview   int `yaml:"preview"`
	Secondary int `yaml:"secondary"`
	QueueSize int `yaml:"queue_size"`
}

// AutosaveConfig controls when add_history_item triggers a persistence
// write (§4.10); the write runs synchronously inside that call.
type AutosaveConfig struct {
	Every           int           `yaml:"every"` // autosave every N history appends
	SlowDriveThresh time.Duration `yaml:"slow_drive_threshold"`
}

// PersistenceConfig points at the relational store and sidecar directory.
type PersistenceConfig struct {
	DriverDSN    string        `yaml:"driver_dsn"` // modernc.org/sqlite DSN
	SidecarDir   string        `yaml:"sidecar_dir"`
	ConflictRetryMax   int           `yaml:"conflict_retry_max"`
	ConflictRetryDelay time.Duration `yaml:"conflict_retry_delay"`
}

// Default returns a Config populated with sensible production defaults.
func Default() Config {
	return Config{
		Workers: WorkerConfig{
			Full:      2,
			Preview:   2,
			Secondary: 1,
			QueueSize: 64,
		},
		Autosave: AutosaveConfig{
			Every:           1,
			SlowDriveThresh: 500 * time.Millisecond,
		},
		PipelineCacheSize:    64,
		WaitHashPollInterval: 25 * time.Millisecond,
		WaitHashTimeout:      5 * time.Second,
		Persistence: PersistenceConfig{
			DriverDSN:          "file:develop.db",
			SidecarDir:         "./sidecars",
			ConflictRetryMax:   5,
			ConflictRetryDelay: 50 * time.Millisecond,
		},
		LogLevel: "info",
	}
}

// Validate returns an error if the configuration is inconsistent.
func Validate(c Config) error {
	if c.Workers.Full <= 0 || c.Workers.Preview <= 0 || c.Workers.Secondary <= 0 {
		return errors.New("config: each pipeline class needs at least one worker")
	}
	if c.PipelineCacheSize <= 0 {
		return errors.New("config: PipelineCacheSize must be positive")
	}
	if c.WaitHashTimeout <= 0 || c.WaitHashPollInterval <= 0 {
		return errors.New("config: wait_hash timing fields must be positive")
	}
	if c.WaitHashPollInterval > c.WaitHashTimeout {
		return errors.New("config: WaitHashPollInterval must not exceed WaitHashTimeout")
	}
	if c.Persistence.DriverDSN == "" {
		return errors.New("config: Persistence.DriverDSN is required")
	}
	return nil
}

// FromYAML parses Config from YAML bytes, starting from Default() so omitted
// sections keep their defaults.
func FromYAML(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// FromFile reads and parses a YAML config file.
func FromFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	return FromYAML(data)
}
