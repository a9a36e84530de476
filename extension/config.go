package extension

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/xraph/escrow"
)

// Store drivers accepted in Config.Driver.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
)

// Config holds the Escrow extension configuration.
// Fields can be set programmatically via Option functions, loaded from the
// Forge config manager (under "extensions.escrow" or "escrow" keys), or read
// from a standalone file with LoadConfig.
type Config struct {
	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// Driver selects the store backend: memory, sqlite, postgres or mongo
	// (default: memory). Ignored when a store is passed with WithStore.
	Driver string `json:"driver" mapstructure:"driver" yaml:"driver"`

	// DSN is the connection string for the sqlite, postgres and mongo drivers.
	DSN string `json:"dsn" mapstructure:"dsn" yaml:"dsn"`

	// Database is the MongoDB database name (default: "escrow").
	Database string `json:"database" mapstructure:"database" yaml:"database"`

	// MaxOpenConns bounds the postgres connection pool. Zero leaves the
	// driver default.
	MaxOpenConns int `json:"max_open_conns" mapstructure:"max_open_conns" yaml:"max_open_conns"`

	// CrankSchedule is a cron spec for the payment crank, e.g. "@every 1m".
	// Empty disables the scheduled crank.
	CrankSchedule string `json:"crank_schedule" mapstructure:"crank_schedule" yaml:"crank_schedule"`

	// CrankBatchSize bounds how many subscriptions one crank run charges
	// (default: 100).
	CrankBatchSize int `json:"crank_batch_size" mapstructure:"crank_batch_size" yaml:"crank_batch_size"`

	// Keeper is the hex address the crank calls as.
	Keeper string `json:"keeper" mapstructure:"keeper" yaml:"keeper"`

	// PluginTimeout bounds each plugin hook call (default: 5s).
	PluginTimeout time.Duration `json:"plugin_timeout" mapstructure:"plugin_timeout" yaml:"plugin_timeout"`

	// Metrics registers the Prometheus metrics plugin.
	Metrics bool `json:"metrics" mapstructure:"metrics" yaml:"metrics"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Driver:         DriverMemory,
		Database:       "escrow",
		CrankBatchSize: escrow.DefaultCrankBatchSize,
		PluginTimeout:  5 * time.Second,
	}
}

// Validate checks that the driver is known and has what it needs to connect.
func (c Config) Validate() error {
	switch c.Driver {
	case DriverMemory:
	case DriverSQLite, DriverPostgres, DriverMongo:
		if c.DSN == "" {
			return fmt.Errorf("escrow: driver %q requires a dsn", c.Driver)
		}
	default:
		return fmt.Errorf("escrow: unknown store driver %q", c.Driver)
	}
	if c.CrankBatchSize < 0 {
		return fmt.Errorf("escrow: crank_batch_size must not be negative")
	}
	return nil
}

// LoadConfig reads a config file (any format viper understands) and applies
// ESCROW_* environment overrides, e.g. ESCROW_DRIVER or ESCROW_CRANK_SCHEDULE.
// Missing keys take their DefaultConfig values.
func LoadConfig(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("ESCROW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	d := DefaultConfig()
	v.SetDefault("disable_migrate", d.DisableMigrate)
	v.SetDefault("driver", d.Driver)
	v.SetDefault("dsn", d.DSN)
	v.SetDefault("database", d.Database)
	v.SetDefault("max_open_conns", d.MaxOpenConns)
	v.SetDefault("crank_schedule", d.CrankSchedule)
	v.SetDefault("crank_batch_size", d.CrankBatchSize)
	v.SetDefault("keeper", d.Keeper)
	v.SetDefault("plugin_timeout", d.PluginTimeout)
	v.SetDefault("metrics", d.Metrics)

	var c Config
	if err := v.ReadInConfig(); err != nil {
		return c, fmt.Errorf("escrow: read config %s: %w", path, err)
	}
	if err := v.Unmarshal(&c); err != nil {
		return c, fmt.Errorf("escrow: decode config %s: %w", path, err)
	}
	return c, c.Validate()
}
