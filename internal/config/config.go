// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Store drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverSheets   = "sheets"
	DriverMemory   = "memory"
)

// Config is the full service configuration.
type Config struct {
	// HTTP
	HTTPAddr  string `envconfig:"HTTP_ADDR" default:":8099"`
	StaticDir string `envconfig:"STATIC_DIR" default:"/app/static"`

	// Storage
	DataDir         string        `envconfig:"DATA_DIR" default:"/data"`
	StoreDriver     string        `envconfig:"STORE_DRIVER" default:"sqlite"`
	PostgresDSN     string        `envconfig:"POSTGRES_DSN"`
	SheetsID        string        `envconfig:"SHEETS_SPREADSHEET_ID"`
	SheetsCredsFile string        `envconfig:"SHEETS_CREDENTIALS_FILE"`
	SheetsTab       string        `envconfig:"SHEETS_TAB" default:"Bookings"`
	CacheSize       int           `envconfig:"STORE_CACHE_SIZE" default:"64"`
	CacheTTL        time.Duration `envconfig:"STORE_CACHE_TTL" default:"0"`

	// Slots
	Timezone   string        `envconfig:"APP_TIMEZONE" default:"Local"`
	SlotTimes  []string      `envconfig:"SLOT_TIMES" default:"09:00,10:00,11:00,12:00,13:00,14:00,15:00,16:00,17:00"`
	Groomers   []string      `envconfig:"GROOMERS" default:"Groomer 1,Groomer 2"`
	Service    string        `envconfig:"SLOT_SERVICE" default:"grooming"`
	SlotLength time.Duration `envconfig:"SLOT_LENGTH" default:"1h"`

	// Holds
	BrowseHoldTTL  time.Duration `envconfig:"BROWSE_HOLD_TTL" default:"5m"`
	ReserveHoldTTL time.Duration `envconfig:"RESERVE_HOLD_TTL" default:"10m"`
	SweepInterval  time.Duration `envconfig:"SWEEP_INTERVAL" default:"60s"`

	StrictStatusTransitions bool `envconfig:"STRICT_STATUS_TRANSITIONS" default:"false"`

	// Notifications
	RabbitMQURL      string `envconfig:"RABBITMQ_URL"`
	RabbitMQExchange string `envconfig:"RABBITMQ_EXCHANGE" default:"bookings"`

	// Admin
	AdminJWTSecret string `envconfig:"ADMIN_JWT_SECRET"`

	// Tracing
	OTLPEndpoint string `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	Environment  string `envconfig:"ENV" default:"dev"`
}

// Load reads the configuration and checks it for consistency.
func Load() (Config, error) {
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return c, err
	}
	return c, c.Validate()
}

// Validate checks driver-specific requirements.
func (c *Config) Validate() error {
	c.StoreDriver = strings.ToLower(strings.TrimSpace(c.StoreDriver))
	switch c.StoreDriver {
	case DriverSQLite, DriverMemory:
	case DriverPostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("POSTGRES_DSN is required for the %s driver", c.StoreDriver)
		}
	case DriverSheets:
		if c.SheetsID == "" {
			return fmt.Errorf("SHEETS_SPREADSHEET_ID is required for the %s driver", c.StoreDriver)
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}

	if c.BrowseHoldTTL <= 0 || c.ReserveHoldTTL <= 0 {
		return fmt.Errorf("hold TTLs must be positive")
	}
	return nil
}

// Location resolves Timezone.
func (c Config) Location() (*time.Location, error) {
	if c.Timezone == "" || strings.EqualFold(c.Timezone, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("loading APP_TIMEZONE: %w", err)
	}
	return loc, nil
}
