package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/osa911/datacap/internal/logging"
)

// Config holds all configuration for the daemon and the CLI
type Config struct {
	Environment string `env:"ENV" envDefault:"production" validate:"required"`

	// Logging
	LogLevel      string `env:"LOG_LEVEL" envDefault:"info" validate:"oneof=debug info warn error"`
	LogFile       string `env:"LOG_FILE" envDefault:"~/.datacap/datacap.log"`
	LogMaxSize    int    `env:"LOG_MAX_SIZE" envDefault:"100" validate:"gt=0"`
	LogMaxBackups int    `env:"LOG_MAX_BACKUPS" envDefault:"3" validate:"gte=0"`
	LogMaxAge     int    `env:"LOG_MAX_AGE" envDefault:"7" validate:"gte=0"`

	// Storage
	DatabaseDriver string `env:"DATABASE_DRIVER" envDefault:"sqlite" validate:"oneof=sqlite postgres"`
	DatabaseURL    string `env:"DATABASE_URL" envDefault:"~/.datacap/datacap.db" validate:"required"`

	// Enforcement
	PollInterval time.Duration `env:"POLL_INTERVAL" envDefault:"5s" validate:"gt=0"`

	// Traffic counters
	Interfaces     []string      `env:"INTERFACES" envDefault:"wwan*,rmnet*,usb*" envSeparator:"," validate:"min=1,dive,required"`
	BucketInterval time.Duration `env:"BUCKET_INTERVAL" envDefault:"5s" validate:"gt=0"`
	BucketWidth    time.Duration `env:"BUCKET_WIDTH" envDefault:"1m" validate:"gt=0"`
	RetentionDays  int           `env:"RETENTION_DAYS" envDefault:"45" validate:"gt=0"`

	// Sinkhole
	SinkholeMode    string `env:"SINKHOLE_MODE" envDefault:"tun" validate:"oneof=tun dryrun"`
	SinkholeName    string `env:"SINKHOLE_NAME" envDefault:"datacap0" validate:"required,max=15"`
	SinkholeAddress string `env:"SINKHOLE_ADDRESS" envDefault:"10.0.0.2/24" validate:"required,cidr"`
	SinkholeMTU     int    `env:"SINKHOLE_MTU" envDefault:"1500" validate:"gte=576,lte=65535"`

	// Control API
	ControlAddr string `env:"CONTROL_ADDR" envDefault:"127.0.0.1:7765" validate:"required,hostname_port"`
	APIRPS      int    `env:"API_RPS" envDefault:"20" validate:"gt=0"`
	APIBurst    int    `env:"API_BURST" envDefault:"40" validate:"gt=0"`

	// Purchases
	PurchaseSettleDelay time.Duration `env:"PURCHASE_SETTLE_DELAY" envDefault:"2s" validate:"gte=0"`
	USSDModem           string        `env:"USSD_MODEM" envDefault:"any" validate:"required"`

	// Notifications
	TelegramBotToken string `env:"TELEGRAM_BOT_TOKEN"`
	TelegramChatID   string `env:"TELEGRAM_CHAT_ID"`

	// Telemetry Configuration
	OTLPEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
}

// DefaultConfigDir is where the daemon keeps its state when paths are not overridden
const DefaultConfigDir = "~/.datacap"

// Load loads the configuration from environment variables and .env files
func Load() (*Config, error) {
	// Try multiple locations for .env file
	envLocations := []string{".env"}
	if dir, err := logging.ExpandHome(DefaultConfigDir); err == nil {
		envLocations = append(envLocations, filepath.Join(dir, "datacap.env"))
	}
	if path := os.Getenv("DATACAP_ENV_FILE"); path != "" {
		envLocations = append([]string{path}, envLocations...)
	}

	for _, loc := range envLocations {
		if err := godotenv.Load(loc); err == nil {
			// godotenv never overrides variables that are already set
			break
		}
	}

	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: "DATACAP_"}); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.normalize(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// normalize expands home-relative paths
func (c *Config) normalize() error {
	var err error
	if c.LogFile != "" {
		if c.LogFile, err = logging.ExpandHome(c.LogFile); err != nil {
			return err
		}
	}
	if c.DatabaseDriver == "sqlite" {
		if c.DatabaseURL, err = logging.ExpandHome(c.DatabaseURL); err != nil {
			return err
		}
	}
	c.LogLevel = strings.ToLower(c.LogLevel)
	return nil
}

// Validate checks the struct tags and returns the first failing field
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(c); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
			first := verrs[0]
			return logging.WrapError(logging.ErrInvalidConfig,
				fmt.Sprintf("field %s failed %q (value %v)", first.Field(), first.Tag(), first.Value()))
		}
		return logging.WrapError(logging.ErrInvalidConfig, err.Error())
	}
	return nil
}

// LogConfig converts the logging fields for logging.InitLogger
func (c *Config) LogConfig() *logging.LogConfig {
	return &logging.LogConfig{
		Level:      c.LogLevel,
		File:       c.LogFile,
		MaxSize:    c.LogMaxSize,
		MaxBackups: c.LogMaxBackups,
		MaxAge:     c.LogMaxAge,
	}
}

// ControlURL is the base URL the CLI uses to reach the daemon
func (c *Config) ControlURL() string {
	return "http://" + c.ControlAddr
}

// Retention is the bucket retention window
func (c *Config) Retention() time.Duration {
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}
