package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "SELFEVAL"

// Config holds the client configuration.
type Config struct {
	// APIURL is the REST backend base URL.
	APIURL string `mapstructure:"api_url" validate:"omitempty,url"`

	// Timeout bounds a single backend request. Default: 15s.
	Timeout time.Duration `mapstructure:"timeout" validate:"gt=0"`

	// DB is the SQLite path. Empty means store.DefaultDBPath.
	DB string `mapstructure:"db"`

	// LogFile receives structured logs; the TUI owns stdout/stderr.
	LogFile string `mapstructure:"log_file"`

	// LogLevel is a zerolog level name.
	LogLevel string `mapstructure:"log_level" validate:"oneof=trace debug info warn error disabled"`

	// RefreshSkew is how long before expiry the access token is refreshed.
	RefreshSkew time.Duration `mapstructure:"refresh_skew" validate:"gte=0"`

	// Offline runs against the in-memory demo backend.
	Offline bool `mapstructure:"offline"`

	Retry RetryConfig `mapstructure:"retry"`
}

// RetryConfig configures retries of read-only backend calls.
type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts" validate:"gte=1,lte=10"`
	InitialWait time.Duration `mapstructure:"initial_wait" validate:"gte=0"`
	MaxWait     time.Duration `mapstructure:"max_wait" validate:"gtefield=InitialWait"`
	Multiplier  float64       `mapstructure:"multiplier" validate:"gte=1"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		APIURL:      "http://localhost:3000/api",
		Timeout:     15 * time.Second,
		LogLevel:    "info",
		RefreshSkew: 30 * time.Second,
		Retry: RetryConfig{
			MaxAttempts: 3,
			InitialWait: 500 * time.Millisecond,
			MaxWait:     5 * time.Second,
			Multiplier:  2.0,
		},
	}
}

// Options controls where Load looks for configuration.
type Options struct {
	// File is an explicit config file; when empty the default search
	// path is used and a missing file is not an error.
	File string

	// DotEnv is the .env file loaded into the environment when present.
	DotEnv string
}

// Load builds a Config from defaults, an optional config file, an optional
// .env file and SELFEVAL_* environment variables, in increasing priority.
func Load(opts Options) (Config, error) {
	dotEnv := opts.DotEnv
	if dotEnv == "" {
		dotEnv = ".env"
	}
	if _, err := os.Stat(dotEnv); err == nil {
		if err := godotenv.Load(dotEnv); err != nil {
			return Config{}, fmt.Errorf("load %s: %w", dotEnv, err)
		}
	} else if !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("stat %s: %w", dotEnv, err)
	}

	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if opts.File != "" {
		v.SetConfigFile(opts.File)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", opts.File, err)
		}
	} else {
		v.SetConfigName("selfeval")
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "selfeval"))
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("api_url", d.APIURL)
	v.SetDefault("timeout", d.Timeout)
	v.SetDefault("db", d.DB)
	v.SetDefault("log_file", d.LogFile)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("refresh_skew", d.RefreshSkew)
	v.SetDefault("offline", d.Offline)
	v.SetDefault("retry.max_attempts", d.Retry.MaxAttempts)
	v.SetDefault("retry.initial_wait", d.Retry.InitialWait)
	v.SetDefault("retry.max_wait", d.Retry.MaxWait)
	v.SetDefault("retry.multiplier", d.Retry.Multiplier)
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints and reports every violation.
func (c Config) Validate() error {
	if !c.Offline && c.APIURL == "" {
		return errors.New("invalid config: api_url is required unless offline")
	}
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s: failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}
