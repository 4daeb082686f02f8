package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch value := v.(type) {
	case float64:
		d.Duration = time.Duration(value)
		return nil
	case string:
		return d.UnmarshalText([]byte(value))
	default:
		return errors.New("invalid duration")
	}
}

// UnmarshalText lets viper decode "30s" style values from env vars and config files.
func (d *Duration) UnmarshalText(b []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(b))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", b, err)
	}
	return nil
}

// UploadMode controls how tables with missing columns are treated.
type UploadMode string

const (
	// UploadModeLenient accepts tables with missing columns and degrades the summary.
	UploadModeLenient UploadMode = "lenient"
	// UploadModeStrict rejects tables that miss any required column.
	UploadModeStrict UploadMode = "strict"
)

func (m UploadMode) Valid() bool {
	return m == UploadModeLenient || m == UploadModeStrict
}

type Config struct {
	Address            string     `mapstructure:"address"`
	AllowOrigins       string     `mapstructure:"allow_origins"`
	BodyLimit          int        `mapstructure:"body_limit"`
	GCSCredentialsFile string     `mapstructure:"gcs_credentials_file"`
	JWTSecret          string     `mapstructure:"jwt_secret"`
	LogFormat          string     `mapstructure:"log_format"`
	LogLevel           string     `mapstructure:"log_level"`
	MaskForbidden      bool       `mapstructure:"mask_forbidden"`
	OwnerHeader        string     `mapstructure:"owner_header"`
	RetentionLimit     int        `mapstructure:"retention_limit"`
	ShutdownTimeout    Duration   `mapstructure:"shutdown_timeout"`
	SlowQueryThreshold Duration   `mapstructure:"slow_query_threshold"`
	StorageURL         string     `mapstructure:"storage_url"`
	StoreURL           string     `mapstructure:"store_url"`
	UploadMode         UploadMode `mapstructure:"upload_mode"`
	Version            string     `mapstructure:"-"`
}

const DefaultRetentionLimit = 5

func setDefaults(v *viper.Viper) {
	v.SetDefault("address", "localhost:8000")
	v.SetDefault("allow_origins", "*")
	v.SetDefault("body_limit", 16*1024*1024)
	v.SetDefault("gcs_credentials_file", "")
	v.SetDefault("jwt_secret", "")
	v.SetDefault("log_format", "text")
	v.SetDefault("log_level", "info")
	v.SetDefault("mask_forbidden", false)
	v.SetDefault("owner_header", "X-Remote-User")
	v.SetDefault("retention_limit", DefaultRetentionLimit)
	v.SetDefault("shutdown_timeout", "30s")
	v.SetDefault("slow_query_threshold", "200ms")
	v.SetDefault("storage_url", "file://./uploads")
	v.SetDefault("store_url", "sqlite://equipviz.db")
	v.SetDefault("upload_mode", string(UploadModeLenient))
}

const envPrefix = "EQUIPVIZ"

// applyDotenv layers EQUIPVIZ_* keys of a .env file over the defaults. The file is
// only read, never exported to the process environment.
func applyDotenv(v *viper.Viper, path string) error {
	values, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}

	for key, value := range values {
		name, ok := strings.CutPrefix(key, envPrefix+"_")
		if !ok || name == "" {
			continue
		}
		v.SetDefault(strings.ToLower(name), value)
	}

	return nil
}

// Load reads the configuration.
// Precedence: env (EQUIPVIZ_*) > config file > .env file > defaults.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	setDefaults(v)

	if err := applyDotenv(v, ".env"); err != nil {
		return nil, err
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %q: %w", cfgFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.TextUnmarshallerHookFunc(),
		mapstructure.StringToTimeDurationHookFunc(),
	))); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error

	if c.Address == "" {
		errs = append(errs, errors.New("address must not be empty"))
	}
	if !c.UploadMode.Valid() {
		errs = append(errs, fmt.Errorf("upload_mode must be %q or %q, got %q",
			UploadModeLenient, UploadModeStrict, c.UploadMode))
	}
	if c.RetentionLimit <= 0 {
		errs = append(errs, fmt.Errorf("retention_limit must be positive, got %d", c.RetentionLimit))
	}
	if c.StoreURL == "" {
		errs = append(errs, errors.New("store_url must not be empty"))
	}
	if c.StorageURL == "" {
		errs = append(errs, errors.New("storage_url must not be empty"))
	}

	return errors.Join(errs...)
}
