package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of every environment variable read by Load.
const EnvPrefix = "TASKNOTIFY"

// ErrInvalidWindow is returned when the scan window cannot cover the tick interval.
var ErrInvalidWindow = errors.New("scan window must exceed the tick interval")

// Load configuration from environment variables and optionally a config file.
// Environment variables take precedence over values from the config file.
// The file is read from $TASKNOTIFY_CONFIG when set, otherwise ./config.yaml if present.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path := os.Getenv(EnvPrefix + "_CONFIG"); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvs(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks struct tags and the cross-field scheduler invariants.
func Validate(cfg *Config) error {
	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	s := cfg.Scheduler
	if s.LookBack+s.LookAhead <= s.TickInterval {
		return fmt.Errorf("config validation failed: %w (look_back %s + look_ahead %s <= tick_interval %s)",
			ErrInvalidWindow, s.LookBack, s.LookAhead, s.TickInterval)
	}

	if _, err := time.LoadLocation(cfg.Email.TimeZone); err != nil {
		return fmt.Errorf("config validation failed: unknown email time zone %q: %w", cfg.Email.TimeZone, err)
	}

	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.shutdown_timeout", 30*time.Second)

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	v.SetDefault("database.auto_migrate", false)

	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.tick_interval", time.Minute)
	v.SetDefault("scheduler.look_back", time.Minute)
	v.SetDefault("scheduler.look_ahead", 2*time.Minute)
	v.SetDefault("scheduler.run_on_start", false)
	v.SetDefault("scheduler.task_concurrency", 8)
	v.SetDefault("scheduler.send_concurrency", 4)
	v.SetDefault("scheduler.send_timeout", 10*time.Second)
	v.SetDefault("scheduler.claim_before_send", false)

	v.SetDefault("push.enabled", true)
	v.SetDefault("push.ttl_seconds", 24*60*60)
	v.SetDefault("push.urgency", "normal")
	v.SetDefault("push.max_payload_bytes", 3072)

	v.SetDefault("email.enabled", true)
	v.SetDefault("email.smtp_port", 587)
	v.SetDefault("email.tls_mode", "starttls")
	v.SetDefault("email.time_zone", "UTC")
}

// bindEnvs registers every key with viper so AutomaticEnv also applies to
// keys that have neither a default nor a value in the config file.
func bindEnvs(v *viper.Viper) {
	keys := []string{
		"database.url",
		"auth.jwt_secret",
		"push.vapid_public_key",
		"push.vapid_private_key",
		"push.subject",
		"email.from",
		"email.smtp_host",
		"email.username",
		"email.password",
		"email.frontend_url",
	}
	for _, key := range keys {
		_ = v.BindEnv(key)
	}
}
