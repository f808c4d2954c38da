package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server    ServerConfig    `mapstructure:"server" validate:"required"`
	Database  DatabaseConfig  `mapstructure:"database" validate:"required"`
	Auth      AuthConfig      `mapstructure:"auth" validate:"required"`
	Scheduler SchedulerConfig `mapstructure:"scheduler" validate:"required"`
	Push      PushConfig      `mapstructure:"push" validate:"required"`
	Email     EmailConfig     `mapstructure:"email" validate:"required"`
}

// ServerConfig contains the operator HTTP server settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	// ShutdownTimeout bounds the graceful shutdown of the HTTP server and scheduler.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL             string        `mapstructure:"url" validate:"required,url"`
	MaxOpenConns    int           `mapstructure:"max_open_conns" validate:"gt=0"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" validate:"gte=0"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" validate:"gt=0"`
	// AutoMigrate applies pending goose migrations on startup.
	AutoMigrate bool `mapstructure:"auto_migrate"`
}

// AuthConfig contains the secret used to verify operator tokens on the admin routes.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret" validate:"required,min=32"`
}

// SchedulerConfig controls the due-task scanner and the delivery fan-out.
type SchedulerConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	TickInterval time.Duration `mapstructure:"tick_interval" validate:"gt=0"`
	LookBack     time.Duration `mapstructure:"look_back" validate:"gt=0"`
	LookAhead    time.Duration `mapstructure:"look_ahead" validate:"gt=0"`
	// RunOnStart performs a scan immediately instead of waiting for the first tick.
	RunOnStart      bool          `mapstructure:"run_on_start"`
	TaskConcurrency int           `mapstructure:"task_concurrency" validate:"gt=0"`
	SendConcurrency int           `mapstructure:"send_concurrency" validate:"gt=0"`
	SendTimeout     time.Duration `mapstructure:"send_timeout" validate:"gt=0"`
	// ClaimBeforeSend sets the reminder flag with the guarded update before
	// fanning out, skipping tasks another run has already claimed.
	ClaimBeforeSend bool `mapstructure:"claim_before_send"`
}

// PushConfig holds the VAPID identity and Web Push delivery options.
type PushConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	VAPIDPublicKey  string `mapstructure:"vapid_public_key" validate:"required_if=Enabled true"`
	VAPIDPrivateKey string `mapstructure:"vapid_private_key" validate:"required_if=Enabled true"`
	Subject         string `mapstructure:"subject" validate:"required_if=Enabled true"`
	TTLSeconds      int    `mapstructure:"ttl_seconds" validate:"gte=0"`
	Urgency         string `mapstructure:"urgency" validate:"oneof=very-low low normal high"`
	MaxPayloadBytes int    `mapstructure:"max_payload_bytes" validate:"gt=0,lte=4096"`
}

// EmailConfig holds the SMTP submission settings and the reminder template inputs.
type EmailConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	From        string `mapstructure:"from" validate:"required_if=Enabled true,omitempty,email"`
	SMTPHost    string `mapstructure:"smtp_host" validate:"required_if=Enabled true"`
	SMTPPort    int    `mapstructure:"smtp_port" validate:"gt=0,lt=65536"`
	Username    string `mapstructure:"username"`
	Password    string `mapstructure:"password"`
	TLSMode     string `mapstructure:"tls_mode" validate:"oneof=starttls tls none"`
	FrontendURL string `mapstructure:"frontend_url" validate:"required_if=Enabled true,omitempty,url"`
	// TimeZone is the IANA zone used to format due dates in reminder emails.
	TimeZone string `mapstructure:"time_zone" validate:"required"`
}
