package config

import (
	"log/slog"
	"time"
)

// Config aggregates the whole application configuration.
type Config struct {
	HTTP      HTTPConfig      `mapstructure:"http"`
	Log       LogConfig       `mapstructure:"log"`
	DB        DBConfig        `mapstructure:"database"`
	SSH       SSHConfig       `mapstructure:"ssh"`
	SMTP      SMTPConfig      `mapstructure:"smtp"`
	Security  SecurityConfig  `mapstructure:"security"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Detector  DetectorConfig  `mapstructure:"detector"`
}

// HTTPConfig configures the read API listener.
type HTTPConfig struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	Level       string `mapstructure:"level"`
	Format      string `mapstructure:"format"`
	AddSource   bool   `mapstructure:"add_source"`
	Environment string `mapstructure:"environment"`
}

// DBConfig configures the sqlite-backed store.
type DBConfig struct {
	Driver string `mapstructure:"driver"`
	Path   string `mapstructure:"path"`
}

// SSHConfig configures the executor used to reach monitored hosts.
type SSHConfig struct {
	PrivateKeyPath  string        `mapstructure:"private_key_path"`
	BootstrapUser   string        `mapstructure:"bootstrap_user"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	CommandTimeout  time.Duration `mapstructure:"command_timeout"`
	KnownHostsPath  string        `mapstructure:"known_hosts_path"`
	ProbeScriptPath string        `mapstructure:"probe_script_path"`
}

// SMTPConfig configures the alert mailer.
type SMTPConfig struct {
	Host      string `mapstructure:"host"`
	Port      string `mapstructure:"port"`
	User      string `mapstructure:"user"`
	Password  string `mapstructure:"password"`
	From      string `mapstructure:"from"`
	FromName  string `mapstructure:"from_name"`
	Mode      string `mapstructure:"mode"` // "plain", "starttls", "smtps"
	Recipient string `mapstructure:"recipient"`
}

// SecurityConfig configures API-facing protections.
type SecurityConfig struct {
	RateLimitPerMinute int      `mapstructure:"rate_limit_per_minute"`
	AllowedOrigins     []string `mapstructure:"allowed_origins"`
	BodyLimitBytes     int64    `mapstructure:"body_limit_bytes"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled   bool      `mapstructure:"enabled"`
	Namespace string    `mapstructure:"namespace"`
	Subsystem string    `mapstructure:"subsystem"`
	Buckets   []float64 `mapstructure:"buckets"`
	// Token, if set, requires Authorization: Bearer <token> on /metrics.
	Token string `mapstructure:"token"`
}

// SchedulerConfig configures job cadences, expressed as cron specs so
// operators can retune collection frequency without a redeploy.
type SchedulerConfig struct {
	CollectSpec      string        `mapstructure:"collect_spec"`
	DetectSpec       string        `mapstructure:"detect_spec"`
	HeartbeatSpec    string        `mapstructure:"heartbeat_spec"`
	AppHeartbeatSpec string        `mapstructure:"app_heartbeat_spec"`
	ServiceScanSpec  string        `mapstructure:"service_scan_spec"`
	NotificationSpec string        `mapstructure:"notification_spec"`
	JobTimeout       time.Duration `mapstructure:"job_timeout"`
}

// DetectorConfig configures the statistical anomaly detectors.
type DetectorConfig struct {
	WindowSize            int     `mapstructure:"window_size"`
	ThresholdFactor       float64 `mapstructure:"threshold_factor"`
	PersistenceSamples    int     `mapstructure:"persistence_samples"`
	LevelShiftZScore      float64 `mapstructure:"level_shift_zscore"`
	VolatilityShiftFactor float64 `mapstructure:"volatility_shift_factor"`
	CorrelationThreshold  float64 `mapstructure:"correlation_threshold"`
}

func (c LogConfig) SlogLevel() slog.Level {
	switch c.Level {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
