package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Load reads config.yaml (if present), applies defaults, then layers
// environment variables and a legacy .env file on top.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/monitord/")

	v.SetEnvPrefix("MONITORD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	if err := loadDotEnv(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.addr", "0.0.0.0:8080")
	v.SetDefault("http.shutdown_timeout", "15s")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.environment", "production")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "data/monitord.db")

	v.SetDefault("ssh.private_key_path", "/etc/monitord/ssh/id_rsa")
	v.SetDefault("ssh.bootstrap_user", "root")
	v.SetDefault("ssh.connect_timeout", "5s")
	v.SetDefault("ssh.command_timeout", "20s")
	v.SetDefault("ssh.known_hosts_path", "/etc/monitord/ssh/known_hosts")
	v.SetDefault("ssh.probe_script_path", "/etc/monitord/probe.py")

	v.SetDefault("smtp.mode", "starttls")
	v.SetDefault("smtp.port", "587")
	v.SetDefault("smtp.from_name", "Infrastructure Monitor")

	v.SetDefault("security.rate_limit_per_minute", 120)
	v.SetDefault("security.body_limit_bytes", 1<<20)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.namespace", "monitord")

	v.SetDefault("scheduler.collect_spec", "*/30 * * * * *")
	v.SetDefault("scheduler.detect_spec", "@every 1m")
	v.SetDefault("scheduler.heartbeat_spec", "*/30 * * * * *")
	v.SetDefault("scheduler.app_heartbeat_spec", "@every 1m")
	v.SetDefault("scheduler.service_scan_spec", "*/30 * * * * *")
	v.SetDefault("scheduler.notification_spec", "*/10 * * * * *")
	v.SetDefault("scheduler.job_timeout", "25s")

	v.SetDefault("detector.window_size", 30)
	v.SetDefault("detector.threshold_factor", 2.0)
	v.SetDefault("detector.persistence_samples", 3)
	v.SetDefault("detector.level_shift_zscore", 3.0)
	v.SetDefault("detector.volatility_shift_factor", 2.5)
	v.SetDefault("detector.correlation_threshold", 2.0)
}

func loadDotEnv(v *viper.Viper) error {
	candidates := []string{".", "..", "../.."}
	for _, path := range candidates {
		file := filepath.Clean(filepath.Join(path, ".env"))
		if _, err := os.Stat(file); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return fmt.Errorf("stat .env: %w", err)
		}

		envViper := viper.New()
		envViper.SetConfigFile(file)
		envViper.SetConfigType("env")
		if err := envViper.ReadInConfig(); err != nil {
			return fmt.Errorf("read .env: %w", err)
		}
		bindLegacyEnv(v, envViper)
	}
	return nil
}

// bindLegacyEnv maps flat, historical ENV variable names onto the
// hierarchical config keys so existing deployment scripts keep working.
func bindLegacyEnv(target *viper.Viper, source *viper.Viper) {
	mappings := map[string]string{
		"HTTP_ADDR":         "http.addr",
		"SHUTDOWN_TIMEOUT":  "http.shutdown_timeout",
		"LOG_LEVEL":         "log.level",
		"LOG_FORMAT":        "log.format",
		"ENV":               "log.environment",
		"DB_PATH":           "database.path",
		"SSH_PRIVATE_KEY_PATH": "ssh.private_key_path",
		"SMTP_HOST":         "smtp.host",
		"SMTP_PORT":         "smtp.port",
		"SMTP_USER":         "smtp.user",
		"SMTP_PASSWORD":     "smtp.password",
		"SMTP_FROM":         "smtp.from",
		"ALERT_RECIPIENT":   "smtp.recipient",
	}

	for oldKey, newKey := range mappings {
		if val := source.GetString(oldKey); val != "" {
			target.Set(newKey, val)
		}
	}
}
