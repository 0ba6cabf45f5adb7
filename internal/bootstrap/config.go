package bootstrap

import (
	"log/slog"
	"time"

	"github.com/creamcroissant/monitord/internal/config"
)

// Config is the subset of application configuration consumed directly by
// the bootstrap wiring (HTTP listener, database, SSH, SMTP). It is derived
// from config.Config via Adapt rather than parsed independently, so there
// is exactly one source of truth for configuration values.
type Config struct {
	HTTP HTTPConfig
	Log  LogConfig
	DB   DBConfig
	SSH  SSHConfig
	SMTP SMTPConfig
}

// HTTPConfig stores listener and shutdown behavior.
type HTTPConfig struct {
	Addr            string
	ShutdownTimeout time.Duration
}

// LogConfig controls slog handler behavior.
type LogConfig struct {
	Level       slog.Level
	Format      string
	AddSource   bool
	Environment string
}

// DBConfig stores persistence layer settings.
type DBConfig struct {
	SQLitePath string
}

// SSHConfig stores executor defaults.
type SSHConfig struct {
	PrivateKeyPath  string
	BootstrapUser   string
	ConnectTimeout  time.Duration
	CommandTimeout  time.Duration
	KnownHostsPath  string
	ProbeScriptPath string
}

// SMTPConfig stores mailer defaults.
type SMTPConfig struct {
	Host      string
	Port      string
	User      string
	Password  string
	From      string
	FromName  string
	Mode      string
	Recipient string
}

// Adapt converts the viper-loaded config.Config into the bootstrap.Config
// shape consumed by BuildInfrastructure and NewHTTPServer.
func Adapt(cfg *config.Config) *Config {
	return &Config{
		HTTP: HTTPConfig{
			Addr:            cfg.HTTP.Addr,
			ShutdownTimeout: cfg.HTTP.ShutdownTimeout,
		},
		Log: LogConfig{
			Level:       cfg.Log.SlogLevel(),
			Format:      cfg.Log.Format,
			AddSource:   cfg.Log.AddSource,
			Environment: cfg.Log.Environment,
		},
		DB: DBConfig{
			SQLitePath: cfg.DB.Path,
		},
		SSH: SSHConfig{
			PrivateKeyPath:  cfg.SSH.PrivateKeyPath,
			BootstrapUser:   cfg.SSH.BootstrapUser,
			ConnectTimeout:  cfg.SSH.ConnectTimeout,
			CommandTimeout:  cfg.SSH.CommandTimeout,
			KnownHostsPath:  cfg.SSH.KnownHostsPath,
			ProbeScriptPath: cfg.SSH.ProbeScriptPath,
		},
		SMTP: SMTPConfig{
			Host:      cfg.SMTP.Host,
			Port:      cfg.SMTP.Port,
			User:      cfg.SMTP.User,
			Password:  cfg.SMTP.Password,
			From:      cfg.SMTP.From,
			FromName:  cfg.SMTP.FromName,
			Mode:      cfg.SMTP.Mode,
			Recipient: cfg.SMTP.Recipient,
		},
	}
}
