package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	ListenAddr string
	BaseURL    string

	DB struct {
		Driver string
		DSN    string
	}

	Session struct {
		Secret string
		Secure bool
	}

	Log struct {
		Level  string
		Format string
	}

	PrometheusEnabled bool
	TrustedProxies    []string
	AllowedOrigins    []string
}

// Load reads configuration from APP_* environment variables, optionally
// layered over a config file named by --config. Environment values win.
func Load(args []string) (*Config, error) {
	flags := pflag.NewFlagSet("shalendar", pflag.ContinueOnError)
	configPath := flags.String("config", "", "path to a YAML/TOML/JSON config file")
	if err := flags.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("listen_addr", ":8080")
	v.SetDefault("base_url", "http://localhost:8080")
	v.SetDefault("db_driver", "postgres")
	v.SetDefault("db_port", "5432")
	v.SetDefault("db_sslmode", "disable")
	v.SetDefault("session_secure", false)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("prometheus_endpoint_enabled", false)

	if *configPath != "" {
		v.SetConfigFile(*configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", *configPath, err)
		}
	}

	cfg := &Config{}
	cfg.ListenAddr = v.GetString("listen_addr")
	cfg.BaseURL = v.GetString("base_url")
	cfg.DB.Driver = strings.ToLower(v.GetString("db_driver"))
	cfg.DB.DSN = v.GetString("db_dsn")

	switch cfg.DB.Driver {
	case "postgres":
		if cfg.DB.DSN == "" {
			cfg.DB.DSN = postgresDSN(v)
		}
	case "sqlite":
		if cfg.DB.DSN == "" {
			cfg.DB.DSN = "shalendar.db"
		}
	default:
		return nil, fmt.Errorf("APP_DB_DRIVER must be postgres or sqlite (got %q)", cfg.DB.Driver)
	}

	cfg.Session.Secret = v.GetString("session_secret")
	cfg.Session.Secure = v.GetBool("session_secure")
	cfg.Log.Level = v.GetString("log_level")
	cfg.Log.Format = v.GetString("log_format")
	cfg.PrometheusEnabled = v.GetBool("prometheus_endpoint_enabled")
	cfg.TrustedProxies = splitList(v.GetString("trusted_proxies"))
	cfg.AllowedOrigins = splitList(v.GetString("allowed_origins"))

	if cfg.DB.DSN == "" {
		return nil, errors.New("APP_DB_DSN is required (or set APP_DB_HOST, APP_DB_NAME, APP_DB_USER, and APP_DB_PASSWORD)")
	}
	if cfg.Session.Secret == "" {
		return nil, errors.New("APP_SESSION_SECRET is required")
	}
	if len(cfg.Session.Secret) < 32 {
		return nil, fmt.Errorf("APP_SESSION_SECRET must be at least 32 characters long (got %d)", len(cfg.Session.Secret))
	}

	return cfg, nil
}

// Warnings lists settings that are valid but unsafe for public deployments.
func (c *Config) Warnings() []string {
	var warnings []string
	if len(c.TrustedProxies) == 0 {
		warnings = append(warnings, "No APP_TRUSTED_PROXIES configured. Shalendar will trust all proxies - Not recommended for public environments.")
	}
	if len(c.AllowedOrigins) == 0 {
		warnings = append(warnings, "No APP_ALLOWED_ORIGINS configured. Websocket connections are only accepted from the same origin.")
	}
	return warnings
}

func postgresDSN(v *viper.Viper) string {
	host := v.GetString("db_host")
	name := v.GetString("db_name")
	user := v.GetString("db_user")
	password := v.GetString("db_password")
	if host == "" || name == "" || user == "" || password == "" {
		return ""
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		user, password, host, v.GetString("db_port"), name, v.GetString("db_sslmode"))
}

func splitList(raw string) []string {
	var result []string
	for _, item := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
