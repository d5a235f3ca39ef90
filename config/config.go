package config

import (
	"os"
	"strings"
	"time"

	"github.com/juju/errors"
	"github.com/spf13/viper"
)

// ServerConfig - HTTP listener settings.
type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig - connection settings. DSN wins over the discrete postgres fields.
type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"`
	DSN      string `mapstructure:"dsn"`
	Host     string `mapstructure:"host"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

type AuthConfig struct {
	JWTSecret      string        `mapstructure:"jwt_secret"`
	SessionSecret  string        `mapstructure:"session_secret"`
	TokenTTL       time.Duration `mapstructure:"token_ttl"`
	CookieSecure   bool          `mapstructure:"cookie_secure"`
	LoginPerMinute int           `mapstructure:"login_per_minute"`
}

type GoogleConfig struct {
	ClientID             string `mapstructure:"client_id"`
	ClientSecret         string `mapstructure:"client_secret"`
	RedirectURL          string `mapstructure:"redirect_url"`
	DriveCredentialsFile string `mapstructure:"drive_credentials_file"`
	DriveFolderID        string `mapstructure:"drive_folder_id"`
}

// MailConfig - outbound SMTP. An empty Host disables sending.
type MailConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

type UploadConfig struct {
	Dir      string `mapstructure:"dir"`
	BaseURL  string `mapstructure:"base_url"`
	MaxBytes int64  `mapstructure:"max_bytes"`
	MaxWidth int    `mapstructure:"max_width"`
}

// StreamConfig - realtime notification stream. Heartbeat is the idle interval
// after which a ping is written to the client.
type StreamConfig struct {
	Heartbeat  time.Duration `mapstructure:"heartbeat"`
	BufferSize int           `mapstructure:"buffer_size"`
}

type PaginationConfig struct {
	DefaultPageSize int `mapstructure:"default_page_size"`
	MaxPageSize     int `mapstructure:"max_page_size"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// Config - top level application configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Google     GoogleConfig     `mapstructure:"google"`
	Mail       MailConfig       `mapstructure:"mail"`
	Uploads    UploadConfig     `mapstructure:"uploads"`
	Stream     StreamConfig     `mapstructure:"stream"`
	Pagination PaginationConfig `mapstructure:"pagination"`
	Log        LogConfig        `mapstructure:"log"`
}

// legacyEnv - environment names the service has always read, kept working
// alongside the STACKIT_ prefixed ones.
var legacyEnv = map[string]string{
	"server.port":                   "PORT",
	"database.host":                 "DB_HOST",
	"database.user":                 "DB_USER",
	"database.password":             "DB_PASSWORD",
	"database.name":                 "DB_NAME",
	"database.dsn":                  "DATABASE_URL",
	"auth.jwt_secret":               "JWT_SECRET",
	"auth.session_secret":           "SESSION_SECRET",
	"google.client_id":              "GOOGLE_CLIENT_ID",
	"google.client_secret":          "GOOGLE_CLIENT_SECRET",
	"google.redirect_url":           "GOOGLE_REDIRECT_URL",
	"google.drive_credentials_file": "DRIVE_JSON",
	"google.drive_folder_id":        "GOOGLE_DRIVE_FOLDER_ID",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.user", "")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "stackit")
	v.SetDefault("database.sslmode", "disable")

	v.SetDefault("auth.jwt_secret", "dev-secret-key-change-in-production")
	v.SetDefault("auth.session_secret", "dev-session-key-change-in-production")
	v.SetDefault("auth.token_ttl", 24*time.Hour)
	v.SetDefault("auth.cookie_secure", false)
	v.SetDefault("auth.login_per_minute", 10)

	v.SetDefault("google.client_id", "")
	v.SetDefault("google.client_secret", "")
	v.SetDefault("google.redirect_url", "")
	v.SetDefault("google.drive_credentials_file", "")
	v.SetDefault("google.drive_folder_id", "")

	v.SetDefault("mail.host", "")
	v.SetDefault("mail.port", 587)
	v.SetDefault("mail.username", "")
	v.SetDefault("mail.password", "")
	v.SetDefault("mail.from", "no-reply@stackit.local")

	v.SetDefault("uploads.dir", "uploads")
	v.SetDefault("uploads.base_url", "/uploads")
	v.SetDefault("uploads.max_bytes", 5<<20)
	v.SetDefault("uploads.max_width", 1200)

	v.SetDefault("stream.heartbeat", 30*time.Second)
	v.SetDefault("stream.buffer_size", 64)

	v.SetDefault("pagination.default_page_size", 10)
	v.SetDefault("pagination.max_page_size", 100)

	v.SetDefault("log.level", "<root>=INFO")
	v.SetDefault("log.file", "")
}

// Load reads configuration from the optional YAML file at path and from the
// environment. A missing file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("STACKIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range legacyEnv {
		if err := v.BindEnv(key, "STACKIT_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env); err != nil {
			return nil, errors.Annotatef(err, "binding %s", key)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
				return nil, errors.Annotatef(err, "reading config %s", path)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Annotate(err, "parsing config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	return &cfg, nil
}

// Validate checks the settings the service cannot start without.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return errors.NotValidf("database driver %q", c.Database.Driver)
	}
	if c.Stream.Heartbeat <= 0 {
		return errors.NotValidf("stream heartbeat %v", c.Stream.Heartbeat)
	}
	if c.Stream.BufferSize <= 0 {
		return errors.NotValidf("stream buffer size %d", c.Stream.BufferSize)
	}
	if c.Auth.JWTSecret == "" {
		return errors.NotValidf("empty jwt secret")
	}
	if c.Pagination.DefaultPageSize <= 0 || c.Pagination.MaxPageSize < c.Pagination.DefaultPageSize {
		return errors.NotValidf("pagination %d/%d", c.Pagination.DefaultPageSize, c.Pagination.MaxPageSize)
	}
	return nil
}
