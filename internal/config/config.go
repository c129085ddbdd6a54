package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/qumail/qumail-client/internal/auth/constants"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Version information - set by GoReleaser during build
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// GetVersionInfo returns a formatted version string
func GetVersionInfo() string {
	return fmt.Sprintf("qumail version %s, commit %s, built at %s", version, commit, date)
}

// EnvPrefix is prepended to every environment override, e.g. QUMAIL_BACKEND_BASE_URL.
const EnvPrefix = "QUMAIL"

type Config struct {
	Backend BackendConfig `mapstructure:"backend"`
	OAuth   OAuthConfig   `mapstructure:"oauth"`
	Session SessionConfig `mapstructure:"session"`
	Logging LoggingConfig `mapstructure:"logging"`
	Server  ServerConfig  `mapstructure:"server"`
}

type BackendConfig struct {
	BaseURL   string            `mapstructure:"base_url"`
	Timeout   time.Duration     `mapstructure:"timeout"`
	UserAgent string            `mapstructure:"user_agent"`
	Headers   map[string]string `mapstructure:"headers"`
}

type OAuthConfig struct {
	Provider    string `mapstructure:"provider"` // google, github
	RedirectURI string `mapstructure:"redirect_uri"`
	// Timeout bounds a login attempt; zero waits until the surface is closed.
	Timeout     time.Duration `mapstructure:"timeout"`
	OpenBrowser bool          `mapstructure:"open_browser"`
}

type SessionConfig struct {
	Path          string `mapstructure:"path"`
	EncryptionKey string `mapstructure:"encryption_key"`
	// AllowPlaintext stores the token unencrypted when no key is configured.
	// Off by default: a missing key is an error.
	AllowPlaintext bool `mapstructure:"allow_plaintext"`
}

type ServerMode string

const (
	ServerModeSTDIO ServerMode = "stdio"
	ServerModeHTTP  ServerMode = "http"
)

type ServerConfig struct {
	Port    int        `mapstructure:"port"`
	Host    string     `mapstructure:"host"`
	Mode    ServerMode `mapstructure:"mode"`
	Name    string     `mapstructure:"name"`
	Version string     `mapstructure:"version"`
}

type LoggingConfig struct {
	Level             string `mapstructure:"level"`
	Format            string `mapstructure:"format"`
	Color             bool   `mapstructure:"color"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
	OutputPath        string `mapstructure:"output_path"`
	AppendToFile      bool   `mapstructure:"append_to_file"`
	DisableConsole    bool   `mapstructure:"disable_console"`
}

// DefaultSessionPath returns <UserConfigDir>/qumail/session.json, falling back
// to the working directory when no config dir can be resolved.
func DefaultSessionPath() string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		return "qumail-session.json"
	}
	return filepath.Join(dir, "qumail", "session.json")
}

// setDefaults registers every key, including empty ones, so AutomaticEnv
// overrides are visible to Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("backend.base_url", "")
	v.SetDefault("backend.timeout", 30*time.Second)
	v.SetDefault("backend.user_agent", "qumail-client/"+version)
	v.SetDefault("oauth.provider", "google")
	v.SetDefault("oauth.redirect_uri", "http://127.0.0.1:53682/oauth")
	v.SetDefault("oauth.timeout", time.Duration(0))
	v.SetDefault("oauth.open_browser", true)
	v.SetDefault("session.path", DefaultSessionPath())
	v.SetDefault("session.encryption_key", "")
	v.SetDefault("session.allow_plaintext", false)
	v.SetDefault("logging.output_path", "")
	v.SetDefault("logging.level", "warn")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.disable_stacktrace", true)
	v.SetDefault("server.mode", string(ServerModeSTDIO))
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 8931)
	v.SetDefault("server.name", "QuMail")
	v.SetDefault("server.version", version)
}

// InitFlags registers the flags that override config keys. Flag names use the
// config key with dots, e.g. --backend.base_url.
func InitFlags(flags *pflag.FlagSet) {
	flags.String("config", "", "Path to a config file")
	flags.String("backend.base_url", "", "QuMail backend base URL")
	flags.String("oauth.provider", "", "Identity provider used for delegated login")
	flags.String("oauth.redirect_uri", "", "Redirect URI the login flow ends on")
	flags.String("session.path", "", "Where the session credential is stored")
	flags.String("logging.level", "", "Log level (debug|info|warn|error)")
}

// Load reads configuration from defaults, an optional config file, the
// environment and the given flags, in increasing priority.
func Load(flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if flags != nil {
		// Only bind flags the user actually set so empty flag defaults do not
		// shadow the config file.
		var bindErr error
		flags.Visit(func(f *pflag.Flag) {
			if f.Name == "config" {
				return
			}
			if err := v.BindPFlag(f.Name, f); err != nil && bindErr == nil {
				bindErr = err
			}
		})
		if bindErr != nil {
			return nil, bindErr
		}
	}

	var explicit string
	if flags != nil {
		if f := flags.Lookup("config"); f != nil {
			explicit = f.Value.String()
		}
	}
	if explicit == "" {
		explicit = os.Getenv(EnvPrefix + "_CONFIG")
	}

	if explicit != "" {
		v.SetConfigFile(explicit)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", explicit, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "qumail"))
		}
		v.AddConfigPath("/etc/qumail")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, err
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the fields every command depends on.
func (c *Config) Validate() error {
	if c.Backend.BaseURL == "" {
		return fmt.Errorf("backend.base_url is required, please adjust the config or pass --backend.base_url or %s_BACKEND_BASE_URL environment variable", EnvPrefix)
	}
	u, err := url.Parse(c.Backend.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("backend.base_url must be an absolute URL, got %q", c.Backend.BaseURL)
	}
	c.Backend.BaseURL = strings.TrimRight(c.Backend.BaseURL, "/")

	if c.OAuth.Provider == "" {
		return fmt.Errorf("oauth.provider is required")
	}
	if !slices.Contains(constants.SupportedProviders, c.OAuth.Provider) {
		return fmt.Errorf("unsupported oauth.provider %q, supported: %s", c.OAuth.Provider, strings.Join(constants.SupportedProviders, ", "))
	}
	if c.OAuth.Timeout < 0 {
		return fmt.Errorf("oauth.timeout must not be negative")
	}

	switch c.Server.Mode {
	case "", ServerModeSTDIO, ServerModeHTTP:
	default:
		return fmt.Errorf("unsupported server mode: %s", c.Server.Mode)
	}
	return nil
}
