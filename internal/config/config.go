// Package config loads host configuration from the environment, an optional
// .env file and command line flags, in that order of precedence (lowest first).
package config

import (
	"errors"
	"flag"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/naotama2002/social-login-go/auth"
	"github.com/naotama2002/social-login-go/auth/battlenet"
)

// EnvPrefix prefixes every environment variable read by Load
const EnvPrefix = "SOCIAL_LOGIN_"

// Config holds the host configuration
type Config struct {
	Provider    string      `env:"PROVIDER" envDefault:"battlenet"`
	AppID       string      `env:"APP_ID"`
	RedirectURI string      `env:"REDIRECT_URI" envDefault:"http://localhost:3334/oauth/callback"`
	Scopes      auth.Scopes `env:"SCOPES"`

	Region     string `env:"BATTLENET_REGION" envDefault:"us"`
	APIBaseURL string `env:"API_BASE_URL"`

	HTTPTimeout    time.Duration `env:"HTTP_TIMEOUT" envDefault:"30s"`
	HTTPMaxRetries int           `env:"HTTP_MAX_RETRIES" envDefault:"0"`
	LandingTimeout time.Duration `env:"LANDING_TIMEOUT" envDefault:"5m"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"console"`
	NoBrowser bool   `env:"NO_BROWSER" envDefault:"false"`

	// LandingURL runs the callback phase directly. Flag only.
	LandingURL string
}

// Load reads .env (when present), the environment and then args
func Load(args []string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			return nil, fmt.Errorf("load .env file: %w", err)
		}
	}

	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.parseFlags(args); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) parseFlags(args []string) error {
	fs := flag.NewFlagSet("social-login", flag.ContinueOnError)
	fs.StringVar(&c.Provider, "provider", c.Provider, "Provider name")
	fs.StringVar(&c.AppID, "app-id", c.AppID, "OAuth client id")
	fs.StringVar(&c.RedirectURI, "redirect-uri", c.RedirectURI, "Redirect URI registered with the provider")
	fs.Func("scopes", "Comma separated scopes", func(s string) error {
		c.Scopes = auth.ParseScopes(s)
		return nil
	})
	fs.StringVar(&c.Region, "region", c.Region, "Battle.net region: us, eu, kr, tw, cn")
	fs.StringVar(&c.LandingURL, "landing-url", c.LandingURL, "Redirect landing URL to complete a login with")
	fs.BoolVar(&c.NoBrowser, "no-browser", c.NoBrowser, "Print the authorization URL instead of opening a browser")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "Log level: debug, info, warn, error")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}
	return nil
}

// Validate checks the settings every host needs
func (c *Config) Validate() error {
	if c.AppID == "" {
		return fmt.Errorf("%sAPP_ID (or -app-id) is required", EnvPrefix)
	}
	if _, err := url.Parse(c.RedirectURI); err != nil || c.RedirectURI == "" {
		return fmt.Errorf("invalid redirect URI %q", c.RedirectURI)
	}
	if c.HTTPMaxRetries < 0 {
		return fmt.Errorf("%sHTTP_MAX_RETRIES must not be negative", EnvPrefix)
	}
	if _, err := battlenet.RegionBaseURL(c.Region); err != nil {
		return err
	}
	return nil
}

// CallbackPort returns the port of a localhost redirect URI, or 0 when the
// redirect does not point at this machine.
func (c *Config) CallbackPort() int {
	u, err := url.Parse(c.RedirectURI)
	if err != nil {
		return 0
	}
	switch u.Hostname() {
	case "localhost", "127.0.0.1":
	default:
		return 0
	}
	var port int
	if _, err := fmt.Sscanf(u.Port(), "%d", &port); err != nil {
		return 0
	}
	return port
}

// CallbackPath returns the path of the redirect URI
func (c *Config) CallbackPath() string {
	u, err := url.Parse(c.RedirectURI)
	if err != nil || u.Path == "" {
		return "/"
	}
	return u.Path
}

// AuthConfig returns the adapter configuration
func (c *Config) AuthConfig() auth.Config {
	return auth.Config{
		AppID:       c.AppID,
		RedirectURI: c.RedirectURI,
		Scopes:      c.Scopes,
	}
}
