// Package config loads and validates Vaulth's JSON configuration file,
// the single source of truth for everything the broker needs at
// startup: the signing key paths, TLS material, the provider allow-list,
// and the first-party client registry. Nothing here is re-read once the
// server starts serving requests.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"

	envpkg "github.com/caarlos0/env/v11"

	"github.com/vaulth-auth/vaulth/internal/hash"
	"github.com/vaulth-auth/vaulth/internal/provider"
	"github.com/vaulth-auth/vaulth/internal/tlsprovision"
)

// ErrNoConfigPath is never returned: DefaultPath always supplies a
// fallback. Kept for symmetry with the other configuration-fatal errors
// callers match against.
var ErrNoConfigPath = errors.New("config: no path provided")

// DefaultPath is used when no CLI argument names a config file.
const DefaultPath = "vaulth.json"

// TokenConfig describes the JWT signing material and token lifetime.
type TokenConfig struct {
	PublicKey  string `json:"publicKey" validate:"required"`
	PrivateKey string `json:"privateKey" validate:"required"`
	Duration   int64  `json:"duration" validate:"required,gt=0"`
}

// TLSConfig is either a static cert/key pair or an ACME autoCert block,
// never both.
type TLSConfig struct {
	Cert     string               `json:"cert,omitempty"`
	Key      string               `json:"key,omitempty"`
	AutoCert *tlsprovision.Config `json:"autoCert,omitempty"`
}

// ClientConfig is a first-party OAuth2 client: its secret and the exact
// redirect URL prefixes it is allowed to use.
type ClientConfig struct {
	ClientSecret string   `json:"clientSecret" validate:"required"`
	RedirectURLs []string `json:"redirectUrls" validate:"required,min=1,dive,required,url"`
}

// Config is the top-level shape of vaulth.json.
type Config struct {
	Port        uint16                  `json:"port" validate:"required"`
	DatabaseURL string                  `json:"databaseUrl" validate:"required"`
	UserAgent   string                  `json:"userAgent,omitempty"`
	LogLevel    string                  `json:"logLevel,omitempty"`
	RootURI     string                  `json:"rootUri" validate:"required"`
	Token       TokenConfig             `json:"token" validate:"required"`
	TLS         *TLSConfig              `json:"tls,omitempty"`
	Hash        hash.Params             `json:"hash,omitempty"`
	Clients     map[string]ClientConfig `json:"clients" validate:"required,dive"`
	Google      *provider.Config        `json:"google,omitempty"`
	Microsoft   *provider.Config        `json:"microsoft,omitempty"`
	Facebook    *provider.Config        `json:"facebook,omitempty"`
	Twitter     *provider.Config        `json:"twitter,omitempty"`
	GitHub      *provider.Config        `json:"github,omitempty"`
	Discord     *provider.Config        `json:"discord,omitempty"`
}

// Registry builds a provider.Registry from whichever provider blocks are
// present in the config, wiring each adapter's redirect URI from RootURI.
// It also applies UserAgent to the package-wide provider HTTP client, so
// every adapter's outbound call carries it.
func (c *Config) Registry() *provider.Registry {
	provider.Configure(c.UserAgent)

	var adapters []provider.Adapter
	if c.Google != nil {
		adapters = append(adapters, provider.NewGoogle(*c.Google, c.RootURI+"/google-r"))
	}
	if c.Microsoft != nil {
		adapters = append(adapters, provider.NewMicrosoft(*c.Microsoft, c.RootURI+"/microsoft-r"))
	}
	if c.Facebook != nil {
		adapters = append(adapters, provider.NewFacebook(*c.Facebook, c.RootURI+"/facebook-r"))
	}
	if c.Twitter != nil {
		adapters = append(adapters, provider.NewTwitter(*c.Twitter, c.RootURI+"/twitter-r"))
	}
	if c.GitHub != nil {
		adapters = append(adapters, provider.NewGitHub(*c.GitHub, c.RootURI+"/github-r"))
	}
	if c.Discord != nil {
		adapters = append(adapters, provider.NewDiscord(*c.Discord, c.RootURI+"/discord-r"))
	}
	return provider.NewRegistry(adapters...)
}

// EnvOverrides is the one environment-variable surface the broker reads,
// applied on top of the file-loaded Config.
type EnvOverrides struct {
	LogLevel string `env:"VAULTH_LOG"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Path resolves the config file path: the first CLI argument if present,
// DefaultPath otherwise.
func Path(args []string) string {
	if len(args) > 0 && args[0] != "" {
		return args[0]
	}
	return DefaultPath
}

// Load reads, parses, and validates the config file at path, then
// applies VAULTH_LOG on top of whatever logLevel the file set. Any
// failure here is configuration-fatal: the caller should abort startup
// before opening a socket.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	if cfg.TLS != nil {
		hasStatic := cfg.TLS.Cert != "" || cfg.TLS.Key != ""
		hasAuto := cfg.TLS.AutoCert != nil
		if hasStatic && hasAuto {
			return nil, fmt.Errorf("config: tls: cert/key and autoCert are mutually exclusive")
		}
		if hasStatic && (cfg.TLS.Cert == "" || cfg.TLS.Key == "") {
			return nil, fmt.Errorf("config: tls: both cert and key are required together")
		}
	}

	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config: invalid %s: %w", path, err)
	}

	var overrides EnvOverrides
	if err := envpkg.Parse(&overrides); err != nil {
		return nil, fmt.Errorf("config: parse environment overrides: %w", err)
	}
	if overrides.LogLevel != "" {
		cfg.LogLevel = overrides.LogLevel
	}

	return &cfg, nil
}
