// Package config assembles the relay configuration from defaults, an
// optional TOML file and environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/go-training/integration-relay/pkg/integration"
	"github.com/go-training/integration-relay/pkg/store"

	"github.com/pelletier/go-toml/v2"
)

// Config is the resolved process configuration.
type Config struct {
	Addr      string
	PublicURL string
	LogLevel  string

	Store       store.Config
	CORSOrigins []string

	StateTTL       time.Duration
	CredentialsTTL time.Duration
	RequestTimeout time.Duration

	Providers map[string]integration.ProviderConfig
}

// fileConfig mirrors the TOML layout. Pointers distinguish unset keys.
type fileConfig struct {
	Addr                  *string                       `toml:"addr"`
	PublicURL             *string                       `toml:"public_url"`
	LogLevel              *string                       `toml:"log_level"`
	CORSOrigins           []string                      `toml:"cors_origins"`
	StateTTLSeconds       *int                          `toml:"state_ttl_seconds"`
	CredentialsTTLSeconds *int                          `toml:"credentials_ttl_seconds"`
	RequestTimeoutSeconds *int                          `toml:"request_timeout_seconds"`
	Store                 fileStore                     `toml:"store"`
	Providers             map[string]fileProviderConfig `toml:"providers"`
}

type fileStore struct {
	Type          *string `toml:"type"`
	RedisAddr     *string `toml:"redis_addr"`
	RedisPassword *string `toml:"redis_password"`
	RedisDB       *int    `toml:"redis_db"`
	DisableCache  *bool   `toml:"disable_cache"`
}

type fileProviderConfig struct {
	ClientID         *string           `toml:"client_id"`
	ClientSecret     *string           `toml:"client_secret"`
	RedirectURL      *string           `toml:"redirect_url"`
	AuthURL          *string           `toml:"auth_url"`
	TokenURL         *string           `toml:"token_url"`
	ItemsURL         *string           `toml:"items_url"`
	Scopes           []string          `toml:"scopes"`
	AuthParams       map[string]string `toml:"auth_params"`
	AuthStyle        *string           `toml:"auth_style"`
	DefaultPageSize  *int              `toml:"default_page_size"`
	MaxPageSize      *int              `toml:"max_page_size"`
	TokenExtraFields []string          `toml:"token_extra_fields"`
	Properties       []string          `toml:"properties"`
	APIVersion       *string           `toml:"api_version"`
}

// Default returns the built-in configuration with no client credentials.
func Default() *Config {
	return &Config{
		Addr:           ":8000",
		PublicURL:      "http://localhost:8000",
		LogLevel:       "",
		Store:          store.MemoryConfig(),
		CORSOrigins:    []string{"*"},
		StateTTL:       integration.DefaultStateTTL,
		CredentialsTTL: integration.DefaultCredentialsTTL,
		RequestTimeout: integration.DefaultRequestTimeout,
		Providers:      DefaultProviders(),
	}
}

// Load builds the configuration. path may be empty to skip the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		var fc fileConfig
		if err := toml.Unmarshal(data, &fc); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
		if err := cfg.applyFile(fc); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()
	cfg.resolveRedirects()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyFile(fc fileConfig) error {
	setString(&c.Addr, fc.Addr)
	setString(&c.PublicURL, fc.PublicURL)
	setString(&c.LogLevel, fc.LogLevel)
	if len(fc.CORSOrigins) > 0 {
		c.CORSOrigins = fc.CORSOrigins
	}
	setSeconds(&c.StateTTL, fc.StateTTLSeconds)
	setSeconds(&c.CredentialsTTL, fc.CredentialsTTLSeconds)
	setSeconds(&c.RequestTimeout, fc.RequestTimeoutSeconds)

	if fc.Store.Type != nil {
		c.Store.Type = store.ParseStoreType(*fc.Store.Type)
	}
	setString(&c.Store.Redis.Addr, fc.Store.RedisAddr)
	setString(&c.Store.Redis.Password, fc.Store.RedisPassword)
	if fc.Store.RedisDB != nil {
		c.Store.Redis.DB = *fc.Store.RedisDB
	}
	if fc.Store.DisableCache != nil {
		c.Store.Redis.DisableCache = *fc.Store.DisableCache
	}

	for name, fp := range fc.Providers {
		p, ok := c.Providers[name]
		if !ok {
			return fmt.Errorf("config file: unknown provider %q", name)
		}
		setString(&p.ClientID, fp.ClientID)
		setString(&p.ClientSecret, fp.ClientSecret)
		setString(&p.RedirectURL, fp.RedirectURL)
		setString(&p.AuthURL, fp.AuthURL)
		setString(&p.TokenURL, fp.TokenURL)
		setString(&p.ItemsURL, fp.ItemsURL)
		setString(&p.APIVersion, fp.APIVersion)
		if fp.AuthStyle != nil {
			p.AuthStyle = integration.AuthStyle(*fp.AuthStyle)
			if !p.AuthStyle.IsValid() {
				return fmt.Errorf("config file: provider %q: unsupported auth_style %q", name, *fp.AuthStyle)
			}
		}
		if fp.Scopes != nil {
			p.Scopes = fp.Scopes
		}
		if fp.AuthParams != nil {
			p.AuthParams = fp.AuthParams
		}
		if fp.TokenExtraFields != nil {
			p.TokenExtraFields = fp.TokenExtraFields
		}
		if fp.Properties != nil {
			p.Properties = fp.Properties
		}
		if fp.DefaultPageSize != nil {
			p.DefaultPageSize = *fp.DefaultPageSize
		}
		if fp.MaxPageSize != nil {
			p.MaxPageSize = *fp.MaxPageSize
		}
		c.Providers[name] = p
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Addr = GetEnv("ADDR", c.Addr)
	c.PublicURL = GetEnv("PUBLIC_URL", c.PublicURL)
	c.LogLevel = GetEnv("LOG_LEVEL", c.LogLevel)
	if v := GetEnv("CORS_ORIGINS", ""); v != "" {
		c.CORSOrigins = splitList(v)
	}

	if v := GetEnv("STORE_TYPE", ""); v != "" {
		c.Store.Type = store.ParseStoreType(v)
	}
	if host := GetEnv("REDIS_HOST", ""); host != "" {
		c.Store.Redis.Addr = net.JoinHostPort(host, "6379")
	}
	c.Store.Redis.Addr = GetEnv("REDIS_ADDR", c.Store.Redis.Addr)
	c.Store.Redis.Password = GetEnv("REDIS_PASSWORD", c.Store.Redis.Password)

	for name, p := range c.Providers {
		prefix := strings.ToUpper(name)
		p.ClientID = GetEnv(prefix+"_CLIENT_ID", p.ClientID)
		p.ClientSecret = GetEnv(prefix+"_CLIENT_SECRET", p.ClientSecret)
		p.RedirectURL = GetEnv(prefix+"_REDIRECT_URL", p.RedirectURL)
		c.Providers[name] = p
	}
}

// resolveRedirects fills empty redirect URLs from PublicURL.
func (c *Config) resolveRedirects() {
	base := strings.TrimRight(c.PublicURL, "/")
	for name, p := range c.Providers {
		if p.RedirectURL == "" {
			p.RedirectURL = base + "/integrations/" + name + "/oauth2callback"
			c.Providers[name] = p
		}
	}
}

// Validate reports configuration that would keep the relay from starting.
func (c *Config) Validate() error {
	var errs []error
	if c.Addr == "" {
		errs = append(errs, errors.New("addr is required"))
	}
	if !c.Store.Type.IsValid() {
		errs = append(errs, fmt.Errorf("invalid store type %q", c.Store.Type))
	}
	if c.Store.Type == store.StoreTypeRedis && c.Store.Redis.Addr == "" {
		errs = append(errs, errors.New("redis store requires REDIS_ADDR or REDIS_HOST"))
	}
	if c.StateTTL <= 0 || c.CredentialsTTL <= 0 || c.RequestTimeout <= 0 {
		errs = append(errs, errors.New("ttls and request timeout must be positive"))
	}
	for _, name := range c.providerNames() {
		p := c.Providers[name]
		if !p.Enabled() {
			continue
		}
		if err := p.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// EnabledProviders returns providers that have client credentials, sorted by
// name, and logs the ones left out.
func (c *Config) EnabledProviders() []integration.ProviderConfig {
	var enabled []integration.ProviderConfig
	for _, name := range c.providerNames() {
		p := c.Providers[name]
		if !p.Enabled() {
			slog.Warn("provider disabled: client credentials not configured", "provider", name)
			continue
		}
		enabled = append(enabled, p)
	}
	return enabled
}

// AllowAllOrigins reports whether CORS should accept any origin.
func (c *Config) AllowAllOrigins() bool {
	for _, o := range c.CORSOrigins {
		if o == "*" {
			return true
		}
	}
	return false
}

func (c *Config) providerNames() []string {
	names := make([]string, 0, len(c.Providers))
	for name := range c.Providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetEnv returns the environment variable or defaultValue when it is unset or empty.
func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setSeconds(dst *time.Duration, v *int) {
	if v != nil {
		*dst = time.Duration(*v) * time.Second
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
