package integration

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/oauth2"
)

// Kind selects how a provider's data endpoint is called and normalized.
type Kind string

const (
	KindHubSpot  Kind = "hubspot"
	KindAirtable Kind = "airtable"
	KindNotion   Kind = "notion"
)

// IsValid reports whether k is a supported provider kind.
func (k Kind) IsValid() bool {
	switch k {
	case KindHubSpot, KindAirtable, KindNotion:
		return true
	}
	return false
}

// AuthStyle controls how client credentials reach the token endpoint.
type AuthStyle string

const (
	// AuthStyleParams sends client_id and client_secret in the form body.
	AuthStyleParams AuthStyle = "params"
	// AuthStyleHeader sends them as HTTP basic auth.
	AuthStyleHeader AuthStyle = "header"
)

// IsValid reports whether s is a known style. Empty selects AuthStyleParams.
func (s AuthStyle) IsValid() bool {
	switch s {
	case "", AuthStyleParams, AuthStyleHeader:
		return true
	}
	return false
}

func (s AuthStyle) oauth2() oauth2.AuthStyle {
	if s == AuthStyleHeader {
		return oauth2.AuthStyleInHeader
	}
	return oauth2.AuthStyleInParams
}

const (
	defaultPageSize = 100
	maxPageSize     = 100
)

// ProviderConfig describes one OAuth integration.
type ProviderConfig struct {
	Name         string
	Kind         Kind
	ClientID     string
	ClientSecret string
	RedirectURL  string

	AuthURL  string
	TokenURL string
	ItemsURL string

	Scopes     []string
	AuthParams map[string]string
	AuthStyle  AuthStyle

	DefaultPageSize int
	MaxPageSize     int

	// TokenExtraFields are copied from the token response into Credentials.Extra.
	TokenExtraFields []string
	// Properties requested from HubSpot.
	Properties []string
	// APIVersion is sent as the Notion-Version header.
	APIVersion string
}

// Validate checks the fields an adapter cannot work without.
func (c ProviderConfig) Validate() error {
	var errs []error
	if c.Name == "" {
		errs = append(errs, errors.New("name is required"))
	}
	if !c.Kind.IsValid() {
		errs = append(errs, fmt.Errorf("unsupported kind %q", c.Kind))
	}
	if !c.AuthStyle.IsValid() {
		errs = append(errs, fmt.Errorf("unsupported auth style %q", c.AuthStyle))
	}
	if c.ClientID == "" {
		errs = append(errs, errors.New("client id is required"))
	}
	if c.RedirectURL == "" {
		errs = append(errs, errors.New("redirect url is required"))
	}
	if c.AuthURL == "" || c.TokenURL == "" || c.ItemsURL == "" {
		errs = append(errs, errors.New("auth, token and items urls are required"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("provider %q: %w", c.Name, err)
	}
	return nil
}

// Enabled reports whether client credentials are configured.
func (c ProviderConfig) Enabled() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

// pageSize clamps a requested limit to the provider's bounds.
func (c ProviderConfig) pageSize(limit int) int {
	def, upper := c.DefaultPageSize, c.MaxPageSize
	if upper <= 0 {
		upper = maxPageSize
	}
	if def <= 0 {
		def = defaultPageSize
	}
	def = min(def, upper)
	switch {
	case limit <= 0:
		return def
	case limit > upper:
		return upper
	default:
		return limit
	}
}

func (c ProviderConfig) oauth2Config() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		RedirectURL:  c.RedirectURL,
		Scopes:       c.Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:   c.AuthURL,
			TokenURL:  c.TokenURL,
			AuthStyle: c.AuthStyle.oauth2(),
		},
	}
}

func (c ProviderConfig) displayName() string {
	switch c.Kind {
	case KindHubSpot:
		return "HubSpot"
	case KindAirtable:
		return "Airtable"
	case KindNotion:
		return "Notion"
	}
	return strings.ToUpper(c.Name[:1]) + c.Name[1:]
}
