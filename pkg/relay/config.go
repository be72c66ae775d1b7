package relay

import (
	"fmt"
	"os"

	"github.com/chainid-fr/fcrelay/pkg/oidc"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// France Connect integration platform defaults, overridable per environment.
const (
	defaultIssuer        = "https://fcp.integ01.dev-franceconnect.fr"
	defaultAuthorizePath = "/api/v1/authorize"
	defaultTokenPath     = "/api/v1/token"
	defaultUserinfoPath  = "/api/v1/userinfo"

	defaultListenAddr    = ":3000"
	defaultDashboardPath = "/dashboard"
	defaultErrorPath     = "/auth/error"
)

// IDTokenVerificationJWKS selects the signature-verifying claims decoder.
const IDTokenVerificationJWKS = "jwks"

func defaultScopes() []string {
	return []string{"openid", "email", "given_name", "family_name", "birthdate"}
}

type Config struct {
	Provider oidc.Config `yaml:"provider"`

	SessionSecret string `yaml:"session_secret"`

	// ProductionCookies toggles the Secure flag on every cookie issued.
	ProductionCookies bool `yaml:"production_cookies"`

	// IDTokenVerification selects how ID token claims are decoded:
	// "jwks" verifies the token signature against the provider's published
	// keys; anything else decodes without verification.
	IDTokenVerification string `yaml:"id_token_verification"`

	ListenAddr    string `yaml:"listen_addr"`
	DashboardPath string `yaml:"dashboard_path"`
	ErrorPath     string `yaml:"error_path"`
}

// ConfigResolver yields the active configuration. It is invoked at the
// point of use so that a missing value surfaces as a request-level
// configuration error rather than a startup crash.
type ConfigResolver func() Config

// EnvConfig resolves the configuration from the process environment.
func EnvConfig() Config {
	issuer := envOr("FRANCE_CONNECT_ISSUER", defaultIssuer)

	cfg := Config{
		Provider: oidc.Config{
			Issuer:                issuer,
			ClientID:              os.Getenv("FRANCE_CONNECT_CLIENT_ID"),
			ClientSecret:          os.Getenv("FRANCE_CONNECT_CLIENT_SECRET"),
			RedirectURI:           os.Getenv("FRANCE_CONNECT_REDIRECT_URI"),
			AuthorizationEndpoint: issuer + envOr("FRANCE_CONNECT_AUTHORIZE_PATH", defaultAuthorizePath),
			TokenEndpoint:         issuer + envOr("FRANCE_CONNECT_TOKEN_PATH", defaultTokenPath),
			UserinfoEndpoint:      issuer + envOr("FRANCE_CONNECT_USERINFO_PATH", defaultUserinfoPath),
			JwksURI:               os.Getenv("FRANCE_CONNECT_JWKS_URI"),
			Scopes:                defaultScopes(),
			ACRValues:             "eidas1",
			Prompt:                "login",
		},
		SessionSecret:       os.Getenv("SESSION_SECRET"),
		ProductionCookies:   os.Getenv("APP_ENV") == "production",
		IDTokenVerification: os.Getenv("ID_TOKEN_VERIFICATION"),
		ListenAddr:          envOr("LISTEN_ADDR", defaultListenAddr),
		DashboardPath:       defaultDashboardPath,
		ErrorPath:           defaultErrorPath,
	}

	return cfg
}

// LoadConfigFile reads a fully specified yaml configuration. Unlike the
// environment resolver, a file is validated eagerly: deploying an explicit
// config with holes in it is always a mistake.
func LoadConfigFile(path string) (ConfigResolver, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unable to parse config file: %w", err)
	}

	if len(cfg.Provider.Scopes) == 0 {
		cfg.Provider.Scopes = defaultScopes()
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = defaultListenAddr
	}
	if cfg.DashboardPath == "" {
		cfg.DashboardPath = defaultDashboardPath
	}
	if cfg.ErrorPath == "" {
		cfg.ErrorPath = defaultErrorPath
	}

	if err := validate.Struct(cfg.Provider); err != nil {
		return nil, fmt.Errorf("invalid provider config: %w", err)
	}
	if cfg.SessionSecret == "" {
		return nil, fmt.Errorf("invalid config: session_secret is required")
	}

	return func() Config { return cfg }, nil
}

var validate = validator.New()

type loginRequirements struct {
	ClientID    string `validate:"required"`
	RedirectURI string `validate:"required"`
}

type exchangeRequirements struct {
	ClientID      string `validate:"required"`
	ClientSecret  string `validate:"required"`
	RedirectURI   string `validate:"required"`
	TokenEndpoint string `validate:"required"`
	SessionSecret string `validate:"required"`
}

// ValidateForLogin checks the values the authorization redirect needs.
func (c Config) ValidateForLogin() error {
	return validate.Struct(loginRequirements{
		ClientID:    c.Provider.ClientID,
		RedirectURI: c.Provider.RedirectURI,
	})
}

// ValidateForExchange checks the values the code exchange and session
// issuance need.
func (c Config) ValidateForExchange() error {
	return validate.Struct(exchangeRequirements{
		ClientID:      c.Provider.ClientID,
		ClientSecret:  c.Provider.ClientSecret,
		RedirectURI:   c.Provider.RedirectURI,
		TokenEndpoint: c.Provider.TokenEndpoint,
		SessionSecret: c.SessionSecret,
	})
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
