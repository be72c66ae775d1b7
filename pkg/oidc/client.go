package oidc

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/chainid-fr/fcrelay/pkg/oauth2"
)

// Config describes an OpenID provider and the credentials of the relying
// party registered with it. Endpoints are explicit so that providers with
// non-standard paths (France Connect uses /api/v1/*) can be configured
// without discovery.
type Config struct {
	Issuer                string   `yaml:"issuer" validate:"required"`
	ClientID              string   `yaml:"client_id" validate:"required"`
	ClientSecret          string   `yaml:"client_secret" validate:"required"`
	RedirectURI           string   `yaml:"redirect_uri" validate:"required"`
	AuthorizationEndpoint string   `yaml:"authorization_endpoint" validate:"required"`
	TokenEndpoint         string   `yaml:"token_endpoint" validate:"required"`
	UserinfoEndpoint      string   `yaml:"userinfo_endpoint"`
	JwksURI               string   `yaml:"jwks_uri"`
	Scopes                []string `yaml:"scopes"`
	ACRValues             string   `yaml:"acr_values"`
	Prompt                string   `yaml:"prompt"`
}

type Client interface {
	AuthCodeURL(state, nonce, verifier string) string
	Exchange(code, verifier string) (*oauth2.TokenResponse, error)
	Userinfo(accessToken string) (map[string]interface{}, error)
}

// ExchangeError reports a failed code exchange together with the HTTP
// status returned by the token endpoint.
type ExchangeError struct {
	StatusCode int
	Cause      *oauth2.Error
}

func (e *ExchangeError) Error() string {
	return fmt.Sprintf("token endpoint returned status %d: %v", e.StatusCode, e.Cause)
}

type client struct {
	cfg  Config
	http *http.Client
}

func NewClient(cfg Config) Client {
	return &client{
		cfg: cfg,
		// outbound calls must not hang a callback forever
		http: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *client) AuthCodeURL(state, nonce, verifier string) string {
	codeChallenge := oauth2.S256ChallengeFromVerifier(verifier)
	query := url.Values{}
	query.Add("response_type", "code")
	query.Add("client_id", c.cfg.ClientID)
	query.Add("redirect_uri", c.cfg.RedirectURI)
	query.Add("scope", strings.Join(c.cfg.Scopes, " "))
	query.Add("state", state)
	query.Add("nonce", nonce)
	if c.cfg.ACRValues != "" {
		query.Add("acr_values", c.cfg.ACRValues)
	}
	if c.cfg.Prompt != "" {
		query.Add("prompt", c.cfg.Prompt)
	}
	query.Add("code_challenge", codeChallenge)
	query.Add("code_challenge_method", string(oauth2.CodeChallengeMethodS256))

	return fmt.Sprintf("%s?%s", c.cfg.AuthorizationEndpoint, query.Encode())
}

func (c *client) Exchange(code string, verifier string) (*oauth2.TokenResponse, error) {
	params := url.Values{}
	params.Set("grant_type", "authorization_code")
	params.Set("code", code)
	params.Set("client_id", c.cfg.ClientID)
	params.Set("client_secret", c.cfg.ClientSecret)
	params.Set("redirect_uri", c.cfg.RedirectURI)
	params.Set("code_verifier", verifier)

	resp, err := c.http.PostForm(c.cfg.TokenEndpoint, params)
	if err != nil {
		return nil, fmt.Errorf("unable to exchange code for token: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("unable to read token response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		oidcErr := new(oauth2.Error)
		if err := json.Unmarshal(body, oidcErr); err != nil || oidcErr.Code == "" {
			// token endpoints are not obliged to answer with JSON errors
			oidcErr = &oauth2.Error{Code: "invalid_response", Description: string(body)}
		}
		slog.Error("token exchange failed", "status", resp.StatusCode, "error", oidcErr)
		return nil, &ExchangeError{StatusCode: resp.StatusCode, Cause: oidcErr}
	}

	var tokenResponse oauth2.TokenResponse
	if err := json.Unmarshal(body, &tokenResponse); err != nil {
		return nil, fmt.Errorf("unable to decode token response: %w", err)
	}

	return &tokenResponse, nil
}

func (c *client) Userinfo(accessToken string) (map[string]interface{}, error) {
	if c.cfg.UserinfoEndpoint == "" {
		return nil, fmt.Errorf("userinfo endpoint not configured")
	}

	req, err := http.NewRequest(http.MethodGet, c.cfg.UserinfoEndpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("unable to fetch userinfo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("userinfo endpoint returned status %d: %s", resp.StatusCode, string(body))
	}

	claims := map[string]interface{}{}
	if err := json.NewDecoder(resp.Body).Decode(&claims); err != nil {
		return nil, fmt.Errorf("unable to decode userinfo response: %w", err)
	}

	return claims, nil
}
