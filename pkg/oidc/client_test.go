package oidc_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/chainid-fr/fcrelay/pkg/oauth2"
	"github.com/chainid-fr/fcrelay/pkg/oidc"
)

func testConfig(baseURL string) oidc.Config {
	return oidc.Config{
		Issuer:                baseURL,
		ClientID:              "test-client",
		ClientSecret:          "test-secret",
		RedirectURI:           "https://rp.example/api/auth/callback",
		AuthorizationEndpoint: baseURL + "/authorize",
		TokenEndpoint:         baseURL + "/token",
		UserinfoEndpoint:      baseURL + "/userinfo",
		Scopes:                []string{"openid", "email"},
		ACRValues:             "eidas1",
		Prompt:                "login",
	}
}

func TestAuthCodeURL(t *testing.T) {
	client := oidc.NewClient(testConfig("https://op.example"))

	verifier := oauth2.GenerateCodeVerifier()
	authURL := client.AuthCodeURL("state123", "nonce456", verifier)

	parsed, err := url.Parse(authURL)
	if err != nil {
		t.Fatal("expected nil, got ", err)
	}
	if parsed.Path != "/authorize" {
		t.Errorf("unexpected path: %s", parsed.Path)
	}

	query := parsed.Query()
	expect := map[string]string{
		"response_type":         "code",
		"client_id":             "test-client",
		"redirect_uri":          "https://rp.example/api/auth/callback",
		"scope":                 "openid email",
		"state":                 "state123",
		"nonce":                 "nonce456",
		"acr_values":            "eidas1",
		"prompt":                "login",
		"code_challenge":        oauth2.S256ChallengeFromVerifier(verifier),
		"code_challenge_method": "S256",
	}
	for key, want := range expect {
		if got := query.Get(key); got != want {
			t.Errorf("param %s: expected %q, got %q", key, want, got)
		}
	}
}

func TestExchange(t *testing.T) {
	var gotForm url.Values
	op := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/token" {
			http.NotFound(w, r)
			return
		}
		if err := r.ParseForm(); err != nil {
			t.Fatal("expected nil, got ", err)
		}
		gotForm = r.PostForm
		json.NewEncoder(w).Encode(oauth2.TokenResponse{
			AccessToken: "at",
			TokenType:   "Bearer",
			IDToken:     "header.payload.signature",
		})
	}))
	defer op.Close()

	client := oidc.NewClient(testConfig(op.URL))
	tokens, err := client.Exchange("code123", "verifier123")
	if err != nil {
		t.Fatal("expected nil, got ", err)
	}
	if tokens.IDToken != "header.payload.signature" {
		t.Errorf("unexpected id token: %s", tokens.IDToken)
	}

	expect := map[string]string{
		"grant_type":    "authorization_code",
		"code":          "code123",
		"client_id":     "test-client",
		"client_secret": "test-secret",
		"redirect_uri":  "https://rp.example/api/auth/callback",
		"code_verifier": "verifier123",
	}
	for key, want := range expect {
		if got := gotForm.Get(key); got != want {
			t.Errorf("form field %s: expected %q, got %q", key, want, got)
		}
	}
}

func TestExchangeUpstreamError(t *testing.T) {
	op := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(oauth2.Error{Code: "invalid_grant", Description: "code expired"})
	}))
	defer op.Close()

	client := oidc.NewClient(testConfig(op.URL))
	_, err := client.Exchange("code123", "verifier123")
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	var exchangeErr *oidc.ExchangeError
	if !errors.As(err, &exchangeErr) {
		t.Fatalf("expected ExchangeError, got %T", err)
	}
	if exchangeErr.StatusCode != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", exchangeErr.StatusCode)
	}
	if exchangeErr.Cause.Code != "invalid_grant" {
		t.Errorf("unexpected error code: %s", exchangeErr.Cause.Code)
	}
}

func TestExchangeNonJSONError(t *testing.T) {
	op := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream unavailable"))
	}))
	defer op.Close()

	client := oidc.NewClient(testConfig(op.URL))
	_, err := client.Exchange("code123", "verifier123")

	var exchangeErr *oidc.ExchangeError
	if !errors.As(err, &exchangeErr) {
		t.Fatalf("expected ExchangeError, got %T", err)
	}
	if exchangeErr.StatusCode != http.StatusBadGateway {
		t.Errorf("expected status 502, got %d", exchangeErr.StatusCode)
	}
	if !strings.Contains(exchangeErr.Cause.Description, "upstream unavailable") {
		t.Errorf("expected raw body in description, got %q", exchangeErr.Cause.Description)
	}
}

func TestUserinfo(t *testing.T) {
	op := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer at123" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"sub": "abc", "email": "a@b.fr"})
	}))
	defer op.Close()

	client := oidc.NewClient(testConfig(op.URL))

	claims, err := client.Userinfo("at123")
	if err != nil {
		t.Fatal("expected nil, got ", err)
	}
	if claims["email"] != "a@b.fr" {
		t.Errorf("unexpected email claim: %v", claims["email"])
	}

	if _, err := client.Userinfo("wrong-token"); err == nil {
		t.Error("expected error for rejected token, got nil")
	}
}
