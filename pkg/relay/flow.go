package relay

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/chainid-fr/fcrelay/pkg/oauth2"
	"github.com/chainid-fr/fcrelay/pkg/oidc"
	"github.com/segmentio/ksuid"
)

// BeginResult carries everything a login response needs: the provider
// redirect target and the three transient secrets to store.
type BeginResult struct {
	AuthURL  string
	State    string
	Nonce    string
	Verifier string
}

// CallbackRequest is the full input of callback processing: the provider's
// redirect query parameters and the transient secrets stored at login.
// Absent values are empty strings.
type CallbackRequest struct {
	State          string
	Code           string
	StoredState    string
	StoredNonce    string
	StoredVerifier string
}

// Flow implements the authorization code flow against the identity
// provider, free of any HTTP request or response handling.
type Flow struct {
	resolve   ConfigResolver
	newClient func(oidc.Config) oidc.Client

	mu      sync.Mutex
	decoder oidc.ClaimsDecoder
}

func NewFlow(resolve ConfigResolver) *Flow {
	return &Flow{
		resolve:   resolve,
		newClient: oidc.NewClient,
	}
}

// Begin generates the transient secrets of a fresh login attempt and the
// authorization URL binding them.
func (f *Flow) Begin() (*BeginResult, *AuthError) {
	cfg := f.resolve()
	if err := cfg.ValidateForLogin(); err != nil {
		return nil, &AuthError{Code: ErrMissingConfig, Cause: err}
	}

	result := &BeginResult{
		State:    ksuid.New().String(),
		Nonce:    oauth2.GenerateRandomString(32),
		Verifier: oauth2.GenerateCodeVerifier(),
	}
	result.AuthURL = f.newClient(cfg.Provider).AuthCodeURL(result.State, result.Nonce, result.Verifier)

	return result, nil
}

// ProcessCallback validates the provider's response, exchanges the code and
// returns the normalized claims of the authenticated user. Checks run in
// strict order and stop at the first failure.
//
// Concurrent reuse of the same authorization code is not policed here: both
// requests reach the token endpoint and the provider's single-use code
// enforcement decides which one wins.
func (f *Flow) ProcessCallback(req CallbackRequest) (*UserClaims, *AuthError) {
	if req.State == "" || req.StoredState == "" || req.State != req.StoredState {
		return nil, &AuthError{Code: ErrInvalidState}
	}
	if req.Code == "" {
		return nil, &AuthError{Code: ErrNoCode}
	}
	if req.StoredVerifier == "" {
		return nil, &AuthError{Code: ErrMissingCodeVerifier}
	}

	cfg := f.resolve()
	if err := cfg.ValidateForExchange(); err != nil {
		return nil, &AuthError{Code: ErrMissingConfig, Cause: err}
	}

	client := f.newClient(cfg.Provider)

	tokens, err := client.Exchange(req.Code, req.StoredVerifier)
	if err != nil {
		authErr := &AuthError{Code: ErrTokenExchange, Cause: err}
		var exchangeErr *oidc.ExchangeError
		if errors.As(err, &exchangeErr) {
			authErr.UpstreamStatus = exchangeErr.StatusCode
		}
		return nil, authErr
	}

	if tokens.IDToken == "" {
		return nil, &AuthError{Code: ErrNoIDToken}
	}

	decoder, err := f.claimsDecoder(cfg)
	if err != nil {
		return nil, &AuthError{Code: ErrServerError, Cause: err}
	}
	idClaims, err := decoder.Decode(tokens.IDToken)
	if err != nil {
		return nil, &AuthError{Code: ErrServerError, Cause: err}
	}

	// best effort: an unavailable userinfo endpoint must not fail the login
	var userinfo map[string]interface{}
	if tokens.AccessToken != "" {
		userinfo, err = client.Userinfo(tokens.AccessToken)
		if err != nil {
			slog.Error("userinfo fetch failed, continuing with id token claims", "error", err)
			userinfo = nil
		}
	}

	nonce, _ := idClaims["nonce"].(string)
	if req.StoredNonce == "" || nonce != req.StoredNonce {
		return nil, &AuthError{Code: ErrInvalidNonce}
	}

	user := NormalizeClaims(idClaims, userinfo)
	return &user, nil
}

// claimsDecoder returns the decoder selected by configuration. The JWKS
// decoder is built once and kept: it holds the provider's signing key cache.
func (f *Flow) claimsDecoder(cfg Config) (oidc.ClaimsDecoder, error) {
	if cfg.IDTokenVerification != IDTokenVerificationJWKS {
		return oidc.UnverifiedDecoder{}, nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.decoder == nil {
		decoder, err := oidc.NewJwksVerifiedDecoder(cfg.Provider)
		if err != nil {
			return nil, err
		}
		f.decoder = decoder
	}
	return f.decoder, nil
}
