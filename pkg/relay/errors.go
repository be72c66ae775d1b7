package relay

import "fmt"

// ErrorCode is the machine-readable authentication failure code carried to
// the error page as the `error` query parameter.
type ErrorCode string

const (
	ErrInvalidState        ErrorCode = "invalid_state"
	ErrNoCode              ErrorCode = "no_code"
	ErrMissingCodeVerifier ErrorCode = "missing_code_verifier"
	ErrMissingConfig       ErrorCode = "missing_config"
	ErrTokenExchange       ErrorCode = "token_exchange"
	ErrNoIDToken           ErrorCode = "no_id_token"
	ErrInvalidNonce        ErrorCode = "invalid_nonce"
	ErrServerError         ErrorCode = "server_error"
)

// AuthError is the failure arm of callback processing.
type AuthError struct {
	Code ErrorCode

	// UpstreamStatus is the HTTP status of the token endpoint response for
	// token_exchange failures, zero otherwise.
	UpstreamStatus int

	Cause error
}

func (e *AuthError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Code, e.Cause)
	}
	return string(e.Code)
}

func (e *AuthError) Unwrap() error {
	return e.Cause
}
