package relay

import (
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/chainid-fr/fcrelay/pkg/identity"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

type Option func(*Server) error

// WithConfig sets the configuration resolver. The default reads the
// process environment on every request.
func WithConfig(resolve ConfigResolver) Option {
	return func(s *Server) error {
		s.resolve = resolve
		return nil
	}
}

// WithRegistry attaches a reader for the on-chain identity registry.
func WithRegistry(registry identity.Registry) Option {
	return func(s *Server) error {
		s.registry = registry
		return nil
	}
}

// Server exposes the relay over HTTP: the login/callback redirect pair, the
// session endpoints and the identity helpers.
type Server struct {
	resolve  ConfigResolver
	flow     *Flow
	registry identity.Registry
}

func NewServer(opts ...Option) (*Server, error) {
	s := &Server{
		resolve: EnvConfig,
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	s.flow = NewFlow(s.resolve)
	return s, nil
}

func ErrorLogMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		err := next(c)
		if err != nil {
			slog.Error("Error", "error", err, "path", c.Path(), "remote_addr", c.RealIP())
		}
		return err
	}
}

func (s *Server) MountRoutes(group *echo.Group) {
	group.Use(
		middleware.Logger(),
		ErrorLogMiddleware,
	)
	group.GET("/login", s.Login)
	group.GET("/callback", s.Callback)
	group.POST("/logout", s.Logout)
	group.GET("/session", s.Session)
}

func (s *Server) MountIdentityRoutes(group *echo.Group) {
	group.GET("/hash", s.IdentityHash)
	group.GET("/status", s.IdentityStatus)
}

// Login starts an authentication attempt: it issues fresh transient secrets
// as cookies and redirects to the provider's authorization endpoint.
func (s *Server) Login(c echo.Context) error {
	result, authErr := s.flow.Begin()
	if authErr != nil {
		slog.Error("login initiation failed", "error", authErr)
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "identity provider configuration is missing",
		})
	}

	secure := s.resolve().ProductionCookies
	c.SetCookie(newCookie(StateCookieName, result.State, TransientTTL, secure))
	c.SetCookie(newCookie(NonceCookieName, result.Nonce, TransientTTL, secure))
	c.SetCookie(newCookie(VerifierCookieName, result.Verifier, TransientTTL, secure))

	slog.Info("redirecting to identity provider", "state", result.State)
	return c.Redirect(http.StatusFound, result.AuthURL)
}

// Callback consumes the provider's redirect. Whatever the outcome, the
// three transient cookies are cleared: the secrets are single use.
func (s *Server) Callback(c echo.Context) (err error) {
	cfg := s.resolve()

	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic while processing callback", "panic", r)
			err = s.redirectError(c, cfg, &AuthError{Code: ErrServerError})
		}
	}()

	req := CallbackRequest{
		State:          c.QueryParam("state"),
		Code:           c.QueryParam("code"),
		StoredState:    cookieValue(c, StateCookieName),
		StoredNonce:    cookieValue(c, NonceCookieName),
		StoredVerifier: cookieValue(c, VerifierCookieName),
	}

	s.clearTransientCookies(c, cfg.ProductionCookies)

	user, authErr := s.flow.ProcessCallback(req)
	if authErr != nil {
		return s.redirectError(c, cfg, authErr)
	}

	sessionToken, encErr := NewSessionCodec(cfg.SessionSecret).Encode(*user)
	if encErr != nil {
		return s.redirectError(c, cfg, &AuthError{Code: ErrServerError, Cause: encErr})
	}

	c.SetCookie(newCookie(SessionCookieName, sessionToken, SessionTTL, cfg.ProductionCookies))

	slog.Info("authentication succeeded", "sub", user.Sub)
	return c.Redirect(http.StatusFound, cfg.DashboardPath)
}

// Logout clears the session cookie. The session is browser-held, so there
// is nothing to revoke server-side.
func (s *Server) Logout(c echo.Context) error {
	c.SetCookie(clearCookie(SessionCookieName, s.resolve().ProductionCookies))
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

type SessionResponse struct {
	Authenticated bool        `json:"authenticated"`
	User          *UserClaims `json:"user,omitempty"`
}

// Session reports the authentication state of the caller. An undecodable
// session cookie is indistinguishable from no session, and is cleared.
func (s *Server) Session(c echo.Context) error {
	cookie, err := c.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return c.JSON(http.StatusOK, SessionResponse{Authenticated: false})
	}

	cfg := s.resolve()
	if cfg.SessionSecret == "" {
		slog.Error("session secret is not configured")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to get session"})
	}

	user, err := NewSessionCodec(cfg.SessionSecret).Decode(cookie.Value)
	if err != nil {
		slog.Info("discarding invalid session cookie", "error", err)
		c.SetCookie(clearCookie(SessionCookieName, cfg.ProductionCookies))
		return c.JSON(http.StatusOK, SessionResponse{Authenticated: false})
	}

	return c.JSON(http.StatusOK, SessionResponse{Authenticated: true, User: &user})
}

// IdentityHash derives the registry hash of the authenticated user, the
// value the dashboard registers on-chain.
func (s *Server) IdentityHash(c echo.Context) error {
	cfg := s.resolve()

	cookie, err := c.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" || cfg.SessionSecret == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	user, err := NewSessionCodec(cfg.SessionSecret).Decode(cookie.Value)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	subject := identity.Subject{
		Sub:        user.Sub,
		GivenName:  user.GivenName,
		FamilyName: user.FamilyName,
		BirthDate:  user.BirthDate,
	}
	return c.JSON(http.StatusOK, echo.Map{"hash": identity.Hash(subject)})
}

// IdentityStatus reports the on-chain verification state of an address.
func (s *Server) IdentityStatus(c echo.Context) error {
	if s.registry == nil {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "identity registry is not configured"})
	}

	address := c.QueryParam("address")
	if address == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing address"})
	}

	verified, err := s.registry.VerifyIdentity(address)
	if err != nil {
		slog.Error("registry lookup failed", "address", address, "error", err)
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "registry lookup failed"})
	}

	return c.JSON(http.StatusOK, echo.Map{"address": address, "verified": verified})
}

func (s *Server) redirectError(c echo.Context, cfg Config, authErr *AuthError) error {
	slog.Error("authentication failed", "error_code", authErr.Code, "error", authErr)

	params := url.Values{}
	params.Set("error", string(authErr.Code))
	if authErr.UpstreamStatus != 0 {
		params.Set("status", strconv.Itoa(authErr.UpstreamStatus))
	}

	return c.Redirect(http.StatusFound, cfg.ErrorPath+"?"+params.Encode())
}

func (s *Server) clearTransientCookies(c echo.Context, secure bool) {
	c.SetCookie(clearCookie(StateCookieName, secure))
	c.SetCookie(clearCookie(NonceCookieName, secure))
	c.SetCookie(clearCookie(VerifierCookieName, secure))
}

func cookieValue(c echo.Context, name string) string {
	cookie, err := c.Cookie(name)
	if err != nil {
		return ""
	}
	return cookie.Value
}
