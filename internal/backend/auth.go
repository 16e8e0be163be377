package backend

import (
	"context"
	"net/http"
	"sync"
	"time"

	apperrors "github.com/doclexa/doclexa/internal/errors"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// AuthEvent is an auth state transition.
type AuthEvent string

const (
	SignedIn  AuthEvent = "SIGNED_IN"
	SignedOut AuthEvent = "SIGNED_OUT"
)

// User identifies the authenticated account.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Session carries the tokens and identity for a signed-in user.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"-"`
	User         User      `json:"user"`
}

// Expired reports whether the access token is past its expiry.
func (s *Session) Expired() bool {
	return !s.ExpiresAt.IsZero() && time.Now().After(s.ExpiresAt)
}

// AuthStateFunc observes auth state transitions.
type AuthStateFunc func(event AuthEvent, session *Session)

// AuthSubscription is a handle for a registered auth listener.
type AuthSubscription struct {
	cancel func()
	once   sync.Once
}

// Unsubscribe removes the listener. Safe to call more than once.
func (s *AuthSubscription) Unsubscribe() {
	s.once.Do(s.cancel)
}

type authState struct {
	mu        sync.RWMutex
	session   *Session
	listeners map[uint64]AuthStateFunc
	nextID    uint64
}

// tokenResponse is the auth endpoint's success envelope.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	User         User   `json:"user"`
}

// SignInWithPassword authenticates with email and password. On success the
// session is retained by the client and SIGNED_IN is broadcast.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	if email == "" || password == "" {
		return nil, apperrors.New(apperrors.ErrInvalidCredentials.Code, "errorEmailPassword")
	}

	body := map[string]string{"email": email, "password": password}
	respBody, err := c.do(ctx, http.MethodPost, "/auth/v1/token?grant_type=password", body, nil)
	if err != nil {
		return nil, err
	}
	return c.adoptTokenResponse(respBody)
}

// SignUp registers a new account. The backend creates the profile row via
// its own trigger; no session is established until sign-in (or email
// confirmation, depending on backend settings).
func (c *Client) SignUp(ctx context.Context, email, password string) (*User, error) {
	if email == "" || password == "" {
		return nil, apperrors.New(apperrors.ErrInvalidCredentials.Code, "errorEmailPassword")
	}

	body := map[string]string{"email": email, "password": password}
	respBody, err := c.do(ctx, http.MethodPost, "/auth/v1/signup", body, nil)
	if err != nil {
		return nil, err
	}

	var resp struct {
		ID    string `json:"id"`
		Email string `json:"email"`
		User  *User  `json:"user"`
	}
	if err := unmarshalJSON(respBody, &resp); err != nil {
		return nil, err
	}
	if resp.User != nil {
		return resp.User, nil
	}
	return &User{ID: resp.ID, Email: resp.Email}, nil
}

// SignOut revokes the session server-side (best effort), drops it locally,
// and broadcasts SIGNED_OUT.
func (c *Client) SignOut(ctx context.Context) error {
	if c.Session() == nil {
		return apperrors.ErrNotSignedIn
	}

	if _, err := c.do(ctx, http.MethodPost, "/auth/v1/logout", nil, nil); err != nil {
		c.logger.Warn("server-side sign-out failed", zap.Error(err))
	}

	c.auth.mu.Lock()
	c.auth.session = nil
	c.auth.mu.Unlock()

	c.broadcast(SignedOut, nil)
	return nil
}

// RefreshSession exchanges the refresh token for a new session.
func (c *Client) RefreshSession(ctx context.Context) (*Session, error) {
	current := c.Session()
	if current == nil {
		return nil, apperrors.ErrNotSignedIn
	}

	body := map[string]string{"refresh_token": current.RefreshToken}
	respBody, err := c.do(ctx, http.MethodPost, "/auth/v1/token?grant_type=refresh_token", body, nil)
	if err != nil {
		return nil, err
	}
	return c.adoptTokenResponse(respBody)
}

// RestoreSession adopts a previously cached session, refreshing it first
// when the access token has expired. Broadcasts SIGNED_IN on success.
func (c *Client) RestoreSession(ctx context.Context, session *Session) (*Session, error) {
	c.auth.mu.Lock()
	c.auth.session = session
	c.auth.mu.Unlock()

	if session.Expired() {
		refreshed, err := c.RefreshSession(ctx)
		if err != nil {
			c.auth.mu.Lock()
			c.auth.session = nil
			c.auth.mu.Unlock()
			return nil, apperrors.Wrap(err, apperrors.ErrSessionExpired.Code, "cached session could not be refreshed")
		}
		return refreshed, nil
	}

	c.broadcast(SignedIn, session)
	return session, nil
}

// Session returns the current session, or nil when signed out.
func (c *Client) Session() *Session {
	c.auth.mu.RLock()
	defer c.auth.mu.RUnlock()
	return c.auth.session
}

// OnAuthStateChange registers a listener for SIGNED_IN/SIGNED_OUT events.
func (c *Client) OnAuthStateChange(fn AuthStateFunc) *AuthSubscription {
	c.auth.mu.Lock()
	id := c.auth.nextID
	c.auth.nextID++
	c.auth.listeners[id] = fn
	c.auth.mu.Unlock()

	return &AuthSubscription{cancel: func() {
		c.auth.mu.Lock()
		delete(c.auth.listeners, id)
		c.auth.mu.Unlock()
	}}
}

func (c *Client) adoptTokenResponse(respBody []byte) (*Session, error) {
	var resp tokenResponse
	if err := unmarshalJSON(respBody, &resp); err != nil {
		return nil, err
	}

	session := &Session{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		User:         resp.User,
	}
	fillFromClaims(session)
	if session.ExpiresAt.IsZero() && resp.ExpiresIn > 0 {
		session.ExpiresAt = time.Now().Add(time.Duration(resp.ExpiresIn) * time.Second)
	}

	c.auth.mu.Lock()
	c.auth.session = session
	c.auth.mu.Unlock()

	c.broadcast(SignedIn, session)
	return session, nil
}

// fillFromClaims reads expiry and identity from the access token. The parse
// is unverified; the server remains authoritative and rejects bad tokens.
func fillFromClaims(session *Session) {
	parser := jwt.NewParser()
	token, _, err := parser.ParseUnverified(session.AccessToken, jwt.MapClaims{})
	if err != nil {
		return
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return
	}

	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		session.ExpiresAt = exp.Time
	}
	if session.User.ID == "" {
		if sub, err := claims.GetSubject(); err == nil {
			session.User.ID = sub
		}
	}
	if session.User.Email == "" {
		if email, ok := claims["email"].(string); ok {
			session.User.Email = email
		}
	}
}

func (c *Client) broadcast(event AuthEvent, session *Session) {
	c.auth.mu.RLock()
	fns := make([]AuthStateFunc, 0, len(c.auth.listeners))
	for _, fn := range c.auth.listeners {
		fns = append(fns, fn)
	}
	c.auth.mu.RUnlock()

	for _, fn := range fns {
		fn(event, session)
	}
}
