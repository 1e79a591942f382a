package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"
)

const userIDKey = "user_id"

// SessionUser is the identity resolved for a request and injected into
// r.Context().
type SessionUser struct {
	ID            string // user ObjectID hex
	Name          string
	Email         string // normalized
	EmailVerified bool
}

// UserFetcher loads fresh user data for an id. It returns nil when the user
// does not exist or may not sign in.
type UserFetcher interface {
	FetchUser(ctx context.Context, userID string) *SessionUser
}

type ctxKey string

const currentUserKey ctxKey = "currentUser"

// CurrentUser returns the user & "found?" flag.
func CurrentUser(r *http.Request) (*SessionUser, bool) {
	u, ok := r.Context().Value(currentUserKey).(*SessionUser)
	return u, ok
}

// WithTestUser injects u into the request context the way LoadSessionUser
// does. Intended for handler tests.
func WithTestUser(r *http.Request, u *SessionUser) *http.Request {
	return withUser(r, u)
}

// SessionManager resolves the caller from a signed session cookie or an
// Authorization bearer token.
type SessionManager struct {
	store   *sessions.CookieStore
	name    string
	fetcher UserFetcher
	bearer  *BearerVerifier
	log     *zap.Logger
}

// NewSessionManager builds the cookie store. In production (secure=true)
// cookies are Secure + SameSite=None; in local dev over http use
// secure=false so browsers accept them.
func NewSessionManager(sessionKey, name, domain string, maxAge time.Duration, secure bool, logger *zap.Logger) (*SessionManager, error) {
	if sessionKey == "" {
		return nil, fmt.Errorf("session key is empty; provide ≥32 random chars")
	}
	if len(sessionKey) < 32 {
		logger.Warn("session key is short; 32+ chars recommended",
			zap.Int("length", len(sessionKey)))
	}
	if name == "" {
		name = "tripdesk-session"
	}

	store := sessions.NewCookieStore([]byte(sessionKey))
	store.Options = &sessions.Options{
		Domain:   domain,
		Path:     "/",
		Secure:   secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	if secure {
		store.Options.SameSite = http.SameSiteNoneMode
	}
	if maxAge > 0 {
		store.MaxAge(int(maxAge.Seconds()))
	}

	logger.Info("session store initialized",
		zap.String("name", name),
		zap.Bool("secure", secure),
		zap.String("domain", domain))

	return &SessionManager{store: store, name: name, log: logger}, nil
}

// SetUserFetcher installs the lookup used to refresh the user on each request.
func (sm *SessionManager) SetUserFetcher(f UserFetcher) {
	sm.fetcher = f
}

// SetBearerVerifier enables Authorization: Bearer tokens.
func (sm *SessionManager) SetBearerVerifier(v *BearerVerifier) {
	sm.bearer = v
}

// LoadSessionUser injects the user into context when the request carries a
// valid bearer token or session cookie. Anything invalid leaves the request
// anonymous.
func (sm *SessionManager) LoadSessionUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := sm.resolveID(r); id != "" {
			if u := sm.lookup(r.Context(), id); u != nil {
				r = withUser(r, u)
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (sm *SessionManager) resolveID(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		token, ok := strings.CutPrefix(h, "Bearer ")
		if !ok || sm.bearer == nil {
			return ""
		}
		sub, err := sm.bearer.Verify(strings.TrimSpace(token))
		if err != nil {
			sm.log.Debug("bearer token rejected", zap.Error(err))
			return ""
		}
		return sub
	}

	sess, err := sm.store.Get(r, sm.name)
	if err != nil {
		if securecookie.IsDecode(err) {
			sm.log.Debug("discarding undecodable session cookie", zap.Error(err))
		}
		return ""
	}
	id, _ := sess.Values[userIDKey].(string)
	return id
}

func (sm *SessionManager) lookup(ctx context.Context, id string) *SessionUser {
	if sm.fetcher == nil {
		return &SessionUser{ID: id}
	}
	return sm.fetcher.FetchUser(ctx, id)
}

// Login stores userID in the session cookie.
func (sm *SessionManager) Login(w http.ResponseWriter, r *http.Request, userID string) error {
	sess, _ := sm.store.Get(r, sm.name)
	sess.Values[userIDKey] = userID
	return sess.Save(r, w)
}

// Logout expires the session cookie.
func (sm *SessionManager) Logout(w http.ResponseWriter, r *http.Request) error {
	sess, _ := sm.store.Get(r, sm.name)
	delete(sess.Values, userIDKey)
	sess.Options.MaxAge = -1
	return sess.Save(r, w)
}

// RequireSignedIn ensures there is a user in context (set by
// LoadSessionUser); otherwise it answers 401 with a JSON error body.
func (sm *SessionManager) RequireSignedIn(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CurrentUser(r); ok {
			next.ServeHTTP(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"error":   "unauthenticated",
			"message": "sign in required",
		})
	})
}

// ErrNoSubject is returned for tokens without a subject.
var ErrNoSubject = errors.New("token has no subject")

func withUser(r *http.Request, u *SessionUser) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), currentUserKey, u))
}
