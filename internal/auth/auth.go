// Package auth implements HTTP Basic authentication against the in-memory
// user table, backed by a session cache that elides PBKDF2 verification on
// repeat requests from the same (username, presented-password) pair.
package auth

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/headexplodes/henchman/internal/metrics"
	"github.com/headexplodes/henchman/pkg/password"
)

// sessionCachePeriod is how long a verified credential is trusted without
// re-running PBKDF2.
const sessionCachePeriod = 30 * time.Minute

// User is a loaded, immutable account definition.
type User struct {
	Username string
	Password password.Parts
	Roles    map[string]bool
}

// Principal is the authenticated identity attached to a request once auth
// succeeds. Roles are carried through even though no route consults them
// today, so that role-based policy has somewhere to hook in later.
type Principal struct {
	Username string
	Roles    map[string]bool
}

// CachedCredential is the session-cache key. It deliberately does not
// contain the stored password hash: the key is derived from the
// *attempted* plaintext, so a cache hit only ever means "this exact
// password was already verified for this user", never "any password was".
type CachedCredential struct {
	Username     string
	PasswordHash [sha256.Size]byte
}

type session struct {
	expiresAt time.Time
}

// Error is a classified auth-path failure; the dispatcher maps Kind to an
// HTTP status code.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return string(e.Kind)
}

// Kind classifies an auth failure.
type Kind string

const (
	KindUnauthorized        Kind = "unauthorized"
	KindBadRequest          Kind = "bad_request"
	KindInternalServerError Kind = "internal_server_error"
)

func errUnauthorized(format string, args ...any) *Error {
	return &Error{Kind: KindUnauthorized, Message: fmt.Sprintf(format, args...)}
}

func errBadRequest(format string, args ...any) *Error {
	return &Error{Kind: KindBadRequest, Message: fmt.Sprintf(format, args...)}
}

func errInternal(format string, args ...any) *Error {
	return &Error{Kind: KindInternalServerError, Message: fmt.Sprintf(format, args...)}
}

// Authenticator verifies incoming requests against a fixed user table,
// maintaining a session cache to skip repeat PBKDF2 verification.
type Authenticator struct {
	users map[string]User

	mu       sync.RWMutex
	sessions map[CachedCredential]session
}

// New builds an Authenticator over a fixed, already-loaded user table. The
// table is never mutated after construction.
func New(users map[string]User) *Authenticator {
	return &Authenticator{
		users:    users,
		sessions: make(map[CachedCredential]session),
	}
}

// Authenticate validates the request's Authorization header and returns the
// resulting principal, or a classified *Error.
func (a *Authenticator) Authenticate(r *http.Request) (Principal, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return Principal{}, errUnauthorized("missing Authorization header")
	}

	username, plainPassword, ok := parseBasic(header)
	if !ok {
		return Principal{}, errBadRequest("malformed Authorization header")
	}

	user, ok := a.users[username]
	if !ok {
		metrics.ObserveAuth(metrics.AuthOutcomeRejected)
		return Principal{}, errUnauthorized("unknown username")
	}

	cred := CachedCredential{
		Username:     username,
		PasswordHash: password.DigestForCache(plainPassword),
	}

	// Fast path: a cached session, provided it hasn't expired. Unlike a
	// naive containment check, this also evicts the entry on a stale hit
	// so a later slow-path verification starts from a clean cache.
	if a.hasFreshSession(cred) {
		metrics.ObserveAuth(metrics.AuthOutcomeCacheHit)
		return Principal{Username: user.Username, Roles: user.Roles}, nil
	}

	// Slow path: run outside any lock on sessions, since PBKDF2 is
	// deliberately expensive and must not serialize unrelated requests.
	ok, err := password.VerifyParts(plainPassword, user.Password)
	if err != nil {
		return Principal{}, errInternal("verifying password: %v", err)
	}
	if !ok {
		metrics.ObserveAuth(metrics.AuthOutcomeRejected)
		return Principal{}, errUnauthorized("incorrect password")
	}

	metrics.ObserveAuth(metrics.AuthOutcomeVerified)
	a.insertSession(cred)

	return Principal{Username: user.Username, Roles: user.Roles}, nil
}

func (a *Authenticator) hasFreshSession(cred CachedCredential) bool {
	a.mu.RLock()
	s, ok := a.sessions[cred]
	a.mu.RUnlock()

	if !ok {
		return false
	}
	if s.expiresAt.After(time.Now()) {
		return true
	}

	// Stale hit: drop the entry, unless another request refreshed it
	// between the read and the write lock.
	a.mu.Lock()
	if cur, ok := a.sessions[cred]; ok && !cur.expiresAt.After(time.Now()) {
		delete(a.sessions, cred)
	}
	a.mu.Unlock()
	return false
}

func (a *Authenticator) insertSession(cred CachedCredential) {
	a.mu.Lock()
	defer a.mu.Unlock()

	pruneExpired(a.sessions)

	a.sessions[cred] = session{expiresAt: time.Now().Add(sessionCachePeriod)}
}

// pruneExpired removes entries whose expiry has passed.
//
// The original retained entries while expires_at < now and dropped the
// rest -- backwards. Correct behaviour: retain iff expires_at is still in
// the future.
func pruneExpired(sessions map[CachedCredential]session) {
	now := time.Now()
	for k, v := range sessions {
		if !v.expiresAt.After(now) {
			delete(sessions, k)
		}
	}
}

func parseBasic(header string) (username, password string, ok bool) {
	const prefix = "Basic "
	if !strings.HasPrefix(header, prefix) {
		return "", "", false
	}

	decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(header, prefix))
	if err != nil {
		return "", "", false
	}

	parts := strings.SplitN(string(decoded), ":", 2)
	if len(parts) != 2 {
		return "", "", false
	}

	return parts[0], parts[1], true
}
