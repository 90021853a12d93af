package admin

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/ounjeeh/staples/internal/platform/errors"
	"github.com/ounjeeh/staples/internal/platform/httpx"
	"github.com/ounjeeh/staples/internal/platform/requestctx"
)

const (
	// CookieName holds the admin session token.
	CookieName = "staples_admin"
	// Subject is the only admin identity.
	Subject = "admin"
	// DefaultSessionTTL bounds how long a login lasts.
	DefaultSessionTTL = 12 * time.Hour
	// MinSecretBytes is the shortest accepted signing secret.
	MinSecretBytes = 32

	tokenIssuer   = "staples"
	tokenAudience = "staples-admin"
)

var errInvalidSession = apperrors.E(apperrors.KindUnauthorized, "Please sign in")

// AuthConfig configures admin sign-in.
type AuthConfig struct {
	// PasswordHash is a bcrypt hash of the admin password.
	PasswordHash string
	// Secret signs session tokens with HS256.
	Secret []byte
	TTL    time.Duration
	Now    func() time.Time
}

// Authenticator checks the admin password and issues session tokens.
type Authenticator struct {
	hash   []byte
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewAuthenticator validates cfg.
func NewAuthenticator(cfg AuthConfig) (*Authenticator, error) {
	hash := []byte(strings.TrimSpace(cfg.PasswordHash))
	if _, err := bcrypt.Cost(hash); err != nil {
		return nil, fmt.Errorf("admin password hash: %w", err)
	}
	if len(cfg.Secret) < MinSecretBytes {
		return nil, fmt.Errorf("admin session secret must be at least %d bytes", MinSecretBytes)
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Authenticator{hash: hash, secret: cfg.Secret, ttl: ttl, now: now}, nil
}

// Login checks password and returns a signed session token.
func (a *Authenticator) Login(password string) (string, time.Time, error) {
	if err := bcrypt.CompareHashAndPassword(a.hash, []byte(password)); err != nil {
		return "", time.Time{}, apperrors.Wrap(apperrors.KindUnauthorized, "Incorrect password", err)
	}
	now := a.now().UTC()
	expires := now.Add(a.ttl)
	claims := jwt.RegisteredClaims{
		Issuer:    tokenIssuer,
		Subject:   Subject,
		Audience:  jwt.ClaimStrings{tokenAudience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
		ID:        uuid.NewString(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign admin token: %w", err)
	}
	return token, expires, nil
}

// Verify parses token and returns its subject.
func (a *Authenticator) Verify(token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", errInvalidSession
	}
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithAudience(tokenAudience),
		jwt.WithSubject(Subject),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", apperrors.Wrap(apperrors.KindUnauthorized, "Session expired, please sign in again", err)
		}
		return "", apperrors.Wrap(apperrors.KindUnauthorized, "Please sign in", err)
	}
	return claims.Subject, nil
}

// RequireAdmin rejects requests without a valid session cookie and stores the
// admin subject in the request context.
func (a *Authenticator) RequireAdmin(logger *zap.Logger) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			subject, err := a.Verify(readCookie(r))
			if err != nil {
				httpx.WriteError(w, logger, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(requestctx.WithAdmin(r.Context(), subject)))
		})
	}
}

func readCookie(r *http.Request) string {
	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie == nil {
		return ""
	}
	return strings.TrimSpace(cookie.Value)
}

func writeCookie(w http.ResponseWriter, r *http.Request, token string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   isHTTPS(r),
		SameSite: http.SameSiteLaxMode,
	})
}

func clearCookie(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   isHTTPS(r),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

func isHTTPS(r *http.Request) bool {
	if r == nil {
		return false
	}
	if r.TLS != nil {
		return true
	}
	return strings.EqualFold(strings.TrimSpace(r.Header.Get("X-Forwarded-Proto")), "https")
}
