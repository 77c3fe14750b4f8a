package session

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// CookieName identifies the anonymous cart token cookie.
const CookieName = "alx_cart"

type tokenKey struct{}

// WithToken stores the cart token on the context.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

// Token extracts the cart token from context.
func Token(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(tokenKey{}).(string)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return v, true
}

// Manager issues and reads the opaque cart token cookie. The token is an
// anonymous random identifier, not a credential; carts it points at hold no
// sensitive data beyond the customer checkout snapshot.
type Manager struct {
	TTL      time.Duration
	Domain   string
	Secure   bool
	SameSite http.SameSite
}

// Middleware ensures every request carries a cart token, minting one when
// the cookie is absent or empty, and exposes it via the request context.
func (m Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := ""
		if c, err := r.Cookie(CookieName); err == nil {
			token = strings.TrimSpace(c.Value)
		}
		if token == "" || uuid.Validate(token) != nil {
			token = uuid.NewString()
			m.setCookie(w, token)
		}
		next.ServeHTTP(w, r.WithContext(WithToken(r.Context(), token)))
	})
}

func (m Manager) setCookie(w http.ResponseWriter, token string) {
	ttl := m.TTL
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	sameSite := m.SameSite
	if sameSite == http.SameSiteDefaultMode {
		sameSite = http.SameSiteLaxMode
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		Domain:   m.Domain,
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   m.Secure,
		SameSite: sameSite,
	})
}
