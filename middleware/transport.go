package middleware

import (
	"net/http"
	"strings"

	"github.com/MrEthical07/marketgate"
)

const bearerPrefix = "Bearer "

// ExtractCredential returns the candidate credential of r: the cookie named
// cookieName when present and non-empty, otherwise the token of an
// "Authorization: Bearer <token>" header. The prefix is case-sensitive.
// Absence is reported through ok, never as an error.
func ExtractCredential(r *http.Request, cookieName string) (token string, ok bool) {
	if c, err := r.Cookie(cookieName); err == nil && c.Value != "" {
		return c.Value, true
	}
	return bearerToken(r.Header.Get("Authorization"))
}

func bearerToken(value string) (string, bool) {
	if !strings.HasPrefix(value, bearerPrefix) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearerPrefix):])
	if token == "" {
		return "", false
	}

	return token, true
}

// SetCredentialCookie stores token in the engine's credential cookie. The
// cookie is HttpOnly, SameSite=Strict, scoped to "/" and lives as long as
// the credential itself.
func SetCredentialCookie(w http.ResponseWriter, engine *marketgate.Engine, token string) {
	cfg := engine.Config()
	http.SetCookie(w, &http.Cookie{
		Name:     cfg.Transport.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(cfg.Credential.Lifetime.Seconds()),
		HttpOnly: true,
		Secure:   cfg.Transport.SecureCookies,
		SameSite: http.SameSiteStrictMode,
	})
}

// ClearCredentialCookie expires the credential cookie on the client.
func ClearCredentialCookie(w http.ResponseWriter, engine *marketgate.Engine) {
	cfg := engine.Config()
	http.SetCookie(w, &http.Cookie{
		Name:     cfg.Transport.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   cfg.Transport.SecureCookies,
		SameSite: http.SameSiteStrictMode,
	})
}
