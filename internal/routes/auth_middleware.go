// Authentication middleware
// The browser holds a signed cookie naming a server side session. The
// middleware resolves it on every request; RequireAuth turns a missing
// session into a redirect to the login page.
package routes

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"shollu-partner/internal/session"

	"github.com/gin-gonic/gin"
)

const AUTH_COOKIE_NAME = "partner_session"

const sessionKey = "session"

func secureRequest(c *gin.Context) bool {
	return c.Request.TLS != nil || c.GetHeader("X-Forwarded-Proto") == "https"
}

// Set authentication cookie
// The cookie is set to expire when the token expires
func (h *Handlers) setAuthCookie(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(
		AUTH_COOKIE_NAME,
		token,
		int(h.Signer.TTL().Seconds()),
		"/",
		"",
		secureRequest(c),
		true,
	)
}

func clearAuthCookie(c *gin.Context) {
	c.SetCookie(AUTH_COOKIE_NAME, "", -1, "/", "", secureRequest(c), true)
}

// CurrentSession returns the session resolved for this request, or nil.
func CurrentSession(c *gin.Context) *session.Session {
	v, ok := c.Get(sessionKey)
	if !ok {
		return nil
	}
	s, _ := v.(*session.Session)
	return s
}

func (h *Handlers) verifyAuth(c *gin.Context) (*session.Session, error) {
	token, err := c.Cookie(AUTH_COOKIE_NAME)
	if err != nil {
		return nil, ErrUnauthorized
	}
	claims, err := h.Signer.Decode(token)
	if err != nil {
		return nil, err
	}
	return h.Sessions.Lookup(c.Request.Context(), claims.SessionID)
}

// SessionMiddleware attaches the session, if any, to the context. Stale
// cookies are cleared.
func (h *Handlers) SessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		s, err := h.verifyAuth(c)
		switch {
		case err == nil:
			c.Set(sessionKey, s)
			c.Set("Nav", h.navFor(s.User.Role))
		case errors.Is(err, ErrUnauthorized):
			// No cookie
		default:
			slog.Debug("Dropping invalid session cookie", "error", err)
			clearAuthCookie(c)
		}
		c.Next()
	}
}

func wantsJSON(c *gin.Context) bool {
	return strings.Contains(c.GetHeader("Accept"), "application/json") ||
		c.GetHeader("X-Requested-With") == "XMLHttpRequest"
}

func loginURL(c *gin.Context) string {
	target := link(c, "login")
	if c.Request.Method == http.MethodGet {
		target += "?next=" + url.QueryEscape(c.Request.URL.RequestURI())
	}
	return target
}

// RequireAuth creates middleware that requires authentication.
// Redirects to login page if not authenticated.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentSession(c) != nil {
			c.Next()
			return
		}
		if wantsJSON(c) {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		slog.Debug("RequireAuth: No session, redirecting to login", "path", c.Request.URL.Path)
		c.Redirect(http.StatusFound, loginURL(c))
		c.Abort()
	}
}

// safeNext only follows local paths after login.
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.Contains(next, "\\") {
		return ""
	}
	return next
}
