package middleware

import (
	"net/http"
	"regexp"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	// SessionCookie is the cookie that carries the browser session identifier.
	SessionCookie = "news_sid"
	// HeaderSessionID lets non-browser clients pick their session explicitly.
	HeaderSessionID = "X-Session-ID"

	sessionIDKey = "sessionID"
)

var sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9._~\-]{8,128}$`)

// SessionOptions configures the session cookie issued by Session.
type SessionOptions struct {
	// MaxAge is the cookie lifetime. Values <= 0 default to 24h.
	MaxAge time.Duration
	// Path scopes the cookie. Empty means "/".
	Path string
	// Secure marks the cookie HTTPS-only.
	Secure bool
}

// Session resolves the caller's session identifier and stores it in the Gin
// context under "sessionID".
//
// Resolution order: X-Session-ID header, then the news_sid cookie. Values that
// do not look like an opaque token are ignored. When nothing usable is found a
// new UUID is issued and set as an HttpOnly cookie. The request-scoped logger
// in the request context gains a session_id field.
func Session(opts SessionOptions) gin.HandlerFunc {
	maxAge := opts.MaxAge
	if maxAge <= 0 {
		maxAge = 24 * time.Hour
	}
	path := opts.Path
	if path == "" {
		path = "/"
	}

	return func(c *gin.Context) {
		sid := c.GetHeader(HeaderSessionID)
		if !sessionIDPattern.MatchString(sid) {
			sid = ""
			if v, err := c.Cookie(SessionCookie); err == nil && sessionIDPattern.MatchString(v) {
				sid = v
			}
		}
		if sid == "" {
			sid = uuid.NewString()
			http.SetCookie(c.Writer, &http.Cookie{
				Name:     SessionCookie,
				Value:    sid,
				Path:     path,
				MaxAge:   int(maxAge.Seconds()),
				HttpOnly: true,
				Secure:   opts.Secure,
				SameSite: http.SameSiteLaxMode,
			})
		}
		c.Set(sessionIDKey, sid)

		ctx := c.Request.Context()
		l := zerolog.Ctx(ctx).With().Str("session_id", sid).Logger()
		c.Request = c.Request.WithContext(l.WithContext(ctx))

		c.Next()
	}
}

// SessionIDFrom returns the identifier stored by Session, or "" when the
// middleware did not run.
func SessionIDFrom(c *gin.Context) string {
	if v, ok := c.Get(sessionIDKey); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
