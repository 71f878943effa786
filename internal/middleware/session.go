package middleware

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/example/kabirclub/internal/config"
)

const (
	sessionContextKey = "sessionID"

	// SessionHeader lets non-browser clients pass the cart session explicitly.
	SessionHeader = "X-Session-ID"

	maxSessionIDLength = 128
)

// Session resolves the anonymous cart session of a request. The id comes from
// the X-Session-ID header, then the session cookie; when neither is present a
// new one is issued as a cookie.
func Session(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := strings.TrimSpace(c.Get(SessionHeader))
		if id == "" {
			id = strings.TrimSpace(c.Cookies(cfg.SessionCookieName))
		}

		if id == "" || len(id) > maxSessionIDLength {
			id = uuid.NewString()
			c.Cookie(&fiber.Cookie{
				Name:     cfg.SessionCookieName,
				Value:    id,
				Path:     "/",
				Expires:  time.Now().Add(cfg.SessionTTL),
				HTTPOnly: true,
				Secure:   !cfg.IsDevelopment(),
				SameSite: fiber.CookieSameSiteLaxMode,
			})
		}

		c.Locals(sessionContextKey, id)
		c.Set(SessionHeader, id)
		return c.Next()
	}
}

// CurrentSessionID returns the session id resolved by Session.
func CurrentSessionID(c *fiber.Ctx) string {
	id, _ := c.Locals(sessionContextKey).(string)
	return id
}
