package middleware

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/example/kabirclub/internal/config"
	"github.com/example/kabirclub/internal/utils"
)

const authContextKey = "authSession"

type authCtxKey struct{}

// AuthSession is the signed-in identity of a request.
type AuthSession struct {
	UserID  uuid.UUID
	Email   string
	IsAdmin bool
}

// WithAuthSession returns a copy of ctx carrying the session.
func WithAuthSession(ctx context.Context, session AuthSession) context.Context {
	return context.WithValue(ctx, authCtxKey{}, session)
}

// AuthSessionFromContext extracts the session stored by WithAuthSession.
func AuthSessionFromContext(ctx context.Context) (AuthSession, bool) {
	session, ok := ctx.Value(authCtxKey{}).(AuthSession)
	return session, ok
}

// AuthMiddleware validates JWT tokens and stores the AuthSession on the request.
func AuthMiddleware(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing authorization header")
		}

		session, err := parseBearer(cfg, authHeader)
		if err != nil {
			return err
		}

		attach(c, session)
		return c.Next()
	}
}

// OptionalAuth attaches the AuthSession when a valid bearer token is present
// and lets anonymous requests through unchanged.
func OptionalAuth(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if authHeader := c.Get("Authorization"); authHeader != "" {
			if session, err := parseBearer(cfg, authHeader); err == nil {
				attach(c, session)
			}
		}
		return c.Next()
	}
}

// AdminOnly rejects requests whose AuthSession is not an admin. It must run
// after AuthMiddleware.
func AdminOnly() fiber.Handler {
	return func(c *fiber.Ctx) error {
		session, ok := CurrentAuth(c)
		if !ok {
			return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
		}
		if !session.IsAdmin {
			return fiber.NewError(fiber.StatusForbidden, "admin access required")
		}
		return c.Next()
	}
}

func parseBearer(cfg *config.Config, header string) (AuthSession, error) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return AuthSession{}, fiber.NewError(fiber.StatusUnauthorized, "invalid authorization header")
	}

	claims, err := utils.ParseToken(cfg.JWTSecret, strings.TrimSpace(parts[1]))
	if err != nil {
		return AuthSession{}, fiber.NewError(fiber.StatusUnauthorized, "invalid token")
	}

	return AuthSession{
		UserID:  uuid.MustParse(claims.UserID),
		Email:   claims.Email,
		IsAdmin: claims.IsAdmin,
	}, nil
}

func attach(c *fiber.Ctx, session AuthSession) {
	c.Locals(authContextKey, session)
	c.SetUserContext(WithAuthSession(c.UserContext(), session))
}

// CurrentAuth returns the AuthSession of the request, if any.
func CurrentAuth(c *fiber.Ctx) (AuthSession, bool) {
	session, ok := c.Locals(authContextKey).(AuthSession)
	return session, ok
}

// GetCurrentUserID extracts the authenticated user ID from context.
func GetCurrentUserID(c *fiber.Ctx) (uuid.UUID, bool) {
	session, ok := CurrentAuth(c)
	if !ok {
		return uuid.Nil, false
	}
	return session.UserID, true
}

// CurrentUserIDPtr is GetCurrentUserID shaped for optional foreign keys.
func CurrentUserIDPtr(c *fiber.Ctx) *uuid.UUID {
	if id, ok := GetCurrentUserID(c); ok {
		return &id
	}
	return nil
}
