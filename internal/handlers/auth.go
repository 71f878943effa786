package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/example/kabirclub/internal/config"
	"github.com/example/kabirclub/internal/middleware"
	"github.com/example/kabirclub/internal/models"
	"github.com/example/kabirclub/internal/services"
	"github.com/example/kabirclub/internal/utils"
)

// AuthHandler bundles dependencies for authentication endpoints.
type AuthHandler struct {
	users *services.UserService
	cfg   *config.Config
	log   *zap.Logger
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(users *services.UserService, cfg *config.Config, log *zap.Logger) *AuthHandler {
	return &AuthHandler{users: users, cfg: cfg, log: log}
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"fullName"`
	Phone    string `json:"phone"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userView struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"fullName"`
	Phone    string `json:"phone,omitempty"`
	IsAdmin  bool   `json:"isAdmin"`
}

func renderUser(u *models.User) userView {
	return userView{
		ID:       u.ID.String(),
		Email:    u.Email,
		FullName: u.FullName,
		Phone:    u.Phone,
		IsAdmin:  u.IsAdmin,
	}
}

// Register creates a new user account.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := decodeStrict(registerSchema, c.Body(), &req); err != nil {
		return domainError(h.log, c, err)
	}

	user, err := h.users.Register(c.UserContext(), services.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
		Phone:    req.Phone,
	})
	if err != nil {
		return domainError(h.log, c, err)
	}

	return h.respondWithToken(c, fiber.StatusCreated, user)
}

// Login authenticates an existing user.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := decodeStrict(loginSchema, c.Body(), &req); err != nil {
		return domainError(h.log, c, err)
	}

	user, err := h.users.Authenticate(c.UserContext(), req.Email, req.Password)
	if errors.Is(err, services.ErrInvalidCredentials) {
		return fiber.NewError(fiber.StatusUnauthorized, "invalid credentials")
	}
	if err != nil {
		return domainError(h.log, c, err)
	}

	return h.respondWithToken(c, fiber.StatusOK, user)
}

// Me returns the signed-in user.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.ErrUnauthorized
	}

	user, err := h.users.GetUser(c.UserContext(), userID)
	if err != nil {
		return domainError(h.log, c, err)
	}

	return c.JSON(fiber.Map{"success": true, "data": renderUser(user)})
}

func (h *AuthHandler) respondWithToken(c *fiber.Ctx, status int, user *models.User) error {
	token, err := utils.GenerateToken(h.cfg.JWTSecret, user.ID, user.Email, user.IsAdmin, h.cfg.TokenExpires)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to generate token")
	}

	return c.Status(status).JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"user":  renderUser(user),
			"token": token,
		},
	})
}
