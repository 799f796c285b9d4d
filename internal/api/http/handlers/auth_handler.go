package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/corvid-labs/auth-service/internal/api/dto"
	"github.com/corvid-labs/auth-service/internal/auth"
	"github.com/corvid-labs/auth-service/internal/service"
	apperrors "github.com/corvid-labs/auth-service/pkg/util/errorutil"
)

// AuthHandler exposes registration and login endpoints.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: authService}
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewBadRequest("invalid JSON payload")
	}

	user, err := h.auth.Register(c.UserContext(), service.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		return err
	}

	return c.Status(http.StatusCreated).JSON(dto.Envelope{
		Success: true,
		Message: "User registered successfully",
		Data:    user,
	})
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewBadRequest("invalid JSON payload")
	}

	res, err := h.auth.Login(c.UserContext(), service.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return err
	}

	return c.JSON(dto.Envelope{
		Success: true,
		Message: "Login successful",
		Data: dto.LoginResponse{
			AccessToken:          res.Tokens.AccessToken,
			AccessTokenExpiresAt: res.Tokens.AccessTokenExpiresAt,
			RefreshToken:         res.Tokens.RefreshToken,
			User:                 res.User,
		},
	})
}

// Me handles GET /auth/me using only the verified access token.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	claims, ok := auth.ClaimsFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("invalid token")
	}

	resp := dto.MeResponse{
		UserID: claims.UserID,
		Email:  claims.Email,
		Role:   claims.Role,
	}
	if claims.ExpiresAt != nil {
		resp.ExpiresAt = claims.ExpiresAt.Time
	}
	return c.JSON(dto.Envelope{Success: true, Message: "Success", Data: resp})
}
