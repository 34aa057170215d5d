package auth

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/tesserahq/trustgate/internal/domain/session"
	"github.com/tesserahq/trustgate/internal/domain/token"
	"github.com/tesserahq/trustgate/internal/utils"
)

const refreshCookieName = "refresh_token"

type Handler struct {
	authService AuthService
}

func NewHandler(s AuthService) *Handler {
	return &Handler{authService: s}
}

func metadata(c *fiber.Ctx) session.Metadata {
	return session.Metadata{
		UserAgent: c.Get("User-Agent"),
		IPAddress: c.IP(),
	}
}

func (h *Handler) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, "invalid_body", fiber.StatusBadRequest)
	}

	pair, err := h.authService.Login(c.UserContext(), req, metadata(c))
	if err != nil {
		return h.failureResponse(c, err)
	}

	h.setRefreshCookie(c, pair.RefreshToken)
	return utils.SuccessResponse(c, fiber.Map{
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
		"session_id":    pair.SessionID,
	}, "Login successful")
}

func (h *Handler) Refresh(c *fiber.Ctx) error {
	var req RefreshRequest
	if err := c.BodyParser(&req); err != nil && len(c.Body()) > 0 {
		return utils.ErrorResponse(c, "invalid_body", fiber.StatusBadRequest)
	}

	raw := req.RefreshToken
	if raw == "" {
		raw = c.Cookies(refreshCookieName)
	}
	if raw == "" {
		return utils.ErrorResponse(c, "missing_refresh_token", fiber.StatusBadRequest)
	}

	pair, err := h.authService.Refresh(c.UserContext(), raw, metadata(c))
	if err != nil {
		return h.failureResponse(c, err)
	}

	h.setRefreshCookie(c, pair.RefreshToken)
	return utils.SuccessResponse(c, fiber.Map{
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
		"session_id":    pair.SessionID,
	}, "Token refreshed")
}

func (h *Handler) Logout(c *fiber.Ctx) error {
	ident := GetIdentity(c)
	if ident == nil {
		return utils.ErrorResponse(c, "unauthorized", fiber.StatusUnauthorized)
	}

	if err := h.authService.Logout(c.UserContext(), ident); err != nil {
		return h.failureResponse(c, err)
	}

	h.clearRefreshCookie(c)
	return utils.SuccessResponse(c, nil, "Logged out")
}

func (h *Handler) ChangePassword(c *fiber.Ctx) error {
	ident := GetIdentity(c)
	if ident == nil {
		return utils.ErrorResponse(c, "unauthorized", fiber.StatusUnauthorized)
	}

	var req ChangePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, "invalid_body", fiber.StatusBadRequest)
	}

	if err := h.authService.ChangePassword(c.UserContext(), ident, req.CurrentPassword, req.NewPassword); err != nil {
		return h.failureResponse(c, err)
	}

	return utils.SuccessResponse(c, nil, "Password changed")
}

func (h *Handler) RevokeOtherSessions(c *fiber.Ctx) error {
	ident := GetIdentity(c)
	if ident == nil {
		return utils.ErrorResponse(c, "unauthorized", fiber.StatusUnauthorized)
	}

	if err := h.authService.RevokeOtherSessions(c.UserContext(), ident); err != nil {
		return h.failureResponse(c, err)
	}

	return utils.SuccessResponse(c, nil, "Other sessions revoked")
}

// failureResponse maps the error taxonomy onto HTTP outcomes. Credential and
// token failures stay generic so nothing leaks about which part was wrong.
func (h *Handler) failureResponse(c *fiber.Ctx, err error) error {
	var locked *LockedError
	switch {
	case errors.As(err, &locked):
		c.Set(fiber.HeaderRetryAfter, strconv.Itoa(locked.RetryAfterSeconds))
		return utils.ErrorResponse(c, "account_locked", fiber.StatusTooManyRequests)
	case errors.Is(err, ErrInvalidCredentials):
		return utils.ErrorResponse(c, "invalid_credentials", fiber.StatusUnauthorized)
	case errors.Is(err, ErrWeakPassword):
		return utils.ErrorResponse(c, "weak_password", fiber.StatusBadRequest)
	case errors.Is(err, token.ErrInvalidToken):
		return utils.ErrorResponse(c, "invalid_token", fiber.StatusUnauthorized)
	case errors.Is(err, session.ErrSessionExpired):
		return utils.ErrorResponse(c, "session_expired", fiber.StatusUnauthorized)
	case errors.Is(err, session.ErrSessionNotFound), errors.Is(err, session.ErrNotSessionOwner):
		return utils.ErrorResponse(c, "unauthorized", fiber.StatusUnauthorized)
	case errors.Is(err, session.ErrStoreUnavailable):
		return utils.ErrorResponse(c, "service_unavailable", fiber.StatusServiceUnavailable)
	default:
		return utils.ErrorResponse(c, "internal_error", fiber.StatusInternalServerError)
	}
}

func (h *Handler) setRefreshCookie(c *fiber.Ctx, refreshToken string) {
	c.Cookie(&fiber.Cookie{
		Name:     refreshCookieName,
		Value:    refreshToken,
		HTTPOnly: true,
		Secure:   true,
		Path:     "/",
		SameSite: "Strict",
		Expires:  time.Now().Add(30 * 24 * time.Hour),
	})
}

func (h *Handler) clearRefreshCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     refreshCookieName,
		Value:    "",
		HTTPOnly: true,
		Secure:   true,
		Path:     "/",
		SameSite: "Strict",
		Expires:  time.Now().Add(-time.Hour),
	})
}
