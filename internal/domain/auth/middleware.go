package auth

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/tesserahq/trustgate/internal/domain/token"
	"github.com/tesserahq/trustgate/internal/utils"
)

const (
	// IdentityKey is the key used to store the identity in Fiber context
	IdentityKey = "identity"
)

// RevocationChecker answers whether a session has been revoked since its
// access token was issued. A nil checker skips the lookup.
type RevocationChecker interface {
	IsSessionRevoked(ctx context.Context, sessionID string) (bool, error)
}

// AuthMiddleware verifies the access token and attaches the caller identity
func AuthMiddleware(codec *token.Codec, revocations RevocationChecker) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return utils.ErrorResponse(c, "missing_authorization_header", fiber.StatusUnauthorized)
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			return utils.ErrorResponse(c, "invalid_authorization_header", fiber.StatusUnauthorized)
		}

		claims, err := codec.Verify(parts[1], token.KindAccess)
		if err != nil {
			return utils.ErrorResponse(c, "invalid_token", fiber.StatusUnauthorized)
		}

		userID, err := uuid.Parse(claims.UserID)
		if err != nil {
			return utils.ErrorResponse(c, "invalid_token", fiber.StatusUnauthorized)
		}
		orgID, err := uuid.Parse(claims.OrgID)
		if err != nil {
			return utils.ErrorResponse(c, "invalid_token", fiber.StatusUnauthorized)
		}
		sessionID, err := uuid.Parse(claims.SessionID)
		if err != nil {
			return utils.ErrorResponse(c, "invalid_token", fiber.StatusUnauthorized)
		}

		if revocations != nil {
			revoked, err := revocations.IsSessionRevoked(c.UserContext(), claims.SessionID)
			if err != nil {
				return utils.ErrorResponse(c, "service_unavailable", fiber.StatusServiceUnavailable)
			}
			if revoked {
				return utils.ErrorResponse(c, "session_revoked", fiber.StatusUnauthorized)
			}
		}

		c.Locals(IdentityKey, &Identity{
			UserID:    userID,
			OrgID:     orgID,
			SessionID: sessionID,
			Role:      claims.Role,
		})

		return c.Next()
	}
}

// GetIdentity extracts the identity from Fiber context
func GetIdentity(c *fiber.Ctx) *Identity {
	identity, ok := c.Locals(IdentityKey).(*Identity)
	if !ok {
		return nil
	}
	return identity
}
