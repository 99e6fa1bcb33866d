package server

import (
	"strings"

	"forum/internal/auth"
	"forum/internal/middleware"
	"forum/internal/models"
	"forum/internal/policy"

	"github.com/gofiber/fiber/v2"
)

const (
	localPrincipal = "principal"
	localClaims    = "claims"
	localUserID    = "userID"
)

// AuthRequired validates the bearer token, loads the caller's current roles
// and stores the principal in locals.
func (s *Server) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString := bearerToken(c.Get(fiber.HeaderAuthorization))
		if tokenString == "" {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Authorization required"))
		}

		claims, err := s.authService.Authenticate(c.UserContext(), tokenString)
		if err != nil {
			return s.respondServiceError(c, err)
		}

		principal, _, err := s.authService.Principal(c.UserContext(), claims.Subject)
		if err != nil {
			return s.respondServiceError(c, err)
		}

		c.Locals(localPrincipal, principal)
		c.Locals(localClaims, claims)
		c.Locals(localUserID, principal.ID)
		c.SetUserContext(middleware.WithUserID(c.UserContext(), principal.ID))
		return c.Next()
	}
}

// RolesRequired rejects principals holding none of roles. It must run after AuthRequired.
func (s *Server) RolesRequired(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, ok := principalFrom(c)
		if !ok {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Authorization required"))
		}
		if !p.HasAnyRole(roles...) {
			return models.RespondWithError(c, fiber.StatusForbidden,
				models.NewForbiddenError("Insufficient role"))
		}
		return c.Next()
	}
}

func bearerToken(header string) string {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func principalFrom(c *fiber.Ctx) (policy.Principal, bool) {
	p, ok := c.Locals(localPrincipal).(policy.Principal)
	return p, ok
}

func claimsFrom(c *fiber.Ctx) (*auth.Claims, bool) {
	claims, ok := c.Locals(localClaims).(*auth.Claims)
	return claims, ok && claims != nil
}
