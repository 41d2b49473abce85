package middleware

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/medipass/medipass/internal/auth"
	"github.com/medipass/medipass/internal/user"
)

const principalKey = "principal"

// Principal is the typed identity attached to authenticated requests,
// replacing any ad-hoc untyped request attachment.
type Principal struct {
	UserID     string
	MedipassID string
	FullName   string
	Role       user.Role
}

// JWTAuth validates Bearer access tokens, loads the account and stores a
// Principal in the request locals.
func JWTAuth(tokens *auth.TokenService, users user.Repository) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authz := c.Get(fiber.HeaderAuthorization)
		if !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			return fiber.NewError(http.StatusUnauthorized, "missing bearer token")
		}
		tokenStr := strings.TrimSpace(authz[len("Bearer "):])

		claims, err := tokens.VerifyAccess(tokenStr)
		if err != nil {
			return fiber.NewError(http.StatusUnauthorized, "invalid or expired token")
		}

		u, err := users.FindByID(c.UserContext(), claims.Subject)
		if err != nil {
			return fiber.NewError(http.StatusUnauthorized, "user not found")
		}

		c.Locals(principalKey, Principal{
			UserID:     u.ID,
			MedipassID: u.MedipassID,
			FullName:   u.FullName,
			Role:       u.Role,
		})
		return c.Next()
	}
}

// PrincipalFrom returns the Principal stored by JWTAuth.
func PrincipalFrom(c *fiber.Ctx) (Principal, bool) {
	p, ok := c.Locals(principalKey).(Principal)
	return p, ok
}

// RequireRole guards a route group to the listed roles.
func RequireRole(roles ...user.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, ok := PrincipalFrom(c)
		if !ok {
			return fiber.NewError(http.StatusUnauthorized, "not authenticated")
		}
		for _, role := range roles {
			if p.Role == role {
				return c.Next()
			}
		}
		return fiber.NewError(http.StatusForbidden, "not authorized")
	}
}
