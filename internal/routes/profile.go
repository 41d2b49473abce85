package routes

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/medipass/medipass/internal/auth"
	"github.com/medipass/medipass/internal/middleware"
	"github.com/medipass/medipass/internal/user"
)

// RegisterProfileRoutes wires the authenticated account endpoints.
func RegisterProfileRoutes(r fiber.Router, authSvc *auth.Service, users user.Repository) {
	r.Get("/auth/me", func(c *fiber.Ctx) error {
		p, ok := middleware.PrincipalFrom(c)
		if !ok {
			return fiber.NewError(http.StatusUnauthorized, "not authenticated")
		}
		u, err := users.FindByID(c.UserContext(), p.UserID)
		if err != nil {
			return fiber.NewError(http.StatusUnauthorized, "user not found")
		}
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"medipassId":       u.MedipassID,
			"fullName":         u.FullName,
			"mobileNumber":     u.MobileNumber,
			"email":            u.Email,
			"dateOfBirth":      u.DateOfBirth.Format("2006-01-02"),
			"gender":           u.Gender,
			"bloodGroup":       u.BloodGroup,
			"emergencyContact": u.EmergencyContact,
			"role":             u.Role,
			"isMobileVerified": u.MobileVerified,
			"isEmailVerified":  u.EmailVerified,
			"lastLogin":        u.LastLogin,
			"createdAt":        u.CreatedAt,
		})
	})

	r.Post("/auth/logout", func(c *fiber.Ctx) error {
		p, ok := middleware.PrincipalFrom(c)
		if !ok {
			return fiber.NewError(http.StatusUnauthorized, "not authenticated")
		}
		if err := authSvc.Logout(c.UserContext(), p.UserID); err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
		return c.Status(http.StatusOK).JSON(fiber.Map{"message": "Logged out successfully"})
	})
}
