package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/medipass/medipass/internal/auth"
)

// RegisterAuthRoutes wires the public authentication endpoints with their
// endpoint-specific rate limits.
func RegisterAuthRoutes(r fiber.Router, h *auth.Handler, authLimiter, otpLimiter fiber.Handler) {
	group := r.Group("/auth")
	group.Post("/register", authLimiter, h.Register)
	group.Post("/verify-otp", otpLimiter, h.VerifyOTP)
	group.Post("/login", authLimiter, h.Login)
	group.Post("/reset-password", authLimiter, h.ResetPassword)
	group.Post("/verify-reset-password", otpLimiter, h.VerifyResetPassword)
	group.Post("/refresh", h.Refresh)
}
