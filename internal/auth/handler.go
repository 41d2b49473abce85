package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/medipass/medipass/internal/user"
)

// Handler exposes the authentication endpoints.
type Handler struct {
	svc    *Service
	logger *slog.Logger
}

// NewHandler constructs the auth HTTP handler.
func NewHandler(svc *Service, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

type addressBody struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	Pincode string `json:"pincode"`
}

type registerRequest struct {
	FullName         string      `json:"fullName"`
	MobileNumber     string      `json:"mobileNumber"`
	Email            string      `json:"email"`
	Password         string      `json:"password"`
	PIN              string      `json:"pin"`
	DateOfBirth      string      `json:"dateOfBirth"`
	Gender           string      `json:"gender"`
	Address          addressBody `json:"address"`
	BloodGroup       string      `json:"bloodGroup"`
	EmergencyContact string      `json:"emergencyContact"`
}

// Register creates an unverified account and triggers OTP dispatch.
func (h *Handler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	medipassID, err := h.svc.Register(c.UserContext(), RegisterInput{
		FullName:         req.FullName,
		MobileNumber:     req.MobileNumber,
		Email:            req.Email,
		Password:         req.Password,
		PIN:              req.PIN,
		DateOfBirth:      req.DateOfBirth,
		Gender:           req.Gender,
		Address:          user.Address(req.Address),
		BloodGroup:       req.BloodGroup,
		EmergencyContact: req.EmergencyContact,
	})
	if err != nil {
		return h.fail(c, err)
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"message":    "Registration successful. Please verify your mobile number.",
		"medipassId": medipassID,
	})
}

type verifyOTPRequest struct {
	MedipassID string `json:"medipassId"`
	OTP        string `json:"otp"`
}

// VerifyOTP completes registration or login 2FA.
func (h *Handler) VerifyOTP(c *fiber.Ctx) error {
	var req verifyOTPRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	_, pair, err := h.svc.VerifyOTP(c.UserContext(), req.MedipassID, req.OTP)
	if err != nil {
		return h.fail(c, err)
	}

	return c.Status(http.StatusOK).JSON(fiber.Map{
		"message":      "Mobile number verified successfully",
		"accessToken":  pair.AccessToken,
		"refreshToken": pair.RefreshToken,
	})
}

type loginRequest struct {
	MobileNumber string `json:"mobileNumber"`
	Password     string `json:"password"`
}

// Login verifies the password and reports a pending OTP verification.
func (h *Handler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	result, err := h.svc.Login(c.UserContext(), req.MobileNumber, req.Password)
	if err != nil {
		return h.fail(c, err)
	}

	return c.Status(http.StatusOK).JSON(fiber.Map{
		"message":      "Please verify OTP to complete login",
		"medipassId":   result.MedipassID,
		"accessToken":  result.Pair.AccessToken,
		"refreshToken": result.Pair.RefreshToken,
	})
}

type resetPasswordRequest struct {
	MobileNumber string `json:"mobileNumber"`
}

// ResetPassword starts the password-reset flow by dispatching an OTP.
func (h *Handler) ResetPassword(c *fiber.Ctx) error {
	var req resetPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	medipassID, err := h.svc.ResetPasswordRequest(c.UserContext(), req.MobileNumber)
	if err != nil {
		return h.fail(c, err)
	}

	return c.Status(http.StatusOK).JSON(fiber.Map{
		"message":    "Password reset OTP sent",
		"medipassId": medipassID,
	})
}

type verifyResetPasswordRequest struct {
	MedipassID  string `json:"medipassId"`
	OTP         string `json:"otp"`
	NewPassword string `json:"newPassword"`
}

// VerifyResetPassword validates the reset OTP and stores the new password.
func (h *Handler) VerifyResetPassword(c *fiber.Ctx) error {
	var req verifyResetPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	if err := h.svc.ResetPasswordConfirm(c.UserContext(), req.MedipassID, req.OTP, req.NewPassword); err != nil {
		return h.fail(c, err)
	}

	return c.Status(http.StatusOK).JSON(fiber.Map{"message": "Password reset successful"})
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// Refresh issues a new access token for a valid refresh token.
func (h *Handler) Refresh(c *fiber.Ctx) error {
	var req refreshRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	access, expiresIn, err := h.svc.Refresh(c.UserContext(), req.RefreshToken)
	if err != nil {
		return h.fail(c, err)
	}

	return c.Status(http.StatusOK).JSON(fiber.Map{
		"accessToken": access,
		"expiresIn":   expiresIn,
	})
}

// fail translates domain errors into the documented HTTP responses.
// Anything unrecognized is logged and surfaced as a generic 500.
func (h *Handler) fail(c *fiber.Ctx, err error) error {
	var locked *LockedError
	if errors.As(err, &locked) {
		message := "Account is locked. Please try again later"
		if locked.Tripped {
			message = "Account locked due to too many failed attempts"
		}
		return c.Status(http.StatusUnauthorized).JSON(fiber.Map{
			"message":   message,
			"lockUntil": locked.Until,
		})
	}

	var creds *CredentialsError
	if errors.As(err, &creds) {
		return c.Status(http.StatusUnauthorized).JSON(fiber.Map{
			"message":           "Invalid credentials",
			"attemptsRemaining": creds.AttemptsRemaining,
		})
	}

	var invalid *ValidationError
	if errors.As(err, &invalid) {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"message": invalid.Msg})
	}

	switch {
	case errors.Is(err, ErrDuplicateUser):
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"message": "User already exists with this mobile number or email"})
	case errors.Is(err, ErrInvalidRequest):
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"message": "Invalid verification request"})
	case errors.Is(err, ErrInvalidReset):
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"message": "Invalid reset request"})
	case errors.Is(err, ErrTooManyAttempts):
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"message": "Too many attempts. Please request a new OTP"})
	case errors.Is(err, ErrOTPExpired):
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"message": "OTP has expired"})
	case errors.Is(err, ErrInvalidOTP):
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"message": "Invalid OTP"})
	case errors.Is(err, ErrInvalidCredentials):
		return c.Status(http.StatusUnauthorized).JSON(fiber.Map{"message": "Invalid credentials"})
	case errors.Is(err, ErrInvalidToken), errors.Is(err, ErrExpiredToken):
		return c.Status(http.StatusUnauthorized).JSON(fiber.Map{"message": "Invalid or expired token"})
	case errors.Is(err, ErrUserNotFound):
		return c.Status(http.StatusNotFound).JSON(fiber.Map{"message": "User not found"})
	}

	h.logger.Error("unexpected auth failure", "path", c.Path(), "error", err)
	return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"message": "Something went wrong!"})
}
