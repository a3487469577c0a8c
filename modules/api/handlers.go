package api

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/example/ai-support-chat/domain/job"
	domain "github.com/example/ai-support-chat/domain/user"
	"github.com/example/ai-support-chat/modules/auth"
	"github.com/gofiber/fiber/v2"
)

// JobLookup reads retained jobs.
type JobLookup interface {
	Job(id string) (*job.Job, error)
}

// Handlers contains HTTP handlers for the API.
type Handlers struct {
	authAdapter auth.AuthPort
	jobs        JobLookup
	logger      *slog.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(authAdapter auth.AuthPort, jobs JobLookup, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		authAdapter: authAdapter,
		jobs:        jobs,
		logger:      logger,
	}
}

// Register handles user registration.
func (h *Handlers) Register(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	if req.Username == "" || req.Email == "" || req.Password == "" {
		return badRequest(c, "Username, email and password are required")
	}

	user, tokens, err := h.authAdapter.Register(c.UserContext(), auth.RegisterRequest{
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		Password2: req.Password2,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		return h.handleAuthError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(RegisterResponse{
		Message:  "Profile created successfully",
		Username: user.Username,
		Email:    user.Email,
		Refresh:  tokens.RefreshToken,
		Access:   tokens.AccessToken,
	})
}

// Login handles user login.
func (h *Handlers) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	if req.Username == "" || req.Password == "" {
		return badRequest(c, "Username and password are required")
	}

	tokens, err := h.authAdapter.Login(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return h.handleAuthError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(LoginResponse{
		Message: "Login successful",
		Refresh: tokens.RefreshToken,
		Access:  tokens.AccessToken,
	})
}

// Logout revokes the session of the posted refresh token.
func (h *Handlers) Logout(c *fiber.Ctx) error {
	var req RefreshRequest
	if err := c.BodyParser(&req); err != nil || req.Refresh == "" {
		return badRequest(c, "Invalid or expired token")
	}

	if err := h.authAdapter.Logout(c.UserContext(), req.Refresh); err != nil {
		if isTokenError(err) {
			return badRequest(c, "Invalid or expired token")
		}
		return h.handleAuthError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(MessageResponse{Message: "Logout successful"})
}

// ObtainToken exchanges credentials for a bare token pair.
func (h *Handlers) ObtainToken(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	if req.Username == "" || req.Password == "" {
		return badRequest(c, "Username and password are required")
	}

	tokens, err := h.authAdapter.Login(c.UserContext(), req.Username, req.Password)
	if err != nil {
		if strings.Contains(err.Error(), auth.ErrInvalidCredentials.Error()) {
			return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
				Error:   "unauthorized",
				Message: "No active account found with the given credentials",
			})
		}
		return h.handleAuthError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(TokenPairResponse{
		Access:  tokens.AccessToken,
		Refresh: tokens.RefreshToken,
	})
}

// RefreshToken rotates a refresh token.
func (h *Handlers) RefreshToken(c *fiber.Ctx) error {
	var req RefreshRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	if req.Refresh == "" {
		return badRequest(c, "Refresh token is required")
	}

	tokens, err := h.authAdapter.RefreshTokens(c.UserContext(), req.Refresh)
	if err != nil {
		if !isTokenError(err) {
			h.logger.Warn("Token refresh failed", "error", err)
		}
		return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
			Error:   "unauthorized",
			Message: "Invalid or expired refresh token",
		})
	}

	return c.Status(fiber.StatusOK).JSON(TokenPairResponse{
		Access:  tokens.AccessToken,
		Refresh: tokens.RefreshToken,
	})
}

// GetUser returns a user profile.
func (h *Handlers) GetUser(c *fiber.Ctx) error {
	user, err := h.authAdapter.GetUser(c.UserContext(), c.Params("id"))
	if err != nil {
		return h.handleAuthError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(toUserResponse(user))
}

// UpdateUser applies a partial update to the caller's own profile.
func (h *Handlers) UpdateUser(c *fiber.Ctx) error {
	claims, ok := claimsFrom(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
			Error:   "unauthorized",
			Message: "User not authenticated",
		})
	}

	var req UpdateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	user, err := h.authAdapter.UpdateUser(c.UserContext(), claims.UserID, c.Params("id"), domain.ProfileUpdate{
		Username:  req.Username,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		return h.handleAuthError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(toUserResponse(user))
}

// GetJob reports the state of a chat completion job.
func (h *Handlers) GetJob(c *fiber.Ctx) error {
	j, err := h.jobs.Job(c.Params("id"))
	if err != nil {
		if errors.Is(err, job.ErrJobNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{
				Error:   "not_found",
				Message: "Job not found",
			})
		}
		return err
	}

	return c.Status(fiber.StatusOK).JSON(JobResponse{
		ID:          j.ID,
		Status:      j.Status,
		Result:      j.Result,
		Error:       j.Error,
		CreatedAt:   j.CreatedAt,
		CompletedAt: j.CompletedAt,
	})
}

// authErrors maps auth service failures, which arrive as strings over the
// service bus, to HTTP responses.
var authErrors = []struct {
	match   error
	status  int
	code    string
	message string
}{
	{auth.ErrInvalidCredentials, fiber.StatusBadRequest, "bad_request", "Invalid username or password"},
	{auth.ErrUserExists, fiber.StatusBadRequest, "bad_request", "User with this username or email already exists"},
	{auth.ErrInvalidEmail, fiber.StatusBadRequest, "bad_request", "Invalid email format"},
	{auth.ErrInvalidUsername, fiber.StatusBadRequest, "bad_request", "Username must be 3-150 characters: letters, digits and @.+-_"},
	{auth.ErrWeakPassword, fiber.StatusBadRequest, "bad_request", "Password must be at least 8 characters"},
	{auth.ErrPasswordTooLong, fiber.StatusBadRequest, "bad_request", "Password must be at most 72 characters"},
	{auth.ErrPasswordMismatch, fiber.StatusBadRequest, "bad_request", "Passwords do not match"},
	{auth.ErrEmptyUpdate, fiber.StatusBadRequest, "bad_request", "No fields to update"},
	{auth.ErrUserNotFound, fiber.StatusNotFound, "not_found", "User not found"},
	{auth.ErrForbidden, fiber.StatusForbidden, "forbidden", "You do not have permission"},
}

// handleAuthError handles authentication errors and returns appropriate responses.
// It matches error messages to provide user-friendly responses without exposing internals.
func (h *Handlers) handleAuthError(c *fiber.Ctx, err error) error {
	errStr := err.Error()
	for _, e := range authErrors {
		if strings.Contains(errStr, e.match.Error()) {
			return c.Status(e.status).JSON(ErrorResponse{
				Error:   e.code,
				Message: e.message,
			})
		}
	}

	h.logger.Error("Internal error", "error", err)
	return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
		Error:   "internal_error",
		Message: "An internal error occurred",
	})
}

// isTokenError reports whether err is a rejected token rather than an
// internal failure.
func isTokenError(err error) bool {
	errStr := err.Error()
	for _, target := range []error{auth.ErrInvalidToken, auth.ErrExpiredToken, auth.ErrRevokedToken} {
		if strings.Contains(errStr, target.Error()) {
			return true
		}
	}
	return false
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
		Error:   "bad_request",
		Message: message,
	})
}

func toUserResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		CreatedAt: u.CreatedAt,
	}
}
