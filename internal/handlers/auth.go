package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/lulusspp/lulus-api/internal/auth"
	"github.com/lulusspp/lulus-api/internal/models"
	"github.com/lulusspp/lulus-api/internal/services"
	pkghttp "github.com/lulusspp/lulus-api/pkg/http"
)

// AuthServiceInterface defines the interface for admin auth business logic
type AuthServiceInterface interface {
	Login(ctx context.Context, in services.LoginInput) (*services.LoginResult, error)
	Session(ctx context.Context, token string) (*models.AdminCredential, error)
}

// AuthHandler handles the admin login, session check, and logout endpoints
type AuthHandler struct {
	service         AuthServiceInterface
	ipConfig        *pkghttp.IPConfig
	cookieConfig    auth.CookieConfig
	sessionLifetime time.Duration
	logger          *slog.Logger
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(
	service AuthServiceInterface,
	ipConfig *pkghttp.IPConfig,
	cookieConfig auth.CookieConfig,
	sessionLifetime time.Duration,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		service:         service,
		ipConfig:        ipConfig,
		cookieConfig:    cookieConfig,
		sessionLifetime: sessionLifetime,
		logger:          logger,
	}
}

// LoginRequest represents the request body for login
type LoginRequest struct {
	Username string `json:"username" validate:"required,min=1,max=64"`
	Password string `json:"password" validate:"required,min=1,max=200"`
}

// SessionResponse is returned by all three auth endpoints
type SessionResponse struct {
	Authenticated bool   `json:"authenticated"`
	Username      string `json:"username,omitempty"`
	RequestID     string `json:"requestId,omitempty"`
}

const (
	msgInvalidCredentials = "Invalid username or password."
	msgTooManyAttempts    = "Too many login attempts. Please try again later."
)

// Login handles POST /api/auth
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	requestID := pkghttp.RequestID(r)

	var req LoginRequest
	if err := DecodeJSON(r, &req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			pkghttp.WriteError(w, r, http.StatusRequestEntityTooLarge, "Request body too large.")
			return
		}
		pkghttp.WriteBadRequest(w, r, "Invalid JSON body.")
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, r, err.Error())
		return
	}

	result, err := h.service.Login(r.Context(), services.LoginInput{
		Username:  req.Username,
		Password:  req.Password,
		ClientIP:  pkghttp.ExtractClientIP(r, h.ipConfig),
		UserAgent: r.UserAgent(),
		RequestID: requestID,
	})
	if err != nil {
		h.writeLoginError(w, r, err)
		return
	}

	auth.SetSessionCookie(w, result.Token, h.sessionLifetime, h.cookieConfig)
	pkghttp.WriteJSON(w, http.StatusOK, SessionResponse{
		Authenticated: true,
		Username:      result.Username,
		RequestID:     requestID,
	})
}

func (h *AuthHandler) writeLoginError(w http.ResponseWriter, r *http.Request, err error) {
	var lockout *models.LockoutError
	switch {
	case errors.Is(err, models.ErrRateLimitExceeded) && errors.As(err, &lockout):
		pkghttp.WriteTooManyRequests(w, r, msgTooManyAttempts, lockout.RetryAfterSeconds())
	case errors.Is(err, models.ErrUnauthorized) && errors.As(err, &lockout):
		pkghttp.WriteJSON(w, http.StatusUnauthorized, pkghttp.ErrorResponse{
			Error:             msgInvalidCredentials,
			RequestID:         pkghttp.RequestID(r),
			RetryAfterSeconds: lockout.RetryAfterSeconds(),
		})
	case errors.Is(err, models.ErrUnauthorized):
		pkghttp.WriteUnauthorized(w, r, msgInvalidCredentials)
	default:
		h.logger.Error("login request failed",
			slog.String("request_id", pkghttp.RequestID(r)),
			slog.Any("error", err))
		pkghttp.WriteInternalError(w, r, "Unable to complete login request.")
	}
}

// Session handles GET /api/auth
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	requestID := pkghttp.RequestID(r)

	token, err := auth.GetSessionCookie(r)
	if err != nil || token == "" {
		pkghttp.WriteJSON(w, http.StatusUnauthorized, SessionResponse{RequestID: requestID})
		return
	}

	admin, err := h.service.Session(r.Context(), token)
	if errors.Is(err, models.ErrUnauthorized) {
		auth.ClearSessionCookie(w, h.cookieConfig)
		pkghttp.WriteJSON(w, http.StatusUnauthorized, SessionResponse{RequestID: requestID})
		return
	}
	if err != nil {
		h.logger.Error("session check failed",
			slog.String("request_id", requestID),
			slog.Any("error", err))
		pkghttp.WriteInternalError(w, r, "Unable to verify admin session.")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, SessionResponse{
		Authenticated: true,
		Username:      admin.Username,
		RequestID:     requestID,
	})
}

// Logout handles DELETE /api/auth. It always succeeds.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	auth.ClearSessionCookie(w, h.cookieConfig)
	pkghttp.WriteJSON(w, http.StatusOK, SessionResponse{RequestID: pkghttp.RequestID(r)})
}
