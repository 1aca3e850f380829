package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/glowcart/api/internal/platform/httpx"
	"github.com/glowcart/api/internal/services"
)

const (
	otpSendRateLimit  = 5
	otpSendRateWindow = 10 * time.Minute
)

// AuthHandlers serves the passwordless login and password reset flows.
type AuthHandlers struct {
	otp     services.OTPService
	limiter rateLimiter
	logger  func(ctx context.Context, event string, fields map[string]any)
}

// AuthOption customises auth handler construction.
type AuthOption func(*AuthHandlers)

// WithAuthOTPService wires the OTP service.
func WithAuthOTPService(otp services.OTPService) AuthOption {
	return func(h *AuthHandlers) { h.otp = otp }
}

// WithAuthRateLimiter overrides the per-target send limiter.
func WithAuthRateLimiter(limiter rateLimiter) AuthOption {
	return func(h *AuthHandlers) { h.limiter = limiter }
}

// WithAuthSendLimit rebuilds the send limiter with a per-minute allowance,
// typically sourced from configuration. Non-positive values keep the default.
func WithAuthSendLimit(perMinute int) AuthOption {
	return func(h *AuthHandlers) {
		if perMinute > 0 {
			h.limiter = newWindowLimiter(perMinute, time.Minute, nil)
		}
	}
}

// WithAuthLogger wires the structured logging closure.
func WithAuthLogger(logger func(ctx context.Context, event string, fields map[string]any)) AuthOption {
	return func(h *AuthHandlers) { h.logger = logger }
}

// NewAuthHandlers constructs the auth flow handlers.
func NewAuthHandlers(opts ...AuthOption) *AuthHandlers {
	h := &AuthHandlers{
		limiter: newWindowLimiter(otpSendRateLimit, otpSendRateWindow, nil),
		logger:  func(context.Context, string, map[string]any) {},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Routes registers the auth endpoints.
func (h *AuthHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/send-login-otp", h.sendLoginOTP)
	r.Post("/verify-login-otp", h.verifyLoginOTP)
	r.Post("/forgot-password", h.forgotPassword)
	r.Post("/verify-reset-otp", h.verifyResetOTP)
	r.Post("/reset-password", h.resetPassword)
}

type sendOTPRequest struct {
	Email string `json:"email"`
}

type verifyOTPRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type resetPasswordRequest struct {
	Email       string `json:"email"`
	ResetToken  string `json:"reset_token"`
	NewPassword string `json:"new_password"`
}

type sessionResponse struct {
	Token     string      `json:"token"`
	ExpiresAt string      `json:"expires_at"`
	User      userPayload `json:"user"`
}

type userPayload struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name,omitempty"`
	Phone     string `json:"phone,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

func buildUserPayload(user services.User) userPayload {
	payload := userPayload{
		ID:    user.ID,
		Email: user.Email,
		Name:  user.Name,
		Phone: user.Phone,
	}
	if !user.CreatedAt.IsZero() {
		payload.CreatedAt = formatTime(user.CreatedAt)
	}
	return payload
}

func (h *AuthHandlers) sendLoginOTP(w http.ResponseWriter, r *http.Request) {
	h.sendOTP(w, r, "login", func(ctx context.Context, cmd services.SendOTPCommand) error {
		return h.otp.SendLoginOTP(ctx, cmd)
	})
}

func (h *AuthHandlers) forgotPassword(w http.ResponseWriter, r *http.Request) {
	h.sendOTP(w, r, "password_reset", func(ctx context.Context, cmd services.SendOTPCommand) error {
		return h.otp.SendPasswordResetOTP(ctx, cmd)
	})
}

// sendOTP always answers 202 for unknown accounts so the endpoint does not
// leak which addresses are registered.
func (h *AuthHandlers) sendOTP(w http.ResponseWriter, r *http.Request, purpose string, send func(ctx context.Context, cmd services.SendOTPCommand) error) {
	ctx := r.Context()
	if h.otp == nil {
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeUnavailable, "authentication is unavailable", http.StatusServiceUnavailable))
		return
	}

	var req sendOTPRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeBodyError(w, r, err)
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeInvalidRequest, "email is required", http.StatusBadRequest))
		return
	}

	if h.limiter != nil && !h.limiter.Allow(purpose+":"+email) {
		writeRateLimited(w, r)
		return
	}

	if err := send(ctx, services.SendOTPCommand{Email: email}); err != nil {
		switch {
		case errors.Is(err, services.ErrOTPInvalidInput):
			httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeInvalidRequest, err.Error(), http.StatusBadRequest))
			return
		case errors.Is(err, services.ErrUserNotFound):
			// fall through to the generic response
		case errors.Is(err, services.ErrOTPUnavailable):
			httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeUnavailable, "authentication is unavailable", http.StatusServiceUnavailable))
			return
		default:
			h.logger(ctx, "auth.otp_send_failed", map[string]any{
				"purpose": purpose,
				"error":   err.Error(),
			})
			httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeInternal, "failed to send code", http.StatusInternalServerError))
			return
		}
	}

	writeJSONResponse(w, http.StatusAccepted, map[string]any{"status": "sent"})
}

func (h *AuthHandlers) verifyLoginOTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.otp == nil {
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeUnavailable, "authentication is unavailable", http.StatusServiceUnavailable))
		return
	}

	var req verifyOTPRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeBodyError(w, r, err)
		return
	}

	session, err := h.otp.VerifyLoginOTP(ctx, services.VerifyOTPCommand{
		Email: strings.ToLower(strings.TrimSpace(req.Email)),
		Code:  strings.TrimSpace(req.Code),
	})
	if err != nil {
		h.writeVerifyError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, sessionResponse{
		Token:     session.Token,
		ExpiresAt: formatTime(session.ExpiresAt),
		User:      buildUserPayload(session.User),
	})
}

func (h *AuthHandlers) verifyResetOTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.otp == nil {
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeUnavailable, "authentication is unavailable", http.StatusServiceUnavailable))
		return
	}

	var req verifyOTPRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeBodyError(w, r, err)
		return
	}

	ticket, err := h.otp.VerifyPasswordResetOTP(ctx, services.VerifyOTPCommand{
		Email: strings.ToLower(strings.TrimSpace(req.Email)),
		Code:  strings.TrimSpace(req.Code),
	})
	if err != nil {
		h.writeVerifyError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, map[string]any{
		"reset_token": ticket.Token,
		"expires_at":  formatTime(ticket.ExpiresAt),
	})
}

func (h *AuthHandlers) resetPassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.otp == nil {
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeUnavailable, "authentication is unavailable", http.StatusServiceUnavailable))
		return
	}

	var req resetPasswordRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeBodyError(w, r, err)
		return
	}

	err := h.otp.ResetPassword(ctx, services.ResetPasswordCommand{
		Email:       strings.ToLower(strings.TrimSpace(req.Email)),
		ResetToken:  strings.TrimSpace(req.ResetToken),
		NewPassword: req.NewPassword,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrOTPInvalidInput):
			httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeInvalidRequest, err.Error(), http.StatusBadRequest))
		case errors.Is(err, services.ErrResetTokenInvalid):
			httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeOTPInvalid, "reset token is invalid or expired", http.StatusUnauthorized))
		case errors.Is(err, services.ErrOTPUnavailable):
			httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeUnavailable, "authentication is unavailable", http.StatusServiceUnavailable))
		default:
			httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeInternal, "failed to reset password", http.StatusInternalServerError))
		}
		return
	}

	writeJSONResponse(w, http.StatusOK, map[string]any{"status": "password_updated"})
}

func (h *AuthHandlers) writeVerifyError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrOTPInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeInvalidRequest, err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrOTPExpired):
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeOTPExpired, "code has expired", http.StatusUnauthorized))
	case errors.Is(err, services.ErrOTPTooManyAttempts):
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeOTPMaxAttempts, "too many attempts", http.StatusTooManyRequests))
	case errors.Is(err, services.ErrOTPInvalid), errors.Is(err, services.ErrUserNotFound):
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeOTPInvalid, "code is invalid", http.StatusUnauthorized))
	case errors.Is(err, services.ErrOTPUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeUnavailable, "authentication is unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeInternal, "failed to verify code", http.StatusInternalServerError))
	}
}
