package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/glowcart/api/internal/platform/httpx"
	"github.com/glowcart/api/internal/services"
)

type stubOTPService struct {
	sendLoginFunc     func(ctx context.Context, cmd services.SendOTPCommand) error
	verifyLoginFunc   func(ctx context.Context, cmd services.VerifyOTPCommand) (services.SessionResult, error)
	sendResetFunc     func(ctx context.Context, cmd services.SendOTPCommand) error
	verifyResetFunc   func(ctx context.Context, cmd services.VerifyOTPCommand) (services.ResetTicket, error)
	resetPasswordFunc func(ctx context.Context, cmd services.ResetPasswordCommand) error
}

func (s *stubOTPService) SendLoginOTP(ctx context.Context, cmd services.SendOTPCommand) error {
	return s.sendLoginFunc(ctx, cmd)
}

func (s *stubOTPService) VerifyLoginOTP(ctx context.Context, cmd services.VerifyOTPCommand) (services.SessionResult, error) {
	return s.verifyLoginFunc(ctx, cmd)
}

func (s *stubOTPService) SendPasswordResetOTP(ctx context.Context, cmd services.SendOTPCommand) error {
	return s.sendResetFunc(ctx, cmd)
}

func (s *stubOTPService) VerifyPasswordResetOTP(ctx context.Context, cmd services.VerifyOTPCommand) (services.ResetTicket, error) {
	return s.verifyResetFunc(ctx, cmd)
}

func (s *stubOTPService) ResetPassword(ctx context.Context, cmd services.ResetPasswordCommand) error {
	return s.resetPasswordFunc(ctx, cmd)
}

func newAuthRouter(otp services.OTPService, opts ...AuthOption) chi.Router {
	router := chi.NewRouter()
	NewAuthHandlers(append([]AuthOption{WithAuthOTPService(otp)}, opts...)...).Routes(router)
	return router
}

func TestAuthHandlersSendLoginOTP(t *testing.T) {
	var got services.SendOTPCommand
	otp := &stubOTPService{
		sendLoginFunc: func(ctx context.Context, cmd services.SendOTPCommand) error {
			got = cmd
			return nil
		},
	}
	router := newAuthRouter(otp)

	body := bytes.NewBufferString(`{"email":"  Shopper@Example.com "}`)
	req := httptest.NewRequest(http.MethodPost, "/send-login-otp", body)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusAccepted {
		t.Fatalf("expected status 202, got %d: %s", rr.Code, rr.Body.String())
	}
	if got.Email != "shopper@example.com" {
		t.Fatalf("expected normalised email, got %q", got.Email)
	}
}

func TestAuthHandlersSendLoginOTPUnknownAccount(t *testing.T) {
	otp := &stubOTPService{
		sendLoginFunc: func(ctx context.Context, cmd services.SendOTPCommand) error {
			return services.ErrUserNotFound
		},
	}
	router := newAuthRouter(otp)

	body := bytes.NewBufferString(`{"email":"ghost@example.com"}`)
	req := httptest.NewRequest(http.MethodPost, "/send-login-otp", body)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusAccepted {
		t.Fatalf("expected status 202 for unknown account, got %d", rr.Code)
	}

	var resp map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["status"] != "sent" {
		t.Fatalf("expected generic sent status, got %v", resp["status"])
	}
}

func TestAuthHandlersSendLoginOTPRateLimited(t *testing.T) {
	otp := &stubOTPService{
		sendLoginFunc: func(ctx context.Context, cmd services.SendOTPCommand) error { return nil },
	}
	clock := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	limiter := newWindowLimiter(1, 10*time.Minute, func() time.Time { return clock })
	router := newAuthRouter(otp, WithAuthRateLimiter(limiter))

	for i, want := range []int{http.StatusAccepted, http.StatusTooManyRequests} {
		body := bytes.NewBufferString(`{"email":"shopper@example.com"}`)
		req := httptest.NewRequest(http.MethodPost, "/send-login-otp", body)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		if rr.Code != want {
			t.Fatalf("request %d: expected status %d, got %d", i, want, rr.Code)
		}
	}
}

func TestAuthHandlersSendLimitFromConfig(t *testing.T) {
	otp := &stubOTPService{
		sendLoginFunc: func(ctx context.Context, cmd services.SendOTPCommand) error { return nil },
	}
	router := newAuthRouter(otp, WithAuthSendLimit(1))

	for i, want := range []int{http.StatusAccepted, http.StatusTooManyRequests} {
		body := bytes.NewBufferString(`{"email":"shopper@example.com"}`)
		req := httptest.NewRequest(http.MethodPost, "/send-login-otp", body)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		if rr.Code != want {
			t.Fatalf("request %d: expected status %d, got %d", i, want, rr.Code)
		}
	}
}

func TestAuthHandlersVerifyLoginOTPSuccess(t *testing.T) {
	expires := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	otp := &stubOTPService{
		verifyLoginFunc: func(ctx context.Context, cmd services.VerifyOTPCommand) (services.SessionResult, error) {
			if cmd.Email != "shopper@example.com" || cmd.Code != "123456" {
				t.Fatalf("unexpected command: %+v", cmd)
			}
			return services.SessionResult{
				Token:     "session-token",
				ExpiresAt: expires,
				User:      services.User{ID: "user-1", Email: cmd.Email, Name: "Shopper"},
			}, nil
		},
	}
	router := newAuthRouter(otp)

	body := bytes.NewBufferString(`{"email":"shopper@example.com","code":"123456"}`)
	req := httptest.NewRequest(http.MethodPost, "/verify-login-otp", body)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp sessionResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Token != "session-token" || resp.User.ID != "user-1" {
		t.Fatalf("unexpected session response: %+v", resp)
	}
}

func TestAuthHandlersVerifyLoginOTPErrors(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{name: "invalid code", err: services.ErrOTPInvalid, wantStatus: http.StatusUnauthorized, wantCode: httpx.CodeOTPInvalid},
		{name: "expired code", err: services.ErrOTPExpired, wantStatus: http.StatusUnauthorized, wantCode: httpx.CodeOTPExpired},
		{name: "too many attempts", err: services.ErrOTPTooManyAttempts, wantStatus: http.StatusTooManyRequests, wantCode: httpx.CodeOTPMaxAttempts},
		{name: "unknown account", err: services.ErrUserNotFound, wantStatus: http.StatusUnauthorized, wantCode: httpx.CodeOTPInvalid},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			otp := &stubOTPService{
				verifyLoginFunc: func(ctx context.Context, cmd services.VerifyOTPCommand) (services.SessionResult, error) {
					return services.SessionResult{}, tc.err
				},
			}
			router := newAuthRouter(otp)

			body := bytes.NewBufferString(`{"email":"shopper@example.com","code":"000000"}`)
			req := httptest.NewRequest(http.MethodPost, "/verify-login-otp", body)
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			if rr.Code != tc.wantStatus {
				t.Fatalf("expected status %d, got %d", tc.wantStatus, rr.Code)
			}
			var resp map[string]any
			if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if resp["error"] != tc.wantCode {
				t.Fatalf("expected error code %q, got %v", tc.wantCode, resp["error"])
			}
		})
	}
}

func TestAuthHandlersVerifyResetOTP(t *testing.T) {
	expires := time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)
	otp := &stubOTPService{
		verifyResetFunc: func(ctx context.Context, cmd services.VerifyOTPCommand) (services.ResetTicket, error) {
			return services.ResetTicket{Token: "reset-token", ExpiresAt: expires}, nil
		},
	}
	router := newAuthRouter(otp)

	body := bytes.NewBufferString(`{"email":"shopper@example.com","code":"123456"}`)
	req := httptest.NewRequest(http.MethodPost, "/verify-reset-otp", body)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	var resp map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["reset_token"] != "reset-token" {
		t.Fatalf("expected reset token, got %v", resp["reset_token"])
	}
}

func TestAuthHandlersResetPasswordInvalidToken(t *testing.T) {
	otp := &stubOTPService{
		resetPasswordFunc: func(ctx context.Context, cmd services.ResetPasswordCommand) error {
			return services.ErrResetTokenInvalid
		},
	}
	router := newAuthRouter(otp)

	body := bytes.NewBufferString(`{"email":"shopper@example.com","reset_token":"stale","new_password":"correct horse"}`)
	req := httptest.NewRequest(http.MethodPost, "/reset-password", body)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rr.Code)
	}
}

func TestAuthHandlersResetPasswordSuccess(t *testing.T) {
	var got services.ResetPasswordCommand
	otp := &stubOTPService{
		resetPasswordFunc: func(ctx context.Context, cmd services.ResetPasswordCommand) error {
			got = cmd
			return nil
		},
	}
	router := newAuthRouter(otp)

	body := bytes.NewBufferString(`{"email":"shopper@example.com","reset_token":"fresh","new_password":"correct horse"}`)
	req := httptest.NewRequest(http.MethodPost, "/reset-password", body)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if got.ResetToken != "fresh" || got.NewPassword != "correct horse" {
		t.Fatalf("unexpected command: %+v", got)
	}
}
