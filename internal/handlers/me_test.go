package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/glowcart/api/internal/platform/auth"
	"github.com/glowcart/api/internal/services"
)

type stubUserService struct {
	getProfileFunc    func(ctx context.Context, userID string) (services.User, error)
	updateProfileFunc func(ctx context.Context, cmd services.UpdateProfileCommand) (services.User, error)
}

func (s *stubUserService) GetProfile(ctx context.Context, userID string) (services.User, error) {
	return s.getProfileFunc(ctx, userID)
}

func (s *stubUserService) UpdateProfile(ctx context.Context, cmd services.UpdateProfileCommand) (services.User, error) {
	return s.updateProfileFunc(ctx, cmd)
}

func identityRequest(method, target string, body *bytes.Buffer, uid string) *http.Request {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, body)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	ctx := auth.WithIdentity(req.Context(), &auth.Identity{UID: uid, Email: uid + "@example.com"})
	return req.WithContext(ctx)
}

func TestMeHandlersGetProfile(t *testing.T) {
	created := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	users := &stubUserService{
		getProfileFunc: func(ctx context.Context, userID string) (services.User, error) {
			if userID != "user-1" {
				t.Fatalf("expected lookup for user-1, got %q", userID)
			}
			return services.User{ID: userID, Email: "shopper@example.com", Name: "Shopper", CreatedAt: created}, nil
		},
	}
	h := NewMeHandlers(nil, users)

	req := identityRequest(http.MethodGet, "/me", nil, "user-1")
	rr := httptest.NewRecorder()
	h.getProfile(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp userPayload
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.ID != "user-1" || resp.Email != "shopper@example.com" {
		t.Fatalf("unexpected payload: %+v", resp)
	}
}

func TestMeHandlersGetProfileUnauthenticated(t *testing.T) {
	users := &stubUserService{
		getProfileFunc: func(ctx context.Context, userID string) (services.User, error) {
			t.Fatal("service should not be called without identity")
			return services.User{}, nil
		},
	}
	h := NewMeHandlers(nil, users)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	rr := httptest.NewRecorder()
	h.getProfile(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rr.Code)
	}
}

func TestMeHandlersUpdateProfile(t *testing.T) {
	var got services.UpdateProfileCommand
	users := &stubUserService{
		updateProfileFunc: func(ctx context.Context, cmd services.UpdateProfileCommand) (services.User, error) {
			got = cmd
			return services.User{ID: cmd.UserID, Email: "shopper@example.com", Name: *cmd.Name}, nil
		},
	}
	h := NewMeHandlers(nil, users)

	body := bytes.NewBufferString(`{"name":"  New Name  "}`)
	req := identityRequest(http.MethodPatch, "/me", body, "user-1")
	rr := httptest.NewRecorder()
	h.updateProfile(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if got.UserID != "user-1" {
		t.Fatalf("expected command for user-1, got %q", got.UserID)
	}
	if got.Name == nil || *got.Name != "New Name" {
		t.Fatalf("expected trimmed name, got %v", got.Name)
	}
	if got.Phone != nil {
		t.Fatalf("expected phone untouched, got %v", got.Phone)
	}
}

func TestMeHandlersUpdateProfileNoFields(t *testing.T) {
	users := &stubUserService{
		updateProfileFunc: func(ctx context.Context, cmd services.UpdateProfileCommand) (services.User, error) {
			t.Fatal("service should not be called for empty patch")
			return services.User{}, nil
		},
	}
	h := NewMeHandlers(nil, users)

	body := bytes.NewBufferString(`{}`)
	req := identityRequest(http.MethodPatch, "/me", body, "user-1")
	rr := httptest.NewRecorder()
	h.updateProfile(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
}

func TestMeHandlersUpdateProfileNotFound(t *testing.T) {
	users := &stubUserService{
		updateProfileFunc: func(ctx context.Context, cmd services.UpdateProfileCommand) (services.User, error) {
			return services.User{}, services.ErrUserNotFound
		},
	}
	h := NewMeHandlers(nil, users)

	body := bytes.NewBufferString(`{"name":"Anyone"}`)
	req := identityRequest(http.MethodPatch, "/me", body, "user-gone")
	rr := httptest.NewRecorder()
	h.updateProfile(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rr.Code)
	}
}
