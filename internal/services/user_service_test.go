package services

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "github.com/glowcart/api/internal/domain"
)

func newTestUserService(t *testing.T, users *stubUserRepository) UserService {
	t.Helper()

	svc, err := NewUserService(UserServiceDeps{
		Users: users,
		Clock: func() time.Time { return testClockTime },
	})
	if err != nil {
		t.Fatalf("new user service: %v", err)
	}
	return svc
}

func TestUserServiceGetProfile(t *testing.T) {
	users := &stubUserRepository{
		findFn: func(_ context.Context, userID string) (domain.User, error) {
			if userID != "usr_1" {
				t.Fatalf("unexpected user id %s", userID)
			}
			return domain.User{ID: "usr_1", Email: "asha@example.com", Name: "Asha"}, nil
		},
	}
	svc := newTestUserService(t, users)

	user, err := svc.GetProfile(context.Background(), " usr_1 ")
	if err != nil {
		t.Fatalf("get profile: %v", err)
	}
	if user.Name != "Asha" {
		t.Fatalf("unexpected user %+v", user)
	}
}

func TestUserServiceGetProfileNotFound(t *testing.T) {
	svc := newTestUserService(t, &stubUserRepository{})

	_, err := svc.GetProfile(context.Background(), "usr_missing")
	if !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestUserServiceUpdateProfilePartial(t *testing.T) {
	var updated domain.User
	users := &stubUserRepository{
		findFn: func(context.Context, string) (domain.User, error) {
			return domain.User{ID: "usr_1", Email: "asha@example.com", Name: "Asha", Phone: "+919876543210"}, nil
		},
		updateFn: func(_ context.Context, user domain.User) error {
			updated = user
			return nil
		},
	}
	svc := newTestUserService(t, users)

	user, err := svc.UpdateProfile(context.Background(), UpdateProfileCommand{
		UserID: "usr_1",
		Name:   strPtr("  Asha Rao  "),
	})
	if err != nil {
		t.Fatalf("update profile: %v", err)
	}

	if user.Name != "Asha Rao" {
		t.Fatalf("unexpected name %q", user.Name)
	}
	if user.Phone != "+919876543210" {
		t.Fatalf("expected phone untouched, got %q", user.Phone)
	}
	if !updated.UpdatedAt.Equal(testClockTime) {
		t.Fatalf("expected updated at bumped, got %v", updated.UpdatedAt)
	}
}

func TestUserServiceUpdateProfileNoChangeSkipsWrite(t *testing.T) {
	users := &stubUserRepository{
		findFn: func(context.Context, string) (domain.User, error) {
			return domain.User{ID: "usr_1", Name: "Asha"}, nil
		},
		updateFn: func(context.Context, domain.User) error {
			t.Fatal("update must not run when nothing changed")
			return nil
		},
	}
	svc := newTestUserService(t, users)

	if _, err := svc.UpdateProfile(context.Background(), UpdateProfileCommand{
		UserID: "usr_1",
		Name:   strPtr("Asha"),
	}); err != nil {
		t.Fatalf("update profile: %v", err)
	}
}

func TestUserServiceUpdateProfileRejectsBadPhone(t *testing.T) {
	users := &stubUserRepository{
		findFn: func(context.Context, string) (domain.User, error) {
			return domain.User{ID: "usr_1"}, nil
		},
	}
	svc := newTestUserService(t, users)

	for _, phone := range []string{"12345", "not-a-number", "+12345678901234567"} {
		_, err := svc.UpdateProfile(context.Background(), UpdateProfileCommand{
			UserID: "usr_1",
			Phone:  strPtr(phone),
		})
		if !errors.Is(err, ErrUserInvalidInput) {
			t.Fatalf("phone %q: expected invalid input, got %v", phone, err)
		}
	}
}
