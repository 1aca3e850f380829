package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/glowcart/api/internal/repositories"
)

const maxProfileNameLength = 100

var (
	// ErrUserInvalidInput indicates validation failures for profile updates.
	ErrUserInvalidInput = errors.New("user: invalid input")
	// ErrUserNotFound indicates the account does not exist.
	ErrUserNotFound = errors.New("user: not found")
	// ErrUserUnavailable indicates the user store is unreachable.
	ErrUserUnavailable = errors.New("user: unavailable")
)

// UserServiceDeps wires the dependencies required by the user service.
type UserServiceDeps struct {
	Users repositories.UserRepository
	Clock func() time.Time
}

type userService struct {
	users repositories.UserRepository
	clock func() time.Time
}

// NewUserService constructs a UserService validating required dependencies.
func NewUserService(deps UserServiceDeps) (UserService, error) {
	if deps.Users == nil {
		return nil, errors.New("user service: user repository is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &userService{
		users: deps.Users,
		clock: func() time.Time { return clock().UTC() },
	}, nil
}

func (s *userService) GetProfile(ctx context.Context, userID string) (User, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return User{}, fmt.Errorf("%w: user id is required", ErrUserInvalidInput)
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return User{}, s.translateRepoError(err)
	}
	return user, nil
}

// UpdateProfile applies partial updates; nil fields are left untouched.
func (s *userService) UpdateProfile(ctx context.Context, cmd UpdateProfileCommand) (User, error) {
	userID := strings.TrimSpace(cmd.UserID)
	if userID == "" {
		return User{}, fmt.Errorf("%w: user id is required", ErrUserInvalidInput)
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return User{}, s.translateRepoError(err)
	}

	changed := false
	if cmd.Name != nil {
		name := strings.TrimSpace(*cmd.Name)
		if utf8.RuneCountInString(name) > maxProfileNameLength {
			return User{}, fmt.Errorf("%w: name exceeds %d characters", ErrUserInvalidInput, maxProfileNameLength)
		}
		if name != user.Name {
			user.Name = name
			changed = true
		}
	}
	if cmd.Phone != nil {
		phone := strings.TrimSpace(*cmd.Phone)
		if phone != "" && !validPhoneNumber(phone) {
			return User{}, fmt.Errorf("%w: invalid phone number", ErrUserInvalidInput)
		}
		if phone != user.Phone {
			user.Phone = phone
			changed = true
		}
	}

	if !changed {
		return user, nil
	}

	user.UpdatedAt = s.clock()
	if err := s.users.Update(ctx, user); err != nil {
		return User{}, s.translateRepoError(err)
	}
	return user, nil
}

// validPhoneNumber accepts E.164-ish numbers: optional +, 8 to 15 digits.
func validPhoneNumber(phone string) bool {
	digits := phone
	if strings.HasPrefix(digits, "+") {
		digits = digits[1:]
	}
	if len(digits) < 8 || len(digits) > 15 {
		return false
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func (s *userService) translateRepoError(err error) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return fmt.Errorf("%w: %s", ErrUserNotFound, repoErr.Error())
		case repoErr.IsUnavailable():
			return fmt.Errorf("%w: %s", ErrUserUnavailable, repoErr.Error())
		}
	}
	return err
}
