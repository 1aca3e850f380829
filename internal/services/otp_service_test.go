package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	domain "github.com/glowcart/api/internal/domain"
)

type stubOTPRepository struct {
	insertFn     func(context.Context, domain.OTPChallenge) error
	findActiveFn func(context.Context, string, domain.OTPPurpose) (domain.OTPChallenge, error)
	updateFn     func(context.Context, domain.OTPChallenge) error
}

func (s *stubOTPRepository) Insert(ctx context.Context, challenge domain.OTPChallenge) error {
	if s.insertFn != nil {
		return s.insertFn(ctx, challenge)
	}
	return nil
}

func (s *stubOTPRepository) FindActive(ctx context.Context, target string, purpose domain.OTPPurpose) (domain.OTPChallenge, error) {
	if s.findActiveFn != nil {
		return s.findActiveFn(ctx, target, purpose)
	}
	return domain.OTPChallenge{}, repoNotFound("challenge not found")
}

func (s *stubOTPRepository) Update(ctx context.Context, challenge domain.OTPChallenge) error {
	if s.updateFn != nil {
		return s.updateFn(ctx, challenge)
	}
	return nil
}

func (s *stubOTPRepository) DeleteExpired(context.Context, time.Time, int) (int, error) {
	return 0, nil
}

type stubUserRepository struct {
	insertFn      func(context.Context, domain.User) error
	updateFn      func(context.Context, domain.User) error
	findFn        func(context.Context, string) (domain.User, error)
	findByEmailFn func(context.Context, string) (domain.User, error)
}

func (s *stubUserRepository) Insert(ctx context.Context, user domain.User) error {
	if s.insertFn != nil {
		return s.insertFn(ctx, user)
	}
	return nil
}

func (s *stubUserRepository) Update(ctx context.Context, user domain.User) error {
	if s.updateFn != nil {
		return s.updateFn(ctx, user)
	}
	return nil
}

func (s *stubUserRepository) FindByID(ctx context.Context, userID string) (domain.User, error) {
	if s.findFn != nil {
		return s.findFn(ctx, userID)
	}
	return domain.User{}, repoNotFound("user not found")
}

func (s *stubUserRepository) FindByEmail(ctx context.Context, email string) (domain.User, error) {
	if s.findByEmailFn != nil {
		return s.findByEmailFn(ctx, email)
	}
	return domain.User{}, repoNotFound("user not found")
}

type captureOTPMailer struct {
	emails   []string
	codes    []string
	purposes []domain.OTPPurpose
	err      error
}

func (m *captureOTPMailer) SendOTP(_ context.Context, email, code string, purpose domain.OTPPurpose) error {
	m.emails = append(m.emails, email)
	m.codes = append(m.codes, code)
	m.purposes = append(m.purposes, purpose)
	return m.err
}

type stubSessionMinter struct {
	issueFn func(context.Context, string, string, string, string) (string, time.Time, error)
}

func (s *stubSessionMinter) Issue(ctx context.Context, userID, email, name, role string) (string, time.Time, error) {
	if s.issueFn != nil {
		return s.issueFn(ctx, userID, email, name, role)
	}
	return "session-token", testClockTime.Add(24 * time.Hour), nil
}

func newTestOTPService(t *testing.T, challenges *stubOTPRepository, users *stubUserRepository, opts ...func(*OTPServiceDeps)) OTPService {
	t.Helper()

	deps := OTPServiceDeps{
		Challenges:    challenges,
		Users:         users,
		Sessions:      &stubSessionMinter{},
		Mailer:        &captureOTPMailer{},
		Clock:         func() time.Time { return testClockTime },
		IDGenerator:   func() string { return "01TESTULID" },
		CodeGenerator: func() (string, error) { return "424242", nil },
	}
	for _, opt := range opts {
		opt(&deps)
	}

	svc, err := NewOTPService(deps)
	if err != nil {
		t.Fatalf("new otp service: %v", err)
	}
	return svc
}

func activeChallenge(purpose domain.OTPPurpose) domain.OTPChallenge {
	return domain.OTPChallenge{
		ID:        "otp_1",
		Target:    "asha@example.com",
		Purpose:   purpose,
		CodeHash:  hashOTPCode("424242"),
		ExpiresAt: testClockTime.Add(10 * time.Minute),
		CreatedAt: testClockTime.Add(-time.Minute),
	}
}

func TestOTPServiceSendLoginOTPStoresHashedCode(t *testing.T) {
	var inserted domain.OTPChallenge
	challenges := &stubOTPRepository{
		insertFn: func(_ context.Context, challenge domain.OTPChallenge) error {
			inserted = challenge
			return nil
		},
	}
	mailer := &captureOTPMailer{}
	svc := newTestOTPService(t, challenges, &stubUserRepository{}, func(deps *OTPServiceDeps) {
		deps.Mailer = mailer
	})

	if err := svc.SendLoginOTP(context.Background(), SendOTPCommand{Email: " Asha@Example.com "}); err != nil {
		t.Fatalf("send login otp: %v", err)
	}

	if inserted.ID != "otp_01TESTULID" {
		t.Fatalf("unexpected id %s", inserted.ID)
	}
	if inserted.Target != "asha@example.com" || inserted.Purpose != domain.OTPPurposeLogin {
		t.Fatalf("unexpected challenge %+v", inserted)
	}
	if inserted.CodeHash == "424242" {
		t.Fatal("expected code stored hashed")
	}
	if inserted.CodeHash != hashOTPCode("424242") {
		t.Fatalf("unexpected hash %s", inserted.CodeHash)
	}
	if !inserted.ExpiresAt.Equal(testClockTime.Add(10 * time.Minute)) {
		t.Fatalf("unexpected expiry %v", inserted.ExpiresAt)
	}
	if len(mailer.codes) != 1 || mailer.codes[0] != "424242" {
		t.Fatalf("expected plain code mailed once, got %+v", mailer.codes)
	}
}

func TestOTPServiceVerifyLoginOTPCreatesUserAndSession(t *testing.T) {
	var consumed domain.OTPChallenge
	challenges := &stubOTPRepository{
		findActiveFn: func(context.Context, string, domain.OTPPurpose) (domain.OTPChallenge, error) {
			return activeChallenge(domain.OTPPurposeLogin), nil
		},
		updateFn: func(_ context.Context, challenge domain.OTPChallenge) error {
			consumed = challenge
			return nil
		},
	}
	var createdUser domain.User
	users := &stubUserRepository{
		insertFn: func(_ context.Context, user domain.User) error {
			createdUser = user
			return nil
		},
	}
	svc := newTestOTPService(t, challenges, users)

	result, err := svc.VerifyLoginOTP(context.Background(), VerifyOTPCommand{
		Email: "asha@example.com",
		Code:  "424242",
	})
	if err != nil {
		t.Fatalf("verify login otp: %v", err)
	}

	if result.Token != "session-token" {
		t.Fatalf("unexpected token %s", result.Token)
	}
	if result.User.ID != "usr_01TESTULID" || result.User.Email != "asha@example.com" {
		t.Fatalf("unexpected user %+v", result.User)
	}
	if createdUser.ID != result.User.ID {
		t.Fatal("expected user provisioned")
	}
	if consumed.ConsumedAt == nil || !consumed.ConsumedAt.Equal(testClockTime) {
		t.Fatalf("expected challenge consumed, got %+v", consumed.ConsumedAt)
	}
}

func TestOTPServiceVerifyLoginOTPExistingUser(t *testing.T) {
	challenges := &stubOTPRepository{
		findActiveFn: func(context.Context, string, domain.OTPPurpose) (domain.OTPChallenge, error) {
			return activeChallenge(domain.OTPPurposeLogin), nil
		},
	}
	users := &stubUserRepository{
		findByEmailFn: func(context.Context, string) (domain.User, error) {
			return domain.User{ID: "usr_existing", Email: "asha@example.com", Name: "Asha"}, nil
		},
		insertFn: func(context.Context, domain.User) error {
			t.Fatal("existing user must not be re-created")
			return nil
		},
	}
	svc := newTestOTPService(t, challenges, users)

	result, err := svc.VerifyLoginOTP(context.Background(), VerifyOTPCommand{
		Email: "asha@example.com",
		Code:  "424242",
	})
	if err != nil {
		t.Fatalf("verify login otp: %v", err)
	}
	if result.User.ID != "usr_existing" {
		t.Fatalf("unexpected user %+v", result.User)
	}
}

func TestOTPServiceVerifyWrongCodeCountsAttempt(t *testing.T) {
	var updated domain.OTPChallenge
	challenges := &stubOTPRepository{
		findActiveFn: func(context.Context, string, domain.OTPPurpose) (domain.OTPChallenge, error) {
			return activeChallenge(domain.OTPPurposeLogin), nil
		},
		updateFn: func(_ context.Context, challenge domain.OTPChallenge) error {
			updated = challenge
			return nil
		},
	}
	svc := newTestOTPService(t, challenges, &stubUserRepository{})

	_, err := svc.VerifyLoginOTP(context.Background(), VerifyOTPCommand{
		Email: "asha@example.com",
		Code:  "000000",
	})
	if !errors.Is(err, ErrOTPInvalid) {
		t.Fatalf("expected invalid code, got %v", err)
	}
	if updated.Attempts != 1 {
		t.Fatalf("expected attempt counted, got %d", updated.Attempts)
	}
	if updated.ConsumedAt != nil {
		t.Fatal("challenge must remain unconsumed after a miss")
	}
}

func TestOTPServiceVerifyBurnsAfterMaxAttempts(t *testing.T) {
	challenge := activeChallenge(domain.OTPPurposeLogin)
	challenge.Attempts = maxOTPAttempts - 1
	challenges := &stubOTPRepository{
		findActiveFn: func(context.Context, string, domain.OTPPurpose) (domain.OTPChallenge, error) {
			return challenge, nil
		},
	}
	svc := newTestOTPService(t, challenges, &stubUserRepository{})

	_, err := svc.VerifyLoginOTP(context.Background(), VerifyOTPCommand{
		Email: "asha@example.com",
		Code:  "000000",
	})
	if !errors.Is(err, ErrOTPTooManyAttempts) {
		t.Fatalf("expected too many attempts, got %v", err)
	}

	// A correct code after the burn is also rejected.
	challenge.Attempts = maxOTPAttempts
	_, err = svc.VerifyLoginOTP(context.Background(), VerifyOTPCommand{
		Email: "asha@example.com",
		Code:  "424242",
	})
	if !errors.Is(err, ErrOTPTooManyAttempts) {
		t.Fatalf("expected too many attempts for correct code, got %v", err)
	}
}

func TestOTPServiceVerifyExpiredCode(t *testing.T) {
	challenge := activeChallenge(domain.OTPPurposeLogin)
	challenge.ExpiresAt = testClockTime.Add(-time.Minute)
	challenges := &stubOTPRepository{
		findActiveFn: func(context.Context, string, domain.OTPPurpose) (domain.OTPChallenge, error) {
			return challenge, nil
		},
	}
	svc := newTestOTPService(t, challenges, &stubUserRepository{})

	_, err := svc.VerifyLoginOTP(context.Background(), VerifyOTPCommand{
		Email: "asha@example.com",
		Code:  "424242",
	})
	if !errors.Is(err, ErrOTPExpired) {
		t.Fatalf("expected expired, got %v", err)
	}
}

func TestOTPServiceSendResetOTPSilentForUnknownEmail(t *testing.T) {
	mailer := &captureOTPMailer{}
	svc := newTestOTPService(t, &stubOTPRepository{}, &stubUserRepository{}, func(deps *OTPServiceDeps) {
		deps.Mailer = mailer
	})

	if err := svc.SendPasswordResetOTP(context.Background(), SendOTPCommand{Email: "ghost@example.com"}); err != nil {
		t.Fatalf("expected silent success, got %v", err)
	}
	if len(mailer.emails) != 0 {
		t.Fatal("expected no mail for unknown account")
	}
}

func TestOTPServiceVerifyResetOTPMintsTicket(t *testing.T) {
	var insertedTicket domain.OTPChallenge
	challenges := &stubOTPRepository{
		findActiveFn: func(context.Context, string, domain.OTPPurpose) (domain.OTPChallenge, error) {
			return activeChallenge(domain.OTPPurposePasswordReset), nil
		},
		insertFn: func(_ context.Context, challenge domain.OTPChallenge) error {
			insertedTicket = challenge
			return nil
		},
	}
	users := &stubUserRepository{
		findByEmailFn: func(context.Context, string) (domain.User, error) {
			return domain.User{ID: "usr_1", Email: "asha@example.com"}, nil
		},
	}
	svc := newTestOTPService(t, challenges, users)

	ticket, err := svc.VerifyPasswordResetOTP(context.Background(), VerifyOTPCommand{
		Email: "asha@example.com",
		Code:  "424242",
	})
	if err != nil {
		t.Fatalf("verify reset otp: %v", err)
	}

	if ticket.Token == "" {
		t.Fatal("expected reset token")
	}
	if !ticket.ExpiresAt.Equal(testClockTime.Add(15 * time.Minute)) {
		t.Fatalf("unexpected expiry %v", ticket.ExpiresAt)
	}
	if insertedTicket.CodeHash != hashOTPCode(ticket.Token) {
		t.Fatal("expected ticket stored hashed")
	}
	if insertedTicket.Purpose != domain.OTPPurposePasswordReset {
		t.Fatalf("unexpected purpose %s", insertedTicket.Purpose)
	}
}

func TestOTPServiceResetPasswordStoresBcryptHash(t *testing.T) {
	ticket := activeChallenge(domain.OTPPurposePasswordReset)
	ticket.CodeHash = hashOTPCode("reset-token-1")
	challenges := &stubOTPRepository{
		findActiveFn: func(context.Context, string, domain.OTPPurpose) (domain.OTPChallenge, error) {
			return ticket, nil
		},
	}
	var updatedUser domain.User
	users := &stubUserRepository{
		findByEmailFn: func(context.Context, string) (domain.User, error) {
			return domain.User{ID: "usr_1", Email: "asha@example.com"}, nil
		},
		updateFn: func(_ context.Context, user domain.User) error {
			updatedUser = user
			return nil
		},
	}
	svc := newTestOTPService(t, challenges, users)

	err := svc.ResetPassword(context.Background(), ResetPasswordCommand{
		Email:       "asha@example.com",
		ResetToken:  "reset-token-1",
		NewPassword: "correct-horse-battery",
	})
	if err != nil {
		t.Fatalf("reset password: %v", err)
	}

	if updatedUser.PasswordHash == nil {
		t.Fatal("expected password hash stored")
	}
	if bcrypt.CompareHashAndPassword([]byte(*updatedUser.PasswordHash), []byte("correct-horse-battery")) != nil {
		t.Fatal("stored hash does not match the new password")
	}
}

func TestOTPServiceResetPasswordRejectsBadToken(t *testing.T) {
	ticket := activeChallenge(domain.OTPPurposePasswordReset)
	ticket.CodeHash = hashOTPCode("reset-token-1")
	challenges := &stubOTPRepository{
		findActiveFn: func(context.Context, string, domain.OTPPurpose) (domain.OTPChallenge, error) {
			return ticket, nil
		},
	}
	svc := newTestOTPService(t, challenges, &stubUserRepository{})

	err := svc.ResetPassword(context.Background(), ResetPasswordCommand{
		Email:       "asha@example.com",
		ResetToken:  "wrong-token",
		NewPassword: "correct-horse-battery",
	})
	if !errors.Is(err, ErrResetTokenInvalid) {
		t.Fatalf("expected invalid reset token, got %v", err)
	}
}

func TestOTPServiceResetPasswordRejectsShortPassword(t *testing.T) {
	svc := newTestOTPService(t, &stubOTPRepository{}, &stubUserRepository{})

	err := svc.ResetPassword(context.Background(), ResetPasswordCommand{
		Email:       "asha@example.com",
		ResetToken:  "reset-token-1",
		NewPassword: "short",
	})
	if !errors.Is(err, ErrOTPInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}
