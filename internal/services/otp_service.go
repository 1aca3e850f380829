package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/crypto/bcrypt"

	domain "github.com/glowcart/api/internal/domain"
	"github.com/glowcart/api/internal/repositories"
)

const (
	otpIDPrefix  = "otp_"
	userIDPrefix = "usr_"

	otpCodeLength = 6
	// maxOTPAttempts bounds verification attempts per challenge before it burns.
	maxOTPAttempts = 5

	defaultOTPTTL         = 10 * time.Minute
	defaultResetTicketTTL = 15 * time.Minute
)

var (
	// ErrOTPInvalidInput indicates validation failures for OTP operations.
	ErrOTPInvalidInput = errors.New("otp: invalid input")
	// ErrOTPInvalid indicates the supplied code does not match an active challenge.
	ErrOTPInvalid = errors.New("otp: invalid code")
	// ErrOTPExpired indicates the challenge has passed its expiry.
	ErrOTPExpired = errors.New("otp: expired")
	// ErrOTPTooManyAttempts indicates the challenge burned out after repeated failures.
	ErrOTPTooManyAttempts = errors.New("otp: too many attempts")
	// ErrOTPUnavailable indicates the challenge store is unreachable.
	ErrOTPUnavailable = errors.New("otp: unavailable")
	// ErrResetTokenInvalid indicates the password reset ticket is missing or stale.
	ErrResetTokenInvalid = errors.New("otp: invalid reset token")
)

// OTPMailer delivers one-time passcodes to their target address.
type OTPMailer interface {
	SendOTP(ctx context.Context, email string, code string, purpose domain.OTPPurpose) error
}

// SessionMinter mints signed session tokens for authenticated customers.
// Satisfied by platform/auth.SessionIssuer.
type SessionMinter interface {
	Issue(ctx context.Context, userID, email, name, role string) (string, time.Time, error)
}

// OTPServiceDeps wires the dependencies required by the OTP service.
type OTPServiceDeps struct {
	Challenges    repositories.OTPRepository
	Users         repositories.UserRepository
	Sessions      SessionMinter
	Mailer        OTPMailer
	Clock         func() time.Time
	IDGenerator   func() string
	CodeGenerator func() (string, error)
	OTPTTL        time.Duration
	ResetTTL      time.Duration
	Logger        func(ctx context.Context, event string, fields map[string]any)
}

type otpService struct {
	challenges repositories.OTPRepository
	users      repositories.UserRepository
	sessions   SessionMinter
	mailer     OTPMailer
	clock      func() time.Time
	newID      func() string
	newCode    func() (string, error)
	otpTTL     time.Duration
	resetTTL   time.Duration
	logger     func(ctx context.Context, event string, fields map[string]any)
}

// NewOTPService constructs an OTPService validating required dependencies.
func NewOTPService(deps OTPServiceDeps) (OTPService, error) {
	if deps.Challenges == nil {
		return nil, errors.New("otp service: challenge repository is required")
	}
	if deps.Users == nil {
		return nil, errors.New("otp service: user repository is required")
	}
	if deps.Sessions == nil {
		return nil, errors.New("otp service: session minter is required")
	}
	if deps.Mailer == nil {
		return nil, errors.New("otp service: mailer is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string {
			return ulid.Make().String()
		}
	}
	codeGen := deps.CodeGenerator
	if codeGen == nil {
		codeGen = randomOTPCode
	}
	otpTTL := deps.OTPTTL
	if otpTTL <= 0 {
		otpTTL = defaultOTPTTL
	}
	resetTTL := deps.ResetTTL
	if resetTTL <= 0 {
		resetTTL = defaultResetTicketTTL
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &otpService{
		challenges: deps.Challenges,
		users:      deps.Users,
		sessions:   deps.Sessions,
		mailer:     deps.Mailer,
		clock: func() time.Time {
			return clock().UTC()
		},
		newID:    idGen,
		newCode:  codeGen,
		otpTTL:   otpTTL,
		resetTTL: resetTTL,
		logger:   logger,
	}, nil
}

// SendLoginOTP issues a login code. Unknown addresses still receive a code;
// the account is created on first successful verification.
func (s *otpService) SendLoginOTP(ctx context.Context, cmd SendOTPCommand) error {
	email, err := normalizeNewsletterEmail(cmd.Email)
	if err != nil {
		return fmt.Errorf("%w: invalid email address", ErrOTPInvalidInput)
	}
	return s.issueChallenge(ctx, email, domain.OTPPurposeLogin)
}

// SendPasswordResetOTP issues a reset code. Unknown addresses are silently
// ignored so the endpoint cannot be used to enumerate accounts.
func (s *otpService) SendPasswordResetOTP(ctx context.Context, cmd SendOTPCommand) error {
	email, err := normalizeNewsletterEmail(cmd.Email)
	if err != nil {
		return fmt.Errorf("%w: invalid email address", ErrOTPInvalidInput)
	}

	if _, err := s.users.FindByEmail(ctx, email); err != nil {
		if isRepoNotFound(err) {
			s.logger(ctx, "otp.reset.unknown_email", map[string]any{"email": email})
			return nil
		}
		return s.translateRepoError(err)
	}
	return s.issueChallenge(ctx, email, domain.OTPPurposePasswordReset)
}

// VerifyLoginOTP checks the code, provisions the account when needed, and
// mints a session token.
func (s *otpService) VerifyLoginOTP(ctx context.Context, cmd VerifyOTPCommand) (SessionResult, error) {
	email, err := normalizeNewsletterEmail(cmd.Email)
	if err != nil {
		return SessionResult{}, fmt.Errorf("%w: invalid email address", ErrOTPInvalidInput)
	}

	if err := s.consumeChallenge(ctx, email, domain.OTPPurposeLogin, cmd.Code); err != nil {
		return SessionResult{}, err
	}

	user, err := s.findOrCreateUser(ctx, email)
	if err != nil {
		return SessionResult{}, err
	}

	token, expiresAt, err := s.sessions.Issue(ctx, user.ID, user.Email, user.Name, "user")
	if err != nil {
		return SessionResult{}, fmt.Errorf("otp: minting session: %w", err)
	}
	return SessionResult{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      user,
	}, nil
}

// VerifyPasswordResetOTP consumes the emailed code and mints a short-lived
// reset ticket stored as a fresh challenge.
func (s *otpService) VerifyPasswordResetOTP(ctx context.Context, cmd VerifyOTPCommand) (ResetTicket, error) {
	email, err := normalizeNewsletterEmail(cmd.Email)
	if err != nil {
		return ResetTicket{}, fmt.Errorf("%w: invalid email address", ErrOTPInvalidInput)
	}

	if err := s.consumeChallenge(ctx, email, domain.OTPPurposePasswordReset, cmd.Code); err != nil {
		return ResetTicket{}, err
	}

	token, err := randomResetToken()
	if err != nil {
		return ResetTicket{}, fmt.Errorf("otp: generating reset token: %w", err)
	}

	now := s.clock()
	expiresAt := now.Add(s.resetTTL)
	ticket := domain.OTPChallenge{
		ID:        otpIDPrefix + s.newID(),
		Target:    email,
		Purpose:   domain.OTPPurposePasswordReset,
		CodeHash:  hashOTPCode(token),
		ExpiresAt: expiresAt,
		CreatedAt: now,
	}
	if err := s.challenges.Insert(ctx, ticket); err != nil {
		return ResetTicket{}, s.translateRepoError(err)
	}

	return ResetTicket{Token: token, ExpiresAt: expiresAt}, nil
}

// ResetPassword redeems a reset ticket and stores the new password hash.
func (s *otpService) ResetPassword(ctx context.Context, cmd ResetPasswordCommand) error {
	email, err := normalizeNewsletterEmail(cmd.Email)
	if err != nil {
		return fmt.Errorf("%w: invalid email address", ErrOTPInvalidInput)
	}
	if strings.TrimSpace(cmd.ResetToken) == "" {
		return fmt.Errorf("%w: reset token is required", ErrOTPInvalidInput)
	}
	if len(cmd.NewPassword) < 8 {
		return fmt.Errorf("%w: password must be at least 8 characters", ErrOTPInvalidInput)
	}

	challenge, err := s.challenges.FindActive(ctx, email, domain.OTPPurposePasswordReset)
	if err != nil {
		if isRepoNotFound(err) {
			return ErrResetTokenInvalid
		}
		return s.translateRepoError(err)
	}

	now := s.clock()
	if challenge.ConsumedAt != nil || now.After(challenge.ExpiresAt) {
		return ErrResetTokenInvalid
	}
	if subtle.ConstantTimeCompare([]byte(challenge.CodeHash), []byte(hashOTPCode(cmd.ResetToken))) != 1 {
		return ErrResetTokenInvalid
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if isRepoNotFound(err) {
			return ErrResetTokenInvalid
		}
		return s.translateRepoError(err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cmd.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("otp: hashing password: %w", err)
	}
	passwordHash := string(hash)
	user.PasswordHash = &passwordHash
	user.UpdatedAt = now
	if err := s.users.Update(ctx, user); err != nil {
		return s.translateRepoError(err)
	}

	challenge.ConsumedAt = &now
	if err := s.challenges.Update(ctx, challenge); err != nil {
		s.logger(ctx, "otp.reset.consume_failed", map[string]any{
			"challenge": challenge.ID,
			"error":     err.Error(),
		})
	}
	return nil
}

func (s *otpService) issueChallenge(ctx context.Context, email string, purpose domain.OTPPurpose) error {
	code, err := s.newCode()
	if err != nil {
		return fmt.Errorf("otp: generating code: %w", err)
	}

	now := s.clock()
	challenge := domain.OTPChallenge{
		ID:        otpIDPrefix + s.newID(),
		Target:    email,
		Purpose:   purpose,
		CodeHash:  hashOTPCode(code),
		ExpiresAt: now.Add(s.otpTTL),
		CreatedAt: now,
	}
	if err := s.challenges.Insert(ctx, challenge); err != nil {
		return s.translateRepoError(err)
	}

	if err := s.mailer.SendOTP(ctx, email, code, purpose); err != nil {
		return fmt.Errorf("otp: sending code: %w", err)
	}
	return nil
}

// consumeChallenge verifies a code against the active challenge for the
// target, counting failed attempts and marking success consumed.
func (s *otpService) consumeChallenge(ctx context.Context, email string, purpose domain.OTPPurpose, code string) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return fmt.Errorf("%w: code is required", ErrOTPInvalidInput)
	}

	challenge, err := s.challenges.FindActive(ctx, email, purpose)
	if err != nil {
		if isRepoNotFound(err) {
			return ErrOTPInvalid
		}
		return s.translateRepoError(err)
	}

	now := s.clock()
	if challenge.ConsumedAt != nil {
		return ErrOTPInvalid
	}
	if now.After(challenge.ExpiresAt) {
		return ErrOTPExpired
	}
	if challenge.Attempts >= maxOTPAttempts {
		return ErrOTPTooManyAttempts
	}

	if subtle.ConstantTimeCompare([]byte(challenge.CodeHash), []byte(hashOTPCode(code))) != 1 {
		challenge.Attempts++
		if err := s.challenges.Update(ctx, challenge); err != nil {
			s.logger(ctx, "otp.attempts.update_failed", map[string]any{
				"challenge": challenge.ID,
				"error":     err.Error(),
			})
		}
		if challenge.Attempts >= maxOTPAttempts {
			return ErrOTPTooManyAttempts
		}
		return ErrOTPInvalid
	}

	challenge.ConsumedAt = &now
	if err := s.challenges.Update(ctx, challenge); err != nil {
		return s.translateRepoError(err)
	}
	return nil
}

func (s *otpService) findOrCreateUser(ctx context.Context, email string) (User, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err == nil {
		return user, nil
	}
	if !isRepoNotFound(err) {
		return User{}, s.translateRepoError(err)
	}

	now := s.clock()
	user = domain.User{
		ID:        userIDPrefix + s.newID(),
		Email:     email,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.users.Insert(ctx, user); err != nil {
		return User{}, s.translateRepoError(err)
	}
	return user, nil
}

func hashOTPCode(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}

func randomOTPCode() (string, error) {
	max := big.NewInt(1)
	for i := 0; i < otpCodeLength; i++ {
		max.Mul(max, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", otpCodeLength, n), nil
}

func randomResetToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func (s *otpService) translateRepoError(err error) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) && repoErr.IsUnavailable() {
		return fmt.Errorf("%w: %s", ErrOTPUnavailable, repoErr.Error())
	}
	return err
}
