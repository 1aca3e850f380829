package firestore

import (
	"context"
	"errors"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/glowcart/api/internal/domain"
	pfirestore "github.com/glowcart/api/internal/platform/firestore"
)

const otpCollection = "otpChallenges"

type otpDocument struct {
	Target     string     `firestore:"target"`
	Purpose    string     `firestore:"purpose"`
	CodeHash   string     `firestore:"codeHash"`
	ExpiresAt  time.Time  `firestore:"expiresAt"`
	Attempts   int        `firestore:"attempts"`
	ConsumedAt *time.Time `firestore:"consumedAt,omitempty"`
	CreatedAt  time.Time  `firestore:"createdAt"`
}

// OTPRepository persists hashed one-time passcode challenges.
type OTPRepository struct {
	base *pfirestore.BaseRepository[otpDocument]
}

// NewOTPRepository constructs a Firestore-backed OTP repository.
func NewOTPRepository(provider *pfirestore.Provider) (*OTPRepository, error) {
	if provider == nil {
		return nil, errors.New("otp repository requires firestore provider")
	}
	return &OTPRepository{
		base: pfirestore.NewBaseRepository[otpDocument](provider, otpCollection, nil, nil),
	}, nil
}

func (r *OTPRepository) Insert(ctx context.Context, challenge domain.OTPChallenge) error {
	id, err := requireID("otp.insert", challenge.ID)
	if err != nil {
		return err
	}
	ref, err := r.base.DocumentRef(ctx, id)
	if err != nil {
		return err
	}
	if _, err := ref.Create(ctx, fromDomainOTP(challenge)); err != nil {
		return pfirestore.WrapError("otp.insert", err)
	}
	return nil
}

// FindActive returns the newest unconsumed, unexpired challenge for a target
// and purpose. Consumption is filtered client-side since Firestore cannot
// query a missing field alongside the expiry range.
func (r *OTPRepository) FindActive(ctx context.Context, target string, purpose domain.OTPPurpose) (domain.OTPChallenge, error) {
	target = normalizeEmail(target)
	if target == "" {
		return domain.OTPChallenge{}, pfirestore.WrapError("otp.find_active", invalidArgumentErr("target is required"))
	}

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("target", "==", target).
			Where("purpose", "==", string(purpose)).
			Where("expiresAt", ">", time.Now().UTC()).
			OrderBy("expiresAt", firestore.Desc).
			Limit(5)
	})
	if err != nil {
		return domain.OTPChallenge{}, err
	}
	for _, doc := range docs {
		if doc.Data.ConsumedAt == nil {
			return toDomainOTP(doc.ID, doc.Data), nil
		}
	}
	return domain.OTPChallenge{}, notFoundError("otp.find_active", "no active challenge")
}

func (r *OTPRepository) Update(ctx context.Context, challenge domain.OTPChallenge) error {
	id, err := requireID("otp.update", challenge.ID)
	if err != nil {
		return err
	}
	if _, err := r.base.Get(ctx, id); err != nil {
		return err
	}
	_, err = r.base.Set(ctx, id, fromDomainOTP(challenge))
	return err
}

// DeleteExpired removes up to limit challenges that expired before the cutoff
// and reports how many were deleted.
func (r *OTPRepository) DeleteExpired(ctx context.Context, before time.Time, limit int) (int, error) {
	if limit <= 0 {
		limit = 100
	}
	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("expiresAt", "<", before.UTC()).
			OrderBy("expiresAt", firestore.Asc).
			Limit(limit)
	})
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, doc := range docs {
		ref, err := r.base.DocumentRef(ctx, doc.ID)
		if err != nil {
			return deleted, err
		}
		if _, err := ref.Delete(ctx); err != nil {
			return deleted, pfirestore.WrapError("otp.delete_expired", err)
		}
		deleted++
	}
	return deleted, nil
}

func fromDomainOTP(challenge domain.OTPChallenge) otpDocument {
	return otpDocument{
		Target:     normalizeEmail(challenge.Target),
		Purpose:    string(challenge.Purpose),
		CodeHash:   challenge.CodeHash,
		ExpiresAt:  challenge.ExpiresAt.UTC(),
		Attempts:   challenge.Attempts,
		ConsumedAt: challenge.ConsumedAt,
		CreatedAt:  challenge.CreatedAt.UTC(),
	}
}

func toDomainOTP(id string, doc otpDocument) domain.OTPChallenge {
	return domain.OTPChallenge{
		ID:         id,
		Target:     doc.Target,
		Purpose:    domain.OTPPurpose(doc.Purpose),
		CodeHash:   doc.CodeHash,
		ExpiresAt:  doc.ExpiresAt,
		Attempts:   doc.Attempts,
		ConsumedAt: doc.ConsumedAt,
		CreatedAt:  doc.CreatedAt,
	}
}
