package firestore

import (
	"context"
	"errors"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/glowcart/api/internal/domain"
	pfirestore "github.com/glowcart/api/internal/platform/firestore"
)

const userCollection = "users"

type userDocument struct {
	Email        string    `firestore:"email"`
	Phone        string    `firestore:"phone,omitempty"`
	Name         string    `firestore:"name,omitempty"`
	PasswordHash *string   `firestore:"passwordHash,omitempty"`
	CreatedAt    time.Time `firestore:"createdAt"`
	UpdatedAt    time.Time `firestore:"updatedAt"`
}

// UserRepository persists customer accounts keyed by ID with a unique email
// lookup field.
type UserRepository struct {
	base *pfirestore.BaseRepository[userDocument]
}

// NewUserRepository constructs a Firestore-backed user repository.
func NewUserRepository(provider *pfirestore.Provider) (*UserRepository, error) {
	if provider == nil {
		return nil, errors.New("user repository requires firestore provider")
	}
	return &UserRepository{
		base: pfirestore.NewBaseRepository[userDocument](provider, userCollection, nil, nil),
	}, nil
}

func (r *UserRepository) Insert(ctx context.Context, user domain.User) error {
	id, err := requireID("users.insert", user.ID)
	if err != nil {
		return err
	}
	email := normalizeEmail(user.Email)
	if email == "" {
		return pfirestore.WrapError("users.insert", invalidArgumentErr("email is required"))
	}
	if err := r.ensureUniqueEmail(ctx, "users.insert", id, email); err != nil {
		return err
	}
	user.Email = email

	ref, err := r.base.DocumentRef(ctx, id)
	if err != nil {
		return err
	}
	if _, err := ref.Create(ctx, fromDomainUser(user)); err != nil {
		return pfirestore.WrapError("users.insert", err)
	}
	return nil
}

func (r *UserRepository) Update(ctx context.Context, user domain.User) error {
	id, err := requireID("users.update", user.ID)
	if err != nil {
		return err
	}
	if _, err := r.base.Get(ctx, id); err != nil {
		return err
	}
	email := normalizeEmail(user.Email)
	if email == "" {
		return pfirestore.WrapError("users.update", invalidArgumentErr("email is required"))
	}
	if err := r.ensureUniqueEmail(ctx, "users.update", id, email); err != nil {
		return err
	}
	user.Email = email

	_, err = r.base.Set(ctx, id, fromDomainUser(user))
	return err
}

func (r *UserRepository) FindByID(ctx context.Context, userID string) (domain.User, error) {
	id, err := requireID("users.get", userID)
	if err != nil {
		return domain.User{}, err
	}
	doc, err := r.base.Get(ctx, id)
	if err != nil {
		return domain.User{}, err
	}
	return toDomainUser(doc.ID, doc.Data), nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (domain.User, error) {
	email = normalizeEmail(email)
	if email == "" {
		return domain.User{}, pfirestore.WrapError("users.get_by_email", invalidArgumentErr("email is required"))
	}
	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("email", "==", email).Limit(1)
	})
	if err != nil {
		return domain.User{}, err
	}
	if len(docs) == 0 {
		return domain.User{}, notFoundError("users.get_by_email", "user not found for email")
	}
	return toDomainUser(docs[0].ID, docs[0].Data), nil
}

func (r *UserRepository) ensureUniqueEmail(ctx context.Context, op string, id string, email string) error {
	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("email", "==", email).Limit(1)
	})
	if err != nil {
		return err
	}
	if len(docs) > 0 && docs[0].ID != id {
		return conflictError(op, "email already registered")
	}
	return nil
}

func fromDomainUser(user domain.User) userDocument {
	return userDocument{
		Email:        user.Email,
		Phone:        user.Phone,
		Name:         user.Name,
		PasswordHash: user.PasswordHash,
		CreatedAt:    user.CreatedAt.UTC(),
		UpdatedAt:    user.UpdatedAt.UTC(),
	}
}

func toDomainUser(id string, doc userDocument) domain.User {
	return domain.User{
		ID:           id,
		Email:        doc.Email,
		Phone:        doc.Phone,
		Name:         doc.Name,
		PasswordHash: doc.PasswordHash,
		CreatedAt:    doc.CreatedAt,
		UpdatedAt:    doc.UpdatedAt,
	}
}
