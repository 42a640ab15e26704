package memory

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/rolodex/rolodex/api/internal/domain"
	apperrors "github.com/rolodex/rolodex/api/internal/pkg/errors"
)

// UserRepository implements service.UserRepository
type UserRepository struct {
	store *Store
}

// NewUserRepository creates a new user repository
func NewUserRepository(store *Store) *UserRepository {
	return &UserRepository{store: store}
}

// Create creates a new user. Emails are unique case-insensitively.
func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, u := range r.store.users {
		if strings.EqualFold(u.Email, user.Email) {
			return apperrors.Conflict("email already registered")
		}
	}
	c := *user
	r.store.users[user.ID] = &c
	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	u, ok := r.store.users[id]
	if !ok {
		return nil, apperrors.NotFound("user")
	}
	c := *u
	return &c, nil
}

// GetByEmail retrieves a user by email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	for _, u := range r.store.users {
		if strings.EqualFold(u.Email, email) {
			c := *u
			return &c, nil
		}
	}
	return nil, apperrors.NotFound("user")
}

// ExistsByEmail checks whether a user with the email exists
func (r *UserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := r.GetByEmail(ctx, email)
	if apperrors.IsNotFound(err) {
		return false, nil
	}
	return err == nil, err
}
