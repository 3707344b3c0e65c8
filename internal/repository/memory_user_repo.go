package repository

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"go-auth-api/internal/model"
)

// MemoryUserRepository keeps users in process memory. It backs
// STORE_DRIVER=memory and the service tests.
type MemoryUserRepository struct {
	mu      sync.RWMutex
	byID    map[string]model.User
	byEmail map[string]string
	byPhone map[string]string
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		byID:    map[string]model.User{},
		byEmail: map[string]string{},
		byPhone: map[string]string{},
	}
}

func (r *MemoryUserRepository) FindByEmail(_ context.Context, email string) (model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.lookupLocked(r.byEmail[email])
}

func (r *MemoryUserRepository) FindByPhone(_ context.Context, phone string) (model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.lookupLocked(r.byPhone[phone])
}

func (r *MemoryUserRepository) FindByRefreshToken(_ context.Context, refreshToken string) (model.User, error) {
	if refreshToken == "" {
		return model.User{}, model.ErrUserNotFound
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.byID {
		if u.RefreshToken == refreshToken {
			return cloneUser(u), nil
		}
	}
	return model.User{}, model.ErrUserNotFound
}

func (r *MemoryUserRepository) Create(_ context.Context, in model.NewUser) (model.User, error) {
	phone := strings.TrimSpace(in.Phone)
	roles := in.Roles
	if len(roles) == 0 {
		roles = model.DefaultRoles
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byEmail[in.Email]; exists {
		return model.User{}, model.ErrUserAlreadyExists
	}
	if phone != "" {
		if _, exists := r.byPhone[phone]; exists {
			return model.User{}, model.ErrUserAlreadyExists
		}
	}

	now := time.Now().UTC()
	u := model.User{
		ID:           uuid.NewString(),
		Email:        in.Email,
		Phone:        phone,
		PasswordHash: in.PasswordHash,
		Roles:        slices.Clone(roles),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	r.byID[u.ID] = u
	r.byEmail[u.Email] = u.ID
	if phone != "" {
		r.byPhone[phone] = u.ID
	}

	return cloneUser(u), nil
}

func (r *MemoryUserRepository) SetRefreshToken(_ context.Context, userID string, refreshToken string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, exists := r.byID[userID]
	if !exists {
		return model.ErrUserNotFound
	}
	u.RefreshToken = refreshToken
	u.UpdatedAt = time.Now().UTC()
	r.byID[userID] = u
	return nil
}

// SetRoles replaces a user's roles.
func (r *MemoryUserRepository) SetRoles(_ context.Context, userID string, roles []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, exists := r.byID[userID]
	if !exists {
		return model.ErrUserNotFound
	}
	u.Roles = slices.Clone(roles)
	u.UpdatedAt = time.Now().UTC()
	r.byID[userID] = u
	return nil
}

func (r *MemoryUserRepository) lookupLocked(id string) (model.User, error) {
	if id == "" {
		return model.User{}, model.ErrUserNotFound
	}
	u, exists := r.byID[id]
	if !exists {
		return model.User{}, model.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func cloneUser(u model.User) model.User {
	u.Roles = slices.Clone(u.Roles)
	return u
}
