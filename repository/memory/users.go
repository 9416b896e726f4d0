package memory

import (
	"context"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/phillip/crowdfunding-go/models"
	"github.com/phillip/crowdfunding-go/repository"
)

type UserRepository struct {
	mu      sync.RWMutex
	byEmail map[string]models.User
}

var _ repository.UserRepository = (*UserRepository)(nil)

func NewUserRepository() *UserRepository {
	return &UserRepository{byEmail: make(map[string]models.User)}
}

func (r *UserRepository) Create(_ context.Context, u *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byEmail[u.Email]; exists {
		return repository.ErrDuplicate
	}
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	r.byEmail[u.Email] = *u
	return nil
}

func (r *UserRepository) FindByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byEmail[email]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}
