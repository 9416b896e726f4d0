package memory

import (
	"context"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/phillip/crowdfunding-go/models"
	"github.com/phillip/crowdfunding-go/repository"
)

type CategoryRepository struct {
	mu   sync.RWMutex
	docs []models.Category
}

var _ repository.CategoryRepository = (*CategoryRepository)(nil)

func NewCategoryRepository() *CategoryRepository {
	return &CategoryRepository{}
}

func (r *CategoryRepository) Create(_ context.Context, c *models.Category) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	r.docs = append(r.docs, *c)
	return nil
}

func (r *CategoryRepository) FindAll(_ context.Context) ([]models.Category, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]models.Category{}, r.docs...), nil
}
