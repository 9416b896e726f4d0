package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/phillip/crowdfunding-go/db"
	"github.com/phillip/crowdfunding-go/models"
	"github.com/phillip/crowdfunding-go/repository"
)

type CategoryRepository struct {
	col *mongo.Collection
}

var _ repository.CategoryRepository = (*CategoryRepository)(nil)

func NewCategoryRepository(database *mongo.Database) *CategoryRepository {
	return &CategoryRepository{col: database.Collection(db.CategoriesCollection)}
}

func (r *CategoryRepository) Create(ctx context.Context, c *models.Category) error {
	if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	if _, err := r.col.InsertOne(ctx, c); err != nil {
		return fmt.Errorf("insert category: %w", err)
	}
	return nil
}

func (r *CategoryRepository) FindAll(ctx context.Context) ([]models.Category, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_on", Value: 1}})
	cursor, err := r.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("find categories: %w", err)
	}

	categories := []models.Category{}
	if err := cursor.All(ctx, &categories); err != nil {
		return nil, fmt.Errorf("decode categories: %w", err)
	}
	return categories, nil
}
