package services

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	apperrors "github.com/phillip/crowdfunding-go/errors"
	"github.com/phillip/crowdfunding-go/models"
	"github.com/phillip/crowdfunding-go/repository"
)

type CreateCategoryInput struct {
	CategoryName     string
	ImageURL         string
	CreatedUsername  string
	CreatedUserEmail string
}

type CategoryService struct {
	categories repository.CategoryRepository
	log        *zap.Logger
	now        func() time.Time
}

func NewCategoryService(categories repository.CategoryRepository, log *zap.Logger) *CategoryService {
	if log == nil {
		log = zap.NewNop()
	}
	return &CategoryService{categories: categories, log: log, now: time.Now}
}

func (s *CategoryService) Create(ctx context.Context, in CreateCategoryInput) (*models.Category, error) {
	c := &models.Category{
		CategoryName:     strings.TrimSpace(in.CategoryName),
		ImageURL:         strings.TrimSpace(in.ImageURL),
		CreatedUsername:  strings.TrimSpace(in.CreatedUsername),
		CreatedUserEmail: normalizeEmail(in.CreatedUserEmail),
	}
	if c.CategoryName == "" || c.ImageURL == "" || c.CreatedUsername == "" || c.CreatedUserEmail == "" {
		return nil, apperrors.New(apperrors.ErrMissingFields, "All fields are required.")
	}
	c.CreatedOn = s.now()

	if err := s.categories.Create(ctx, c); err != nil {
		return nil, storageError("could not create category", err)
	}
	s.log.Info("category created", zap.String("category_id", c.ID.Hex()), zap.String("name", c.CategoryName))
	return c, nil
}

func (s *CategoryService) List(ctx context.Context) ([]models.Category, error) {
	out, err := s.categories.FindAll(ctx)
	if err != nil {
		return nil, storageError("could not list categories", err)
	}
	return out, nil
}
