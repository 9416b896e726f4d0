// Package repository declares the storage ports used by the services. The
// mongo and memory subpackages provide the adapters.
package repository

import (
	"context"
	"errors"

	"github.com/phillip/crowdfunding-go/models"
)

var (
	ErrNotFound  = errors.New("document not found")
	ErrDuplicate = errors.New("duplicate key")

	// ErrConditionFailed means the document exists but a guarded update's
	// precondition did not hold when the write was attempted.
	ErrConditionFailed = errors.New("update condition not met")
)

// CampaignRepository persists campaigns. Every mutating method is a single
// atomic document update: the precondition and the write cannot be split by a
// concurrent writer.
type CampaignRepository interface {
	Create(ctx context.Context, c *models.Campaign) error
	FindByID(ctx context.Context, id string) (*models.Campaign, error)
	FindByStatus(ctx context.Context, statuses ...models.CampaignStatus) ([]models.Campaign, error)
	FindByRecipient(ctx context.Context, recipient models.Recipient, statuses ...models.CampaignStatus) ([]models.Campaign, error)

	// SetStatus moves the campaign to target only if its current status is one of from.
	SetStatus(ctx context.Context, id string, target models.CampaignStatus, from []models.CampaignStatus) (*models.Campaign, error)
	// Edit applies e only if the campaign's raised amount does not exceed e.Goal.
	Edit(ctx context.Context, id string, e models.CampaignEdit) (*models.Campaign, error)
	// Donate appends d only if the remaining amount covers d.Amount.
	Donate(ctx context.Context, id string, d models.Donation) (*models.Campaign, error)
	AddComment(ctx context.Context, id string, cm models.Comment) ([]models.Comment, error)
	AddUpdate(ctx context.Context, id string, u models.Update) ([]models.Update, error)
}

type UserRepository interface {
	Create(ctx context.Context, u *models.User) error
	FindByEmail(ctx context.Context, email string) (*models.User, error)
}

type CategoryRepository interface {
	Create(ctx context.Context, c *models.Category) error
	FindAll(ctx context.Context) ([]models.Category, error)
}
