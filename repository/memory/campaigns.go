// Package memory holds mutex-guarded in-process repositories. They honour the
// same atomicity contract as the mongo adapters.
package memory

import (
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/phillip/crowdfunding-go/models"
	"github.com/phillip/crowdfunding-go/repository"
)

type CampaignRepository struct {
	mu    sync.Mutex
	order []primitive.ObjectID
	docs  map[primitive.ObjectID]*models.Campaign
	now   func() time.Time
}

var _ repository.CampaignRepository = (*CampaignRepository)(nil)

func NewCampaignRepository() *CampaignRepository {
	return &CampaignRepository{
		docs: make(map[primitive.ObjectID]*models.Campaign),
		now:  time.Now,
	}
}

func (r *CampaignRepository) Create(_ context.Context, c *models.Campaign) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	if _, exists := r.docs[c.ID]; exists {
		return repository.ErrDuplicate
	}
	r.docs[c.ID] = cloneCampaign(c)
	r.order = append(r.order, c.ID)
	return nil
}

func (r *CampaignRepository) FindByID(_ context.Context, id string) (*models.Campaign, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, err := r.lookup(id)
	if err != nil {
		return nil, err
	}
	return cloneCampaign(c), nil
}

func (r *CampaignRepository) FindByStatus(_ context.Context, statuses ...models.CampaignStatus) ([]models.Campaign, error) {
	return r.filter(func(c *models.Campaign) bool {
		return hasStatus(c.Status, statuses)
	}), nil
}

func (r *CampaignRepository) FindByRecipient(_ context.Context, recipient models.Recipient, statuses ...models.CampaignStatus) ([]models.Campaign, error) {
	return r.filter(func(c *models.Campaign) bool {
		return c.Recipient == recipient && hasStatus(c.Status, statuses)
	}), nil
}

func (r *CampaignRepository) SetStatus(_ context.Context, id string, target models.CampaignStatus, from []models.CampaignStatus) (*models.Campaign, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, err := r.lookup(id)
	if err != nil {
		return nil, err
	}
	if !hasStatus(c.Status, from) {
		return nil, repository.ErrConditionFailed
	}
	c.Status = target
	c.UpdatedAt = r.now()
	return cloneCampaign(c), nil
}

func (r *CampaignRepository) Edit(_ context.Context, id string, e models.CampaignEdit) (*models.Campaign, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, err := r.lookup(id)
	if err != nil {
		return nil, err
	}
	if !c.ApplyEdit(e) {
		return nil, repository.ErrConditionFailed
	}
	c.UpdatedAt = r.now()
	return cloneCampaign(c), nil
}

func (r *CampaignRepository) Donate(_ context.Context, id string, d models.Donation) (*models.Campaign, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, err := r.lookup(id)
	if err != nil {
		return nil, err
	}
	if !c.ApplyDonation(d) {
		return nil, repository.ErrConditionFailed
	}
	c.UpdatedAt = r.now()
	return cloneCampaign(c), nil
}

func (r *CampaignRepository) AddComment(_ context.Context, id string, cm models.Comment) ([]models.Comment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, err := r.lookup(id)
	if err != nil {
		return nil, err
	}
	c.Comments = append(c.Comments, cm)
	c.UpdatedAt = r.now()
	return append([]models.Comment(nil), c.Comments...), nil
}

func (r *CampaignRepository) AddUpdate(_ context.Context, id string, u models.Update) ([]models.Update, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, err := r.lookup(id)
	if err != nil {
		return nil, err
	}
	u.Images = append([]string(nil), u.Images...)
	c.Updates = append(c.Updates, u)
	c.UpdatedAt = r.now()
	return cloneUpdates(c.Updates), nil
}

// lookup must be called with r.mu held.
func (r *CampaignRepository) lookup(id string) (*models.Campaign, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, repository.ErrNotFound
	}
	c, ok := r.docs[oid]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return c, nil
}

func (r *CampaignRepository) filter(keep func(*models.Campaign) bool) []models.Campaign {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := []models.Campaign{}
	for _, id := range r.order {
		if c := r.docs[id]; keep(c) {
			out = append(out, *cloneCampaign(c))
		}
	}
	return out
}

func hasStatus(s models.CampaignStatus, statuses []models.CampaignStatus) bool {
	for _, want := range statuses {
		if s == want {
			return true
		}
	}
	return false
}

func cloneCampaign(c *models.Campaign) *models.Campaign {
	cp := *c
	cp.Donations = append([]models.Donation{}, c.Donations...)
	cp.Comments = append([]models.Comment{}, c.Comments...)
	cp.Updates = cloneUpdates(c.Updates)
	return &cp
}

func cloneUpdates(in []models.Update) []models.Update {
	out := make([]models.Update, len(in))
	for i, u := range in {
		u.Images = append([]string{}, u.Images...)
		out[i] = u
	}
	return out
}
