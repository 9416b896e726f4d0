package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/phillip/crowdfunding-go/db"
	"github.com/phillip/crowdfunding-go/models"
	"github.com/phillip/crowdfunding-go/repository"
)

// documentCounter is the part of *mongo.Collection used to classify a
// guarded update that matched nothing.
type documentCounter interface {
	CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error)
}

type CampaignRepository struct {
	col *mongo.Collection
	now func() time.Time
}

var _ repository.CampaignRepository = (*CampaignRepository)(nil)

func NewCampaignRepository(database *mongo.Database) *CampaignRepository {
	return &CampaignRepository{
		col: database.Collection(db.CampaignsCollection),
		now: time.Now,
	}
}

func (r *CampaignRepository) Create(ctx context.Context, c *models.Campaign) error {
	if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	// stored as empty arrays so $push never meets a null field
	if c.Donations == nil {
		c.Donations = []models.Donation{}
	}
	if c.Comments == nil {
		c.Comments = []models.Comment{}
	}
	if c.Updates == nil {
		c.Updates = []models.Update{}
	}

	if _, err := r.col.InsertOne(ctx, c); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("insert campaign: %w", err)
	}
	return nil
}

func (r *CampaignRepository) FindByID(ctx context.Context, id string) (*models.Campaign, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, repository.ErrNotFound
	}

	var c models.Campaign
	if err := r.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&c); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("find campaign: %w", err)
	}
	return &c, nil
}

func (r *CampaignRepository) FindByStatus(ctx context.Context, statuses ...models.CampaignStatus) ([]models.Campaign, error) {
	return r.find(ctx, bson.M{"status": bson.M{"$in": statuses}})
}

func (r *CampaignRepository) FindByRecipient(ctx context.Context, recipient models.Recipient, statuses ...models.CampaignStatus) ([]models.Campaign, error) {
	return r.find(ctx, bson.M{
		"recipient": recipient,
		"status":    bson.M{"$in": statuses},
	})
}

func (r *CampaignRepository) SetStatus(ctx context.Context, id string, target models.CampaignStatus, from []models.CampaignStatus) (*models.Campaign, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, repository.ErrNotFound
	}

	filter := bson.M{"_id": oid, "status": bson.M{"$in": from}}
	update := bson.M{"$set": bson.M{"status": target, "updated_at": r.now()}}
	return r.findOneAndUpdate(ctx, oid, filter, update)
}

func (r *CampaignRepository) Edit(ctx context.Context, id string, e models.CampaignEdit) (*models.Campaign, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, repository.ErrNotFound
	}

	e.Goal = models.RoundAmount(e.Goal)
	return r.findOneAndUpdate(ctx, oid, editFilter(oid, e), editPipeline(e, r.now()))
}

func (r *CampaignRepository) Donate(ctx context.Context, id string, d models.Donation) (*models.Campaign, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, repository.ErrNotFound
	}

	d.Amount = models.RoundAmount(d.Amount)
	return r.findOneAndUpdate(ctx, oid, donationFilter(oid, d), donationPipeline(d, r.now()))
}

func (r *CampaignRepository) AddComment(ctx context.Context, id string, cm models.Comment) ([]models.Comment, error) {
	var out struct {
		Comments []models.Comment `bson:"comments"`
	}
	if err := r.push(ctx, id, "comments", cm, &out); err != nil {
		return nil, err
	}
	return out.Comments, nil
}

func (r *CampaignRepository) AddUpdate(ctx context.Context, id string, u models.Update) ([]models.Update, error) {
	if u.Images == nil {
		u.Images = []string{}
	}
	var out struct {
		Updates []models.Update `bson:"updates"`
	}
	if err := r.push(ctx, id, "updates", u, &out); err != nil {
		return nil, err
	}
	return out.Updates, nil
}

func (r *CampaignRepository) find(ctx context.Context, filter bson.M) ([]models.Campaign, error) {
	cursor, err := r.col.Find(ctx, filter, listOptions())
	if err != nil {
		return nil, fmt.Errorf("find campaigns: %w", err)
	}

	campaigns := []models.Campaign{}
	if err := cursor.All(ctx, &campaigns); err != nil {
		return nil, fmt.Errorf("decode campaigns: %w", err)
	}
	return campaigns, nil
}

// listOptions returns campaigns oldest first.
func listOptions() *options.FindOptions {
	return options.Find().SetSort(bson.D{{Key: "created_on", Value: 1}})
}

// findOneAndUpdate applies a guarded update and returns the new document. A
// miss is split into ErrNotFound and ErrConditionFailed.
func (r *CampaignRepository) findOneAndUpdate(ctx context.Context, oid primitive.ObjectID, filter, update any) (*models.Campaign, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var c models.Campaign
	err := r.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&c)
	if err == nil {
		return &c, nil
	}
	return nil, classifyUpdateErr(ctx, r.col, oid, err)
}

// classifyUpdateErr maps a failed guarded update. ErrNoDocuments becomes
// ErrNotFound when the document is gone and ErrConditionFailed when only the
// guard did not match.
func classifyUpdateErr(ctx context.Context, counter documentCounter, oid primitive.ObjectID, err error) error {
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("update campaign: %w", err)
	}
	n, err := counter.CountDocuments(ctx, bson.M{"_id": oid}, options.Count().SetLimit(1))
	if err != nil {
		return fmt.Errorf("count campaign: %w", err)
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return repository.ErrConditionFailed
}

func (r *CampaignRepository) push(ctx context.Context, id, field string, entry any, out any) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return repository.ErrNotFound
	}

	update := bson.M{
		"$push": bson.M{field: entry},
		"$set":  bson.M{"updated_at": r.now()},
	}
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(bson.M{field: 1})

	err = r.col.FindOneAndUpdate(ctx, bson.M{"_id": oid}, update, opts).Decode(out)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return repository.ErrNotFound
		}
		return fmt.Errorf("push %s: %w", field, err)
	}
	return nil
}
