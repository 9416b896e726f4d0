package services

import (
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	apperrors "github.com/phillip/crowdfunding-go/errors"
	"github.com/phillip/crowdfunding-go/models"
	"github.com/phillip/crowdfunding-go/repository"
)

// ImageStore hosts uploaded images. *utils.CloudinaryStore satisfies it.
type ImageStore interface {
	Upload(ctx context.Context, file io.Reader, folder string) (string, error)
	Delete(ctx context.Context, url string) error
}

// Notifier delivers email. *utils.Mailer satisfies it.
type Notifier interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

// ModerationAction is a moderator decision on a pending campaign.
type ModerationAction string

const (
	ActionApprove ModerationAction = "approve"
	ActionReject  ModerationAction = "reject"
)

func (a ModerationAction) target() (models.CampaignStatus, bool) {
	switch a {
	case ActionApprove:
		return models.StatusApproved, true
	case ActionReject:
		return models.StatusRejected, true
	}
	return "", false
}

type CreateCampaignInput struct {
	Title            string
	Country          string
	ZipCode          string
	Description      string
	Recipient        string
	Goal             float64
	CreatedUsername  string
	CreatedUserEmail string
	Image            string
}

type UpdateCampaignInput struct {
	Title       string
	Country     string
	ZipCode     string
	Description string
	Recipient   string
	Goal        float64
	Image       string
}

type DonationInput struct {
	DonorName string
	Amount    float64
	Tip       float64
}

type CampaignService struct {
	campaigns repository.CampaignRepository
	users     repository.UserRepository
	images    ImageStore
	mail      Notifier
	log       *zap.Logger
	now       func() time.Time
}

// NewCampaignService wires the lifecycle manager. images and mail may be nil;
// uploads are then refused and notifications skipped.
func NewCampaignService(
	campaigns repository.CampaignRepository,
	users repository.UserRepository,
	images ImageStore,
	mail Notifier,
	log *zap.Logger,
) *CampaignService {
	if log == nil {
		log = zap.NewNop()
	}
	return &CampaignService{
		campaigns: campaigns,
		users:     users,
		images:    images,
		mail:      mail,
		log:       log,
		now:       time.Now,
	}
}

// UploadImage stores an image under folder and returns its URL.
func (s *CampaignService) UploadImage(ctx context.Context, file io.Reader, folder string) (string, error) {
	if s.images == nil {
		return "", apperrors.New(apperrors.ErrValidation, "Image uploads are not configured.")
	}
	url, err := s.images.Upload(ctx, file, folder)
	if err != nil {
		return "", apperrors.Wrap(apperrors.ErrInternal, "image upload failed", err)
	}
	return url, nil
}

func (s *CampaignService) Create(ctx context.Context, in CreateCampaignInput) (*models.Campaign, error) {
	if strings.TrimSpace(in.Title) == "" || strings.TrimSpace(in.CreatedUserEmail) == "" {
		return nil, apperrors.New(apperrors.ErrMissingFields, "Title and creator email are required.")
	}
	recipient, err := parseRecipient(in.Recipient)
	if err != nil {
		return nil, err
	}
	goal := models.RoundAmount(in.Goal)
	if err := checkGoal(goal); err != nil {
		return nil, err
	}

	isAdmin, err := s.creatorIsAdmin(ctx, in.CreatedUserEmail)
	if err != nil {
		return nil, err
	}

	now := s.now()
	c := &models.Campaign{
		Title:            strings.TrimSpace(in.Title),
		Country:          in.Country,
		ZipCode:          in.ZipCode,
		Description:      in.Description,
		Recipient:        recipient,
		Image:            in.Image,
		Goal:             goal,
		AmountRaised:     0,
		RemainingAmount:  goal,
		Status:           models.InitialStatus(isAdmin),
		Donations:        []models.Donation{},
		Comments:         []models.Comment{},
		Updates:          []models.Update{},
		CreatedUsername:  in.CreatedUsername,
		CreatedUserEmail: normalizeEmail(in.CreatedUserEmail),
		CreatedOn:        now,
		UpdatedAt:        now,
	}
	if err := s.campaigns.Create(ctx, c); err != nil {
		return nil, storageError("could not create campaign", err)
	}

	s.log.Info("campaign created",
		zap.String("campaign_id", c.ID.Hex()),
		zap.String("status", string(c.Status)),
		zap.String("recipient", string(c.Recipient)),
		zap.Float64("goal", c.Goal),
	)
	return c, nil
}

// creatorIsAdmin reports whether email belongs to an administrator. An
// unknown email is an ordinary creator.
func (s *CampaignService) creatorIsAdmin(ctx context.Context, email string) (bool, error) {
	u, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, storageError("could not look up creator", err)
	}
	return u.IsAdmin, nil
}

// Moderate approves or rejects a pending campaign. Re-applying the decision
// already recorded succeeds without change.
func (s *CampaignService) Moderate(ctx context.Context, id string, action ModerationAction) (*models.Campaign, error) {
	target, ok := action.target()
	if !ok {
		return nil, apperrors.Newf(apperrors.ErrValidation, "Unknown moderation action %q.", action)
	}

	c, err := s.campaigns.SetStatus(ctx, id, target, models.ModerationSources(target))
	switch {
	case errors.Is(err, repository.ErrConditionFailed):
		current, ferr := s.GetByID(ctx, id)
		if ferr != nil {
			return nil, ferr
		}
		return nil, apperrors.Newf(apperrors.ErrInvalidTransition,
			"Campaign is %s and cannot be moved to %s.", current.Status, target)
	case err != nil:
		return nil, notFoundOr(err, "could not update campaign status")
	}

	s.log.Info("campaign moderated",
		zap.String("campaign_id", c.ID.Hex()),
		zap.String("status", string(c.Status)),
	)
	s.notify(ctx, c.CreatedUserEmail,
		fmt.Sprintf("Your campaign was %s", strings.ToLower(string(c.Status))),
		fmt.Sprintf("<p>Your campaign <b>%s</b> is now %s.</p>", html.EscapeString(c.Title), c.Status),
	)
	return c, nil
}

func (s *CampaignService) Update(ctx context.Context, id string, in UpdateCampaignInput) (*models.Campaign, error) {
	current, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	recipient, err := parseRecipient(in.Recipient)
	if err != nil {
		return nil, err
	}
	goal := models.RoundAmount(in.Goal)
	if err := checkGoal(goal); err != nil {
		return nil, err
	}
	if err := goalChangeError(current, goal); err != nil {
		return nil, err
	}

	c, err := s.campaigns.Edit(ctx, id, models.CampaignEdit{
		Title:       in.Title,
		Country:     in.Country,
		ZipCode:     in.ZipCode,
		Description: in.Description,
		Recipient:   recipient,
		Goal:        goal,
		Image:       in.Image,
	})
	switch {
	case errors.Is(err, repository.ErrConditionFailed):
		// Donations landed between the read above and the write.
		latest, ferr := s.GetByID(ctx, id)
		if ferr != nil {
			return nil, ferr
		}
		if gerr := goalChangeError(latest, goal); gerr != nil {
			return nil, gerr
		}
		return nil, goalBelowRaised(latest.AmountRaised)
	case err != nil:
		return nil, notFoundOr(err, "could not update campaign")
	}

	if in.Image != "" && current.Image != "" && current.Image != in.Image {
		s.deleteImage(ctx, current.Image)
	}

	s.log.Info("campaign updated",
		zap.String("campaign_id", c.ID.Hex()),
		zap.Float64("goal", c.Goal),
		zap.Float64("remaining", c.RemainingAmount),
		zap.String("status", string(c.Status)),
	)
	return c, nil
}

// Donate records a donation and returns the updated campaign with its donor
// count. The balance check and the write are a single conditional update.
func (s *CampaignService) Donate(ctx context.Context, id string, in DonationInput) (*models.Campaign, int, error) {
	current, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, 0, err
	}

	name := strings.TrimSpace(in.DonorName)
	amount := models.RoundAmount(in.Amount)
	if amount <= 0 || math.IsNaN(amount) || math.IsInf(amount, 0) || name == "" {
		return nil, 0, apperrors.New(apperrors.ErrInvalidDonation, "Invalid donation amount or donor name.")
	}
	if in.Tip < 0 || math.IsNaN(in.Tip) || math.IsInf(in.Tip, 0) {
		return nil, 0, apperrors.New(apperrors.ErrInvalidDonation, "Tip cannot be negative.")
	}
	if amount > models.RoundAmount(current.RemainingAmount) {
		return nil, 0, exceedsRemaining(current.RemainingAmount)
	}

	wasCompleted := current.Status == models.StatusCompleted
	c, err := s.campaigns.Donate(ctx, id, models.Donation{
		DonorName: name,
		Amount:    amount,
		Tip:       models.RoundAmount(in.Tip),
		CreatedOn: s.now(),
	})
	switch {
	case errors.Is(err, repository.ErrConditionFailed):
		// A concurrent donation consumed the balance after the read above.
		latest, ferr := s.GetByID(ctx, id)
		if ferr != nil {
			return nil, 0, ferr
		}
		return nil, 0, exceedsRemaining(latest.RemainingAmount)
	case err != nil:
		return nil, 0, notFoundOr(err, "could not record donation")
	}

	s.log.Info("donation accepted",
		zap.String("campaign_id", c.ID.Hex()),
		zap.Float64("amount", amount),
		zap.Float64("raised", c.AmountRaised),
		zap.Float64("remaining", c.RemainingAmount),
	)
	if !wasCompleted && c.Status == models.StatusCompleted {
		s.log.Info("campaign completed", zap.String("campaign_id", c.ID.Hex()))
		s.notify(ctx, c.CreatedUserEmail,
			"Your campaign reached its goal",
			fmt.Sprintf("<p>Your campaign <b>%s</b> has raised %s and is now complete.</p>",
				html.EscapeString(c.Title), formatAmount(c.AmountRaised)),
		)
	}
	return c, c.DonorCount(), nil
}

func (s *CampaignService) AddComment(ctx context.Context, id, name, text string) ([]models.Comment, error) {
	if _, err := s.GetByID(ctx, id); err != nil {
		return nil, err
	}
	name, text = strings.TrimSpace(name), strings.TrimSpace(text)
	if name == "" || text == "" {
		return nil, apperrors.New(apperrors.ErrMissingFields, "Name and comment are required.")
	}

	comments, err := s.campaigns.AddComment(ctx, id, models.Comment{
		Name:      name,
		CreatedOn: s.now(),
		Comment:   text,
	})
	if err != nil {
		return nil, notFoundOr(err, "could not add comment")
	}
	return comments, nil
}

func (s *CampaignService) AddUpdate(ctx context.Context, id string, images []string, text string) ([]models.Update, error) {
	if _, err := s.GetByID(ctx, id); err != nil {
		return nil, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperrors.New(apperrors.ErrMissingFields, "Update text is required.")
	}
	if images == nil {
		images = []string{}
	}

	updates, err := s.campaigns.AddUpdate(ctx, id, models.Update{
		Images:    images,
		CreatedOn: s.now(),
		Update:    text,
	})
	if err != nil {
		return nil, notFoundOr(err, "could not add update")
	}
	return updates, nil
}

func (s *CampaignService) GetByID(ctx context.Context, id string) (*models.Campaign, error) {
	c, err := s.campaigns.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "could not load campaign")
	}
	return c, nil
}

func (s *CampaignService) GetComments(ctx context.Context, id string) ([]models.Comment, error) {
	c, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return c.Comments, nil
}

func (s *CampaignService) GetUpdates(ctx context.Context, id string) ([]models.Update, error) {
	c, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return c.Updates, nil
}

func (s *CampaignService) ListPending(ctx context.Context) ([]models.Campaign, error) {
	return s.list(ctx, models.StatusPending)
}

// ListApproved backs the public "all" listing.
func (s *CampaignService) ListApproved(ctx context.Context) ([]models.Campaign, error) {
	return s.list(ctx, models.StatusApproved)
}

// ListByRecipient returns approved and pending campaigns for one recipient
// category. An unknown category is a validation error.
func (s *CampaignService) ListByRecipient(ctx context.Context, recipient string) ([]models.Campaign, error) {
	r, err := parseRecipient(recipient)
	if err != nil {
		return nil, err
	}
	out, err := s.campaigns.FindByRecipient(ctx, r, models.StatusApproved, models.StatusPending)
	if err != nil {
		return nil, storageError("could not list campaigns", err)
	}
	return out, nil
}

func (s *CampaignService) list(ctx context.Context, status models.CampaignStatus) ([]models.Campaign, error) {
	out, err := s.campaigns.FindByStatus(ctx, status)
	if err != nil {
		return nil, storageError("could not list campaigns", err)
	}
	return out, nil
}

func (s *CampaignService) notify(ctx context.Context, to, subject, body string) {
	if s.mail == nil || to == "" {
		return
	}
	if err := s.mail.SendEmail(ctx, to, subject, body); err != nil {
		s.log.Warn("notification failed", zap.String("to", to), zap.Error(err))
	}
}

func (s *CampaignService) deleteImage(ctx context.Context, url string) {
	if s.images == nil {
		return
	}
	if err := s.images.Delete(ctx, url); err != nil {
		s.log.Warn("could not delete replaced image", zap.String("url", url), zap.Error(err))
	}
}

func parseRecipient(s string) (models.Recipient, error) {
	r, ok := models.ParseRecipient(s)
	if !ok {
		return "", apperrors.Newf(apperrors.ErrInvalidRecipient,
			"Recipient must be one of %s.", models.RecipientList())
	}
	return r, nil
}

func checkGoal(goal float64) error {
	if goal <= 0 || math.IsNaN(goal) || math.IsInf(goal, 0) {
		return apperrors.New(apperrors.ErrInvalidGoal, "Goal must be greater than zero.")
	}
	return nil
}

// goalChangeError refuses goals below the amount raised and any goal change
// on a completed campaign.
func goalChangeError(c *models.Campaign, goal float64) error {
	if c.GoalEditable(goal) {
		return nil
	}
	if c.Status == models.StatusCompleted {
		return apperrors.New(apperrors.ErrInvalidTransition, "The goal of a completed campaign cannot be changed.")
	}
	return goalBelowRaised(c.AmountRaised)
}

func goalBelowRaised(raised float64) error {
	return apperrors.Newf(apperrors.ErrInvalidGoal,
		"Goal cannot be less than the amount already raised (%s).", formatAmount(raised))
}

func exceedsRemaining(remaining float64) error {
	return apperrors.Newf(apperrors.ErrExceedsRemaining,
		"Cannot donate more than the remaining goal amount of %s.", formatAmount(remaining))
}

func formatAmount(v float64) string {
	return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%.2f", v), "0"), ".")
}
