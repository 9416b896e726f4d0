package services

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/phillip/crowdfunding-go/errors"
	"github.com/phillip/crowdfunding-go/models"
	"github.com/phillip/crowdfunding-go/repository/memory"
)

type sentMail struct{ to, subject, body string }

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (n *recordingNotifier) SendEmail(_ context.Context, to, subject, body string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentMail{to, subject, body})
	return n.err
}

type fakeImages struct {
	uploaded []string
	deleted  []string
}

func (f *fakeImages) Upload(_ context.Context, file io.Reader, folder string) (string, error) {
	b, err := io.ReadAll(file)
	if err != nil {
		return "", err
	}
	url := "https://img.test/" + folder + "/" + string(b)
	f.uploaded = append(f.uploaded, url)
	return url, nil
}

func (f *fakeImages) Delete(_ context.Context, url string) error {
	f.deleted = append(f.deleted, url)
	return nil
}

type fixture struct {
	svc    *CampaignService
	users  *memory.UserRepository
	mail   *recordingNotifier
	images *fakeImages
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		users:  memory.NewUserRepository(),
		mail:   &recordingNotifier{},
		images: &fakeImages{},
	}
	f.svc = NewCampaignService(memory.NewCampaignRepository(), f.users, f.images, f.mail, nil)
	return f
}

func (f *fixture) create(t *testing.T, goal float64) *models.Campaign {
	t.Helper()
	c, err := f.svc.Create(context.Background(), CreateCampaignInput{
		Title:            "School roof",
		Country:          "KE",
		ZipCode:          "00100",
		Description:      "Fix the roof",
		Recipient:        "Education",
		Goal:             goal,
		CreatedUsername:  "jane",
		CreatedUserEmail: "Jane@Example.com",
	})
	require.NoError(t, err)
	return c
}

func (f *fixture) approved(t *testing.T, goal float64) *models.Campaign {
	t.Helper()
	c := f.create(t, goal)
	c, err := f.svc.Moderate(context.Background(), c.ID.Hex(), ActionApprove)
	require.NoError(t, err)
	return c
}

func TestCreateStartsPendingForOrdinaryCreator(t *testing.T) {
	f := newFixture(t)
	c := f.create(t, 500)

	assert.Equal(t, models.StatusPending, c.Status)
	assert.Equal(t, 500.0, c.RemainingAmount)
	assert.Zero(t, c.AmountRaised)
	assert.Equal(t, "jane@example.com", c.CreatedUserEmail)
	assert.False(t, c.CreatedOn.IsZero())
}

func TestCreateStartsApprovedForAdmin(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.users.Create(context.Background(), &models.User{
		Name: "Admin", Email: "jane@example.com", IsAdmin: true,
	}))

	c := f.create(t, 500)
	assert.Equal(t, models.StatusApproved, c.Status)
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, CreateCampaignInput{Title: "t", CreatedUserEmail: "a@b.c", Recipient: "Yachts", Goal: 10})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrInvalidRecipient))

	_, err = f.svc.Create(ctx, CreateCampaignInput{Title: "t", CreatedUserEmail: "a@b.c", Recipient: "Medical", Goal: 0})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrInvalidGoal))

	_, err = f.svc.Create(ctx, CreateCampaignInput{Recipient: "Medical", Goal: 10})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrMissingFields))
}

func TestModerate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.create(t, 100)

	got, err := f.svc.Moderate(ctx, c.ID.Hex(), ActionApprove)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, got.Status)
	require.Len(t, f.mail.sent, 1)
	assert.Equal(t, "jane@example.com", f.mail.sent[0].to)

	// Re-approving is a no-op.
	_, err = f.svc.Moderate(ctx, c.ID.Hex(), ActionApprove)
	require.NoError(t, err)

	_, err = f.svc.Moderate(ctx, c.ID.Hex(), ActionReject)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrInvalidTransition))

	_, err = f.svc.Moderate(ctx, "65f1c0ffee0000000000beef", ActionApprove)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrNotFound))
}

func TestNotificationsEscapeTitle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c, err := f.svc.Create(ctx, CreateCampaignInput{
		Title:            `<script>alert("x")</script>`,
		Recipient:        "Medical",
		Goal:             10,
		CreatedUserEmail: "jane@example.com",
	})
	require.NoError(t, err)

	_, err = f.svc.Moderate(ctx, c.ID.Hex(), ActionApprove)
	require.NoError(t, err)
	_, _, err = f.svc.Donate(ctx, c.ID.Hex(), DonationInput{DonorName: "A", Amount: 10})
	require.NoError(t, err)

	require.Len(t, f.mail.sent, 2)
	for _, m := range f.mail.sent {
		assert.NotContains(t, m.body, "<script>")
		assert.Contains(t, m.body, "&lt;script&gt;alert(&#34;x&#34;)&lt;/script&gt;")
	}
}

func TestModerateCannotReopenCompleted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.approved(t, 10)

	_, _, err := f.svc.Donate(ctx, c.ID.Hex(), DonationInput{DonorName: "A", Amount: 10})
	require.NoError(t, err)

	_, err = f.svc.Moderate(ctx, c.ID.Hex(), ActionApprove)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrInvalidTransition))
	_, err = f.svc.Moderate(ctx, c.ID.Hex(), ActionReject)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrInvalidTransition))
}

func TestModerateSurvivesMailerFailure(t *testing.T) {
	f := newFixture(t)
	f.mail.err = errors.New("smtp down")
	c := f.create(t, 100)

	got, err := f.svc.Moderate(context.Background(), c.ID.Hex(), ActionReject)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, got.Status)
}

func TestDonate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.approved(t, 100)

	got, donors, err := f.svc.Donate(ctx, c.ID.Hex(), DonationInput{DonorName: "A", Amount: 40, Tip: 2})
	require.NoError(t, err)
	assert.Equal(t, 1, donors)
	assert.Equal(t, 40.0, got.AmountRaised)
	assert.Equal(t, 60.0, got.RemainingAmount)
	assert.Equal(t, "A", got.TopDonor)
	assert.Equal(t, 2.0, got.Donations[0].Tip)
	assert.Equal(t, models.StatusApproved, got.Status)
}

func TestDonateTopDonorIsLargestSingleDonation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.approved(t, 1000)

	for _, d := range []DonationInput{{"B", 30, 0}, {"A", 50, 0}, {"B", 40, 0}} {
		_, _, err := f.svc.Donate(ctx, c.ID.Hex(), d)
		require.NoError(t, err)
	}
	got, err := f.svc.GetByID(ctx, c.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, "A", got.TopDonor)
	assert.Equal(t, 120.0, got.AmountRaised)
}

func TestDonateRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.approved(t, 100)
	id := c.ID.Hex()

	cases := []struct {
		name string
		in   DonationInput
		code apperrors.ErrorCode
	}{
		{"zero amount", DonationInput{DonorName: "A", Amount: 0}, apperrors.ErrInvalidDonation},
		{"negative amount", DonationInput{DonorName: "A", Amount: -5}, apperrors.ErrInvalidDonation},
		{"blank donor", DonationInput{DonorName: "  ", Amount: 5}, apperrors.ErrInvalidDonation},
		{"negative tip", DonationInput{DonorName: "A", Amount: 5, Tip: -1}, apperrors.ErrInvalidDonation},
		{"over remaining", DonationInput{DonorName: "A", Amount: 101}, apperrors.ErrExceedsRemaining},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := f.svc.Donate(ctx, id, tc.in)
			assert.True(t, apperrors.HasCode(err, tc.code), "got %v", err)
		})
	}

	got, err := f.svc.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, got.Donations)
	assert.Equal(t, 100.0, got.RemainingAmount)

	_, _, err = f.svc.Donate(ctx, "nope", DonationInput{DonorName: "A", Amount: 1})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrNotFound))
}

func TestDonateExceedsRemainingMessage(t *testing.T) {
	f := newFixture(t)
	c := f.approved(t, 100)

	_, _, err := f.svc.Donate(context.Background(), c.ID.Hex(), DonationInput{DonorName: "A", Amount: 150})
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "Cannot donate more than the remaining goal amount of 100.", appErr.Message)
}

func TestDonateCompletesCampaignAndNotifies(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.approved(t, 50)
	f.mail.sent = nil

	got, _, err := f.svc.Donate(ctx, c.ID.Hex(), DonationInput{DonorName: "A", Amount: 50})
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, got.Status)
	assert.Zero(t, got.RemainingAmount)
	require.Len(t, f.mail.sent, 1)
	assert.Equal(t, "Your campaign reached its goal", f.mail.sent[0].subject)
}

func TestDonateFillsFractionalGoal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.approved(t, 0.3)

	_, _, err := f.svc.Donate(ctx, c.ID.Hex(), DonationInput{DonorName: "A", Amount: 0.1})
	require.NoError(t, err)

	got, donors, err := f.svc.Donate(ctx, c.ID.Hex(), DonationInput{DonorName: "B", Amount: 0.2})
	require.NoError(t, err)
	assert.Equal(t, 2, donors)
	assert.Equal(t, models.StatusCompleted, got.Status)
	assert.Equal(t, 0.3, got.AmountRaised)
	assert.Zero(t, got.RemainingAmount)
}

func TestDonateRoundsToCents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.approved(t, 10)

	got, _, err := f.svc.Donate(ctx, c.ID.Hex(), DonationInput{DonorName: "A", Amount: 1.005000001})
	require.NoError(t, err)
	assert.Equal(t, 1.01, got.Donations[0].Amount)
	assert.Equal(t, 8.99, got.RemainingAmount)

	// Rounds to zero.
	_, _, err = f.svc.Donate(ctx, c.ID.Hex(), DonationInput{DonorName: "A", Amount: 0.004})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrInvalidDonation))
}

func TestConcurrentDonationsNeverOvershoot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.approved(t, 100)

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, _ = f.svc.Donate(ctx, c.ID.Hex(), DonationInput{DonorName: "A", Amount: 3})
		}()
	}
	wg.Wait()

	got, err := f.svc.GetByID(ctx, c.ID.Hex())
	require.NoError(t, err)
	assert.Len(t, got.Donations, 33)
	assert.Equal(t, 99.0, got.AmountRaised)
	assert.Equal(t, 1.0, got.RemainingAmount)
}

func TestUpdate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.approved(t, 100)
	_, _, err := f.svc.Donate(ctx, c.ID.Hex(), DonationInput{DonorName: "A", Amount: 30})
	require.NoError(t, err)

	got, err := f.svc.Update(ctx, c.ID.Hex(), UpdateCampaignInput{
		Title: "New roof", Recipient: "community", Goal: 200,
	})
	require.NoError(t, err)
	assert.Equal(t, "New roof", got.Title)
	assert.Equal(t, models.RecipientCommunity, got.Recipient)
	assert.Equal(t, 170.0, got.RemainingAmount)
}

func TestUpdateGoalBelowRaised(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.approved(t, 100)
	_, _, err := f.svc.Donate(ctx, c.ID.Hex(), DonationInput{DonorName: "A", Amount: 60})
	require.NoError(t, err)

	_, err = f.svc.Update(ctx, c.ID.Hex(), UpdateCampaignInput{Title: "x", Recipient: "Medical", Goal: 50})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrInvalidGoal))

	got, err := f.svc.GetByID(ctx, c.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, "School roof", got.Title)
	assert.Equal(t, 100.0, got.Goal)
	assert.Equal(t, 40.0, got.RemainingAmount)
}

func TestUpdateGoalEqualToRaisedCompletes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.approved(t, 100)
	_, _, err := f.svc.Donate(ctx, c.ID.Hex(), DonationInput{DonorName: "A", Amount: 60})
	require.NoError(t, err)

	got, err := f.svc.Update(ctx, c.ID.Hex(), UpdateCampaignInput{Title: "x", Recipient: "Medical", Goal: 60})
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, got.Status)
	assert.Zero(t, got.RemainingAmount)
}

func TestUpdateCompletedCampaignKeepsGoal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.approved(t, 100)
	_, _, err := f.svc.Donate(ctx, c.ID.Hex(), DonationInput{DonorName: "A", Amount: 100})
	require.NoError(t, err)

	_, err = f.svc.Update(ctx, c.ID.Hex(), UpdateCampaignInput{Title: "More", Recipient: "Medical", Goal: 500})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrInvalidTransition))

	got, err := f.svc.GetByID(ctx, c.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, 100.0, got.Goal)
	assert.Zero(t, got.RemainingAmount)
	assert.Equal(t, "School roof", got.Title)

	// Same goal, other fields change.
	got, err = f.svc.Update(ctx, c.ID.Hex(), UpdateCampaignInput{Title: "Roof done", Recipient: "Medical", Goal: 100})
	require.NoError(t, err)
	assert.Equal(t, "Roof done", got.Title)
	assert.Equal(t, models.StatusCompleted, got.Status)

	_, _, err = f.svc.Donate(ctx, c.ID.Hex(), DonationInput{DonorName: "B", Amount: 1})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrExceedsRemaining))
}

func TestUpdateReplacesImage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c, err := f.svc.Create(ctx, CreateCampaignInput{
		Title: "t", Recipient: "Medical", Goal: 10, CreatedUserEmail: "a@b.c", Image: "https://img.test/old.jpg",
	})
	require.NoError(t, err)

	got, err := f.svc.Update(ctx, c.ID.Hex(), UpdateCampaignInput{
		Title: "t", Recipient: "Medical", Goal: 10, Image: "https://img.test/new.jpg",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://img.test/new.jpg", got.Image)
	assert.Equal(t, []string{"https://img.test/old.jpg"}, f.images.deleted)
}

func TestUpdateUnknownCampaign(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Update(context.Background(), "nope", UpdateCampaignInput{Title: "x", Recipient: "Medical", Goal: 5})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrNotFound))
}

func TestComments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.create(t, 10)

	_, err := f.svc.AddComment(ctx, c.ID.Hex(), "", "hello")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrMissingFields))

	comments, err := f.svc.AddComment(ctx, c.ID.Hex(), "Sam", "Good luck")
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, "Sam", comments[0].Name)
	assert.False(t, comments[0].CreatedOn.IsZero())

	comments, err = f.svc.AddComment(ctx, c.ID.Hex(), "Lee", "Shared it")
	require.NoError(t, err)
	assert.Len(t, comments, 2)

	listed, err := f.svc.GetComments(ctx, c.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, comments, listed)

	_, err = f.svc.GetComments(ctx, "nope")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrNotFound))
}

func TestUpdates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.create(t, 10)

	_, err := f.svc.AddUpdate(ctx, c.ID.Hex(), nil, " ")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrMissingFields))

	updates, err := f.svc.AddUpdate(ctx, c.ID.Hex(), nil, "Roof half done")
	require.NoError(t, err)
	require.Len(t, updates, 1)
	assert.NotNil(t, updates[0].Images)

	updates, err = f.svc.AddUpdate(ctx, c.ID.Hex(), []string{"https://img.test/a.jpg"}, "Done")
	require.NoError(t, err)
	assert.Len(t, updates, 2)

	listed, err := f.svc.GetUpdates(ctx, c.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, []string{"https://img.test/a.jpg"}, listed[1].Images)
}

func TestListings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pending := f.create(t, 10)
	approved := f.approved(t, 10)
	rejected := f.create(t, 10)
	_, err := f.svc.Moderate(ctx, rejected.ID.Hex(), ActionReject)
	require.NoError(t, err)

	list, err := f.svc.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, pending.ID, list[0].ID)

	list, err = f.svc.ListApproved(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, approved.ID, list[0].ID)

	list, err = f.svc.ListByRecipient(ctx, "education")
	require.NoError(t, err)
	assert.Len(t, list, 2)

	list, err = f.svc.ListByRecipient(ctx, "Medical")
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)

	_, err = f.svc.ListByRecipient(ctx, "Yachts")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrInvalidRecipient))
}

func TestUploadImage(t *testing.T) {
	f := newFixture(t)
	url, err := f.svc.UploadImage(context.Background(), strings.NewReader("cover"), "covers")
	require.NoError(t, err)
	assert.Equal(t, "https://img.test/covers/cover", url)

	bare := NewCampaignService(memory.NewCampaignRepository(), memory.NewUserRepository(), nil, nil, nil)
	_, err = bare.UploadImage(context.Background(), strings.NewReader("x"), "covers")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrValidation))
}
