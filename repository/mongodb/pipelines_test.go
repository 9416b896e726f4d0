package mongodb

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/phillip/crowdfunding-go/models"
)

func stage(t *testing.T, p []bson.D, i int) bson.M {
	t.Helper()
	require.Greater(t, len(p), i)
	require.Len(t, p[i], 1)
	assert.Equal(t, "$set", p[i][0].Key)
	m, ok := p[i][0].Value.(bson.M)
	require.True(t, ok)
	return m
}

func TestDonationPipelineQuotesDonorName(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	d := models.Donation{DonorName: "$goal", Amount: 25, CreatedOn: now}

	p := donationPipeline(d, now)
	require.Len(t, p, 2)

	first := stage(t, p, 0)
	concat := first["donations"].(bson.M)["$concatArrays"].(bson.A)
	appended := concat[1].(bson.A)[0].(bson.M)
	doc := appended["$literal"].(bson.D)

	assert.Equal(t, bson.D{
		{Key: "donor_name", Value: "$goal"},
		{Key: "amount", Value: 25.0},
		{Key: "created_on", Value: now},
	}, doc)
	assert.Equal(t, now, first["updated_at"])
	assert.Equal(t, bson.M{"$round": bson.A{
		bson.M{"$subtract": bson.A{"$remaining_amount", 25.0}}, 2,
	}}, first["remaining_amount"])
	assert.Equal(t, bson.M{"$round": bson.A{
		bson.M{"$add": bson.A{"$amount_raised", 25.0}}, 2,
	}}, first["amount_raised"])

	second := stage(t, p, 1)
	assert.Contains(t, second, "status")
	assert.Contains(t, second, "top_donor")
}

func TestDonationDocKeepsTip(t *testing.T) {
	doc := donationDoc(models.Donation{DonorName: "A", Amount: 10, Tip: 2})
	assert.Equal(t, "tip", doc[2].Key)
	assert.Equal(t, 2.0, doc[2].Value)
}

func TestEditPipeline(t *testing.T) {
	now := time.Now()
	e := models.CampaignEdit{Title: "$where", Recipient: models.RecipientEducation, Goal: 300}

	p := editPipeline(e, now)
	require.Len(t, p, 2)

	first := stage(t, p, 0)
	assert.Equal(t, bson.M{"$literal": "$where"}, first["title"])
	assert.Equal(t, 300.0, first["goal"])
	assert.NotContains(t, first, "image")
	assert.Equal(t, bson.M{"$round": bson.A{
		bson.M{"$subtract": bson.A{300.0, "$amount_raised"}}, 2,
	}}, first["remaining_amount"])

	withImage := stage(t, editPipeline(models.CampaignEdit{Goal: 1, Image: "https://img"}, now), 0)
	assert.Equal(t, bson.M{"$literal": "https://img"}, withImage["image"])
}
