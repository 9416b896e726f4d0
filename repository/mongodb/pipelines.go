package mongodb

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/phillip/crowdfunding-go/models"
)

// literal keeps user-supplied strings from being read as field paths or
// operators inside an aggregation pipeline.
func literal(v any) bson.M {
	return bson.M{"$literal": v}
}

// completeWhen sets status to Completed when cond holds and keeps it otherwise.
func completeWhen(cond any) bson.M {
	return bson.M{"$cond": bson.M{
		"if":   cond,
		"then": models.StatusCompleted,
		"else": "$status",
	}}
}

// topDonorExpr picks the donor of the largest single donation; $gt keeps the
// first of equal amounts.
func topDonorExpr() bson.M {
	return bson.M{"$let": bson.M{
		"vars": bson.M{"top": bson.M{"$reduce": bson.M{
			"input":        bson.M{"$ifNull": bson.A{"$donations", bson.A{}}},
			"initialValue": bson.M{"name": "", "amount": -1},
			"in": bson.M{"$cond": bson.A{
				bson.M{"$gt": bson.A{"$$this.amount", "$$value.amount"}},
				bson.M{"name": "$$this.donor_name", "amount": "$$this.amount"},
				"$$value",
			}},
		}}},
		"in": "$$top.name",
	}}
}

// money rounds a numeric expression to cents, matching models.RoundAmount.
func money(expr any) bson.M {
	return bson.M{"$round": bson.A{expr, 2}}
}

// donationFilter matches the campaign only while it can absorb d.Amount.
func donationFilter(oid primitive.ObjectID, d models.Donation) bson.M {
	return bson.M{"_id": oid, "remaining_amount": bson.M{"$gte": d.Amount}}
}

// editFilter matches the campaign only when goal covers the raised amount
// and, for a completed campaign, leaves its goal unchanged.
func editFilter(oid primitive.ObjectID, e models.CampaignEdit) bson.M {
	return bson.M{
		"_id":           oid,
		"amount_raised": bson.M{"$lte": e.Goal},
		"$or": bson.A{
			bson.M{"status": bson.M{"$ne": models.StatusCompleted}},
			bson.M{"goal": e.Goal},
		},
	}
}

func donationDoc(d models.Donation) bson.D {
	doc := bson.D{
		{Key: "donor_name", Value: d.DonorName},
		{Key: "amount", Value: d.Amount},
	}
	if d.Tip != 0 {
		doc = append(doc, bson.E{Key: "tip", Value: d.Tip})
	}
	return append(doc, bson.E{Key: "created_on", Value: d.CreatedOn})
}

// donationPipeline moves d.Amount from remaining to raised, appends the
// donation, then derives status and top donor from the new totals.
func donationPipeline(d models.Donation, now time.Time) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"remaining_amount": money(bson.M{"$subtract": bson.A{"$remaining_amount", d.Amount}}),
			"amount_raised":    money(bson.M{"$add": bson.A{"$amount_raised", d.Amount}}),
			"donations": bson.M{"$concatArrays": bson.A{
				bson.M{"$ifNull": bson.A{"$donations", bson.A{}}},
				bson.A{literal(donationDoc(d))},
			}},
			"updated_at": now,
		}}},
		{{Key: "$set", Value: bson.M{
			"status":    completeWhen(bson.M{"$gte": bson.A{"$amount_raised", "$goal"}}),
			"top_donor": topDonorExpr(),
		}}},
	}
}

// editPipeline overwrites the editable fields and recomputes the remaining
// amount from the stored raised amount.
func editPipeline(e models.CampaignEdit, now time.Time) mongo.Pipeline {
	set := bson.M{
		"title":            literal(e.Title),
		"country":          literal(e.Country),
		"zip_code":         literal(e.ZipCode),
		"description":      literal(e.Description),
		"recipient":        e.Recipient,
		"goal":             e.Goal,
		"remaining_amount": money(bson.M{"$subtract": bson.A{e.Goal, "$amount_raised"}}),
		"updated_at":       now,
	}
	if e.Image != "" {
		set["image"] = literal(e.Image)
	}

	return mongo.Pipeline{
		{{Key: "$set", Value: set}},
		{{Key: "$set", Value: bson.M{
			"status": completeWhen(bson.M{"$and": bson.A{
				bson.M{"$eq": bson.A{"$status", models.StatusApproved}},
				bson.M{"$gte": bson.A{"$amount_raised", "$goal"}},
			}}),
		}}},
	}
}
