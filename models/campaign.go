package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type CampaignStatus string

const (
	StatusPending   CampaignStatus = "Pending"
	StatusApproved  CampaignStatus = "Approved"
	StatusRejected  CampaignStatus = "Rejected"
	StatusCompleted CampaignStatus = "Completed"
)

type Campaign struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title           string             `bson:"title" json:"title"`
	Country         string             `bson:"country,omitempty" json:"country,omitempty"`
	ZipCode         string             `bson:"zip_code,omitempty" json:"zipCode,omitempty"`
	Description     string             `bson:"description,omitempty" json:"description,omitempty"`
	Recipient       Recipient          `bson:"recipient" json:"recipient"`
	Image           string             `bson:"image,omitempty" json:"image,omitempty"` // cover image URL
	Goal            float64            `bson:"goal" json:"goal"`
	AmountRaised    float64            `bson:"amount_raised" json:"amountRaised"`
	RemainingAmount float64            `bson:"remaining_amount" json:"remainingAmount"`
	TopDonor        string             `bson:"top_donor,omitempty" json:"topDonor,omitempty"`
	Status          CampaignStatus     `bson:"status" json:"status"`

	Donations []Donation `bson:"donations" json:"donations"`
	Comments  []Comment  `bson:"comments" json:"comments"`
	Updates   []Update   `bson:"updates" json:"updates"`

	CreatedUsername  string    `bson:"created_username" json:"createdUsername"`
	CreatedUserEmail string    `bson:"created_user_email" json:"createdUserEmail"`
	CreatedOn        time.Time `bson:"created_on" json:"createdOn"`
	UpdatedAt        time.Time `bson:"updated_at" json:"updatedAt"`
}

type Donation struct {
	DonorName string    `bson:"donor_name" json:"donorName"`
	Amount    float64   `bson:"amount" json:"amount"`
	Tip       float64   `bson:"tip,omitempty" json:"tip,omitempty"`
	CreatedOn time.Time `bson:"created_on" json:"createdOn"`
}

type Comment struct {
	Name      string    `bson:"name" json:"name"`
	CreatedOn time.Time `bson:"created_on" json:"createdOn"`
	Comment   string    `bson:"comment" json:"comment"`
}

type Update struct {
	Images    []string  `bson:"images" json:"images"`
	CreatedOn time.Time `bson:"created_on" json:"createdOn"`
	Update    string    `bson:"update" json:"update"`
}

// CampaignEdit carries the fields an owner may overwrite after creation.
type CampaignEdit struct {
	Title       string
	Country     string
	ZipCode     string
	Description string
	Recipient   Recipient
	Goal        float64
	Image       string // empty keeps the current cover image
}
