package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Category is a display label; campaigns do not reference it.
type Category struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CategoryName     string             `bson:"category_name" json:"categoryName"`
	ImageURL         string             `bson:"image_url" json:"imageUrl"`
	CreatedUsername  string             `bson:"created_username" json:"createdUsername"`
	CreatedUserEmail string             `bson:"created_user_email" json:"createdUserEmail"`
	CreatedOn        time.Time          `bson:"created_on" json:"createdOn"`
}
