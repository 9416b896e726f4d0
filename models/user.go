package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name         string             `bson:"name" json:"name"`
	Email        string             `bson:"email" json:"email"` // stored lower-cased, unique
	PasswordHash string             `bson:"password" json:"-"`  // bcrypt hash, never serialized
	IsAdmin      bool               `bson:"is_admin" json:"isAdmin"`
	CreatedAt    time.Time          `bson:"created_at" json:"createdAt"`
}
