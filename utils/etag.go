package utils

import (
	"crypto/sha1"
	"encoding/hex"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// GenerateETag derives a weak validator from a document id and its last
// modification time.
func GenerateETag(id primitive.ObjectID, updatedAt time.Time) string {
	sum := sha1.Sum([]byte(id.Hex() + ":" + strconv.FormatInt(updatedAt.UnixNano(), 10)))
	return `W/"` + hex.EncodeToString(sum[:]) + `"`
}
