package utils

import (
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"github.com/phillip/crowdfunding-go/models"
)

func TestTokenRoundTrip(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	issuer := NewTokenIssuer("secret", time.Hour).WithClock(func() time.Time { return now })
	u := &models.User{ID: primitive.NewObjectID(), Name: "Ada", Email: "ada@example.com", IsAdmin: true}

	token, err := issuer.Issue(u)
	require.NoError(t, err)

	claims, err := issuer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, u.ID.Hex(), claims.UserID)
	assert.Equal(t, "Ada", claims.Name)
	assert.Equal(t, "ada@example.com", claims.Email)
	assert.True(t, claims.IsAdmin)
	assert.Equal(t, now.Add(time.Hour), claims.ExpiresAt.Time.UTC())
}

func TestTokenExpires(t *testing.T) {
	now := time.Now()
	issuer := NewTokenIssuer("secret", time.Hour).WithClock(func() time.Time { return now })
	token, err := issuer.Issue(&models.User{ID: primitive.NewObjectID()})
	require.NoError(t, err)

	later := NewTokenIssuer("secret", time.Hour).WithClock(func() time.Time { return now.Add(2 * time.Hour) })
	_, err = later.Parse(token)
	assert.Error(t, err)
}

func TestTokenWrongSecret(t *testing.T) {
	token, err := NewTokenIssuer("one", time.Hour).Issue(&models.User{ID: primitive.NewObjectID()})
	require.NoError(t, err)

	_, err = NewTokenIssuer("two", time.Hour).Parse(token)
	assert.Error(t, err)

	_, err = NewTokenIssuer("two", time.Hour).Parse("")
	assert.Error(t, err)
}

func TestPasswordHasher(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost)

	hash, err := h.Hash("hunter2")
	require.NoError(t, err)
	assert.NotEqual(t, "hunter2", hash)
	assert.True(t, h.Check(hash, "hunter2"))
	assert.False(t, h.Check(hash, "hunter3"))
}

func TestPasswordHasherRejectsLongPassword(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost)

	_, err := h.Hash(strings.Repeat("a", MaxPasswordBytes+1))
	assert.ErrorIs(t, err, ErrPasswordTooLong)

	_, err = h.Hash(strings.Repeat("a", MaxPasswordBytes))
	assert.NoError(t, err)
}

func TestPasswordHasherClampsCost(t *testing.T) {
	assert.Equal(t, bcrypt.DefaultCost, NewPasswordHasher(99).cost)
}

func TestExtractPublicID(t *testing.T) {
	cases := map[string]string{
		"https://res.cloudinary.com/demo/image/upload/v1234567890/campaigns/covers/abc123.jpg": "campaigns/covers/abc123",
		"https://res.cloudinary.com/demo/image/upload/campaigns/abc123.png":                    "campaigns/abc123",
		"https://res.cloudinary.com/demo/image/upload/v12/abc.webp":                            "abc",
	}
	for in, want := range cases {
		got, err := extractPublicID(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := extractPublicID("https://example.com/picture.jpg")
	assert.Error(t, err)
}

func TestGenerateETag(t *testing.T) {
	id := primitive.NewObjectID()
	at := time.Now()

	assert.Equal(t, GenerateETag(id, at), GenerateETag(id, at))
	assert.NotEqual(t, GenerateETag(id, at), GenerateETag(id, at.Add(time.Second)))
}

func TestBindingErrorMessage(t *testing.T) {
	v := validator.New()
	require.NoError(t, v.RegisterValidation("recipient", ValidateRecipient))

	type input struct {
		Title     string  `validate:"required"`
		Recipient string  `validate:"required,recipient"`
		Goal      float64 `validate:"gt=0"`
	}

	err := v.Struct(input{Recipient: "Yachts"})
	require.Error(t, err)
	msg := BindingErrorMessage(err)
	assert.Contains(t, msg, "title is required")
	assert.Contains(t, msg, "recipient must be one of Medical")
	assert.Contains(t, msg, "goal must be greater than 0")

	assert.NoError(t, v.Struct(input{Title: "t", Recipient: "education", Goal: 1}))
	assert.Equal(t, "Invalid request body.", BindingErrorMessage(assert.AnError))
}
