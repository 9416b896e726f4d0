package services

import (
	"errors"
	"strings"

	apperrors "github.com/phillip/crowdfunding-go/errors"
	"github.com/phillip/crowdfunding-go/repository"
)

// notFoundOr maps repository.ErrNotFound to a 404 and anything else to a
// database error carrying msg.
func notFoundOr(err error, msg string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.New(apperrors.ErrNotFound, "Campaign not found.")
	}
	return storageError(msg, err)
}

func storageError(msg string, err error) error {
	return apperrors.Wrap(apperrors.ErrDatabase, msg, err)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
