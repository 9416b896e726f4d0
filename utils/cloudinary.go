package utils

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"

	"github.com/phillip/crowdfunding-go/config"
)

// CloudinaryStore uploads campaign and category images.
type CloudinaryStore struct {
	cld    *cloudinary.Cloudinary
	folder string
}

func NewCloudinaryStore(cfg config.Cloudinary) (*CloudinaryStore, error) {
	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("cloudinary config error: %v", err)
	}
	return &CloudinaryStore{cld: cld, folder: cfg.Folder}, nil
}

// Upload stores file under <folder>/<sub> and returns its secure URL.
func (s *CloudinaryStore) Upload(ctx context.Context, file io.Reader, sub string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	uploadResp, err := s.cld.Upload.Upload(ctx, file, uploader.UploadParams{
		Folder: path.Join(s.folder, sub),
	})
	if err != nil {
		return "", fmt.Errorf("upload error: %v", err)
	}
	if uploadResp.Error.Message != "" {
		return "", fmt.Errorf("upload error: %s", uploadResp.Error.Message)
	}
	return uploadResp.SecureURL, nil
}

// Delete removes the image behind a Cloudinary delivery URL.
func (s *CloudinaryStore) Delete(ctx context.Context, imageURL string) error {
	publicID, err := extractPublicID(imageURL)
	if err != nil {
		return fmt.Errorf("could not extract public ID: %v", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if _, err = s.cld.Upload.Destroy(ctx, uploader.DestroyParams{PublicID: publicID}); err != nil {
		return fmt.Errorf("delete error: %v", err)
	}
	return nil
}

// extractPublicID turns
// https://res.cloudinary.com/demo/image/upload/v1234567890/campaigns/covers/abc123.jpg
// into "campaigns/covers/abc123".
func extractPublicID(imageURL string) (string, error) {
	parsedURL, err := url.Parse(imageURL)
	if err != nil {
		return "", err
	}

	parts := strings.Split(strings.Trim(parsedURL.Path, "/"), "/")
	upload := -1
	for i, p := range parts {
		if p == "upload" {
			upload = i
			break
		}
	}
	if upload < 0 || upload == len(parts)-1 {
		return "", fmt.Errorf("invalid cloudinary URL format")
	}

	rest := parts[upload+1:]
	if len(rest) > 1 && isVersion(rest[0]) {
		rest = rest[1:]
	}

	joined := path.Join(rest...)
	return strings.TrimSuffix(joined, path.Ext(joined)), nil
}

func isVersion(s string) bool {
	if len(s) < 2 || s[0] != 'v' {
		return false
	}
	for _, r := range s[1:] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
