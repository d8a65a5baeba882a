// Package cloudinary wraps the Cloudinary SDK behind the one operation
// the API needs: upload an image, get back its URL.
package cloudinary

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/google/uuid"
)

type Client struct {
	cld    *cloudinary.Cloudinary
	folder string
}

func NewClient(cloudName, apiKey, apiSecret, folder string) (*Client, error) {
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("cloudinary init: %w", err)
	}
	if folder == "" {
		folder = "confiape"
	}
	return &Client{cld: cld, folder: folder}, nil
}

// UploadImage stores the file and returns its HTTPS URL. The public ID
// is random so repeated uploads of the same filename never collide.
func (c *Client) UploadImage(ctx context.Context, file io.Reader, filename string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	ext := strings.TrimPrefix(filepath.Ext(filename), ".")
	publicID := uuid.NewString()
	if ext != "" {
		publicID = publicID + "_" + ext
	}
	res, err := c.cld.Upload.Upload(ctx, file, uploader.UploadParams{
		Folder:   c.folder,
		PublicID: publicID,
	})
	if err != nil {
		return "", fmt.Errorf("cloudinary upload: %w", err)
	}
	return res.SecureURL, nil
}
