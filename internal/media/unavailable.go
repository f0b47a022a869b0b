package media

import (
	"context"
	"errors"
)

// ErrUnavailable is returned by Unavailable for every write.
var ErrUnavailable = errors.New("media: no media host configured")

// Unavailable stands in for S3Host when no bucket is configured. The API
// keeps working for everything that does not touch binaries.
type Unavailable struct{}

func (Unavailable) Upload(context.Context, UploadInput) (*Asset, error) {
	observe("upload", ErrUnavailable)
	return nil, ErrUnavailable
}

func (Unavailable) DeleteImage(context.Context, string) error { return ErrUnavailable }
func (Unavailable) DeleteVideo(context.Context, string) error { return ErrUnavailable }

func (Unavailable) DeleteAssets(_ context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return ErrUnavailable
}

func (Unavailable) AssetIDFromURL(raw string) string { return LegacyAssetID(raw) }
