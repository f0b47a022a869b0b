package model

import "time"

// MediaType distinguishes the two resource kinds the media host stores.
type MediaType string

const (
	MediaImage MediaType = "image"
	MediaVideo MediaType = "video"
)

func (t MediaType) Valid() bool {
	return t == MediaImage || t == MediaVideo
}

// FallbackAssetID marks a synthetic placeholder attachment that was never
// uploaded to the media host. Cleanup must skip it.
const FallbackAssetID = "fallback"

// MediaAttachment points at an externally hosted image or video.
//
// It has no identity of its own: it lives inside an Item or a Collection
// row and is created and destroyed with its parent. HostAssetID is what
// the media host needs to delete the binary later.
type MediaAttachment struct {
	URL         string    `json:"url"`
	Type        MediaType `json:"type"`
	HostAssetID string    `json:"hostAssetId"`
	Caption     string    `json:"caption,omitempty"`
	UploadedAt  time.Time `json:"uploadedAt"`
}

// MediaInput describes an already uploaded asset being attached to an item.
type MediaInput struct {
	URL         string    `json:"url"`
	Type        MediaType `json:"type"`
	HostAssetID string    `json:"hostAssetId"`
	Caption     string    `json:"caption"`
}

// MediaUpload is a raw file headed for the media host.
type MediaUpload struct {
	Data        []byte
	ContentType string
	Type        MediaType
}
