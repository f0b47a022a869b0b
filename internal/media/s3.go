// Package media is the adapter to the external media host: an
// S3-compatible object store (AWS S3, MinIO, R2) that keeps the image and
// video binaries attached to games and collections.
//
// OBJECT LAYOUT:
//
//	<bucket>/image/<assetID>
//	<bucket>/video/<assetID>
//
// The asset id is "<namespace>/<xid>", so the public URL of an asset is
// MEDIA_PUBLIC_URL/<type>/<namespace>/<xid> and can be turned back into
// the id with AssetIDFromURL.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/xid"
	"github.com/sakif/game-library/internal/model"
)

// ErrAssetNotFound is returned by DeleteImage and DeleteVideo when no
// object of that resource type exists under the id.
var ErrAssetNotFound = errors.New("media: asset not found")

// deleteBatchSize is the DeleteObjects limit of the S3 API.
const deleteBatchSize = 1000

// Config holds what NewS3Host needs to reach the bucket.
type Config struct {
	Endpoint  string // empty means AWS itself
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	PublicURL string // base URL clients fetch assets from
}

// Asset is an uploaded binary as reported back to callers.
type Asset struct {
	ID   string          `json:"hostAssetId"`
	URL  string          `json:"url"`
	Type model.MediaType `json:"type"`
}

// UploadInput is one file to store. Namespace groups the assets of one
// owner record, e.g. "items/a@x.com/<itemID>".
type UploadInput struct {
	Namespace   string
	Data        []byte
	ContentType string
	Type        model.MediaType
}

// S3Host stores media in a single bucket.
type S3Host struct {
	client    *s3.Client
	bucket    string
	publicURL string
}

// NewS3Host builds the S3 client. Static credentials are used when an
// access key is configured; otherwise the default AWS credential chain
// (env, shared config, instance role) applies.
func NewS3Host(ctx context.Context, cfg Config) (*S3Host, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
	}
	if cfg.Endpoint != "" {
		opts = append(opts, config.WithBaseEndpoint(cfg.Endpoint))
	}
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(aws.CredentialsProviderFunc(
			func(ctx context.Context) (aws.Credentials, error) {
				return aws.Credentials{
					AccessKeyID:     cfg.AccessKey,
					SecretAccessKey: cfg.SecretKey,
				}, nil
			})))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("media: loading AWS config: %w", err)
	}

	// Path-style addressing is what MinIO and most S3 clones expect.
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.Endpoint != ""
	})

	publicURL := strings.TrimRight(cfg.PublicURL, "/")
	if publicURL == "" {
		publicURL = defaultPublicURL(cfg)
	}

	return &S3Host{
		client:    client,
		bucket:    cfg.Bucket,
		publicURL: publicURL,
	}, nil
}

func defaultPublicURL(cfg Config) string {
	if cfg.Endpoint != "" {
		return strings.TrimRight(cfg.Endpoint, "/") + "/" + cfg.Bucket
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
}

// Upload stores the file under a fresh asset id inside in.Namespace.
func (h *S3Host) Upload(ctx context.Context, in UploadInput) (*Asset, error) {
	if !in.Type.Valid() {
		return nil, fmt.Errorf("media: unsupported resource type %q", in.Type)
	}

	id := path.Join(in.Namespace, xid.New().String())
	contentType := in.ContentType
	if contentType == "" {
		contentType = http.DetectContentType(in.Data)
	}

	_, err := h.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(h.bucket),
		Key:           aws.String(objectKey(in.Type, id)),
		Body:          bytes.NewReader(in.Data),
		ContentLength: aws.Int64(int64(len(in.Data))),
		ContentType:   aws.String(contentType),
	})
	observe("upload", err)
	if err != nil {
		return nil, fmt.Errorf("media: uploading %s: %w", id, err)
	}

	return &Asset{
		ID:   id,
		URL:  h.publicURL + "/" + objectKey(in.Type, id),
		Type: in.Type,
	}, nil
}

// DeleteImage removes the image stored under id.
func (h *S3Host) DeleteImage(ctx context.Context, id string) error {
	return h.deleteOne(ctx, "delete_image", model.MediaImage, id)
}

// DeleteVideo removes the video stored under id.
func (h *S3Host) DeleteVideo(ctx context.Context, id string) error {
	return h.deleteOne(ctx, "delete_video", model.MediaVideo, id)
}

// deleteOne checks for the object first: S3 DeleteObject succeeds on a
// missing key, and callers rely on ErrAssetNotFound to retry with the
// other resource type.
func (h *S3Host) deleteOne(ctx context.Context, op string, t model.MediaType, id string) error {
	key := objectKey(t, id)

	_, err := h.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(h.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			observe(op, ErrAssetNotFound)
			return fmt.Errorf("%w: %s", ErrAssetNotFound, key)
		}
		observe(op, err)
		return fmt.Errorf("media: checking %s: %w", key, err)
	}

	_, err = h.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(h.bucket),
		Key:    aws.String(key),
	})
	observe(op, err)
	if err != nil {
		return fmt.Errorf("media: deleting %s: %w", key, err)
	}
	return nil
}

// DeleteAssets removes every id under both resource types in bulk.
// Missing keys are not an error; a key S3 refuses to delete is.
func (h *S3Host) DeleteAssets(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	objects := make([]types.ObjectIdentifier, 0, 2*len(ids))
	for _, id := range ids {
		for _, t := range []model.MediaType{model.MediaImage, model.MediaVideo} {
			objects = append(objects, types.ObjectIdentifier{Key: aws.String(objectKey(t, id))})
		}
	}

	for start := 0; start < len(objects); start += deleteBatchSize {
		end := min(start+deleteBatchSize, len(objects))

		out, err := h.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(h.bucket),
			Delete: &types.Delete{
				Objects: objects[start:end],
				Quiet:   aws.Bool(true),
			},
		})
		if err != nil {
			observe("delete_bulk", err)
			return fmt.Errorf("media: bulk delete: %w", err)
		}
		if len(out.Errors) > 0 {
			first := out.Errors[0]
			err := fmt.Errorf("media: bulk delete: %d keys failed, first %s: %s",
				len(out.Errors), aws.ToString(first.Key), aws.ToString(first.Message))
			observe("delete_bulk", err)
			return err
		}
	}

	observe("delete_bulk", nil)
	return nil
}

// AssetIDFromURL recovers the asset id from a URL this host handed out.
// It also understands the older "/<type>/upload/v<version>/<id>.<ext>"
// URLs still stored on some games. Returns "" when nothing matches.
func (h *S3Host) AssetIDFromURL(raw string) string {
	if rest, ok := strings.CutPrefix(raw, h.publicURL+"/"); ok {
		for _, t := range []model.MediaType{model.MediaImage, model.MediaVideo} {
			if id, ok := strings.CutPrefix(rest, string(t)+"/"); ok {
				return id
			}
		}
	}
	return LegacyAssetID(raw)
}

// LegacyAssetID parses ".../upload/[v123/]folder/name.ext" into
// "folder/name".
func LegacyAssetID(raw string) string {
	_, rest, ok := strings.Cut(raw, "/upload/")
	if !ok || rest == "" {
		return ""
	}
	if i := strings.IndexAny(rest, "?#"); i >= 0 {
		rest = rest[:i]
	}

	if first, after, ok := strings.Cut(rest, "/"); ok && isVersionSegment(first) {
		rest = after
	}

	return strings.TrimSuffix(rest, path.Ext(rest))
}

func isVersionSegment(s string) bool {
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

func objectKey(t model.MediaType, id string) string {
	return string(t) + "/" + id
}

// isNotFound reports a 404 from S3. HeadObject has no body, so the error
// code is not always NotFound; the HTTP status is the reliable signal.
func isNotFound(err error) bool {
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	var status interface{ HTTPStatusCode() int }
	return errors.As(err, &status) && status.HTTPStatusCode() == http.StatusNotFound
}
