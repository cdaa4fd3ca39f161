// Package storage mirrors movie posters into an S3-compatible bucket
// (AWS S3, Cloudflare R2, MinIO).
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gosimple/slug"

	"github.com/iliyamo/top-movies/internal/config"
)

// maxPosterBytes bounds a single poster download.
const maxPosterBytes = 10 << 20

// ErrPosterTooLarge is returned when the source image exceeds maxPosterBytes.
var ErrPosterTooLarge = errors.New("poster exceeds size limit")

// ObjectPutter is the subset of the S3 client used by PosterStore.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// PosterStore copies poster images into a bucket and returns their public URL.
type PosterStore struct {
	client     ObjectPutter
	httpClient *http.Client
	bucket     string
	cdnBaseURL string
	keyPrefix  string
}

// NewPosterStore builds an S3 client from pc.  It returns nil, nil when
// mirroring is disabled.
func NewPosterStore(ctx context.Context, pc config.PosterConfig) (*PosterStore, error) {
	if !pc.Enabled() {
		return nil, nil
	}
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(pc.Region)}
	if pc.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(pc.AccessKeyID, pc.AccessKeySecret, ""),
		))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load S3 config: %w", err)
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if pc.Endpoint != "" {
			o.BaseEndpoint = aws.String(pc.Endpoint)
			o.UsePathStyle = true
		}
	})
	return NewPosterStoreWithClient(client, pc, nil), nil
}

// NewPosterStoreWithClient wires an existing client.  httpClient downloads
// the source images and defaults to a client with a 15s timeout.
func NewPosterStoreWithClient(client ObjectPutter, pc config.PosterConfig, httpClient *http.Client) *PosterStore {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &PosterStore{
		client:     client,
		httpClient: httpClient,
		bucket:     pc.Bucket,
		cdnBaseURL: strings.TrimRight(pc.CDNBaseURL, "/"),
		keyPrefix:  strings.Trim(pc.KeyPrefix, "/"),
	}
}

// Key returns the object key for a poster: <prefix>/<slug(title)>-<id><ext>.
func (s *PosterStore) Key(title string, externalID int64, srcURL string) string {
	name := slug.Make(title)
	if name == "" {
		name = "movie"
	}
	key := fmt.Sprintf("%s-%d%s", name, externalID, posterExt(srcURL))
	if s.keyPrefix == "" {
		return key
	}
	return s.keyPrefix + "/" + key
}

// Mirror downloads srcURL and uploads it to the bucket.  The returned URL
// points at the CDN copy.
func (s *PosterStore) Mirror(ctx context.Context, srcURL, title string, externalID int64) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srcURL, nil)
	if err != nil {
		return "", fmt.Errorf("build poster request: %w", err)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("download poster: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download poster: unexpected status %d", resp.StatusCode)
	}

	buf := new(bytes.Buffer)
	if _, err := io.Copy(buf, io.LimitReader(resp.Body, maxPosterBytes+1)); err != nil {
		return "", fmt.Errorf("failed to read poster: %w", err)
	}
	if buf.Len() > maxPosterBytes {
		return "", ErrPosterTooLarge
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/jpeg"
	}
	key := s.Key(title, externalID, srcURL)
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload poster: %w", err)
	}
	return fmt.Sprintf("%s/%s", s.cdnBaseURL, key), nil
}

func posterExt(srcURL string) string {
	u, err := url.Parse(srcURL)
	if err != nil {
		return ".jpg"
	}
	ext := strings.ToLower(path.Ext(u.Path))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".webp":
		return ext
	default:
		return ".jpg"
	}
}
