package storage

import (
	"VoiceBoard/pkg/errors"
	"context"
	"io"
	"net/http"
	"time"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

type GCSConfig struct {
	ProjectID string
	Bucket    string
	// CredentialsJSON is the inline service account key; CredentialsFile a path to it.
	// Both empty means application default credentials.
	CredentialsJSON string
	CredentialsFile string
}

// ClientOptions turns the credential settings into Google API client options.
// The speech backend shares them.
func (c GCSConfig) ClientOptions() []option.ClientOption {
	switch {
	case c.CredentialsJSON != "":
		return []option.ClientOption{option.WithCredentialsJSON([]byte(c.CredentialsJSON))}
	case c.CredentialsFile != "":
		return []option.ClientOption{option.WithCredentialsFile(c.CredentialsFile)}
	}
	return nil
}

// GCSStore stores recordings in a Google Cloud Storage bucket and hands out
// V4 signed URLs valid for SignedURLTTL.
type GCSStore struct {
	cfg    GCSConfig
	client *gcs.Client
	bucket *gcs.BucketHandle
}

func NewGCSStore(ctx context.Context, cfg GCSConfig) (*GCSStore, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("GCS_BUCKET_NAME is required")
	}
	client, err := gcs.NewClient(ctx, cfg.ClientOptions()...)
	if err != nil {
		return nil, errors.Wrap(err, "create gcs client")
	}
	return &GCSStore{cfg: cfg, client: client, bucket: client.Bucket(cfg.Bucket)}, nil
}

func (g *GCSStore) Write(ctx context.Context, key string, r io.Reader, _ int64, contentType string) error {
	w := g.bucket.Object(key).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := io.Copy(w, r); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

func (g *GCSStore) Read(ctx context.Context, key string) (io.ReadCloser, int64, error) {
	r, err := g.bucket.Object(key).NewReader(ctx)
	if err != nil {
		return nil, 0, err
	}
	return r, r.Attrs.Size, nil
}

func (g *GCSStore) Delete(ctx context.Context, key string) error {
	err := g.bucket.Object(key).Delete(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return nil
	}
	return err
}

func (g *GCSStore) Exists(ctx context.Context, key string) (bool, error) {
	_, err := g.bucket.Object(key).Attrs(ctx)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return false, nil
	}
	return false, err
}

func (g *GCSStore) URL(_ context.Context, key string) (string, error) {
	return g.bucket.SignedURL(key, &gcs.SignedURLOptions{
		Scheme:  gcs.SigningSchemeV4,
		Method:  http.MethodGet,
		Expires: time.Now().Add(SignedURLTTL),
	})
}

func (g *GCSStore) URI(key string) string {
	return "gs://" + g.cfg.Bucket + "/" + key
}

func (g *GCSStore) Name() string { return "gcs" }

func (g *GCSStore) Close() error { return g.client.Close() }
