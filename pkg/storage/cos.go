package storage

import (
	"VoiceBoard/pkg/errors"
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/tencentyun/cos-go-sdk-v5"
)

type COSConfig struct {
	// BucketURL looks like https://<bucket>-<appid>.cos.<region>.myqcloud.com
	BucketURL string
	SecretID  string
	SecretKey string
}

type COSStore struct {
	cfg    COSConfig
	bucket *url.URL
	client *cos.Client
}

func NewCOSStore(cfg COSConfig) (*COSStore, error) {
	u, err := url.Parse(cfg.BucketURL)
	if err != nil || u.Host == "" {
		return nil, errors.Errorf("invalid COS_BUCKET_URL %q", cfg.BucketURL)
	}
	client := cos.NewClient(&cos.BaseURL{BucketURL: u}, &http.Client{
		Transport: &cos.AuthorizationTransport{
			SecretID:  cfg.SecretID,
			SecretKey: cfg.SecretKey,
		},
	})
	return &COSStore{cfg: cfg, bucket: u, client: client}, nil
}

func (s *COSStore) Write(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	opt := &cos.ObjectPutOptions{
		ObjectPutHeaderOptions: &cos.ObjectPutHeaderOptions{ContentType: contentType},
	}
	if size > 0 {
		opt.ObjectPutHeaderOptions.ContentLength = size
	}
	_, err := s.client.Object.Put(ctx, key, r, opt)
	return err
}

func (s *COSStore) Read(ctx context.Context, key string) (io.ReadCloser, int64, error) {
	resp, err := s.client.Object.Get(ctx, key, nil)
	if err != nil {
		return nil, 0, err
	}
	return resp.Body, resp.ContentLength, nil
}

func (s *COSStore) Delete(ctx context.Context, key string) error {
	_, err := s.client.Object.Delete(ctx, key)
	return err
}

func (s *COSStore) Exists(ctx context.Context, key string) (bool, error) {
	return s.client.Object.IsExist(ctx, key)
}

func (s *COSStore) URL(ctx context.Context, key string) (string, error) {
	u, err := s.client.Object.GetPresignedURL(ctx, http.MethodGet, key, s.cfg.SecretID, s.cfg.SecretKey, SignedURLTTL, nil)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

func (s *COSStore) URI(key string) string {
	return strings.TrimRight(s.bucket.String(), "/") + "/" + key
}

func (s *COSStore) Name() string { return "cos" }
