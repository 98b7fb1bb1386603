package storage

import (
	"VoiceBoard/pkg/config"
	"VoiceBoard/pkg/errors"
	"context"
	"strings"
)

const (
	DriverLocal = "local"
	DriverMinio = "minio"
	DriverGCS   = "gcs"
	DriverCOS   = "cos"
)

// GCSConfigFrom extracts the Google credentials shared by storage and speech.
func GCSConfigFrom(cfg *config.Config) GCSConfig {
	return GCSConfig{
		ProjectID:       cfg.GCPProjectID,
		Bucket:          cfg.GCSBucket,
		CredentialsJSON: cfg.GCPServiceAccount,
		CredentialsFile: cfg.GCPKeyFile,
	}
}

// NewFromConfig builds the store selected by STORAGE_DRIVER.
func NewFromConfig(ctx context.Context, cfg *config.Config) (Store, error) {
	switch strings.ToLower(cfg.StorageDriver) {
	case DriverGCS:
		return NewGCSStore(ctx, GCSConfigFrom(cfg))
	case DriverMinio, "s3":
		return NewMinioStore(ctx, MinioConfig{
			Endpoint:   cfg.MinioEndpoint,
			AccessKey:  cfg.MinioAccessKey,
			SecretKey:  cfg.MinioSecretKey,
			Bucket:     cfg.MinioBucket,
			UseSSL:     cfg.MinioUseSSL,
			PublicBase: cfg.MinioPublicBase,
		})
	case DriverCOS:
		return NewCOSStore(COSConfig{
			BucketURL: cfg.COSBucketURL,
			SecretID:  cfg.COSSecretID,
			SecretKey: cfg.COSSecretKey,
		})
	case DriverLocal, "":
		return NewLocalStore(cfg.LocalStoragePath, cfg.LocalStorageBaseURL)
	default:
		return nil, errors.Errorf("unsupported storage driver: %s", cfg.StorageDriver)
	}
}
