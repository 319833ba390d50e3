package storage

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"time"

	"GreetFM/config"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

var minioClient *minio.Client

// InitMinio initializes the MinIO client and ensures the audio bucket
// exists.
func InitMinio(cfg *config.Config) error {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
		Region: cfg.MinioRegion,
	})
	if err != nil {
		return fmt.Errorf("failed to create MinIO client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, cfg.MinioBucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket %s: %w", cfg.MinioBucket, err)
	}
	if !exists {
		err = client.MakeBucket(ctx, cfg.MinioBucket, minio.MakeBucketOptions{Region: cfg.MinioRegion})
		if err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", cfg.MinioBucket, err)
		}
		log.Printf("Created bucket: %s", cfg.MinioBucket)
	}

	minioClient = client
	return nil
}

// GetMinioClient returns the global client, or nil before InitMinio.
func GetMinioClient() *minio.Client {
	return minioClient
}

// AudioArchive stores delivered audio frames as objects under
// tracks/{trackID}/frame_{seq}.{format}.
type AudioArchive struct {
	bucket string
	format string
}

// NewAudioArchive creates an archive over the global client.
func NewAudioArchive(cfg *config.Config) *AudioArchive {
	return &AudioArchive{bucket: cfg.MinioBucket, format: cfg.AudioFormat}
}

// ArchiveFrame uploads one frame.
func (a *AudioArchive) ArchiveFrame(ctx context.Context, trackID string, seq int, data []byte) error {
	if minioClient == nil {
		return nil
	}
	objectName := fmt.Sprintf("tracks/%s/frame_%03d.%s", trackID, seq, a.format)
	opts := minio.PutObjectOptions{ContentType: "application/octet-stream", DisableMultipart: true}
	_, err := minioClient.PutObject(ctx, a.bucket, objectName, bytes.NewReader(data), int64(len(data)), opts)
	if err != nil {
		return fmt.Errorf("failed to upload frame %s: %w", objectName, err)
	}
	return nil
}
