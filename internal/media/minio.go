package media

import (
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/sirupsen/logrus"
)

type MinioPutter interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Secure    bool
}

type MinioStore struct {
	client     MinioPutter
	bucket     string
	publicHost string
	log        logrus.FieldLogger
}

func NewMinioClient(cfg MinioConfig) (*minio.Client, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.Secure,
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to minio %s: %w", cfg.Endpoint, err)
	}
	return client, nil
}

// NewMinioStore serves objects from publicHost, which defaults to the endpoint
// the client talks to.
func NewMinioStore(client MinioPutter, bucket, publicHost string, log logrus.FieldLogger) *MinioStore {
	return &MinioStore{client: client, bucket: bucket, publicHost: publicHost, log: log}
}

func (s *MinioStore) Upload(ctx context.Context, body io.Reader, obj Object) (string, error) {
	key := ObjectKey(obj)

	info, err := s.client.PutObject(ctx, s.bucket, key, body, obj.Size, minio.PutObjectOptions{
		ContentType: obj.ContentType,
	})
	if err != nil {
		s.log.WithError(err).WithField("key", key).Error("minio upload failed")
		return "", failure("minio put object", err)
	}
	if info.Key == "" {
		return "", failure("minio put object", nil)
	}

	s.log.WithFields(logrus.Fields{"key": info.Key, "etag": info.ETag, "size": info.Size}).Info("image uploaded to minio")
	return publicURL("https://"+s.publicHost+"/"+s.bucket+"/%s", info.Key), nil
}
