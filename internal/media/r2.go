package media

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sirupsen/logrus"
)

// PutObjectAPI is the slice of the S3 client R2Store needs.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type R2Config struct {
	AccountID       string
	AccessKeyID     string
	AccessKeySecret string
	Bucket          string
	// PublicURL is a format string with one %s for the object key.
	PublicURL string
}

type R2Store struct {
	client    PutObjectAPI
	bucket    string
	publicURL string
	log       logrus.FieldLogger
}

func NewR2Store(client PutObjectAPI, bucket, publicURL string, log logrus.FieldLogger) *R2Store {
	return &R2Store{client: client, bucket: bucket, publicURL: publicURL, log: log}
}

// NewR2Client builds an S3 client pointed at the account's R2 endpoint.
func NewR2Client(ctx context.Context, cfg R2Config) (*s3.Client, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithHTTPClient(newTLSClient()),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.AccessKeySecret, "")),
		config.WithRegion("auto"),
	)
	if err != nil {
		return nil, fmt.Errorf("loading r2 config: %w", err)
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.AccountID))
	}), nil
}

func newTLSClient() *http.Client {
	return &http.Client{Transport: &http.Transport{
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
			CipherSuites: []uint16{
				tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
				tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
				tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
				tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
			},
		},
	}}
}

func (s *R2Store) Upload(ctx context.Context, body io.Reader, obj Object) (string, error) {
	key := ObjectKey(obj)

	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(obj.ContentType),
	}
	if obj.Size >= 0 {
		input.ContentLength = aws.Int64(obj.Size)
	}

	out, err := s.client.PutObject(ctx, input)
	if err != nil {
		s.log.WithError(err).WithField("key", key).Error("r2 upload failed")
		return "", failure("r2 put object", err)
	}
	if out == nil {
		return "", failure("r2 put object", nil)
	}

	etag := ""
	if out.ETag != nil {
		etag = *out.ETag
	}
	s.log.WithFields(logrus.Fields{"key": key, "etag": etag}).Info("image uploaded to r2")

	if s.publicURL == "" {
		return "", failure("r2 public url", nil)
	}
	return publicURL(s.publicURL, key), nil
}
