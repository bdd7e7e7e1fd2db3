package blob

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/petermazzocco/vitalarbor-api/internal/common"
)

// S3Config describes an S3-compatible bucket (AWS, R2, GCS interop, MinIO).
type S3Config struct {
	Bucket          string
	Endpoint        string
	Region          string
	AccessKeyID     string
	AccessKeySecret string
	URLTemplate     string
	PublicACL       bool
	UsePathStyle    bool
	// ConditionalPut sends If-None-Match: * so an existing key is never
	// overwritten. Disable it for backends without conditional writes.
	ConditionalPut bool
}

type S3Store struct {
	client         *s3.Client
	bucket         string
	urlTemplate    string
	publicACL      bool
	conditionalPut bool
}

// NewS3Store builds an S3 client with static credentials. Endpoint may be
// empty to use the SDK's regional default.
func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	// Create custom HTTP client with TLS config
	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
			MaxVersion: tls.VersionTLS13,
		},
	}
	httpClient := &http.Client{Transport: tr}

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithHTTPClient(httpClient),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.AccessKeySecret, "")),
		config.WithRegion(cfg.Region),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
		// R2 and the GCS interop API reject the SDK's default trailing checksums.
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
		o.ResponseChecksumValidation = aws.ResponseChecksumValidationWhenRequired
	})

	return &S3Store{
		client:         client,
		bucket:         cfg.Bucket,
		urlTemplate:    cfg.URLTemplate,
		publicACL:      cfg.PublicACL,
		conditionalPut: cfg.ConditionalPut,
	}, nil
}

func (s *S3Store) Put(ctx context.Context, key, contentType string, data []byte) error {
	in := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(data))),
	}
	if s.publicACL {
		in.ACL = types.ObjectCannedACLPublicRead
	}
	if s.conditionalPut {
		in.IfNoneMatch = aws.String("*")
	}
	if _, err := s.client.PutObject(ctx, in); err != nil {
		if keyTaken(err) {
			return fmt.Errorf("put object %q: %w", key, common.ErrAlreadyExists)
		}
		return fmt.Errorf("put object %q: %w: %v", key, common.ErrStorage, err)
	}
	return nil
}

// keyTaken reports whether a conditional put failed because the key exists.
// S3 answers 409 when a concurrent conditional write to the key is in flight.
func keyTaken(err error) bool {
	var re interface{ HTTPStatusCode() int }
	if !errors.As(err, &re) {
		return false
	}
	code := re.HTTPStatusCode()
	return code == http.StatusPreconditionFailed || code == http.StatusConflict
}

func (s *S3Store) Get(ctx context.Context, key string) ([]byte, error) {
	res, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, fmt.Errorf("object %q: %w", key, common.ErrNotFound)
		}
		return nil, fmt.Errorf("get object %q: %w: %v", key, common.ErrStorage, err)
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("read object %q: %w: %v", key, common.ErrStorage, err)
	}
	return data, nil
}

func (s *S3Store) PublicURL(key string) string {
	return FormatURL(s.urlTemplate, key)
}
