package storage

import (
	"Plant-Care-Backend/domain"
	"Plant-Care-Backend/internal/utils"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

const (
	maxImageBytes = 20 << 20

	DefaultTimeout = 15 * time.Second
)

var AllowImage = []string{"image/jpeg", "image/png", "image/webp", "image/gif"}

var imageExtensions = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/webp": "webp",
	"image/gif":  "gif",
}

type (
	AwsS3 interface {
		// StoreScanImage uploads under scans/<owner>/ and returns the public URL.
		StoreScanImage(ctx context.Context, image []byte, ownerID string) (string, error)
		FetchImage(ctx context.Context, link string) ([]byte, error)
		DeleteImage(ctx context.Context, link string) error
		GetObjectKeyFromLink(link string) string
		GetPublicLinkKey(objectKey string) string
	}

	// S3API is the subset of *s3.Client used here.
	S3API interface {
		PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
		GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
		DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	}

	awsS3 struct {
		client S3API
		bucket string
		region  string
		timeout time.Duration
		now     func() time.Time
	}
)

// NewAwsS3 bounds every S3 call by timeout, or DefaultTimeout when it is not
// positive.
func NewAwsS3(ctx context.Context, timeout time.Duration) (AwsS3, error) {
	bucket := utils.GetConfig("AWS_S3_BUCKET")
	if bucket == "" {
		return nil, errors.New("AWS_S3_BUCKET not configured")
	}
	region := utils.GetConfigOr("AWS_S3_REGION", "ap-south-1")

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	accessKey := strings.TrimSpace(utils.GetConfig("AWS_ACCESS_KEY"))
	secretKey := strings.TrimSpace(utils.GetConfig("AWS_SECRET_KEY"))
	if accessKey != "" && secretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKey, secretKey, ""),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return NewAwsS3WithClient(s3.NewFromConfig(cfg), bucket, region, timeout), nil
}

func NewAwsS3WithClient(client S3API, bucket, region string, timeout time.Duration) AwsS3 {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &awsS3{
		client:  client,
		bucket:  bucket,
		region:  region,
		timeout: timeout,
		now:     time.Now,
	}
}

func (s *awsS3) StoreScanImage(ctx context.Context, image []byte, ownerID string) (string, error) {
	if len(image) == 0 {
		return "", domain.ErrImageRequired
	}

	contentType := detectImageType(image)
	objectKey := fmt.Sprintf("scans/%s/%d-%s.%s",
		ownerID,
		s.now().UnixMilli(),
		strings.ReplaceAll(uuid.NewString(), "-", "")[:16],
		imageExtensions[contentType],
	)

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(objectKey),
		Body:          bytes.NewReader(image),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(image))),
	})
	if err != nil {
		return "", domain.StorageError("put object", withContextErr(ctx, err))
	}

	return s.GetPublicLinkKey(objectKey), nil
}

func (s *awsS3) FetchImage(ctx context.Context, link string) ([]byte, error) {
	objectKey := s.GetObjectKeyFromLink(link)
	if objectKey == "" {
		return nil, domain.StorageError("fetch image", fmt.Errorf("link %q is not in bucket %s", link, s.bucket))
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		return nil, domain.StorageError("get object", withContextErr(ctx, err))
	}
	defer out.Body.Close()

	data, err := io.ReadAll(io.LimitReader(out.Body, maxImageBytes+1))
	if err != nil {
		return nil, domain.StorageError("read object", withContextErr(ctx, err))
	}
	if len(data) > maxImageBytes {
		return nil, domain.StorageError("read object", fmt.Errorf("object %s exceeds %d bytes", objectKey, maxImageBytes))
	}
	return data, nil
}

func (s *awsS3) DeleteImage(ctx context.Context, link string) error {
	objectKey := s.GetObjectKeyFromLink(link)
	if objectKey == "" {
		return domain.StorageError("delete image", fmt.Errorf("link %q is not in bucket %s", link, s.bucket))
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		return domain.StorageError("delete object", withContextErr(ctx, err))
	}
	return nil
}

func (s *awsS3) GetPublicLinkKey(objectKey string) string {
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, objectKey)
}

func (s *awsS3) GetObjectKeyFromLink(link string) string {
	prefixes := []string{
		fmt.Sprintf("https://%s.s3.%s.amazonaws.com/", s.bucket, s.region),
		fmt.Sprintf("s3://%s/", s.bucket),
	}
	for _, prefix := range prefixes {
		if strings.HasPrefix(link, prefix) {
			return strings.TrimPrefix(link, prefix)
		}
	}
	return ""
}

func detectImageType(image []byte) string {
	contentType := http.DetectContentType(image)
	for _, allowed := range AllowImage {
		if contentType == allowed {
			return contentType
		}
	}
	return "image/jpeg"
}

// withContextErr keeps a deadline or cancellation matchable with errors.Is
// when the SDK error does not already wrap it.
func withContextErr(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
		return fmt.Errorf("%w: %v", ctxErr, err)
	}
	return err
}
