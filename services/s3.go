package services

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"wardrobeapi/config"
)

// AWSService stores objects in Cloudflare R2 through the S3 API.
type AWSService struct {
	S3Client        *s3.Client
	S3PresignClient *s3.PresignClient
	bucket          string
	timeout         time.Duration
}

func NewAWSService(ctx context.Context, cfg config.StorageConfig, timeout time.Duration) (*AWSService, error) {
	accountId := cfg.R2AccountID
	r2Resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
		return aws.Endpoint{
			URL: fmt.Sprintf("https://%s.r2.cloudflarestorage.com", accountId),
		}, nil
	})
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithEndpointResolverWithOptions(r2Resolver),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.R2AccessKeyID, cfg.R2AccessSecret, "")),
		awsconfig.WithRegion("auto"),
	)
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}

	s3Client := s3.NewFromConfig(awsCfg)
	return &AWSService{
		S3Client:        s3Client,
		S3PresignClient: s3.NewPresignClient(s3Client),
		bucket:          cfg.Bucket,
		timeout:         timeout,
	}, nil
}

func (awsService *AWSService) UploadBytes(ctx context.Context, data []byte, objectName string, mimeType string) (string, error) {
	if awsService.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, awsService.timeout)
		defer cancel()
	}
	_, err := awsService.S3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(awsService.bucket),
		Key:           aws.String(objectName),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(mimeType),
		ContentLength: int64(len(data)),
	})
	if err != nil {
		return "", fmt.Errorf("put s3://%s/%s: %w", awsService.bucket, objectName, err)
	}
	return StoredObjectLocation{Scheme: SchemeS3, Bucket: awsService.bucket, Object: objectName}.String(), nil
}

func (awsService *AWSService) SignedReadURL(ctx context.Context, location string, ttl time.Duration) (string, error) {
	loc, err := ParseStorageURI(location)
	if err != nil {
		return "", err
	}
	if loc.Scheme != SchemeS3 {
		return "", fmt.Errorf("r2 cannot sign %s locations", loc.Scheme)
	}
	presignedGetRequest, err := awsService.S3PresignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(loc.Bucket),
		Key:    aws.String(loc.Object),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("failed to presign request: %w", err)
	}
	return presignedGetRequest.URL, nil
}
