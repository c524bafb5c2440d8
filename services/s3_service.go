package services

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// UserPhotoPrefix is the storage namespace holding one account's objects.
func UserPhotoPrefix(userID string) string {
	return "user_photos/" + userID + "/"
}

// S3API is the slice of the S3 client the cleanup path uses. Tests
// substitute an in-memory bucket.
type S3API interface {
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

type S3Service struct {
	Client    S3API
	Presigner *s3.PresignClient
	Bucket    string
}

// NewS3Service builds the service from AWS_REGION and S3_BUCKET_NAME.
func NewS3Service() *S3Service {
	cfg, err := config.LoadDefaultConfig(context.TODO(), config.WithRegion(os.Getenv("AWS_REGION")))
	if err != nil {
		log.Fatalf("Failed to load AWS config for S3: %v", err)
	}
	client := s3.NewFromConfig(cfg)
	return &S3Service{
		Client:    client,
		Presigner: s3.NewPresignClient(client),
		Bucket:    os.Getenv("S3_BUCKET_NAME"),
	}
}

// GenerateUploadURL generates a presigned URL for uploading a photo into the
// user's namespace.
func (s *S3Service) GenerateUploadURL(ctx context.Context, userID, fileName, fileType string) (string, string, error) {
	key := UserPhotoPrefix(userID) + uuid.New().String() + "-" + fileName
	params := &s3.PutObjectInput{
		Bucket:      aws.String(s.Bucket),
		Key:         aws.String(key),
		ContentType: aws.String(fileType),
	}
	presignedURL, err := s.Presigner.PresignPutObject(ctx, params, s3.WithPresignExpires(5*time.Minute))
	if err != nil {
		return "", "", err
	}
	return presignedURL.URL, key, nil
}

// GenerateReadURL generates a presigned URL for reading a stored object.
func (s *S3Service) GenerateReadURL(ctx context.Context, key string) (string, error) {
	params := &s3.GetObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(key),
	}
	presignedURL, err := s.Presigner.PresignGetObject(ctx, params, s3.WithPresignExpires(5*time.Minute))
	if err != nil {
		return "", err
	}
	return presignedURL.URL, nil
}

// DeleteUserObjects removes every object under the user's namespace prefix.
// Listing an already-emptied prefix is a no-op, so the call is safe to
// re-run.
func (s *S3Service) DeleteUserObjects(ctx context.Context, userID string) (int, error) {
	prefix := UserPhotoPrefix(userID)
	deleted := 0
	var continuationToken *string

	for {
		output, err := s.Client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(s.Bucket),
			Prefix:            aws.String(prefix),
			ContinuationToken: continuationToken,
		})
		if err != nil {
			return deleted, fmt.Errorf("failed to list objects under '%s': %w", prefix, err)
		}

		for _, object := range output.Contents {
			_, err := s.Client.DeleteObject(ctx, &s3.DeleteObjectInput{
				Bucket: aws.String(s.Bucket),
				Key:    object.Key,
			})
			if err != nil {
				return deleted, fmt.Errorf("failed to delete object '%s': %w", aws.ToString(object.Key), err)
			}
			deleted++
		}

		if !aws.ToBool(output.IsTruncated) {
			break
		}
		continuationToken = output.NextContinuationToken
	}

	log.Printf("Deleted %d objects under %s", deleted, prefix)
	return deleted, nil
}
