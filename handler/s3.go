package handler

import (
	"bytes"
	"context"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// getObjectMetadata fetches the declared content type and byte length of
// an object without downloading its body.
func (s *UploadReportStore) getObjectMetadata(ctx context.Context, bucket string, key string) (string, int64, error) {

	result, err := s.S3Client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return "", 0, &ObjectMetadataError{
			S3Bucket: bucket,
			S3Key:    key,
		}
	}

	return aws.ToString(result.ContentType), aws.ToInt64(result.ContentLength), nil
}

// getObject downloads the full object body.
func (s *UploadReportStore) getObject(ctx context.Context, bucket string, key string) ([]byte, error) {

	result, err := s.S3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, err
	}
	defer result.Body.Close()

	return io.ReadAll(result.Body)
}

// putObject stores an object under the given key with the given content type.
func (s *UploadReportStore) putObject(ctx context.Context, bucket string, key string, data []byte, contentType string) error {

	_, err := s.S3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})

	return err
}
