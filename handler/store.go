package handler

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"uploadreporter/mailer"
)

// S3API is the slice of the S3 client this handler uses.
type S3API interface {
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// DynamoDBAPI is the slice of the DynamoDB client this handler uses.
type DynamoDBAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
}

// UploadReportStore bundles the clients and configuration shared by the
// upload processing and report dispatching paths.
type UploadReportStore struct {
	dy               *ReportDyQueries
	S3Client         S3API
	Mailer           mailer.Sender
	tableName        string
	deleteBeforeSend bool
}

// NewUploadReportStore returns an UploadReportStore wired to the given
// clients and uploads table.
func NewUploadReportStore(dy DynamoDBAPI, s3Client S3API, m mailer.Sender, tableName string, deleteBeforeSend bool) *UploadReportStore {
	return &UploadReportStore{
		dy:               NewReportDyQueries(dy, tableName),
		S3Client:         s3Client,
		Mailer:           m,
		tableName:        tableName,
		deleteBeforeSend: deleteBeforeSend,
	}
}
