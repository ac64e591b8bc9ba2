// Package test holds shared mocks for the handler tests.
package test

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	dyTypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go/middleware"
	"uploadreporter/mailer"
)

// S3Object is one object held by MockS3.
type S3Object struct {
	Data        []byte
	ContentType string
}

// PutRequest captures one PutObject call against MockS3.
type PutRequest struct {
	Bucket      string
	Key         string
	ContentType string
	Data        []byte
}

// MockS3 is an in-memory S3 keyed by "bucket/key".
type MockS3 struct {
	Objects map[string]S3Object
	Puts    []PutRequest
	HeadErr error
	GetErr  error
	PutErr  error
}

func NewMockS3() *MockS3 {
	return &MockS3{Objects: map[string]S3Object{}}
}

func objectKey(bucket *string, key *string) string {
	return fmt.Sprintf("%s/%s", aws.ToString(bucket), aws.ToString(key))
}

func (m *MockS3) HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	if m.HeadErr != nil {
		return nil, m.HeadErr
	}

	obj, ok := m.Objects[objectKey(params.Bucket, params.Key)]
	if !ok {
		return nil, fmt.Errorf("NotFound: %s", objectKey(params.Bucket, params.Key))
	}

	return &s3.HeadObjectOutput{
		ContentType:   aws.String(obj.ContentType),
		ContentLength: aws.Int64(int64(len(obj.Data))),
	}, nil
}

func (m *MockS3) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if m.GetErr != nil {
		return nil, m.GetErr
	}

	obj, ok := m.Objects[objectKey(params.Bucket, params.Key)]
	if !ok {
		return nil, fmt.Errorf("NoSuchKey: %s", objectKey(params.Bucket, params.Key))
	}

	return &s3.GetObjectOutput{
		Body:          io.NopCloser(bytes.NewReader(obj.Data)),
		ContentType:   aws.String(obj.ContentType),
		ContentLength: aws.Int64(int64(len(obj.Data))),
	}, nil
}

func (m *MockS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if m.PutErr != nil {
		return nil, m.PutErr
	}

	data, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}

	put := PutRequest{
		Bucket:      aws.ToString(params.Bucket),
		Key:         aws.ToString(params.Key),
		ContentType: aws.ToString(params.ContentType),
		Data:        data,
	}
	m.Puts = append(m.Puts, put)
	m.Objects[objectKey(params.Bucket, params.Key)] = S3Object{
		Data:        data,
		ContentType: put.ContentType,
	}

	return &s3.PutObjectOutput{}, nil
}

// MockDynamoDB is an in-memory single-table DynamoDB that preserves
// insertion order on query.
type MockDynamoDB struct {
	Items          []map[string]dyTypes.AttributeValue
	PutErr         error
	QueryErr       error
	BatchErr       error
	FailDeleteURIs map[string]bool
}

func NewMockDynamoDB() *MockDynamoDB {
	return &MockDynamoDB{FailDeleteURIs: map[string]bool{}}
}

func sortKeyValue(item map[string]dyTypes.AttributeValue) string {
	if v, ok := item["StorageURI"].(*dyTypes.AttributeValueMemberS); ok {
		return v.Value
	}
	return ""
}

func (m *MockDynamoDB) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	if m.PutErr != nil {
		return nil, m.PutErr
	}

	uri := sortKeyValue(params.Item)
	for i, item := range m.Items {
		if sortKeyValue(item) == uri {
			m.Items[i] = params.Item
			return &dynamodb.PutItemOutput{}, nil
		}
	}
	m.Items = append(m.Items, params.Item)

	return &dynamodb.PutItemOutput{}, nil
}

func (m *MockDynamoDB) Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	if m.QueryErr != nil {
		return nil, m.QueryErr
	}

	items := make([]map[string]dyTypes.AttributeValue, len(m.Items))
	copy(items, m.Items)

	return &dynamodb.QueryOutput{
		Items:          items,
		ResultMetadata: middleware.Metadata{},
	}, nil
}

func (m *MockDynamoDB) BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error) {
	if m.BatchErr != nil {
		return nil, m.BatchErr
	}

	unprocessed := map[string][]dyTypes.WriteRequest{}
	for table, requests := range params.RequestItems {
		for _, request := range requests {
			if request.DeleteRequest == nil {
				continue
			}
			uri := sortKeyValue(request.DeleteRequest.Key)
			if m.FailDeleteURIs[uri] {
				unprocessed[table] = append(unprocessed[table], request)
				continue
			}
			for i, item := range m.Items {
				if sortKeyValue(item) == uri {
					m.Items = append(m.Items[:i], m.Items[i+1:]...)
					break
				}
			}
		}
	}

	return &dynamodb.BatchWriteItemOutput{
		UnprocessedItems: unprocessed,
	}, nil
}

// MockMailer captures sent messages.
type MockMailer struct {
	Sent []mailer.Message
	Err  error
}

func (m *MockMailer) Send(ctx context.Context, msg mailer.Message) error {
	if m.Err != nil {
		return m.Err
	}
	m.Sent = append(m.Sent, msg)
	return nil
}
