package handler

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	log "github.com/sirupsen/logrus"
)

// uploadRecordPartition is the fixed partition value shared by every
// persisted upload record.
const uploadRecordPartition = "UPLOAD"

const batchDeleteSize = 25 // maximum batch size for batchWrite action on dynamodb
const nrDeleteRetries = 3

// ReportDyQueries wraps the DynamoDB operations on the uploads table.
type ReportDyQueries struct {
	db        DynamoDBAPI
	tableName string
}

// NewReportDyQueries returns a new instance of a ReportDyQueries object
func NewReportDyQueries(db DynamoDBAPI, tableName string) *ReportDyQueries {
	return &ReportDyQueries{
		db:        db,
		tableName: tableName,
	}
}

// PutUploadRecord upserts a single upload record keyed by its storage URI.
func (q *ReportDyQueries) PutUploadRecord(ctx context.Context, record UploadRecord) error {

	item := uploadItem{
		RecordType: uploadRecordPartition,
		StorageURI: record.StorageURI,
		ObjectName: record.ObjectName,
		ObjectType: record.ObjectType,
		ObjectSize: record.ObjectSize,
	}

	data, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("MarshalMap: %v", err)
	}

	_, err = q.db.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(q.tableName),
		Item:      data,
	})
	if err != nil {
		return fmt.Errorf("PutItem: %v", err)
	}

	return nil
}

// GetUploadRecords returns every persisted upload record, paginating
// through the fixed partition. No ordering beyond the store's native sort
// is imposed.
func (q *ReportDyQueries) GetUploadRecords(ctx context.Context) ([]UploadRecord, error) {

	var records []UploadRecord
	var startKey map[string]types.AttributeValue

	for {
		result, err := q.db.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(q.tableName),
			KeyConditionExpression: aws.String("RecordType = :recordType"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":recordType": &types.AttributeValueMemberS{Value: uploadRecordPartition},
			},
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("Query: %v", err)
		}

		var items []uploadItem
		if err := attributevalue.UnmarshalListOfMaps(result.Items, &items); err != nil {
			return nil, fmt.Errorf("UnmarshalListOfMaps: %v", err)
		}

		for _, item := range items {
			records = append(records, item.toRecord())
		}

		if result.LastEvaluatedKey == nil {
			break
		}
		startKey = result.LastEvaluatedKey
	}

	return records, nil
}

// DeleteUploadRecords deletes the given records by sort key in batches.
// Every record is attempted; failures are collected and reported as a
// single aggregate error so a bad item cannot strand the rest of the
// batch. Un-deleted records reappear in the next report cycle.
func (q *ReportDyQueries) DeleteUploadRecords(ctx context.Context, records []UploadRecord) error {

	var failed []string

	for start := 0; start < len(records); start += batchDeleteSize {
		end := start + batchDeleteSize
		if end > len(records) {
			end = len(records)
		}
		chunk := records[start:end]

		var writeRequests []types.WriteRequest
		for _, record := range chunk {
			writeRequests = append(writeRequests, types.WriteRequest{
				DeleteRequest: &types.DeleteRequest{
					Key: map[string]types.AttributeValue{
						"RecordType": &types.AttributeValueMemberS{Value: uploadRecordPartition},
						"StorageURI": &types.AttributeValueMemberS{Value: record.StorageURI},
					},
				},
			})
		}

		data, err := q.db.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: map[string][]types.WriteRequest{
				q.tableName: writeRequests,
			},
			ReturnConsumedCapacity:      "NONE",
			ReturnItemCollectionMetrics: "NONE",
		})
		if err != nil {
			log.Error("Unable to batch delete upload records: ", err)
			for _, record := range chunk {
				failed = append(failed, record.StorageURI)
			}
			continue
		}

		// Retry unprocessed deletes before giving up on them.
		unProcessedItems := data.UnprocessedItems
		retryIndex := 0
		for len(unProcessedItems) > 0 && retryIndex < nrDeleteRetries {
			time.Sleep(time.Duration(100*retryIndex) * time.Millisecond)

			data, err = q.db.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
				RequestItems:                unProcessedItems,
				ReturnConsumedCapacity:      "NONE",
				ReturnItemCollectionMetrics: "NONE",
			})
			if err != nil {
				break
			}
			unProcessedItems = data.UnprocessedItems
			retryIndex++
		}

		for _, request := range unProcessedItems[q.tableName] {
			if request.DeleteRequest == nil {
				continue
			}
			uri := ""
			if v, ok := request.DeleteRequest.Key["StorageURI"].(*types.AttributeValueMemberS); ok {
				uri = v.Value
			}
			log.Error("Upload record was not deleted: ", uri)
			failed = append(failed, uri)
		}
	}

	if len(failed) > 0 {
		return fmt.Errorf("unable to delete %d of %d upload records", len(failed), len(records))
	}

	return nil
}
