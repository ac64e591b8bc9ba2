package handler

import "fmt"

// UploadRecord is one successfully processed upload. It is persisted in
// DynamoDB when the upload is observed and read back in bulk by the next
// report cycle, which deletes it after reporting. There is no update path.
type UploadRecord struct {
	StorageURI string
	ObjectName string
	ObjectType string
	ObjectSize int64
}

// uploadItem is the persisted representation of an UploadRecord. All
// records share a single fixed partition value; the storage URI is the
// sort key.
type uploadItem struct {
	RecordType string `dynamodbav:"RecordType"`
	StorageURI string `dynamodbav:"StorageURI"`
	ObjectName string `dynamodbav:"ObjectName"`
	ObjectType string `dynamodbav:"ObjectType"`
	ObjectSize int64  `dynamodbav:"ObjectSize"`
}

func (i uploadItem) toRecord() UploadRecord {
	return UploadRecord{
		StorageURI: i.StorageURI,
		ObjectName: i.ObjectName,
		ObjectType: i.ObjectType,
		ObjectSize: i.ObjectSize,
	}
}

type InvalidEventRecordError struct {
	Reason string
}

func (e *InvalidEventRecordError) Error() string {
	return e.Reason
}

type ObjectMetadataError struct {
	S3Bucket string
	S3Key    string
}

func (e *ObjectMetadataError) Error() string {
	return fmt.Sprintf("S3 object metadata cannot be read: %s / %s ", e.S3Bucket, e.S3Key)
}
