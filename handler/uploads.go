package handler

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	log "github.com/sirupsen/logrus"
	"uploadreporter/thumbnail"
)

// thumbnailPrefix is prepended to the object name of generated
// thumbnails. It doubles as the recursion guard: an upload whose name
// carries the prefix was produced by this handler and must not trigger
// another round of thumbnail generation.
const thumbnailPrefix = "thumbnail-"

const thumbnailSize = 128

// ProcessUploadEvent handles one batch of storage notifications. Records
// are processed sequentially and independently: a failing record is
// logged and skipped, and the rest of the batch still runs. The one
// exception is the recursion guard, which returns from the whole batch.
func (s *UploadReportStore) ProcessUploadEvent(ctx context.Context, event events.S3Event) error {

	for _, record := range event.Records {
		bucket, key, err := objectProps(record)
		if err != nil {
			log.WithFields(log.Fields{
				"event_name": record.EventName,
			}).Info("Record skipped with reason: ", err)
			continue
		}

		objectName := normalizeObjectName(key)
		storageURI := fmt.Sprintf("s3://%s/%s", bucket, objectName)

		contentType, contentLength, err := s.getObjectMetadata(ctx, bucket, objectName)
		if err != nil {
			log.Warn("Unable to get object metadata: ", err)
			continue
		}

		uploadRecord := UploadRecord{
			StorageURI: storageURI,
			ObjectName: objectName,
			ObjectType: contentType,
			ObjectSize: contentLength,
		}

		if err := s.dy.PutUploadRecord(ctx, uploadRecord); err != nil {
			// Best-effort durability; the thumbnail step still runs.
			log.WithFields(log.Fields{
				"storage_uri": storageURI,
			}).Error("Unable to persist upload record: ", err)
		}

		if strings.HasPrefix(objectName, thumbnailPrefix) {
			log.WithFields(log.Fields{
				"object_name": objectName,
			}).Info("Thumbnail upload detected, halting batch to avoid recursion.")
			return nil
		}

		if err := s.createThumbnail(ctx, bucket, objectName, contentType); err != nil {
			log.WithFields(log.Fields{
				"storage_uri": storageURI,
			}).Warn("Unable to create thumbnail: ", err)
			continue
		}
	}

	return nil
}

// createThumbnail generates and stores a thumbnail for supported image
// uploads. Non-image and unsupported image types are a logged no-op.
func (s *UploadReportStore) createThumbnail(ctx context.Context, bucket string, objectName string, contentType string) error {

	if !strings.HasPrefix(contentType, "image/") {
		return nil
	}

	if !thumbnail.Supported(contentType) {
		log.WithFields(log.Fields{
			"object_name": objectName,
			"object_type": contentType,
		}).Info("Image format not supported for thumbnail generation, skipping.")
		return nil
	}

	data, err := s.getObject(ctx, bucket, objectName)
	if err != nil {
		return fmt.Errorf("unable to get object from S3: %w", err)
	}

	thumb, err := thumbnail.Generate(data, contentType, thumbnailSize)
	if err != nil {
		return err
	}

	thumbnailKey := thumbnailPrefix + objectName
	if err := s.putObject(ctx, bucket, thumbnailKey, thumb, "image/png"); err != nil {
		return fmt.Errorf("unable to upload thumbnail: %w", err)
	}

	log.WithFields(log.Fields{
		"thumbnail_key": thumbnailKey,
	}).Info("Thumbnail created.")

	return nil
}

// objectProps validates a notification record and returns its bucket and
// raw object key.
func objectProps(record events.S3EventRecord) (string, string, error) {

	if !strings.HasPrefix(record.EventName, "ObjectCreated") {
		return "", "", &InvalidEventRecordError{Reason: "wrong event type"}
	}

	bucket := record.S3.Bucket.Name
	if bucket == "" {
		return "", "", &InvalidEventRecordError{Reason: "no bucket name"}
	}

	key := record.S3.Object.Key
	if key == "" {
		return "", "", &InvalidEventRecordError{Reason: "no object key"}
	}

	return bucket, key, nil
}

// normalizeObjectName undoes the URL-encoding artifact of spaces arriving
// as literal plus characters. The normalized form is the canonical object
// name used everywhere downstream.
func normalizeObjectName(key string) string {
	return strings.ReplaceAll(key, "+", " ")
}
