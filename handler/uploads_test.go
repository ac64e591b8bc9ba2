package handler

import (
	"bytes"
	"context"
	"image/png"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"uploadreporter/test"
)

func TestProcessUploadEvent(t *testing.T) {
	for scenario, fn := range map[string]func(
		t *testing.T, store *UploadReportStore, clients *testClients,
	){
		"persists a record for a created object":           testPersistsUploadRecord,
		"normalizes plus-encoded object keys":              testNormalizesObjectKey,
		"skips removal events":                             testSkipsRemovedEvent,
		"skips records with missing bucket or key":         testSkipsIncompleteRecords,
		"continues the batch after a failed record":        testContinuesAfterFailedRecord,
		"creates a thumbnail for a supported image":        testCreatesThumbnail,
		"skips thumbnails for unsupported image formats":   testSkipsUnsupportedImage,
		"halts the batch on a thumbnail upload":            testRecursionGuard,
		"still attempts the thumbnail when persist fails":  testThumbnailAfterPersistFailure,
	} {
		t.Run(scenario, func(t *testing.T) {
			store, clients := newTestStore(false)
			fn(t, store, clients)
		})
	}
}

func testPersistsUploadRecord(t *testing.T, store *UploadReportStore, clients *testClients) {
	clients.s3.Objects["photos/report.pdf"] = test.S3Object{
		Data:        []byte("0123456789"),
		ContentType: "application/pdf",
	}

	event := events.S3Event{Records: []events.S3EventRecord{createdRecord("photos", "report.pdf")}}
	err := store.ProcessUploadEvent(context.Background(), event)
	require.NoError(t, err)

	records, err := store.dy.GetUploadRecords(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, UploadRecord{
		StorageURI: "s3://photos/report.pdf",
		ObjectName: "report.pdf",
		ObjectType: "application/pdf",
		ObjectSize: 10,
	}, records[0])
	assert.Empty(t, clients.s3.Puts, "Non-image uploads produce no thumbnail")
}

func testNormalizesObjectKey(t *testing.T, store *UploadReportStore, clients *testClients) {
	clients.s3.Objects["photos/my holiday notes.txt"] = test.S3Object{
		Data:        []byte("notes"),
		ContentType: "text/plain",
	}

	event := events.S3Event{Records: []events.S3EventRecord{createdRecord("photos", "my+holiday+notes.txt")}}
	err := store.ProcessUploadEvent(context.Background(), event)
	require.NoError(t, err)

	records, err := store.dy.GetUploadRecords(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "my holiday notes.txt", records[0].ObjectName)
	assert.Equal(t, "s3://photos/my holiday notes.txt", records[0].StorageURI)
}

func TestNormalizeObjectNameIdempotent(t *testing.T) {
	once := normalizeObjectName("a+b+c.png")
	twice := normalizeObjectName(once)

	assert.Equal(t, "a b c.png", once)
	assert.Equal(t, once, twice)
}

func testSkipsRemovedEvent(t *testing.T, store *UploadReportStore, clients *testClients) {
	record := createdRecord("photos", "gone.png")
	record.EventName = "ObjectRemoved:Delete"

	err := store.ProcessUploadEvent(context.Background(), events.S3Event{Records: []events.S3EventRecord{record}})
	require.NoError(t, err)

	assert.Empty(t, clients.dy.Items)
	assert.Empty(t, clients.s3.Puts)
}

func testSkipsIncompleteRecords(t *testing.T, store *UploadReportStore, clients *testClients) {
	noBucket := createdRecord("", "file.txt")
	noKey := createdRecord("photos", "")

	err := store.ProcessUploadEvent(context.Background(), events.S3Event{Records: []events.S3EventRecord{noBucket, noKey}})
	require.NoError(t, err)

	assert.Empty(t, clients.dy.Items)
}

func testContinuesAfterFailedRecord(t *testing.T, store *UploadReportStore, clients *testClients) {
	// First object has no metadata in S3; the second is intact.
	clients.s3.Objects["photos/second.txt"] = test.S3Object{
		Data:        []byte("ok"),
		ContentType: "text/plain",
	}

	event := events.S3Event{Records: []events.S3EventRecord{
		createdRecord("photos", "first.txt"),
		createdRecord("photos", "second.txt"),
	}}
	err := store.ProcessUploadEvent(context.Background(), event)
	require.NoError(t, err)

	records, err := store.dy.GetUploadRecords(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "second.txt", records[0].ObjectName)
}

func testCreatesThumbnail(t *testing.T, store *UploadReportStore, clients *testClients) {
	clients.s3.Objects["photos/cat.png"] = test.S3Object{
		Data:        pngBytes(t, 256, 192),
		ContentType: "image/png",
	}

	event := events.S3Event{Records: []events.S3EventRecord{createdRecord("photos", "cat.png")}}
	err := store.ProcessUploadEvent(context.Background(), event)
	require.NoError(t, err)

	require.Len(t, clients.s3.Puts, 1)
	put := clients.s3.Puts[0]
	assert.Equal(t, "photos", put.Bucket)
	assert.Equal(t, "thumbnail-cat.png", put.Key)
	assert.Equal(t, "image/png", put.ContentType)

	decoded, err := png.Decode(bytes.NewReader(put.Data))
	require.NoError(t, err)
	assert.Equal(t, thumbnailSize, decoded.Bounds().Dx())
	assert.Equal(t, thumbnailSize, decoded.Bounds().Dy())

	assert.Len(t, clients.dy.Items, 1, "The record is persisted as well")
}

func testSkipsUnsupportedImage(t *testing.T, store *UploadReportStore, clients *testClients) {
	clients.s3.Objects["photos/diagram.svg"] = test.S3Object{
		Data:        []byte("<svg></svg>"),
		ContentType: "image/svg+xml",
	}

	event := events.S3Event{Records: []events.S3EventRecord{createdRecord("photos", "diagram.svg")}}
	err := store.ProcessUploadEvent(context.Background(), event)
	require.NoError(t, err)

	assert.Len(t, clients.dy.Items, 1, "The upload is still recorded")
	assert.Empty(t, clients.s3.Puts, "No thumbnail call is attempted")
}

func testRecursionGuard(t *testing.T, store *UploadReportStore, clients *testClients) {
	clients.s3.Objects["photos/thumbnail-cat.png"] = test.S3Object{
		Data:        pngBytes(t, thumbnailSize, thumbnailSize),
		ContentType: "image/png",
	}
	clients.s3.Objects["photos/dog.png"] = test.S3Object{
		Data:        pngBytes(t, 64, 64),
		ContentType: "image/png",
	}

	event := events.S3Event{Records: []events.S3EventRecord{
		createdRecord("photos", "thumbnail-cat.png"),
		createdRecord("photos", "dog.png"),
	}}
	err := store.ProcessUploadEvent(context.Background(), event)
	require.NoError(t, err)

	// The thumbnail upload is recorded, then the whole remaining batch halts.
	require.Len(t, clients.dy.Items, 1)
	assert.Empty(t, clients.s3.Puts, "No further thumbnail is generated")
}

func TestRecursionGuardPrefixMatching(t *testing.T) {
	// A name merely containing the prefix must not halt the batch.
	store, clients := newTestStore(false)
	clients.s3.Objects["photos/my-thumbnail-cat.txt"] = test.S3Object{
		Data:        []byte("not guarded"),
		ContentType: "text/plain",
	}
	clients.s3.Objects["photos/next.txt"] = test.S3Object{
		Data:        []byte("processed"),
		ContentType: "text/plain",
	}

	event := events.S3Event{Records: []events.S3EventRecord{
		createdRecord("photos", "my-thumbnail-cat.txt"),
		createdRecord("photos", "next.txt"),
	}}
	err := store.ProcessUploadEvent(context.Background(), event)
	require.NoError(t, err)

	assert.Len(t, clients.dy.Items, 2, "Both records are processed")
}

func testThumbnailAfterPersistFailure(t *testing.T, store *UploadReportStore, clients *testClients) {
	clients.s3.Objects["photos/cat.png"] = test.S3Object{
		Data:        pngBytes(t, 64, 64),
		ContentType: "image/png",
	}
	clients.dy.PutErr = assert.AnError

	event := events.S3Event{Records: []events.S3EventRecord{createdRecord("photos", "cat.png")}}
	err := store.ProcessUploadEvent(context.Background(), event)
	require.NoError(t, err)

	assert.Len(t, clients.s3.Puts, 1, "Thumbnail generation still runs after a persistence failure")
}
