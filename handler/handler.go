package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	log "github.com/sirupsen/logrus"
	"uploadreporter/mailer"
)

const defaultSMTPHost = "smtp.gmail.com"

var store *UploadReportStore

// InitializeClients runs on cold start of the lambda and wires the AWS
// clients and mail transport from the environment.
func InitializeClients() {

	log.SetFormatter(&log.JSONFormatter{})
	ll, err := log.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		log.SetLevel(log.InfoLevel)
	} else {
		log.SetLevel(ll)
	}

	tableName := os.Getenv("UPLOADS_TABLE")
	smtpHost := os.Getenv("SMTP_HOST")
	if smtpHost == "" {
		smtpHost = defaultSMTPHost
	}
	deleteBeforeSend := os.Getenv("DELETE_BEFORE_SEND") == "true"

	cfg, err := config.LoadDefaultConfig(context.Background())
	if err != nil {
		log.Fatalf("LoadDefaultConfig: %v\n", err)
	}

	dyClient := dynamodb.NewFromConfig(cfg)
	s3Client := s3.NewFromConfig(cfg)
	smtpMailer := mailer.NewSMTPMailer(smtpHost, os.Getenv("EMAIL_USERNAME"), os.Getenv("EMAIL_PASSWORD"))

	store = NewUploadReportStore(dyClient, s3Client, smtpMailer, tableName, deleteBeforeSend)
}

// Handler is the lambda entrypoint.
func Handler(ctx context.Context, event json.RawMessage) error {
	return store.Handle(ctx, event)
}

// Handle routes an incoming payload by shape: a Records field selects the
// upload event branch, a time field selects the report branch. Any other
// payload is accepted as a no-op. Only a storage payload that fails to
// parse is an invocation error.
func (s *UploadReportStore) Handle(ctx context.Context, event json.RawMessage) error {

	var payload map[string]json.RawMessage
	if err := json.Unmarshal(event, &payload); err != nil {
		log.Warn("Non-object event payload, ignoring: ", err)
		return nil
	}

	if _, ok := payload["Records"]; ok {
		var s3Event events.S3Event
		if err := json.Unmarshal(event, &s3Event); err != nil {
			return fmt.Errorf("failed to unmarshal storage event, %v", err)
		}
		return s.ProcessUploadEvent(ctx, s3Event)
	}

	if _, ok := payload["time"]; ok {
		return s.SendUploadReport(ctx)
	}

	log.Info("Event payload is neither a storage notification nor a timer signal, ignoring.")
	return nil
}
