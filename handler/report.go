package handler

import (
	"context"
	"errors"
	"html"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
	"uploadreporter/mailer"
)

const reportSubject = "Daily S3 upload report"
const reportSender = "S3 Upload Reporter <upload.reporter.daily@gmail.com>"
const reportRecipient = "S3 Upload Reporter <upload.reporter.daily@gmail.com>"

// SendUploadReport runs one report cycle: read every persisted upload
// record, render the HTML report, send it, and clear the records that
// were read. A failed read aborts the cycle silently; the records simply
// roll into the next tick. Send and delete ordering is configurable: the
// default deletes only after a confirmed send, trading a possible
// duplicate report for no silent data loss.
func (s *UploadReportStore) SendUploadReport(ctx context.Context) error {

	records, err := s.dy.GetUploadRecords(ctx)
	if err != nil {
		log.Error("Unable to query upload records, skipping report cycle: ", err)
		return nil
	}

	body := renderReport(records)

	if s.deleteBeforeSend {
		s.clearRecords(ctx, records)
		s.sendReport(ctx, body)
		return nil
	}

	if !s.sendReport(ctx, body) {
		// Keep the records for the next cycle.
		return nil
	}
	s.clearRecords(ctx, records)

	return nil
}

// sendReport mails the rendered report and reports whether the send was
// confirmed. Missing credentials and transport failures are logged, never
// propagated.
func (s *UploadReportStore) sendReport(ctx context.Context, body string) bool {

	err := s.Mailer.Send(ctx, mailer.Message{
		From:     reportSender,
		To:       reportRecipient,
		Subject:  reportSubject,
		HTMLBody: body,
	})
	if err != nil {
		if errors.Is(err, mailer.ErrNoCredentials) {
			log.Error("Error: email credentials are not set, report mail suppressed.")
		} else {
			log.Error("Could not send report mail: ", err)
		}
		return false
	}

	log.Info("Report mail sent successfully.")
	return true
}

func (s *UploadReportStore) clearRecords(ctx context.Context, records []UploadRecord) {
	if len(records) == 0 {
		return
	}
	if err := s.dy.DeleteUploadRecords(ctx, records); err != nil {
		log.Error("Unable to clear reported upload records: ", err)
	}
}

// renderReport renders the report as a single HTML document with one
// table row per record, in the given order. An empty record list renders
// the header row only.
func renderReport(records []UploadRecord) string {

	var b strings.Builder

	b.WriteString(`<!DOCTYPE html>
<html>
	<head>
		<style>
			table, th, td {
				border: 1px solid black;
				border-collapse: collapse;
			}
			th, td {
				padding: 15px;
			}
		</style>
	</head>
	<body>
		<h1>Daily S3 upload report</h1>
		<table>
			<tr>
				<th>Object Name</th>
				<th>Object Type</th>
				<th>Object Size</th>
				<th>S3 URI</th>
			</tr>
`)

	for _, record := range records {
		b.WriteString("			<tr>\n")
		b.WriteString("				<td>" + html.EscapeString(record.ObjectName) + "</td>\n")
		b.WriteString("				<td>" + html.EscapeString(record.ObjectType) + "</td>\n")
		b.WriteString("				<td>" + strconv.FormatInt(record.ObjectSize, 10) + "</td>\n")
		b.WriteString("				<td>" + html.EscapeString(record.StorageURI) + "</td>\n")
		b.WriteString("			</tr>\n")
	}

	b.WriteString(`		</table>
	</body>
</html>
`)

	return b.String()
}
