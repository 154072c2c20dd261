package service

import (
	"bytes"
	"encoding/csv"
	"time"

	"github.com/iliyamo/qr-attendance/internal/model"
)

// csvHeader is the fixed first row of every attendance export.
var csvHeader = []string{"Student ID", "Timestamp", "Verified", "Liveness Action"}

// SubmissionsCSV renders submissions as a UTF-8 CSV document with the
// fixed header row.  Quoting follows RFC 4180 via encoding/csv, so
// embedded commas and quotes in student IDs survive a round trip
// through any standard CSV parser.  Row order is whatever the caller
// passed in, normally most-recent-first from ListBySession.
func SubmissionsCSV(subs []model.Submission) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, err
	}
	for _, s := range subs {
		verified := "No"
		if s.Verified {
			verified = "Yes"
		}
		liveness := s.LivenessAction
		if liveness == "" {
			liveness = "-"
		}
		row := []string{s.StudentID, s.Timestamp.UTC().Format(time.RFC3339), verified, liveness}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
