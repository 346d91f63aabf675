package amqp

import (
	"encoding/json"
	"errors"
	"time"
)

// ReportGeneratedMessage announces a processed statement. It names the
// monthly export so consumers can re-read the figures without the upload.
type ReportGeneratedMessage struct {
	ReportID    string    `json:"report_id"`
	SourceName  string    `json:"source_name"`
	MonthlyFile string    `json:"monthly_file"`
	Months      []string  `json:"months"`
	Mismatches  []string  `json:"mismatches,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// NewReportGeneratedMessage creates a message stamped with the current time
func NewReportGeneratedMessage(reportID, sourceName, monthlyFile string, months, mismatches []string) *ReportGeneratedMessage {
	return &ReportGeneratedMessage{
		ReportID:    reportID,
		SourceName:  sourceName,
		MonthlyFile: monthlyFile,
		Months:      months,
		Mismatches:  mismatches,
		Timestamp:   time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ReportGeneratedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ReportGeneratedMessageFromJSON decodes a message and checks its required fields
func ReportGeneratedMessageFromJSON(data []byte) (*ReportGeneratedMessage, error) {
	var msg ReportGeneratedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.ReportID == "" {
		return nil, errors.New("report_id is required")
	}
	if msg.MonthlyFile == "" {
		return nil, errors.New("monthly_file is required")
	}
	return &msg, nil
}
