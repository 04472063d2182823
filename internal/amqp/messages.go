package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// ReportRequestMessage asks the export worker to produce a monthly report.
// It carries only the target period, the worker fetches the transactions
// from the finance API with its own credentials.
type ReportRequestMessage struct {
	Year        int       `json:"year"`
	Month       int       `json:"month"`
	RequestedBy string    `json:"requested_by"`
	Timestamp   time.Time `json:"timestamp"`
}

// NewReportRequestMessage creates a request for the given period
func NewReportRequestMessage(year, month int, requestedBy string) *ReportRequestMessage {
	return &ReportRequestMessage{
		Year:        year,
		Month:       month,
		RequestedBy: requestedBy,
		Timestamp:   time.Now(),
	}
}

// Validate checks that the message describes a real calendar month
func (m *ReportRequestMessage) Validate() error {
	if m.Year < 1970 || m.Year > 9999 {
		return fmt.Errorf("invalid year %d", m.Year)
	}
	if m.Month < 1 || m.Month > 12 {
		return fmt.Errorf("invalid month %d", m.Month)
	}
	return nil
}

// ToJSON converts the message to JSON bytes
func (m *ReportRequestMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ReportRequestMessageFromJSON creates a message from JSON bytes
func ReportRequestMessageFromJSON(data []byte) (*ReportRequestMessage, error) {
	var msg ReportRequestMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
