package audit

import (
	"time"

	"github.com/google/uuid"
)

// Entry is one dispatch as seen by the in-memory trail.
type Entry struct {
	Timestamp  time.Time `json:"timestamp"`
	Line       string    `json:"line"`
	Message    string    `json:"message"`
	Recipients []string  `json:"recipients"`
	Test       bool      `json:"test"`
}

func (e Entry) clone() Entry {
	if e.Recipients != nil {
		e.Recipients = append([]string(nil), e.Recipients...)
	}
	return e
}

// Record is the durable summary of a dispatch. Recipient addresses are not
// persisted, only counts.
type Record struct {
	ID             uuid.UUID `json:"id"`
	Line           string    `json:"line_code"`
	Message        string    `json:"message"`
	RecipientCount int       `json:"recipient_count"`
	DeliveredCount int       `json:"delivered_count"`
	Test           bool      `json:"test_mode"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
}

// MaxMessageLength bounds the archived message column.
const MaxMessageLength = 1024

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
