package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	subModels "railalert/internal/subscription/models"
	dErrors "railalert/pkg/domain-errors"
)

// Status summarizes a dispatch as a whole.
type Status string

const (
	// StatusSent means every recipient was reached.
	StatusSent Status = "sent"
	// StatusPartial means at least one recipient was reached and at least one failed.
	StatusPartial Status = "partial"
	// StatusFailed means nobody was reached.
	StatusFailed Status = "failed"
	// StatusRejected means no delivery was attempted, e.g. no recipients resolved.
	StatusRejected Status = "rejected"
)

// Outcome is the result of one gateway call.
type Outcome struct {
	Recipient subModels.Recipient `json:"recipient"`
	Delivered bool                `json:"delivered"`
	Error     string              `json:"error,omitempty"`

	Err error `json:"-"`
}

// DispatchReport aggregates the outcomes of one broadcast. Outcomes are in
// input order, one per recipient attempted.
type DispatchReport struct {
	ID           uuid.UUID          `json:"id"`
	Line         subModels.LineCode `json:"line"`
	Message      string             `json:"message"`
	Test         bool               `json:"test"`
	Status       Status             `json:"status"`
	Sent         int                `json:"sent"`
	Failed       int                `json:"failed"`
	Outcomes     []Outcome          `json:"outcomes"`
	DispatchedAt time.Time          `json:"dispatched_at"`
}

// Tally fills Sent, Failed and Status from Outcomes.
func (r *DispatchReport) Tally() {
	r.Sent, r.Failed = 0, 0
	for _, o := range r.Outcomes {
		if o.Delivered {
			r.Sent++
		} else {
			r.Failed++
		}
	}
	switch {
	case r.Sent == 0:
		r.Status = StatusFailed
	case r.Failed == 0:
		r.Status = StatusSent
	default:
		r.Status = StatusPartial
	}
}

// Failures returns the outcomes that did not deliver.
func (r DispatchReport) Failures() []Outcome {
	out := make([]Outcome, 0, r.Failed)
	for _, o := range r.Outcomes {
		if !o.Delivered {
			out = append(out, o)
		}
	}
	return out
}

// Recipients returns every address attempted, in input order.
func (r DispatchReport) Recipients() []string {
	out := make([]string, 0, len(r.Outcomes))
	for _, o := range r.Outcomes {
		out = append(out, string(o.Recipient))
	}
	return out
}

// Err returns the first delivery failure as a delivery_failed error, or nil
// when every recipient was reached.
func (r DispatchReport) Err() error {
	for _, o := range r.Outcomes {
		if o.Delivered {
			continue
		}
		cause := o.Err
		if cause == nil {
			cause = errors.New(o.Error)
		}
		return dErrors.Wrap(cause, dErrors.CodeDeliveryFailed,
			fmt.Sprintf("delivery to %s failed (%d of %d recipients failed)", o.Recipient, r.Failed, len(r.Outcomes)))
	}
	return nil
}
