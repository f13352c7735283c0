package models

import (
	"strings"

	dErrors "railalert/pkg/domain-errors"
)

const maxMessageLength = 1600

// AlertRequest is the body for line-targeted and auto-detected alerts.
type AlertRequest struct {
	Message string `json:"message"`
	Test    bool   `json:"test"`
}

func (r *AlertRequest) Normalize() {
	if r == nil {
		return
	}
	r.Message = strings.TrimSpace(r.Message)
}

// Follows validation order: Size -> Required.
func (r *AlertRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if len(r.Message) > maxMessageLength {
		return dErrors.New(dErrors.CodeValidation, "message must be 1600 characters or less")
	}
	if r.Message == "" {
		return dErrors.New(dErrors.CodeValidation, "message is required")
	}
	return nil
}

// BroadcastRequest sends to an explicit recipient list.
type BroadcastRequest struct {
	Line       string   `json:"line"`
	Message    string   `json:"message"`
	Recipients []string `json:"recipients"`
}

func (r *BroadcastRequest) Normalize() {
	if r == nil {
		return
	}
	r.Line = strings.TrimSpace(r.Line)
	r.Message = strings.TrimSpace(r.Message)
	kept := r.Recipients[:0]
	for _, rec := range r.Recipients {
		if rec = strings.TrimSpace(rec); rec != "" {
			kept = append(kept, rec)
		}
	}
	r.Recipients = kept
}

// Follows validation order: Size -> Required.
func (r *BroadcastRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if len(r.Message) > maxMessageLength {
		return dErrors.New(dErrors.CodeValidation, "message must be 1600 characters or less")
	}
	if len(r.Recipients) > 1000 {
		return dErrors.New(dErrors.CodeValidation, "at most 1000 recipients per broadcast")
	}
	if r.Message == "" {
		return dErrors.New(dErrors.CodeValidation, "message is required")
	}
	if len(r.Recipients) == 0 {
		return dErrors.New(dErrors.CodeValidation, "recipients are required")
	}
	return nil
}
