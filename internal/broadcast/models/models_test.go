package models

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "railalert/pkg/domain-errors"
)

func TestDispatchReportTally(t *testing.T) {
	tests := []struct {
		name     string
		outcomes []Outcome
		status   Status
		sent     int
		failed   int
	}{
		{"all delivered", []Outcome{{Delivered: true}, {Delivered: true}}, StatusSent, 2, 0},
		{"some delivered", []Outcome{{Delivered: true}, {Delivered: false}}, StatusPartial, 1, 1},
		{"none delivered", []Outcome{{Delivered: false}}, StatusFailed, 0, 1},
		{"no outcomes", nil, StatusFailed, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := DispatchReport{Outcomes: tt.outcomes}
			r.Tally()
			assert.Equal(t, tt.status, r.Status)
			assert.Equal(t, tt.sent, r.Sent)
			assert.Equal(t, tt.failed, r.Failed)
		})
	}
}

func TestDispatchReportErr(t *testing.T) {
	cause := errors.New("twilio: status 400")
	r := DispatchReport{Outcomes: []Outcome{
		{Recipient: "whatsapp:+651", Delivered: true},
		{Recipient: "whatsapp:+652", Delivered: false, Err: cause, Error: cause.Error()},
		{Recipient: "whatsapp:+653", Delivered: false, Error: "timeout"},
	}}
	r.Tally()

	err := r.Err()
	require.Error(t, err)
	assert.True(t, dErrors.Is(err, dErrors.CodeDeliveryFailed))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "whatsapp:+652")
	assert.Len(t, r.Failures(), 2)
	assert.Equal(t, []string{"whatsapp:+651", "whatsapp:+652", "whatsapp:+653"}, r.Recipients())

	ok := DispatchReport{Outcomes: []Outcome{{Delivered: true}}}
	assert.NoError(t, ok.Err())
}

func TestBroadcastRequestValidate(t *testing.T) {
	req := &BroadcastRequest{Line: " nel ", Message: " hi ", Recipients: []string{" +651 ", "", "  "}}
	req.Normalize()
	require.NoError(t, req.Validate())
	assert.Equal(t, []string{"+651"}, req.Recipients)

	empty := &BroadcastRequest{Message: "hi", Recipients: []string{" "}}
	empty.Normalize()
	err := empty.Validate()
	require.Error(t, err)
	assert.True(t, dErrors.Is(err, dErrors.CodeValidation))
}

func TestAlertRequestValidate(t *testing.T) {
	req := &AlertRequest{Message: "   "}
	req.Normalize()
	err := req.Validate()
	require.Error(t, err)
	assert.True(t, dErrors.Is(err, dErrors.CodeValidation))

	var nilReq *AlertRequest
	assert.True(t, dErrors.Is(nilReq.Validate(), dErrors.CodeBadRequest))
}
