package models

import "time"

// LineCode identifies a transit line, e.g. NEL, or the catch-all GENERAL.
type LineCode string

// Recipient is a canonical channel-prefixed address, e.g. "whatsapp:+6591234567".
type Recipient string

const (
	LineGeneral LineCode = "GENERAL"

	LineNSL   LineCode = "NSL"
	LineEWL   LineCode = "EWL"
	LineNEL   LineCode = "NEL"
	LineCCL   LineCode = "CCL"
	LineDTL   LineCode = "DTL"
	LineTEL   LineCode = "TEL"
	LineBPLRT LineCode = "BPLRT"
	LineSPLRT LineCode = "SPLRT"
)

// ServiceLines lists the operated lines. GENERAL is not a line but may be
// subscribed to as a catch-all.
var ServiceLines = []LineCode{LineNSL, LineEWL, LineNEL, LineCCL, LineDTL, LineTEL, LineBPLRT, LineSPLRT}

func (l LineCode) String() string { return string(l) }

func (r Recipient) String() string { return string(r) }

// Subscription is one recipient following one line. The (Line, Recipient)
// pair is unique.
type Subscription struct {
	Line      LineCode
	Recipient Recipient
	CreatedAt time.Time
}

// Key identifies a subscription pair.
type Key struct {
	Line      LineCode
	Recipient Recipient
}

func (s Subscription) Key() Key {
	return Key{Line: s.Line, Recipient: s.Recipient}
}
