package models

import (
	"strings"

	dErrors "railalert/pkg/domain-errors"
)

// ChannelPrefix marks an address as a WhatsApp destination.
const ChannelPrefix = "whatsapp:"

var validLines = func() map[LineCode]struct{} {
	m := make(map[LineCode]struct{}, len(ServiceLines)+1)
	for _, l := range ServiceLines {
		m[l] = struct{}{}
	}
	m[LineGeneral] = struct{}{}
	return m
}()

// NormalizeLine trims and upper-cases a line code. Blank input maps to GENERAL.
// No validation happens here so lookups stay permissive.
func NormalizeLine(input string) LineCode {
	s := strings.ToUpper(strings.TrimSpace(input))
	if s == "" {
		return LineGeneral
	}
	return LineCode(s)
}

// ValidateLine rejects codes outside the operated lines and GENERAL.
func ValidateLine(line LineCode) error {
	if _, ok := validLines[line]; !ok {
		return dErrors.New(dErrors.CodeInvalidLine, "invalid line: "+string(line))
	}
	return nil
}

// ParseLine normalizes and validates in one step, for mutations.
func ParseLine(input string) (LineCode, error) {
	line := NormalizeLine(input)
	if err := ValidateLine(line); err != nil {
		return "", err
	}
	return line, nil
}

// NormalizeRecipient canonicalizes a phone number into "whatsapp:+<digits>".
// Whitespace is removed everywhere, an existing channel prefix is stripped and
// re-applied, and a leading '+' is added when missing. The result is stable
// under re-normalization.
func NormalizeRecipient(input string) (Recipient, error) {
	p := strings.Join(strings.Fields(input), "")
	if rest, ok := cutPrefixFold(p, ChannelPrefix); ok {
		p = rest
	}
	p = strings.TrimLeft(p, "+")
	if p == "" {
		return "", dErrors.New(dErrors.CodeInvalidRecipient, "recipient is required")
	}
	return Recipient(ChannelPrefix + "+" + p), nil
}

func cutPrefixFold(s, prefix string) (string, bool) {
	if len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix) {
		return s[len(prefix):], true
	}
	return s, false
}
