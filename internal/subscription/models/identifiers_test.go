package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "railalert/pkg/domain-errors"
)

func TestNormalizeLine(t *testing.T) {
	tests := []struct {
		input    string
		expected LineCode
	}{
		{"nel", LineNEL},
		{"  Ewl ", LineEWL},
		{"", LineGeneral},
		{"   ", LineGeneral},
		{"foo", LineCode("FOO")},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeLine(tt.input))
		})
	}
}

func TestParseLine(t *testing.T) {
	t.Run("accepts operated lines case-insensitively", func(t *testing.T) {
		for _, l := range ServiceLines {
			got, err := ParseLine(" " + string(l) + " ")
			require.NoError(t, err)
			assert.Equal(t, l, got)
		}
	})

	t.Run("blank maps to the catch-all", func(t *testing.T) {
		got, err := ParseLine("")
		require.NoError(t, err)
		assert.Equal(t, LineGeneral, got)
	})

	t.Run("rejects unknown lines", func(t *testing.T) {
		_, err := ParseLine("FOO")
		require.Error(t, err)
		assert.True(t, dErrors.Is(err, dErrors.CodeInvalidLine))
	})
}

func TestNormalizeRecipient(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected Recipient
	}{
		{"bare digits", "6591234567", "whatsapp:+6591234567"},
		{"plus prefixed", "+6591234567", "whatsapp:+6591234567"},
		{"channel prefixed", "whatsapp:+6591234567", "whatsapp:+6591234567"},
		{"channel prefixed without plus", "whatsapp:6591234567", "whatsapp:+6591234567"},
		{"spaces inside", " whatsapp: +65 9123 4567 ", "whatsapp:+6591234567"},
		{"uppercase prefix", "WhatsApp:+6591234567", "whatsapp:+6591234567"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeRecipient(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)

			again, err := NormalizeRecipient(string(got))
			require.NoError(t, err)
			assert.Equal(t, got, again, "normalization must be idempotent")
		})
	}
}

func TestNormalizeRecipientRejectsBlank(t *testing.T) {
	for _, input := range []string{"", "   ", "whatsapp:", "whatsapp: +", "+"} {
		t.Run(input, func(t *testing.T) {
			_, err := NormalizeRecipient(input)
			require.Error(t, err)
			assert.True(t, dErrors.Is(err, dErrors.CodeInvalidRecipient))
		})
	}
}
