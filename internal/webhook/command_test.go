package webhook

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Command
	}{
		{"subscribe many", "sub nel  ewl", Command{Verb: VerbSubscribe, Lines: []string{"NEL", "EWL"}}},
		{"subscribe repeated line", "SUB nel NEL", Command{Verb: VerbSubscribe, Lines: []string{"NEL"}}},
		{"subscribe without line", "SUB", Command{Verb: VerbSubscribe, Lines: []string{}}},
		{"unsubscribe", "Unsub ccl", Command{Verb: VerbUnsubscribe, Lines: []string{"CCL"}}},
		{"lines ignores arguments", "lines please", Command{Verb: VerbLines}},
		{"prefix of a verb is not a verb", "SUBWAY NEL", Command{Verb: VerbHelp}},
		{"blank", "   ", Command{Verb: VerbHelp}},
		{"chatter", "hello there", Command{Verb: VerbHelp}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseCommand(tt.text))
		})
	}
}
