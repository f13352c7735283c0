package webhook

import (
	pstrings "railalert/pkg/platform/strings"
)

// Verb is the first word of an inbound message.
type Verb string

const (
	VerbSubscribe   Verb = "SUB"
	VerbUnsubscribe Verb = "UNSUB"
	VerbLines       Verb = "LINES"
	VerbHelp        Verb = "HELP"
)

// Command is a parsed inbound message. Lines are upper-cased and distinct,
// in the order the sender wrote them.
type Command struct {
	Verb  Verb
	Lines []string
}

// ParseCommand reads a free-text message. Anything unrecognized is a help
// request.
func ParseCommand(text string) Command {
	tokens := pstrings.UpperFields(text)
	if len(tokens) == 0 {
		return Command{Verb: VerbHelp}
	}
	switch verb := Verb(tokens[0]); verb {
	case VerbSubscribe, VerbUnsubscribe:
		return Command{Verb: verb, Lines: tokens[1:]}
	case VerbLines:
		return Command{Verb: VerbLines}
	default:
		return Command{Verb: VerbHelp}
	}
}
