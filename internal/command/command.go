// Package command parses the clip command grammar: a URL followed by a
// start and an end timestamp. Parsing is purely lexical; timestamp
// conversion and range validation happen downstream.
package command

import (
	"errors"
	"regexp"
	"strings"
)

var (
	// ErrUsage reports too few arguments.
	ErrUsage = errors.New("clip command needs a url, a start and an end")

	// ErrGrammar reports arguments that are present but do not match the
	// clip grammar.
	ErrGrammar = errors.New("clip command does not match <url> <start> <end>")
)

var clipRe = regexp.MustCompile(
	`^\s*(https?://\S+)\s+(\d+(?::\d{1,2}){0,2})\s+(\d+(?::\d{1,2}){0,2})\s*$`)

// Args holds the three raw tokens of a clip command.
type Args struct {
	URL   string
	Start string
	End   string
}

// Parse extracts (url, start, end) from the text after the command
// keyword. Arity is checked before the pattern so callers can tell a
// usage error apart from a grammar mismatch.
func Parse(text string) (Args, error) {
	if len(strings.Fields(text)) < 3 {
		return Args{}, ErrUsage
	}
	m := clipRe.FindStringSubmatch(text)
	if m == nil {
		return Args{}, ErrGrammar
	}
	return Args{URL: m[1], Start: m[2], End: m[3]}, nil
}
