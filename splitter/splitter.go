// Package splitter implements the source stream splitter (component
// C1): it slices one input buffer into consecutive programs on the `$`
// terminator, tracking the same in_string/in_comment context the lexer
// does so a `$` inside a string literal or a comment is not mistaken for
// a program boundary.
package splitter

import (
	"github.com/juju/errors"

	"github.com/skx/nexus-compiler/diagnostics"
)

// ErrMissingTerminator is returned (never fatal to the caller) when the
// final program in a stream has no trailing `$`.
var ErrMissingTerminator = errors.New("missing trailing '$' terminator")

// Program is one numbered slice of the input, still including its
// trailing `$` when one was found.
type Program struct {
	Number int
	Source string
}

// Split slices source into Programs, numbered from 1. If the input ends
// without a final `$`, the residual text still becomes one program, a
// warning is logged, and the returned error wraps ErrMissingTerminator —
// callers are expected to keep processing the programs regardless.
func Split(source string, sink *diagnostics.Sink) ([]Program, error) {
	var programs []Program
	runes := []rune(source)
	start := 0
	number := 1

	inString := false
	inComment := false

	for i := 0; i < len(runes); i++ {
		r := runes[i]

		if inComment {
			if r == '*' && i+1 < len(runes) && runes[i+1] == '/' {
				inComment = false
				i++
			}
			continue
		}
		if inString {
			if r == '"' {
				inString = false
			} else if r == '\n' {
				inString = false
			}
			continue
		}

		switch {
		case r == '/' && i+1 < len(runes) && runes[i+1] == '*':
			inComment = true
			i++
		case r == '"':
			inString = true
		case r == '$':
			programs = append(programs, Program{Number: number, Source: string(runes[start : i+1])})
			number++
			start = i + 1
		}
	}

	if start < len(runes) {
		residual := string(runes[start:])
		sink.Log(diagnostics.Warning, diagnostics.Splitter, "program "+itoa(number)+" is missing its trailing '$' terminator")
		programs = append(programs, Program{Number: number, Source: residual})
		return programs, errors.Trace(ErrMissingTerminator)
	}

	return programs, nil
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}
