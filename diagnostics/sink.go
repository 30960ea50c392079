// Package diagnostics implements the compiler's log/diagnostic sink: an
// append-only, strictly-ordered stream of categorized messages that every
// pipeline component pushes into, and that a host may render later.
package diagnostics

import (
	"sync"

	"github.com/juju/loggo"
)

// Level is a diagnostic severity.
type Level int

const (
	Info Level = iota
	Debug
	Warning
	Error
)

func (l Level) String() string {
	switch l {
	case Info:
		return "INFO"
	case Debug:
		return "DEBUG"
	case Warning:
		return "WARNING"
	case Error:
		return "ERROR"
	default:
		return "?"
	}
}

// Source identifies which pipeline component emitted a Record.
type Source int

const (
	Splitter Source = iota
	Lexer
	Parser
	SemanticAnalyzer
	CodeGenerator
	Nexus
)

func (s Source) String() string {
	switch s {
	case Splitter:
		return "Splitter"
	case Lexer:
		return "Lexer"
	case Parser:
		return "Parser"
	case SemanticAnalyzer:
		return "SemanticAnalyzer"
	case CodeGenerator:
		return "CodeGenerator"
	case Nexus:
		return "Nexus"
	default:
		return "?"
	}
}

// Record is a single diagnostic message.
type Record struct {
	Level  Level
	Source Source
	Text   string
}

// Sink is the shared, append-only diagnostic stream. It is the only piece
// of mutable state shared between compiler components, so every mutating
// method takes a lock. A Sink owns one loggo.Logger per Source, so every
// diagnostic is also reported through a real leveled-logging library, not
// just appended to the in-memory buffer a host renders.
type Sink struct {
	mu      sync.Mutex
	records []Record
	loggers map[Source]loggo.Logger
}

// New returns an empty Sink.
func New() *Sink {
	loggers := make(map[Source]loggo.Logger, 6)
	for _, src := range []Source{Splitter, Lexer, Parser, SemanticAnalyzer, CodeGenerator, Nexus} {
		loggers[src] = loggo.GetLogger("nexus." + src.String())
	}
	return &Sink{loggers: loggers}
}

// Log appends a Record to the stream, preserving emission order, and
// forwards it to the matching loggo.Logger at the equivalent level.
func (s *Sink) Log(level Level, source Source, text string) {
	s.mu.Lock()
	s.records = append(s.records, Record{Level: level, Source: source, Text: text})
	logger := s.loggers[source]
	s.mu.Unlock()

	switch level {
	case Info:
		logger.Infof("%s", text)
	case Debug:
		logger.Debugf("%s", text)
	case Warning:
		logger.Warningf("%s", text)
	case Error:
		logger.Errorf("%s", text)
	}
}

// Clear resets the stream to empty.
func (s *Sink) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = nil
}

// Records returns a copy of the stream in emission order.
func (s *Sink) Records() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Record, len(s.records))
	copy(out, s.records)
	return out
}

// HasErrors reports whether any Error-level record has been logged since
// the last Clear.
func (s *Sink) HasErrors() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.records {
		if r.Level == Error {
			return true
		}
	}
	return false
}

// Count returns the number of records at the given level since the last
// Clear. Useful for tests asserting e.g. "zero errors, one warning".
func (s *Sink) Count(level Level) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.records {
		if r.Level == level {
			n++
		}
	}
	return n
}
