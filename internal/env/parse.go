package env

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

// MaxEntryBytes bounds the owned "name=value" form of a single entry.
const MaxEntryBytes = 128*1024 - 128

var (
	ErrTruncated     = errors.New("line longer than chunk size is followed by more input")
	ErrEntryTooLarge = errors.New("environment entry too large")
	ErrInvalidEntry  = errors.New("invalid environment entry")
)

// LineKind classifies one raw chunk of an environment file.
type LineKind int

const (
	LineCandidate LineKind = iota
	LineComment
	LineBlank
)

// Classify reports how a raw chunk is treated. Lines starting with '#' or a
// space are comments; empty lines are blank; everything else is a candidate.
func Classify(chunk []byte) LineKind {
	if len(chunk) == 0 {
		return LineBlank
	}
	switch chunk[0] {
	case '#', ' ':
		return LineComment
	case '\n':
		return LineBlank
	case '\r':
		if len(chunk) == 2 && chunk[1] == '\n' {
			return LineBlank
		}
	}
	return LineCandidate
}

// StripTerminator removes one trailing '\n'.
func StripTerminator(line []byte) []byte {
	if n := len(line); n > 0 && line[n-1] == '\n' {
		return line[:n-1]
	}
	return line
}

// NormalizeLineEnding drops one trailing control character left behind by a
// CRLF terminator. It is a no-op unless crlf is set.
func NormalizeLineEnding(line []byte, crlf bool) []byte {
	if !crlf {
		return line
	}
	if n := len(line); n > 0 && isControl(line[n-1]) {
		return line[:n-1]
	}
	return line
}

func isControl(c byte) bool { return c < 0x20 || c == 0x7f }

// Entry is one parsed name=value pair.
type Entry struct {
	Name  string
	Value string
}

func (e Entry) String() string { return e.Name + "=" + e.Value }

// LookupFunc resolves a bare name against a previous environment.
type LookupFunc func(name string) (string, bool)

// ParseEntry turns a candidate line, stripped of its terminator, into an
// entry. A bare name is resolved with lookup; ok is false when it has no value
// there and the line must be skipped.
func ParseEntry(line string, lookup LookupFunc) (entry Entry, ok bool, err error) {
	name, value, found := strings.Cut(line, "=")
	if !found {
		if lookup == nil {
			return Entry{}, false, nil
		}
		if value, ok = lookup(name); !ok {
			return Entry{}, false, nil
		}
	}

	if name == "" {
		return Entry{}, false, fmt.Errorf("%w: empty name", ErrInvalidEntry)
	}
	if strings.IndexByte(name, 0) >= 0 || strings.IndexByte(value, 0) >= 0 {
		return Entry{}, false, fmt.Errorf("%w: %q contains a NUL byte", ErrInvalidEntry, name)
	}
	if len(name)+1+len(value) > MaxEntryBytes {
		return Entry{}, false, fmt.Errorf("%w: %s is %d bytes", ErrEntryTooLarge, name, len(name)+1+len(value))
	}
	return Entry{Name: name, Value: value}, true, nil
}

// LineError ties a parse failure to the physical line it came from.
type LineError struct {
	Line int
	Err  error
}

func (e *LineError) Error() string { return fmt.Sprintf("line %d: %v", e.Line, e.Err) }
func (e *LineError) Unwrap() error { return e.Err }

// ParseOptions tune Parse.
type ParseOptions struct {
	// CRLF enables NormalizeLineEnding.
	CRLF bool
}

// Parse reads an environment file from r and appends every effective entry to
// dst. On error dst may hold a prefix of the file; the caller owns it and
// decides whether to release it.
func Parse(r io.Reader, lookup LookupFunc, dst *Table, opts ParseOptions) error {
	rd := NewReader(r)
	questionable := false

	for {
		chunk, complete, err := rd.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return &LineError{Line: rd.Line(), Err: err}
		}

		// The previous candidate filled a whole chunk without a terminator
		// and the file did not end there.
		if questionable {
			return &LineError{Line: rd.Line(), Err: ErrTruncated}
		}

		switch Classify(chunk) {
		case LineComment, LineBlank:
			if !complete {
				if err := rd.SkipLine(); err != nil {
					return &LineError{Line: rd.Line(), Err: err}
				}
			}
			continue
		}

		line := chunk
		if complete {
			line = NormalizeLineEnding(StripTerminator(line), opts.CRLF)
		} else {
			questionable = true
		}

		entry, ok, err := ParseEntry(string(line), lookup)
		if err != nil {
			return &LineError{Line: rd.Line(), Err: err}
		}
		if !ok {
			continue
		}
		if err := dst.Append(entry); err != nil {
			return &LineError{Line: rd.Line(), Err: err}
		}
	}
}
