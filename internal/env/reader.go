package env

import (
	"bufio"
	"bytes"
	"errors"
	"io"
)

// ChunkSize is the most bytes a single read may return, terminator included.
// A line that does not fit is returned in pieces.
const ChunkSize = 8191

// Reader splits an environment file into bounded chunks. Each chunk is either
// a whole line (ending in '\n'), the first ChunkSize bytes of a longer line, or
// the unterminated tail of the file.
type Reader struct {
	br      *bufio.Reader
	line    int
	atStart bool
}

func NewReader(r io.Reader) *Reader {
	return &Reader{
		br:      bufio.NewReaderSize(r, ChunkSize),
		atStart: true,
	}
}

// Next returns the next chunk and whether it ended with a line terminator.
// It returns io.EOF once the input is exhausted.
func (r *Reader) Next() ([]byte, bool, error) {
	chunk, err := r.br.ReadSlice('\n')
	if len(chunk) > 0 {
		if r.atStart {
			r.line++
		}
		r.atStart = err == nil
	}

	switch {
	case err == nil:
		return bytes.Clone(chunk), true, nil
	case errors.Is(err, bufio.ErrBufferFull):
		return bytes.Clone(chunk), false, nil
	case errors.Is(err, io.EOF):
		if len(chunk) == 0 {
			return nil, false, io.EOF
		}
		return bytes.Clone(chunk), false, nil
	default:
		return nil, false, err
	}
}

// SkipLine discards input up to and including the next terminator.
func (r *Reader) SkipLine() error {
	for {
		_, err := r.br.ReadSlice('\n')
		switch {
		case err == nil:
			r.atStart = true
			return nil
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		case errors.Is(err, io.EOF):
			r.atStart = true
			return nil
		default:
			return err
		}
	}
}

// Line is the 1-based number of the physical line the last chunk came from.
func (r *Reader) Line() int { return r.line }
