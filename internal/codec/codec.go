// Package codec implements the line protocol codec (spec §4.1): framing a
// byte stream into newline-delimited syslog lines bounded by a maximum
// length, grounded on the teacher's internal/parser/socket_reader.go
// read-loop shape but rewritten around explicit LineTooLong handling
// instead of bufio.Scanner's silent ErrTooLong, since the spec requires
// the oversize condition to terminate the connection without forwarding
// any partial line.
package codec

import (
	"errors"
	"io"

	"github.com/dstufft/linehaul/internal/linehaulerr"
)

// RawLine is one decoded, newline-delimited line with any trailing
// carriage return already stripped. It is not retained past the caller
// that consumes it.
type RawLine []byte

// Decoder frames an io.Reader into RawLines. It is not safe for
// concurrent use; each connection owns exactly one Decoder (spec §4.3:
// "no per-connection concurrency").
type Decoder struct {
	r           io.Reader
	maxLineSize int
	recvSize    int

	buf     []byte // bytes read but not yet consumed into a line
	scanned int     // prefix of buf already scanned for '\n'
	chunk   []byte  // scratch read buffer, recvSize bytes
	eof     bool
}

// NewDecoder returns a Decoder that reads in chunks of recvSize and
// rejects any line whose accumulated length reaches maxLineSize without a
// terminating newline.
func NewDecoder(r io.Reader, maxLineSize, recvSize int) *Decoder {
	return &Decoder{
		r:           r,
		maxLineSize: maxLineSize,
		recvSize:    recvSize,
		chunk:       make([]byte, recvSize),
	}
}

// Next returns the next RawLine. It returns io.EOF once the underlying
// reader is exhausted with no further complete line pending; any trailing
// unterminated bytes are discarded, never forwarded as a line. It returns
// a *linehaulerr.LineTooLong if the accumulated buffer reaches
// maxLineSize without a newline — the caller MUST treat this as fatal to
// the connection and stop calling Next.
func (d *Decoder) Next() (RawLine, error) {
	for {
		if idx := indexByte(d.buf, d.scanned, '\n'); idx >= 0 {
			line := d.buf[:idx]
			line = stripCR(line)
			out := make([]byte, len(line))
			copy(out, line) // before the shift below overwrites line's bytes
			rest := d.buf[idx+1:]
			d.buf = append(d.buf[:0], rest...)
			d.scanned = 0
			if len(out) == 0 {
				continue // empty lines are skipped silently
			}
			return out, nil
		}
		d.scanned = len(d.buf)

		if len(d.buf) >= d.maxLineSize {
			return nil, &linehaulerr.LineTooLong{Limit: d.maxLineSize}
		}

		if d.eof {
			return nil, io.EOF
		}

		n, err := d.r.Read(d.chunk)
		if n > 0 {
			d.buf = append(d.buf, d.chunk[:n]...)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				d.eof = true
				continue
			}
			return nil, err
		}
	}
}

func indexByte(b []byte, from int, c byte) int {
	for i := from; i < len(b); i++ {
		if b[i] == c {
			return i
		}
	}
	return -1
}

func stripCR(line []byte) []byte {
	if n := len(line); n > 0 && line[n-1] == '\r' {
		return line[:n-1]
	}
	return line
}
