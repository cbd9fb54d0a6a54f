package table

// reader.go wraps CSV input to handle the two byte-level problems that break
// encoding/csv on files exported from spreadsheets:
//
//   - a leading UTF-8 BOM (0xEF 0xBB 0xBF) that would end up in the first header
//   - invalid UTF-8 sequences, replaced with U+FFFD
//
// Both run in constant memory; a multi-byte rune split across two reads is held
// back until the next read completes it.

import (
	"bufio"
	"bytes"
	"io"
	"unicode/utf8"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

var replacementChar = []byte(string(utf8.RuneError))

// NewBOMSkippingReader returns a reader that drops a leading UTF-8 BOM.
func NewBOMSkippingReader(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	if prefix, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(prefix, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}
	return br
}

// UTF8Sanitizer replaces invalid UTF-8 in the underlying stream with U+FFFD.
type UTF8Sanitizer struct {
	reader  io.Reader
	buf     []byte
	pending []byte // incomplete trailing sequence from the previous read
	out     []byte // sanitized bytes not yet returned
	err     error
}

// NewUTF8Sanitizer creates a sanitizing reader.
func NewUTF8Sanitizer(r io.Reader) *UTF8Sanitizer {
	return &UTF8Sanitizer{
		reader: r,
		buf:    make([]byte, 32*1024),
	}
}

// Read implements io.Reader.
func (s *UTF8Sanitizer) Read(p []byte) (int, error) {
	for len(s.out) == 0 {
		if s.err != nil {
			return 0, s.err
		}
		s.fill()
	}
	n := copy(p, s.out)
	s.out = s.out[n:]
	return n, nil
}

func (s *UTF8Sanitizer) fill() {
	n, err := s.reader.Read(s.buf)
	chunk := append(s.pending, s.buf[:n]...)
	s.pending = nil

	if err == nil {
		if keep := incompleteSuffix(chunk); keep > 0 {
			s.pending = append([]byte(nil), chunk[len(chunk)-keep:]...)
			chunk = chunk[:len(chunk)-keep]
		}
	} else {
		s.err = err
	}

	if utf8.Valid(chunk) {
		s.out = chunk
		return
	}
	s.out = bytes.ToValidUTF8(chunk, replacementChar)
}

// incompleteSuffix returns how many trailing bytes of b start a multi-byte
// rune that has not been completed yet.
func incompleteSuffix(b []byte) int {
	for i := 1; i <= utf8.UTFMax-1 && i <= len(b); i++ {
		c := b[len(b)-i]
		if c < 0x80 {
			return 0
		}
		if utf8.RuneStart(c) {
			if !utf8.FullRune(b[len(b)-i:]) {
				return i
			}
			return 0
		}
	}
	return 0
}

// NewCleanReader applies BOM skipping then UTF-8 sanitization.
func NewCleanReader(r io.Reader) io.Reader {
	return NewUTF8Sanitizer(NewBOMSkippingReader(r))
}
