package utils

import (
	"bytes"
	"fmt"
	"io"
	"unicode/utf8"
)

// MaxDataLineSize is the default cap for a single stream line (1 MB).
const MaxDataLineSize = 1 * 1024 * 1024

const readBufferSize = 4 * 1024

var (
	dataPrefix = []byte("data: ")
	doneToken  = []byte("[DONE]")
)

// DataLine is one "data: " line of the event protocol.
type DataLine struct {
	Payload string
	Done    bool // the line was "data: [DONE]"
}

// DataLineDecoder splits an arbitrarily chunked byte stream into lines and
// keeps only those carrying the "data: " prefix. A partial trailing line is
// held until the next Feed or Flush.
type DataLineDecoder struct {
	pending []byte
	maxLine int
}

// NewDataLineDecoder returns a decoder that fails with ErrLineTooLong once a
// line grows past maxLine bytes. maxLine <= 0 selects MaxDataLineSize.
func NewDataLineDecoder(maxLine int) *DataLineDecoder {
	if maxLine <= 0 {
		maxLine = MaxDataLineSize
	}
	return &DataLineDecoder{maxLine: maxLine}
}

// Feed consumes the next chunk and returns the data lines it completed, in
// order. Lines after a [DONE] line in the same chunk are still returned;
// callers stop at the first Done.
func (d *DataLineDecoder) Feed(chunk []byte) ([]DataLine, error) {
	d.pending = append(d.pending, chunk...)

	var lines []DataLine
	consumed := 0
	for {
		idx := bytes.IndexByte(d.pending[consumed:], '\n')
		if idx < 0 {
			break
		}
		line, keep, err := d.decodeLine(d.pending[consumed : consumed+idx])
		if err != nil {
			return lines, err
		}
		if keep {
			lines = append(lines, line)
		}
		consumed += idx + 1
	}

	if consumed > 0 {
		d.pending = append(d.pending[:0], d.pending[consumed:]...)
	}
	if len(d.pending) > d.maxLine {
		return lines, fmt.Errorf("%w (%d bytes pending)", ErrLineTooLong, len(d.pending))
	}
	return lines, nil
}

// Flush decodes an unterminated final line left over at end of stream.
func (d *DataLineDecoder) Flush() (DataLine, bool, error) {
	if len(d.pending) == 0 {
		return DataLine{}, false, nil
	}
	line, keep, err := d.decodeLine(d.pending)
	d.pending = d.pending[:0]
	return line, keep, err
}

func (d *DataLineDecoder) decodeLine(raw []byte) (DataLine, bool, error) {
	raw = bytes.TrimSuffix(raw, []byte{'\r'})
	if len(raw) > d.maxLine {
		return DataLine{}, false, fmt.Errorf("%w (%d bytes)", ErrLineTooLong, len(raw))
	}
	if !utf8.Valid(raw) {
		return DataLine{}, false, ErrInvalidText
	}
	if !bytes.HasPrefix(raw, dataPrefix) {
		return DataLine{}, false, nil
	}
	payload := raw[len(dataPrefix):]
	if bytes.Equal(bytes.TrimSpace(payload), doneToken) {
		return DataLine{Done: true}, true, nil
	}
	return DataLine{Payload: string(payload)}, true, nil
}

// SSEScanner pulls data lines from a reader using a DataLineDecoder.
type SSEScanner struct {
	reader  io.Reader
	decoder *DataLineDecoder
	buf     []byte
	queue   []DataLine
	err     error // sticky; io.EOF once the stream has ended
}

// NewSSEScanner creates a scanner over reader with the default line cap.
func NewSSEScanner(reader io.Reader) *SSEScanner {
	return NewSSEScannerSize(reader, MaxDataLineSize)
}

// NewSSEScannerSize creates a scanner over reader with a custom line cap.
func NewSSEScannerSize(reader io.Reader, maxLine int) *SSEScanner {
	return &SSEScanner{
		reader:  reader,
		decoder: NewDataLineDecoder(maxLine),
		buf:     make([]byte, readBufferSize),
	}
}

// Next returns the next data payload. It returns io.EOF after a [DONE] line or
// when the reader is exhausted. Lines decoded before a failure are still
// returned first. Read failures wrap ErrTransport; decoding failures are
// ErrLineTooLong or ErrInvalidText.
func (s *SSEScanner) Next() (string, error) {
	for {
		if len(s.queue) > 0 {
			line := s.queue[0]
			s.queue = s.queue[1:]
			if line.Done {
				s.queue = nil
				s.err = io.EOF
				return "", io.EOF
			}
			return line.Payload, nil
		}
		if s.err != nil {
			return "", s.err
		}

		n, readErr := s.reader.Read(s.buf)
		if n > 0 {
			lines, err := s.decoder.Feed(s.buf[:n])
			s.queue = append(s.queue, lines...)
			if err != nil {
				s.err = err
				continue
			}
		}

		switch {
		case readErr == io.EOF:
			line, ok, err := s.decoder.Flush()
			if err != nil {
				s.err = err
				continue
			}
			if ok {
				s.queue = append(s.queue, line)
			}
			s.queue = append(s.queue, DataLine{Done: true})
		case readErr != nil:
			s.err = fmt.Errorf("%w: %w", ErrTransport, readErr)
		}
	}
}
