package stream

import (
	"bytes"
	"io"
	"strings"
)

// Event is one decoded Server-Sent Event.
type Event struct {
	Name string // value of the event: field, if any
	Data string // data: lines joined with newlines
}

// Decoder incrementally parses Server-Sent Events from a reader. A
// fragment's encoded bytes may arrive split across reads; any
// incomplete trailing line is buffered and carried over to the next
// read rather than dropped.
type Decoder struct {
	r   io.Reader
	buf []byte
	eof bool
}

// NewDecoder returns a Decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: r}
}

// Next returns the next complete event. It returns io.EOF when the
// underlying reader is exhausted and no buffered event remains.
func (d *Decoder) Next() (Event, error) {
	var ev Event
	var dataLines []string
	started := false

	for {
		line, ok := d.readLine()
		if !ok {
			if d.eof {
				// Dispatch a trailing event that was never terminated
				// by a blank line, then signal completion.
				if started && len(dataLines) > 0 {
					ev.Data = strings.Join(dataLines, "\n")
					return ev, nil
				}
				return Event{}, io.EOF
			}
			if err := d.fill(); err != nil && err != io.EOF {
				return Event{}, err
			}
			continue
		}

		if len(line) == 0 {
			// Blank line dispatches the accumulated event; blank
			// lines before any field are ignored.
			if started && len(dataLines) > 0 {
				ev.Data = strings.Join(dataLines, "\n")
				return ev, nil
			}
			// A field-only event (no data) is discarded whole; its
			// name must not leak onto the next event.
			started = false
			ev = Event{}
			dataLines = nil
			continue
		}

		field, value := splitField(line)
		switch field {
		case "event":
			ev.Name = value
			started = true
		case "data":
			dataLines = append(dataLines, value)
			started = true
		default:
			// Comments and unknown fields are skipped.
		}
	}
}

// readLine pops one full line from the buffer. ok is false if no
// complete line is buffered yet.
func (d *Decoder) readLine() ([]byte, bool) {
	idx := bytes.IndexByte(d.buf, '\n')
	if idx < 0 {
		if d.eof && len(d.buf) > 0 {
			// Final line without a trailing newline.
			line := d.buf
			d.buf = nil
			return bytes.TrimSuffix(line, []byte("\r")), true
		}
		return nil, false
	}
	line := d.buf[:idx]
	d.buf = d.buf[idx+1:]
	return bytes.TrimSuffix(line, []byte("\r")), true
}

// fill reads one chunk from the underlying reader into the buffer.
func (d *Decoder) fill() error {
	chunk := make([]byte, 512)
	n, err := d.r.Read(chunk)
	if n > 0 {
		d.buf = append(d.buf, chunk[:n]...)
	}
	if err == io.EOF {
		d.eof = true
	}
	return err
}

func splitField(line []byte) (field, value string) {
	idx := bytes.IndexByte(line, ':')
	if idx < 0 {
		return string(line), ""
	}
	field = string(line[:idx])
	rest := line[idx+1:]
	// A single leading space after the colon is part of the syntax.
	if len(rest) > 0 && rest[0] == ' ' {
		rest = rest[1:]
	}
	return field, string(rest)
}
