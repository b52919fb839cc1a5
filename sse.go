package paperdash

import (
	"bufio"
	"io"
	"strings"
)

// SSEEvent is a single Server-Sent Event.
type SSEEvent struct {
	Type string // "event:" field, empty for the default message type
	ID   string
	Data string // "data:" lines joined with newlines
}

// SSEScanner reads Server-Sent Events from an io.Reader.
//
//	scanner := NewSSEScanner(body)
//	for scanner.Next() {
//	    handle(scanner.Event())
//	}
//	if err := scanner.Err(); err != nil {
//	    // connection dropped
//	}
type SSEScanner struct {
	reader  *bufio.Reader
	current SSEEvent
	lastID  string
	err     error
}

// NewSSEScanner creates a scanner over r.
func NewSSEScanner(r io.Reader) *SSEScanner {
	return &SSEScanner{reader: bufio.NewReaderSize(r, 64*1024)}
}

// Next advances to the next event. It returns false at end of stream or on
// a read error; Err distinguishes the two.
func (s *SSEScanner) Next() bool {
	if s.err != nil {
		return false
	}
	s.current = SSEEvent{}

	var data []string
	var eventType string
	hasData := false

	for {
		line, err := s.reader.ReadString('\n')
		if err != nil && line == "" {
			s.err = err
			// A final event without its blank-line terminator still counts.
			if err == io.EOF && hasData {
				s.current = SSEEvent{Type: eventType, ID: s.lastID, Data: strings.Join(data, "\n")}
				return true
			}
			return false
		}

		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			if hasData {
				s.current = SSEEvent{Type: eventType, ID: s.lastID, Data: strings.Join(data, "\n")}
				return true
			}
			eventType = ""
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, found := strings.Cut(line, ":")
		if found {
			value = strings.TrimPrefix(value, " ")
		}
		switch field {
		case "data":
			data = append(data, value)
			hasData = true
		case "event":
			eventType = value
		case "id":
			s.lastID = value
		}
	}
}

// Event returns the event parsed by the last successful call to Next.
func (s *SSEScanner) Event() SSEEvent {
	return s.current
}

// Err returns the read error that stopped the scanner, or nil after a clean
// end of stream.
func (s *SSEScanner) Err() error {
	if s.err == io.EOF {
		return nil
	}
	return s.err
}
