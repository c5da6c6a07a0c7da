package llm

import (
	"bufio"
	"io"
	"strings"
)

// sseEvent is one Server-Sent Event from the provider stream.
type sseEvent struct {
	Type string
	Data string
}

// sseScanner reads Server-Sent Events from a reader. Events are
// delimited by blank lines; "event:" names the type and one or more
// "data:" lines carry the payload (joined with newlines). Comments and
// unknown fields are ignored.
type sseScanner struct {
	scanner *bufio.Scanner
	current sseEvent
	err     error
}

func newSSEScanner(r io.Reader) *sseScanner {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &sseScanner{scanner: s}
}

// Next advances to the next event. It returns false at end of stream
// or on a read error; Err distinguishes the two.
func (s *sseScanner) Next() bool {
	s.current = sseEvent{}

	var eventType string
	var data []string

	for s.scanner.Scan() {
		line := strings.TrimRight(s.scanner.Text(), "\r")

		if line == "" {
			if len(data) > 0 {
				s.current = sseEvent{Type: eventType, Data: strings.Join(data, "\n")}
				return true
			}
			eventType = ""
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		switch field {
		case "event":
			eventType = value
		case "data":
			data = append(data, value)
		}
	}

	if err := s.scanner.Err(); err != nil {
		s.err = err
		return false
	}
	// A final event without a trailing blank line still counts.
	if len(data) > 0 {
		s.current = sseEvent{Type: eventType, Data: strings.Join(data, "\n")}
		return true
	}
	return false
}

// Event returns the event parsed by the last successful Next.
func (s *sseScanner) Event() sseEvent { return s.current }

// Err returns the read error that ended scanning, nil on clean EOF.
func (s *sseScanner) Err() error { return s.err }
