package llm

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"stitch/pkg/edit"
)

// CommandStream yields the edit commands decoded from one provider
// response, one at a time, as they arrive on the wire. The consumer may
// execute command N while command N+1 is still streaming. A stream is
// consumed exactly once and is not restartable; retrying happens at the
// whole-prompt level in [Client.SendPrompt], never per command.
//
// CommandStream is not safe for concurrent use.
type CommandStream struct {
	scanner *sseScanner
	body    io.ReadCloser
	logger  *slog.Logger

	// pending holds commands decoded ahead of the consumer, e.g. tool
	// blocks carried fully formed in a message-start notification.
	pending []edit.Command

	// partial accumulates tool blocks by content-block index while
	// their input JSON arrives in deltas.
	partial map[int]*partialTool

	yielded int
	done    bool
	err     error
}

// partialTool is a tool-use block under assembly.
type partialTool struct {
	id        string
	name      string
	input     strings.Builder
	fromStart json.RawMessage
}

func newCommandStream(body io.ReadCloser, logger *slog.Logger) *CommandStream {
	return &CommandStream{
		scanner: newSSEScanner(body),
		body:    body,
		logger:  logger,
		partial: map[int]*partialTool{},
	}
}

// Next returns the next command from the stream, or io.EOF once the
// provider has finished. Awaiting the next wire chunk is the pipeline's
// single suspension point.
func (s *CommandStream) Next() (edit.Command, error) {
	if len(s.pending) > 0 {
		cmd := s.pending[0]
		s.pending = s.pending[1:]
		s.yielded++
		return cmd, nil
	}
	if s.done {
		return edit.Command{}, io.EOF
	}
	if s.err != nil {
		return edit.Command{}, s.err
	}

	for s.scanner.Next() {
		if err := s.decode(s.scanner.Event()); err != nil {
			s.err = err
			return edit.Command{}, err
		}
		if len(s.pending) > 0 {
			cmd := s.pending[0]
			s.pending = s.pending[1:]
			s.yielded++
			return cmd, nil
		}
		if s.done {
			return edit.Command{}, s.finish()
		}
	}

	if err := s.scanner.Err(); err != nil {
		s.err = fmt.Errorf("llm: read stream: %w", err)
		return edit.Command{}, s.err
	}
	s.done = true
	return edit.Command{}, s.finish()
}

// finish closes the stream and reports io.EOF, warning when the
// provider produced no commands at all, a valid but unusual outcome.
func (s *CommandStream) finish() error {
	_ = s.Close()
	if s.yielded == 0 {
		s.logger.Warn("completion stream ended without any edit commands")
	}
	return io.EOF
}

// Close releases the underlying response body. Safe to call more than
// once; Next closes the stream itself on normal exhaustion.
func (s *CommandStream) Close() error {
	if s.body == nil {
		return nil
	}
	body := s.body
	s.body = nil
	return body.Close()
}

// decode handles one SSE event, queueing any completed commands.
func (s *CommandStream) decode(event sseEvent) error {
	switch event.Type {
	case "message_start":
		// The initial content-block list may carry tool blocks that
		// arrived fully formed; queue them immediately.
		var envelope struct {
			Message struct {
				Content []wireBlock `json:"content"`
			} `json:"message"`
		}
		if err := json.Unmarshal([]byte(event.Data), &envelope); err != nil {
			return fmt.Errorf("llm: parse message_start: %w", err)
		}
		for _, block := range envelope.Message.Content {
			if block.Type == "tool_use" {
				s.pending = append(s.pending, toCommand(block.ID, block.Input))
			}
		}

	case "content_block_start":
		var envelope struct {
			Index        int       `json:"index"`
			ContentBlock wireBlock `json:"content_block"`
		}
		if err := json.Unmarshal([]byte(event.Data), &envelope); err != nil {
			return fmt.Errorf("llm: parse content_block_start: %w", err)
		}
		if envelope.ContentBlock.Type == "tool_use" {
			s.partial[envelope.Index] = &partialTool{
				id:        envelope.ContentBlock.ID,
				name:      envelope.ContentBlock.Name,
				fromStart: envelope.ContentBlock.Input,
			}
		}

	case "content_block_delta":
		var envelope struct {
			Index int `json:"index"`
			Delta struct {
				Type        string `json:"type"`
				PartialJSON string `json:"partial_json"`
			} `json:"delta"`
		}
		if err := json.Unmarshal([]byte(event.Data), &envelope); err != nil {
			return fmt.Errorf("llm: parse content_block_delta: %w", err)
		}
		if block, ok := s.partial[envelope.Index]; ok && envelope.Delta.Type == "input_json_delta" {
			block.input.WriteString(envelope.Delta.PartialJSON)
		}

	case "content_block_stop":
		var envelope struct {
			Index int `json:"index"`
		}
		if err := json.Unmarshal([]byte(event.Data), &envelope); err != nil {
			return fmt.Errorf("llm: parse content_block_stop: %w", err)
		}
		block, ok := s.partial[envelope.Index]
		if !ok {
			return nil
		}
		delete(s.partial, envelope.Index)

		input := json.RawMessage(block.input.String())
		if len(input) == 0 {
			input = block.fromStart
		}
		s.pending = append(s.pending, toCommand(block.id, input))

	case "message_stop":
		s.done = true

	case "error":
		var envelope struct {
			Error struct {
				Type    string `json:"type"`
				Message string `json:"message"`
			} `json:"error"`
		}
		if json.Unmarshal([]byte(event.Data), &envelope) == nil && envelope.Error.Message != "" {
			return fmt.Errorf("llm: stream error: %s: %s", envelope.Error.Type, envelope.Error.Message)
		}
		return fmt.Errorf("llm: stream error: %s", event.Data)

	default:
		// message_delta, ping, and future event types carry no tool
		// blocks; skip them.
	}
	return nil
}

// toCommand builds a Command from a tool block's id and input. A block
// without input yields an empty field set; a block without an id gets a
// generated one so traceability never breaks.
func toCommand(id string, input json.RawMessage) edit.Command {
	var cmd edit.Command
	if len(input) > 0 && string(input) != "{}" {
		// Malformed input is preserved as an empty command; the
		// orchestrator converts it to an ErrorRaised event downstream.
		_ = json.Unmarshal(input, &cmd)
	}
	if id == "" {
		id = uuid.NewString()
	}
	cmd.ID = id
	return cmd
}
