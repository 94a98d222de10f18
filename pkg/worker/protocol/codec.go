package protocol

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// maxMessageSize bounds a single protocol line; large catalogs still fit
// comfortably.
const maxMessageSize = 16 * 1024 * 1024

// Encoder writes protocol messages as JSON lines.
type Encoder struct {
	w *bufio.Writer
}

// NewEncoder creates a protocol encoder.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: bufio.NewWriter(w)}
}

// Encode writes one message and flushes.
func (e *Encoder) Encode(msgType MessageType, data interface{}) error {
	if err := msgType.Validate(); err != nil {
		return err
	}

	var dataBytes []byte
	var err error
	if data != nil {
		dataBytes, err = json.Marshal(data)
		if err != nil {
			return fmt.Errorf("marshal %s data: %w", msgType, err)
		}
	}

	msg := Message{
		Type:      msgType,
		Timestamp: time.Now().UTC(),
		Data:      dataBytes,
	}
	msgBytes, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	if _, err := e.w.Write(msgBytes); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	if err := e.w.WriteByte('\n'); err != nil {
		return fmt.Errorf("write newline: %w", err)
	}
	return e.w.Flush()
}

// EncodeJob writes a JOB message.
func (e *Encoder) EncodeJob(job *JobMessage) error {
	return e.Encode(MessageTypeJob, job)
}

// EncodeResult writes a RESULT message.
func (e *Encoder) EncodeResult(result *ResultMessage) error {
	return e.Encode(MessageTypeResult, result)
}

// EncodeError writes an ERROR message.
func (e *Encoder) EncodeError(errMsg *ErrorMessage) error {
	return e.Encode(MessageTypeError, errMsg)
}

// Decoder reads protocol messages from a line stream.
type Decoder struct {
	scanner *bufio.Scanner
}

// NewDecoder creates a protocol decoder.
func NewDecoder(r io.Reader) *Decoder {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxMessageSize)
	return &Decoder{scanner: scanner}
}

// Decode reads the next message. It returns io.EOF when the stream ends.
func (d *Decoder) Decode() (*Message, error) {
	if !d.scanner.Scan() {
		if err := d.scanner.Err(); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		return nil, io.EOF
	}

	line := d.scanner.Bytes()
	if len(line) == 0 {
		return nil, fmt.Errorf("empty protocol line")
	}

	var msg Message
	if err := json.Unmarshal(line, &msg); err != nil {
		return nil, fmt.Errorf("unmarshal message: %w", err)
	}
	if err := msg.Type.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}

// DecodeJob reads and unwraps a JOB message.
func (d *Decoder) DecodeJob() (*JobMessage, error) {
	msg, err := d.Decode()
	if err != nil {
		return nil, err
	}
	if msg.Type != MessageTypeJob {
		return nil, fmt.Errorf("expected JOB, got %s", msg.Type)
	}
	var job JobMessage
	if err := json.Unmarshal(msg.Data, &job); err != nil {
		return nil, fmt.Errorf("unmarshal job: %w", err)
	}
	return &job, nil
}

// DecodeOutcome reads the worker's reply: either the plans or the
// reconstructed classified error.
func (d *Decoder) DecodeOutcome() (*ResultMessage, error) {
	msg, err := d.Decode()
	if err != nil {
		return nil, err
	}

	switch msg.Type {
	case MessageTypeResult:
		var result ResultMessage
		if err := json.Unmarshal(msg.Data, &result); err != nil {
			return nil, fmt.Errorf("unmarshal result: %w", err)
		}
		return &result, nil
	case MessageTypeError:
		var errMsg ErrorMessage
		if err := json.Unmarshal(msg.Data, &errMsg); err != nil {
			return nil, fmt.Errorf("unmarshal error message: %w", err)
		}
		return nil, errMsg.ToError()
	default:
		return nil, fmt.Errorf("unexpected message type %s", msg.Type)
	}
}
