// Package protocol defines the JSON-over-stdio protocol between the
// orchestrating service and the planworker subprocess that runs the
// optimizer.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/menuforge/menuforge/pkg/menu"
	"github.com/menuforge/menuforge/pkg/optimizer"
)

// MessageType identifies a protocol message.
type MessageType string

const (
	// MessageTypeJob carries an optimization job to the worker.
	MessageTypeJob MessageType = "JOB"
	// MessageTypeResult carries the worker's plans back.
	MessageTypeResult MessageType = "RESULT"
	// MessageTypeError reports a classified failure.
	MessageTypeError MessageType = "ERROR"
)

// Validate checks that the message type is known.
func (t MessageType) Validate() error {
	switch t {
	case MessageTypeJob, MessageTypeResult, MessageTypeError:
		return nil
	}
	return fmt.Errorf("unknown message type %q", string(t))
}

// Message is the envelope for all protocol messages.
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// JobMessage is one optimization job.
type JobMessage struct {
	TaskID      string                `json:"task_id"`
	Dishes      []menu.Dish           `json:"dishes"`
	Constraints optimizer.Constraints `json:"constraints"`
	Config      optimizer.Config      `json:"config"`

	// Seed fixes the worker's random source when non-zero; zero lets
	// the worker self-seed.
	Seed int64 `json:"seed,omitempty"`
}

// ResultMessage carries a successful job's plans.
type ResultMessage struct {
	TaskID string          `json:"task_id"`
	Plans  []menu.MenuPlan `json:"plans"`
}

// ErrorMessage carries a classified failure so the parent can
// reconstruct the error class across the process boundary.
type ErrorMessage struct {
	TaskID  string `json:"task_id"`
	Class   string `json:"class"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// ToError rebuilds the classified error on the parent side.
func (e *ErrorMessage) ToError() error {
	err := &menu.Error{
		Class:   menu.ErrorClass(e.Class),
		Message: e.Message,
		Code:    e.Code,
	}
	if err.Class == "" {
		err.Class = menu.ErrorClassInternal
	}
	return err
}

// NewErrorMessage flattens an error into a protocol message, preserving
// the class and code of classified errors.
func NewErrorMessage(taskID string, err error) *ErrorMessage {
	msg := &ErrorMessage{
		TaskID:  taskID,
		Class:   string(menu.ErrorClassInternal),
		Message: err.Error(),
	}
	var merr *menu.Error
	if errors.As(err, &merr) {
		msg.Class = string(merr.Class)
		msg.Code = merr.Code
		msg.Message = merr.Message
	}
	return msg
}
