// Package apierr provides the structured error type shared by the note
// pipeline, the template renderer and the Anki bridge client.
//
// An Error carries a human readable message plus a free-form data payload
// (action, params, status and similar context). Errors cross process-like
// boundaries (renderer responses, media injection results) in serialized
// form and are rebuilt with Deserialize on the receiving side.
package apierr

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrVersionTooOld is wrapped by the bridge handshake error when the remote
// API version is lower than the version this client speaks.
var ErrVersionTooOld = errors.New("anki connect version is too old")

// Error is a structured error with an attached data payload.
type Error struct {
	Message string
	Data    map[string]any
	Cause   error
}

// New creates an Error with the given message.
func New(message string) *Error {
	return &Error{Message: message}
}

// Newf creates an Error with a formatted message.
func Newf(format string, args ...any) *Error {
	return &Error{Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an Error that records cause as its underlying error.
func Wrap(cause error, message string) *Error {
	return &Error{Message: message, Cause: cause}
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Cause }

// With returns e after setting data[key] = value.
func (e *Error) With(key string, value any) *Error {
	if e.Data == nil {
		e.Data = make(map[string]any)
	}
	e.Data[key] = value
	return e
}

// Get returns a data value, or nil.
func (e *Error) Get(key string) any {
	if e.Data == nil {
		return nil
	}
	return e.Data[key]
}

// Serialized is the JSON-safe form of an error.
type Serialized struct {
	Name    string         `json:"name"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`
}

// Serialize converts any error to its serialized form. Non-Error values are
// serialized by message only. Data values that cannot be encoded to JSON are
// replaced by their string representation, and a cause is kept under
// "originalError".
func Serialize(err error) Serialized {
	if err == nil {
		return Serialized{Name: "Error"}
	}
	var e *Error
	if !errors.As(err, &e) {
		return Serialized{Name: "Error", Message: err.Error()}
	}
	s := Serialized{Name: "ExtensionError", Message: e.Message}
	if len(e.Data) > 0 || e.Cause != nil {
		s.Data = make(map[string]any, len(e.Data)+1)
		for k, v := range e.Data {
			s.Data[k] = jsonSafe(v)
		}
		if e.Cause != nil {
			if _, ok := s.Data["originalError"]; !ok {
				s.Data["originalError"] = Serialize(e.Cause)
			}
		}
	}
	return s
}

// Deserialize rebuilds an *Error from its serialized form.
func Deserialize(s Serialized) *Error {
	e := &Error{Message: s.Message}
	if len(s.Data) > 0 {
		e.Data = make(map[string]any, len(s.Data))
		for k, v := range s.Data {
			e.Data[k] = v
		}
	}
	return e
}

func jsonSafe(v any) any {
	switch t := v.(type) {
	case nil, string, bool, int, int64, float64, json.Number:
		return t
	case error:
		return Serialize(t)
	}
	if _, err := json.Marshal(v); err != nil {
		return fmt.Sprintf("%v", v)
	}
	return v
}
