// Package facade translates orchestrator calls into the uniform Result
// envelope external callers consume, so no caller ever handles a raw error.
package facade

import (
	"github.com/skillswap/sessionengine/internal/shared/apperr"
)

// ErrorPayload is the error half of Result.
type ErrorPayload struct {
	Kind    apperr.Kind `json:"kind"`
	Message string      `json:"message"`
}

// Result is the uniform envelope every command/query returns.
type Result[T any] struct {
	Success bool          `json:"success"`
	Data    *T            `json:"data,omitempty"`
	Error   *ErrorPayload `json:"error,omitempty"`
}

// Ok wraps a successful value.
func Ok[T any](data T) Result[T] {
	return Result[T]{Success: true, Data: &data}
}

// Invoke runs fn and classifies any returned error via apperr.Kind.
func Invoke[T any](fn func() (T, error)) Result[T] {
	data, err := fn()
	if err != nil {
		return Err[T](err)
	}
	return Ok(data)
}

// Err wraps a failed call, classifying err through apperr.
func Err[T any](err error) Result[T] {
	return Result[T]{
		Success: false,
		Error: &ErrorPayload{
			Kind:    apperr.KindOf(err),
			Message: err.Error(),
		},
	}
}
