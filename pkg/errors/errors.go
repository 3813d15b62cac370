// Package errors provides the typed errors used across glassboost.
//
// All constructors return errors that carry stack traces via
// cockroachdb/errors and participate in the standard errors.Is / errors.As /
// errors.Unwrap protocols. Use %+v to print an error with its stack trace.
//
// Error taxonomy:
//   - ValueError: an argument has an invalid value (InvalidArgument)
//   - DimensionError: a shape or length mismatch
//   - AllocationError: a buffer, tensor, or dataset could not be built
//   - NotFittedError: an operation requires a fitted model
//   - ModelError: a model-level failure wrapping an underlying cause
package errors

import (
	"fmt"

	cockroachErrors "github.com/cockroachdb/errors"
)

// ErrNotImplemented is the sentinel for reserved, inert functionality.
var ErrNotImplemented = cockroachErrors.New("not implemented")

// ValueError indicates an argument with an invalid value.
type ValueError struct {
	Op      string
	Message string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("glassboost: %s: %s", e.Op, e.Message)
}

// NewValueError creates a ValueError with a stack trace attached.
func NewValueError(op, message string) error {
	return cockroachErrors.WithStackDepth(&ValueError{Op: op, Message: message}, 1)
}

// DimensionError indicates a mismatch between an expected and an actual
// dimension or length. Axis is informational and may be 0 for flat buffers.
type DimensionError struct {
	Op       string
	Expected int
	Got      int
	Axis     int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("glassboost: %s: dimension mismatch on axis %d: expected %d, got %d",
		e.Op, e.Axis, e.Expected, e.Got)
}

// NewDimensionError creates a DimensionError with a stack trace attached.
func NewDimensionError(op string, expected, got, axis int) error {
	return cockroachErrors.WithStackDepth(&DimensionError{Op: op, Expected: expected, Got: got, Axis: axis}, 1)
}

// AllocationError indicates that a tensor, dataset, sampling set, or scratch
// buffer could not be constructed.
type AllocationError struct {
	Op      string
	Message string
}

func (e *AllocationError) Error() string {
	return fmt.Sprintf("glassboost: %s: allocation failed: %s", e.Op, e.Message)
}

// NewAllocationError creates an AllocationError with a stack trace attached.
func NewAllocationError(op, message string) error {
	return cockroachErrors.WithStackDepth(&AllocationError{Op: op, Message: message}, 1)
}

// NotFittedError indicates that a method was called before the model was
// fitted or initialized.
type NotFittedError struct {
	ModelName string
	Method    string
}

func (e *NotFittedError) Error() string {
	return fmt.Sprintf("glassboost: %s is not fitted; call the initializer before %s", e.ModelName, e.Method)
}

// NewNotFittedError creates a NotFittedError with a stack trace attached.
func NewNotFittedError(modelName, method string) error {
	return cockroachErrors.WithStackDepth(&NotFittedError{ModelName: modelName, Method: method}, 1)
}

// ModelError wraps an underlying cause with model-level context.
type ModelError struct {
	ModelName string
	Message   string
	Err       error
}

func (e *ModelError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("glassboost: %s: %s: %v", e.ModelName, e.Message, e.Err)
	}
	return fmt.Sprintf("glassboost: %s: %s", e.ModelName, e.Message)
}

func (e *ModelError) Unwrap() error { return e.Err }

// NewModelError creates a ModelError wrapping err with a stack trace attached.
func NewModelError(modelName, message string, err error) error {
	return cockroachErrors.WithStackDepth(&ModelError{ModelName: modelName, Message: message, Err: err}, 1)
}

// Newf formats a plain error with a stack trace attached.
func Newf(format string, args ...interface{}) error {
	return cockroachErrors.NewWithDepthf(1, format, args...)
}

// Wrap annotates err with a message, preserving the chain. Returns nil when
// err is nil.
func Wrap(err error, message string) error {
	return cockroachErrors.Wrap(err, message)
}
