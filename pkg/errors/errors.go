// Package errors provides the unified error type and factory functions for the
// KeyIP-JTNN training core.  Every layer (domain, application, intelligence,
// infrastructure, interfaces) uses AppError as the single carrier for
// structured error information, so that per-example faults can be told apart
// from run-fatal ones by code alone.
package errors

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// stackDepth is the maximum number of frames captured per error.
const stackDepth = 32

// captureStack returns a formatted call-stack string starting two frames above
// the caller (skipping captureStack itself and New/Wrap).
func captureStack(skip int) string {
	pcs := make([]uintptr, stackDepth)
	n := runtime.Callers(skip+2, pcs)
	if n == 0 {
		return ""
	}
	frames := runtime.CallersFrames(pcs[:n])
	var sb strings.Builder
	for {
		f, more := frames.Next()
		if !strings.Contains(f.File, "runtime/") {
			fmt.Fprintf(&sb, "\n\t%s:%d %s", f.File, f.Line, f.Function)
		}
		if !more {
			break
		}
	}
	return sb.String()
}

// ─────────────────────────────────────────────────────────────────────────────
// AppError — the canonical error type
// ─────────────────────────────────────────────────────────────────────────────

// AppError is the single structured error type used throughout KeyIP-JTNN.
// It supports Go 1.13+ wrapping so errors.Is / errors.As / errors.Unwrap work
// across layers.
//
// Usage:
//
//	return errors.New(errors.CodeDecomposition, "molecule graph is disconnected")
//	return errors.Wrap(err, errors.CodeCheckpointIO, "failed to write checkpoint")
//	return errors.UnknownCluster("C1CC1").WithDetail("vocabulary size 312")
type AppError struct {
	// Code is the typed error code that identifies the failure category.
	Code ErrorCode

	// Message is the primary human-readable description of the error.
	Message string

	// Detail carries supplementary context (SMILES, step, object key).
	Detail string

	// Cause is the underlying error that triggered this AppError.
	Cause error

	// Stack contains the call-stack captured at creation.  It is not part of
	// Error() output.
	Stack string
}

// Error implements the standard error interface.
// Format: "[<code>] <message>: <detail>: <cause>", omitting empty segments.
func (e *AppError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] %s", e.Code, e.Message)
	if e.Detail != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Detail)
	}
	if e.Cause != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Cause.Error())
	}
	return sb.String()
}

// Unwrap returns the underlying cause error.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *AppError with the same code, so sentinel
// values declared with New can be matched with errors.Is.
func (e *AppError) Is(target error) bool {
	var t *AppError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code && (t.Message == "" || t.Message == e.Message)
}

// ─────────────────────────────────────────────────────────────────────────────
// Fluent builder methods
// ─────────────────────────────────────────────────────────────────────────────

// WithDetail returns a shallow copy of the receiver with Detail set.  It is
// safe to call on a nil pointer (returns nil).
func (e *AppError) WithDetail(detail string) *AppError {
	if e == nil {
		return nil
	}
	clone := *e
	clone.Detail = detail
	return &clone
}

// WithCause returns a shallow copy of the receiver with Cause set to err.
func (e *AppError) WithCause(err error) *AppError {
	if e == nil {
		return nil
	}
	clone := *e
	clone.Cause = err
	return &clone
}

// ─────────────────────────────────────────────────────────────────────────────
// Primary factory functions
// ─────────────────────────────────────────────────────────────────────────────

// New constructs a fresh AppError with the given code and message.
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Stack:   captureStack(1),
	}
}

// Newf is New with a format string.
func Newf(code ErrorCode, format string, args ...interface{}) *AppError {
	return &AppError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Stack:   captureStack(1),
	}
}

// Wrap constructs an AppError that wraps an existing error.  If err is nil,
// Wrap returns nil.  When code is CodeUnknown the wrapped AppError's code is
// preserved.
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}
	if code == CodeUnknown {
		var ae *AppError
		if errors.As(err, &ae) {
			code = ae.Code
		}
	}
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   err,
		Stack:   captureStack(1),
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Error-chain inspection helpers
// ─────────────────────────────────────────────────────────────────────────────

// IsCode reports whether any error in err's chain is an *AppError with the
// given code.
func IsCode(err error, code ErrorCode) bool {
	var ae *AppError
	for err != nil {
		if errors.As(err, &ae) && ae.Code == code {
			return true
		}
		err = errors.Unwrap(err)
	}
	return false
}

// IsNotFound reports whether err's chain carries a not-found code.
func IsNotFound(err error) bool {
	return IsCode(err, CodeNotFound) || IsCode(err, ErrCodeObjectNotFound)
}

// GetCode extracts the ErrorCode from the first *AppError in err's chain.
func GetCode(err error) ErrorCode {
	if err == nil {
		return CodeOK
	}
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return CodeUnknown
}

// ─────────────────────────────────────────────────────────────────────────────
// Convenience factory functions
// ─────────────────────────────────────────────────────────────────────────────

// InvalidParam constructs a CodeInvalidParam AppError.
func InvalidParam(message string) *AppError {
	return &AppError{Code: CodeInvalidParam, Message: message, Stack: captureStack(1)}
}

// Internal constructs a CodeInternal AppError.
func Internal(message string) *AppError {
	return &AppError{Code: CodeInternal, Message: message, Stack: captureStack(1)}
}

// InvalidSMILES constructs a CodeMoleculeInvalidSMILES AppError carrying the
// offending input as detail.
func InvalidSMILES(smiles, reason string) *AppError {
	return &AppError{Code: CodeMoleculeInvalidSMILES, Message: reason, Detail: smiles, Stack: captureStack(1)}
}

// Decomposition constructs a CodeDecomposition AppError.
func Decomposition(message string) *AppError {
	return &AppError{Code: CodeDecomposition, Message: message, Stack: captureStack(1)}
}

// UnknownCluster constructs a CodeUnknownCluster AppError for signature.
func UnknownCluster(signature string) *AppError {
	return &AppError{
		Code:    CodeUnknownCluster,
		Message: "cluster signature not in vocabulary",
		Detail:  signature,
		Stack:   captureStack(1),
	}
}

// AssemblyMismatch constructs a CodeAssemblyMismatch AppError.
func AssemblyMismatch(message string) *AppError {
	return &AppError{Code: CodeAssemblyMismatch, Message: message, Stack: captureStack(1)}
}

// NumericInstability constructs a CodeNumericInstability AppError.
func NumericInstability(message string) *AppError {
	return &AppError{Code: CodeNumericInstability, Message: message, Stack: captureStack(1)}
}

// CheckpointIO wraps err as a CodeCheckpointIO AppError.
func CheckpointIO(err error, message string) *AppError {
	return &AppError{Code: CodeCheckpointIO, Message: message, Cause: err, Stack: captureStack(1)}
}

//Personal.AI order the ending
