package protocol

import "fmt"

// Code is the machine-readable reason carried by an error result.
type Code string

const (
	CodeInvalidArgs        Code = "INVALID_ARGS"
	CodeDisplayUnavailable Code = "DISPLAY_UNAVAILABLE"
	CodeCaptureFailed      Code = "CAPTURE_FAILED"
	CodeInvalidKey         Code = "INVALID_KEY"
	CodePipeCreateFailed   Code = "PIPE_CREATE_FAILED"
	CodePipeReadFailed     Code = "PIPE_READ_FAILED"
	CodeSpawnFailed        Code = "SPAWN_FAILED"
	CodeUnimplemented      Code = "UNIMPLEMENTED"
	CodeInternal           Code = "INTERNAL"
)

// Error is the failure variant of a Result.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Result is the uniform outcome of a command: exactly one of Value (when OK)
// or Error is meaningful. A successful command with no value has OK set and
// a nil Value.
type Result struct {
	OK    bool   `json:"ok"`
	Value any    `json:"value,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// Success wraps a command's return value.
func Success(value any) Result {
	return Result{OK: true, Value: value}
}

// Failure builds an error result.
func Failure(code Code, message string) Result {
	return Result{Error: &Error{Code: code, Message: message}}
}

// Failuref builds an error result with a formatted message.
func Failuref(code Code, format string, args ...any) Result {
	return Failure(code, fmt.Sprintf(format, args...))
}

// WithDetails attaches details to an error result. It is a no-op on success.
func (r Result) WithDetails(details any) Result {
	if r.Error != nil {
		e := *r.Error
		e.Details = details
		r.Error = &e
	}
	return r
}

// Code returns the error code, or "OK" for a successful result.
func (r Result) Code() string {
	if r.OK {
		return "OK"
	}
	if r.Error == nil {
		return string(CodeInternal)
	}
	return string(r.Error.Code)
}
