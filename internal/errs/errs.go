// Package errs defines the intake error taxonomy and the Result type that
// every fallible core operation returns.
package errs

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Blawby/preact-cloudflare-intake-chatbot-sub009/internal/redact"
)

// Code classifies an Error. The set is closed.
type Code string

const (
	CodeMissingRequiredField Code = "missing_required_field"
	CodePlaceholderValue     Code = "placeholder_value"
	CodeInvalidName          Code = "invalid_name"
	CodeInvalidEmail         Code = "invalid_email"
	CodeInvalidPhone         Code = "invalid_phone"
	CodeInvalidLocation      Code = "invalid_location"
	CodeInvalidField         Code = "invalid_field"
	CodeMissingContactMethod Code = "missing_contact_method"
	CodeUnknownTool          Code = "unknown_tool"
	CodeInvalidParameters    Code = "invalid_parameters"
	CodeAIUnavailable        Code = "ai_unavailable"
	CodeAITimeout            Code = "ai_timeout"
	CodeStoreUnavailable     Code = "store_unavailable"
	CodeSubmissionFailed     Code = "submission_failed"
	CodeNotificationFailed   Code = "notification_failed"
	CodeArtifactFailed       Code = "artifact_failed"
	CodeExtractionFailed     Code = "extraction_failed"
	CodeFileNotFound         Code = "file_not_found"
	CodeInvalidRequest       Code = "invalid_request"
	CodeConfiguration        Code = "configuration"
	CodeInternal             Code = "internal"
)

// GenericApology is shown to users for infrastructure failures.
const GenericApology = "I'm sorry, something went wrong on our side. Please try again in a moment."

// Error is an immutable intake error. Message is always safe to show to
// the end user; Context has been redacted at construction.
type Error struct {
	code      Code
	message   string
	field     string
	context   map[string]any
	timestamp time.Time
	retryable bool
	cause     error
}

// Option customises an Error at construction.
type Option func(*Error)

// WithContext attaches diagnostic context. Values are redacted.
func WithContext(ctx map[string]any) Option {
	return func(e *Error) {
		e.context = redact.Map(ctx)
	}
}

// WithCause records the underlying error.
func WithCause(err error) Option {
	return func(e *Error) { e.cause = err }
}

// WithField records which parameter failed validation.
func WithField(field string) Option {
	return func(e *Error) { e.field = field }
}

// Retryable overrides the retryable flag.
func Retryable(r bool) Option {
	return func(e *Error) { e.retryable = r }
}

// timeNow is replaced in tests.
var timeNow = time.Now

// New constructs an Error.
func New(code Code, message string, opts ...Option) *Error {
	e := &Error{
		code:      code,
		message:   message,
		timestamp: timeNow().UTC(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Validation constructs a non-retryable error for a bad tool parameter.
func Validation(code Code, field, message string) *Error {
	return New(code, message, WithField(field), WithContext(map[string]any{"field": field}))
}

// Infrastructure constructs a retryable error for a failed collaborator.
// The user-facing message is always GenericApology.
func Infrastructure(code Code, cause error, ctx map[string]any) *Error {
	return New(code, GenericApology, WithCause(cause), WithContext(ctx), Retryable(true))
}

// Configuration constructs a non-retryable startup error.
func Configuration(message string, cause error) *Error {
	return New(CodeConfiguration, message, WithCause(cause))
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.code, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

func (e *Error) Unwrap() error { return e.cause }

// Code returns the error classification.
func (e *Error) Code() Code { return e.code }

// Message returns the user-safe message.
func (e *Error) Message() string { return e.message }

// Field returns the parameter name for validation errors.
func (e *Error) Field() string { return e.field }

// Timestamp returns when the error was constructed.
func (e *Error) Timestamp() time.Time { return e.timestamp }

// IsRetryable reports whether the operation may succeed if repeated.
func (e *Error) IsRetryable() bool { return e.retryable }

// Context returns a copy of the redacted diagnostic context.
func (e *Error) Context() map[string]any {
	if e.context == nil {
		return nil
	}
	cp := make(map[string]any, len(e.context))
	for k, v := range e.context {
		cp[k] = v
	}
	return cp
}

// IsValidation reports whether the code belongs to the validation family.
func (e *Error) IsValidation() bool {
	switch e.code {
	case CodeMissingRequiredField, CodePlaceholderValue, CodeInvalidName, CodeInvalidEmail,
		CodeInvalidPhone, CodeInvalidLocation, CodeInvalidField, CodeMissingContactMethod:
		return true
	}
	return false
}

// As extracts an *Error from err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsRetryable reports whether err is an *Error marked retryable.
func IsRetryable(err error) bool {
	e, ok := As(err)
	return ok && e.retryable
}

// Log writes e once at the level matching its family. Callers that catch an
// error log it here and nowhere else.
func Log(logger *zap.Logger, e *Error, msg string) {
	if logger == nil || e == nil {
		return
	}
	fields := []zap.Field{
		zap.String("code", string(e.code)),
		zap.Bool("retryable", e.retryable),
		zap.Time("at", e.timestamp),
	}
	if e.field != "" {
		fields = append(fields, zap.String("field", e.field))
	}
	for _, k := range redact.Keys(e.context) {
		fields = append(fields, zap.Any("ctx."+k, e.context[k]))
	}
	if e.cause != nil {
		fields = append(fields, zap.NamedError("cause", e.cause))
	}

	switch {
	case e.IsValidation():
		logger.Info(msg, fields...)
	case e.retryable:
		logger.Warn(msg, fields...)
	default:
		logger.Error(msg, fields...)
	}
}
