// Package errors carries the coded error type every layer returns. The code
// decides the HTTP status and what the client is allowed to see.
package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeValidation    Code = "VALIDATION_ERROR"
	CodeUnauthorized  Code = "UNAUTHORIZED"
	CodeForbidden     Code = "FORBIDDEN"
	CodeNotFound      Code = "NOT_FOUND"
	CodeConflict      Code = "CONFLICT"
	CodeStateConflict Code = "STATE_CONFLICT"
	CodeIdempotency   Code = "IDEMPOTENCY_KEY_REUSED"
	CodeRateLimit     Code = "RATE_LIMIT_EXCEEDED"
	CodeInternal      Code = "INTERNAL_ERROR"
	CodeDependency    Code = "DEPENDENCY_ERROR"
)

// Metadata is the transport view of a code. ShowMessage lets the error's own
// message replace PublicMessage; it is off for codes whose messages may carry
// internals.
type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	PublicMessage  string
	ShowMessage    bool
	DetailsAllowed bool
}

var metadataByCode = map[Code]Metadata{
	CodeValidation:    {http.StatusBadRequest, false, "Los datos enviados no son válidos.", true, true},
	CodeUnauthorized:  {http.StatusUnauthorized, false, "Debes iniciar sesión.", true, false},
	CodeForbidden:     {http.StatusForbidden, false, "No tienes permiso para realizar esta acción.", true, false},
	CodeNotFound:      {http.StatusNotFound, false, "Recurso no encontrado.", true, false},
	CodeConflict:      {http.StatusConflict, false, "El registro ya existe.", true, false},
	CodeStateConflict: {http.StatusUnprocessableEntity, false, "La operación no está permitida en el estado actual.", true, true},
	CodeIdempotency:   {http.StatusConflict, false, "La clave de idempotencia ya fue usada.", true, true},
	CodeRateLimit:     {http.StatusTooManyRequests, false, "Demasiadas solicitudes. Intenta más tarde.", true, false},
	CodeInternal:      {http.StatusInternalServerError, true, "Error interno del servidor.", false, false},
	CodeDependency:    {http.StatusServiceUnavailable, true, "Servicio dependiente no disponible.", false, true},
}

// MetadataFor falls back to CodeInternal for unknown codes.
func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Newf(code Code, format string, args ...any) *Error {
	return &Error{code: code, message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to err. A nil err behaves like New.
func Wrap(code Code, err error, message string) *Error {
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

// WithDetails sets the structured payload shown for codes that allow it.
func (e *Error) WithDetails(details any) *Error {
	if e != nil {
		e.details = details
	}
	return e
}

func (e *Error) Error() string {
	switch {
	case e == nil:
		return ""
	case e.cause != nil:
		return fmt.Sprintf("%s: %s: %v", e.code, e.message, e.cause)
	default:
		return fmt.Sprintf("%s: %s", e.code, e.message)
	}
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// Is matches a bare code sentinel such as New(CodeNotFound, ""), so callers
// can write errors.Is(err, errors.New(CodeNotFound, "")).
func (e *Error) Is(target error) bool {
	var t *Error
	if e == nil || !stdErrors.As(target, &t) || t == nil {
		return false
	}
	return t.message == "" && t.cause == nil && t.code == e.code
}

// As returns the outermost *Error in err's chain.
func As(err error) *Error {
	var typed *Error
	if err != nil && stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

func IsCode(err error, code Code) bool {
	typed := As(err)
	return typed != nil && typed.code == code
}

// Rendered is what the client sees for an error.
type Rendered struct {
	Status  int
	Code    Code
	Message string
	Details any
}

// Render maps any error to its client view. Errors without a code render
// as CodeInternal with the generic message.
func Render(err error) Rendered {
	typed := As(err)
	if typed == nil {
		typed = Wrap(CodeInternal, err, "unexpected error")
	}
	meta := MetadataFor(typed.Code())
	out := Rendered{Status: meta.HTTPStatus, Code: typed.Code(), Message: meta.PublicMessage}
	if meta.ShowMessage && typed.Message() != "" {
		out.Message = typed.Message()
	}
	if meta.DetailsAllowed {
		out.Details = typed.Details()
	}
	return out
}

// StatusOf is shorthand for Render(err).Status.
func StatusOf(err error) int {
	return Render(err).Status
}
