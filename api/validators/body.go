// Package validators decodes and checks request input, turning failures into
// VALIDATION errors with per-field messages in Spanish.
package validators

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	pkgerrors "github.com/biblionet/biblionet-backend/pkg/errors"
)

const maxBodyBytes = 1 << 20

const (
	msgBadBody     = "El cuerpo de la solicitud no es válido."
	msgCheckFields = "Revisa los campos marcados."
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// DecodeJSONBody reads exactly one JSON value into dest, refusing unknown
// fields, trailing data and bodies over 1 MiB, then validates it. An empty
// body leaves dest at its zero value so optional payloads work.
func DecodeJSONBody(r *http.Request, dest any) error {
	body := http.MaxBytesReader(nil, r.Body, maxBodyBytes)
	defer func() {
		_, _ = io.Copy(io.Discard, body)
	}()

	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dest); err != nil && !errors.Is(err, io.EOF) {
		return decodeError(err)
	}
	if dec.More() {
		return pkgerrors.New(pkgerrors.CodeValidation, msgBadBody).
			WithDetails(map[string]any{"error": "se esperaba un solo objeto JSON"})
	}
	return Struct(dest)
}

// Struct validates an already-populated value.
func Struct(dest any) error {
	if err := validate.Struct(dest); err != nil {
		return fieldErrors(err)
	}
	return nil
}

func decodeError(err error) error {
	var (
		syntax   *json.SyntaxError
		mismatch *json.UnmarshalTypeError
		tooLarge *http.MaxBytesError
	)
	details := map[string]any{}
	switch {
	case errors.As(err, &tooLarge):
		details["error"] = fmt.Sprintf("el cuerpo supera %d bytes", tooLarge.Limit)
	case errors.As(err, &syntax):
		details["error"] = "JSON mal formado"
		details["offset"] = syntax.Offset
	case errors.As(err, &mismatch):
		details["field"] = mismatch.Field
		details["error"] = fmt.Sprintf("se esperaba %s", mismatch.Type)
	case errors.Is(err, io.ErrUnexpectedEOF):
		details["error"] = "JSON incompleto"
	case strings.HasPrefix(err.Error(), "json: unknown field "):
		details["field"] = strings.Trim(strings.TrimPrefix(err.Error(), "json: unknown field "), `"`)
		details["error"] = "campo desconocido"
	default:
		details["error"] = err.Error()
	}
	return pkgerrors.Wrap(pkgerrors.CodeValidation, err, msgBadBody).WithDetails(details)
}

func fieldErrors(err error) *pkgerrors.Error {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, msgCheckFields)
	}
	details := make(map[string]string, len(errs))
	for _, fe := range errs {
		details[fe.Field()] = fieldMessage(fe)
	}
	return pkgerrors.New(pkgerrors.CodeValidation, msgCheckFields).WithDetails(details)
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "es obligatorio"
	case "min":
		return "debe tener al menos " + fe.Param()
	case "max":
		return "debe tener como máximo " + fe.Param()
	case "gte":
		return "debe ser mayor o igual a " + fe.Param()
	case "lte":
		return "debe ser menor o igual a " + fe.Param()
	case "gt":
		return "debe ser mayor que " + fe.Param()
	case "email":
		return "debe ser un correo válido"
	case "oneof":
		return "debe ser uno de: " + fe.Param()
	default:
		return "no es válido"
	}
}
