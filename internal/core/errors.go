package core

import (
	"errors"
	"fmt"
)

var (
	ErrMissingField  = errors.New("required field is empty")
	ErrInvalidNumber = errors.New("invalid number")
	ErrInvalidDate   = errors.New("invalid date")
	ErrInvalidType   = errors.New("invalid type")
	ErrOutOfRange    = errors.New("value out of range")
)

// FieldError ties a validation failure to the draft field that caused it.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string { return fmt.Sprintf("%s: %v", e.Field, e.Err) }

func (e *FieldError) Unwrap() error { return e.Err }

// FieldErrors flattens err into the field errors it carries, in order.
// Errors produced by errors.Join are walked recursively.
func FieldErrors(err error) []*FieldError {
	if err == nil {
		return nil
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var out []*FieldError
		for _, e := range joined.Unwrap() {
			out = append(out, FieldErrors(e)...)
		}
		return out
	}
	var fe *FieldError
	if errors.As(err, &fe) {
		return []*FieldError{fe}
	}
	return nil
}

// Message returns the pt-BR message shown next to the offending form field.
func (e *FieldError) Message() string {
	switch {
	case errors.Is(e.Err, ErrMissingField):
		return "Campo obrigatório"
	case errors.Is(e.Err, ErrInvalidNumber):
		return "Número inválido"
	case errors.Is(e.Err, ErrInvalidDate):
		return "Data inválida"
	case errors.Is(e.Err, ErrInvalidType):
		return "Tipo inválido"
	case errors.Is(e.Err, ErrOutOfRange):
		return "Valor fora do intervalo permitido"
	default:
		return e.Err.Error()
	}
}
