package service

import (
	"errors"
	"fmt"

	"github.com/Freeeeeet/calendar_sync/internal/backend"
	"github.com/Freeeeeet/calendar_sync/internal/model"
)

// Kind - категория ошибки операции менеджера
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindNotFound
	KindUnauthorized
	KindTransport
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindUnauthorized:
		return "unauthorized"
	case KindTransport:
		return "transport"
	default:
		return "unknown"
	}
}

// Error - ошибка операции с категорией
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf возвращает категорию ошибки или KindUnknown
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func validationError(op string, err error) error {
	return &Error{Kind: KindValidation, Op: op, Err: err}
}

// classify переводит ошибки бэкенда и модели в категории
func classify(op string, err error) error {
	if err == nil {
		return nil
	}

	var e *Error
	if errors.As(err, &e) {
		return err
	}

	kind := KindTransport
	switch {
	case errors.Is(err, backend.ErrNotFound), errors.Is(err, model.ErrNotAppointment):
		kind = KindNotFound
	case errors.Is(err, backend.ErrUnauthorized):
		kind = KindUnauthorized
	case errors.Is(err, backend.ErrInvalidEvent), errors.Is(err, model.ErrInvalidTimezone):
		kind = KindValidation
	}

	return &Error{Kind: kind, Op: op, Err: err}
}
