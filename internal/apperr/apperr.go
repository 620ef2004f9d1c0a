// Package apperr is the error taxonomy shared by the settlement core and its
// collaborators. Every error that crosses a package boundary is an *Error
// carrying one Kind, so transports can map it without string matching.
package apperr

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"gorm.io/gorm"
)

type Kind string

const (
	InvalidInput      Kind = "INVALID_INPUT"
	NotFound          Kind = "NOT_FOUND"
	Forbidden         Kind = "FORBIDDEN"
	Conflict          Kind = "CONFLICT"
	InsufficientStock Kind = "INSUFFICIENT_STOCK"
	InternalFault     Kind = "INTERNAL_FAULT"
)

// Sentinels for errors.Is. A sentinel matches any *Error of the same Kind.
var (
	ErrInvalidInput      = &Error{Kind: InvalidInput}
	ErrNotFound          = &Error{Kind: NotFound}
	ErrForbidden         = &Error{Kind: Forbidden}
	ErrConflict          = &Error{Kind: Conflict}
	ErrInsufficientStock = &Error{Kind: InsufficientStock}
	ErrInternalFault     = &Error{Kind: InternalFault}
)

// postgres SQLSTATE codes for integrity violations
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
)

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return e.Err.Error()
	default:
		return string(e.Kind)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Message == "" && t.Err == nil
}

// GRPCStatus lets an *Error travel through a gRPC server unchanged.
func (e *Error) GRPCStatus() *status.Status {
	return status.New(e.Kind.GRPCCode(), e.Error())
}

func (k Kind) GRPCCode() codes.Code {
	switch k {
	case InvalidInput:
		return codes.InvalidArgument
	case NotFound:
		return codes.NotFound
	case Forbidden:
		return codes.PermissionDenied
	case Conflict:
		return codes.Aborted
	case InsufficientStock:
		return codes.FailedPrecondition
	default:
		return codes.Internal
	}
}

func newf(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Invalid(format string, args ...any) error {
	return newf(InvalidInput, format, args...)
}

func NotFoundf(format string, args ...any) error {
	return newf(NotFound, format, args...)
}

func Forbiddenf(format string, args ...any) error {
	return newf(Forbidden, format, args...)
}

func Conflictf(format string, args ...any) error {
	return newf(Conflict, format, args...)
}

func InsufficientStockf(format string, args ...any) error {
	return newf(InsufficientStock, format, args...)
}

func Internal(message string, err error) error {
	return &Error{Kind: InternalFault, Message: message, Err: err}
}

// KindOf reports the Kind of err, InternalFault for anything unclassified.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return InternalFault
}

// FromDB classifies a gorm/driver error. Errors that are already *Error pass
// through untouched so they can be returned from inside a transaction closure.
func FromDB(err error, message string) error {
	if err == nil {
		return nil
	}

	var appErr *Error
	if errors.As(err, &appErr) {
		return err
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &Error{Kind: NotFound, Message: message, Err: err}
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) || errors.Is(err, gorm.ErrForeignKeyViolated) || errors.Is(err, gorm.ErrCheckConstraintViolated) {
		return &Error{Kind: Conflict, Message: message, Err: err}
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation, pgForeignKeyViolation, pgCheckViolation:
			return &Error{Kind: Conflict, Message: message, Err: err}
		}
	}

	return &Error{Kind: InternalFault, Message: message, Err: err}
}
