package database

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrConfiguration marks deployment errors such as an unregistered engine.
	ErrConfiguration = errors.New("database configuration error")

	// ErrConnectionFailed is returned when the connection cannot be established.
	ErrConnectionFailed = errors.New("database connection failed")

	// ErrNotConnected is returned when a statement runs after the manager disconnected.
	ErrNotConnected = errors.New("database not connected")

	// ErrQueryFailed is wrapped by every execution error.
	ErrQueryFailed = errors.New("query failed")

	// ErrDuplicateKey is matched by execution errors classified as DuplicateKeyEntry.
	ErrDuplicateKey = errors.New("duplicate key violation")

	// ErrChildForeignKey is matched by execution errors classified as ChildForeignKeyViolation.
	ErrChildForeignKey = errors.New("child foreign key violation")

	// ErrParentForeignKey is matched by execution errors classified as ParentForeignKeyViolation.
	ErrParentForeignKey = errors.New("parent foreign key violation")
)

// PortableCode is an engine-independent classification of a database error.
// The numeric values are stable.
type PortableCode int

const (
	DuplicateKeyEntry         PortableCode = 1000
	ChildForeignKeyViolation  PortableCode = 1010
	ParentForeignKeyViolation PortableCode = 1011
	NoError                   PortableCode = 8000
	UnknownError              PortableCode = 9999
)

func (c PortableCode) String() string {
	switch c {
	case DuplicateKeyEntry:
		return "duplicate key entry"
	case ChildForeignKeyViolation:
		return "child foreign key violation"
	case ParentForeignKeyViolation:
		return "parent foreign key violation"
	case NoError:
		return "no error"
	case UnknownError:
		return "unknown error"
	default:
		return fmt.Sprintf("portable code %d", int(c))
	}
}

// Err returns the sentinel error for integrity codes and nil for the rest.
func (c PortableCode) Err() error {
	switch c {
	case DuplicateKeyEntry:
		return ErrDuplicateKey
	case ChildForeignKeyViolation:
		return ErrChildForeignKey
	case ParentForeignKeyViolation:
		return ErrParentForeignKey
	default:
		return nil
	}
}

// Recoverable reports whether callers are expected to handle the code as data.
func (c PortableCode) Recoverable() bool {
	return c.Err() != nil
}

// QueryError is returned by Statement.Execute when the server rejects a statement.
type QueryError struct {
	// Query is the fully substituted SQL text that failed.
	Query string

	// Code is the portable classification of Err.
	Code PortableCode

	// Err is the native driver error.
	Err error

	// Retryable is set when the engine reports Err as transient.
	Retryable bool
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("%s (%s): %v", ErrQueryFailed, e.Code, e.Err)
}

// IsRetryable reports whether err is a *QueryError the engine marked as transient.
func IsRetryable(err error) bool {
	var qe *QueryError
	return errors.As(err, &qe) && qe.Retryable
}

// Unwrap exposes ErrQueryFailed, the sentinel for Code and the native error.
func (e *QueryError) Unwrap() []error {
	errs := []error{ErrQueryFailed}
	if sentinel := e.Code.Err(); sentinel != nil {
		errs = append(errs, sentinel)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// CodeOf returns the portable code carried by err. A nil error yields NoError and an
// error that is not a *QueryError yields UnknownError.
func CodeOf(err error) PortableCode {
	if err == nil {
		return NoError
	}
	var qe *QueryError
	if errors.As(err, &qe) {
		return qe.Code
	}
	return UnknownError
}

// UnknownEngineError is returned when no factory is registered for an engine tag.
type UnknownEngineError struct {
	Engine    string
	Available []string
}

func (e *UnknownEngineError) Error() string {
	if len(e.Available) == 0 {
		return fmt.Sprintf("unknown database engine %q (no engines registered)", e.Engine)
	}
	return fmt.Sprintf("unknown database engine %q (available: %s)", e.Engine, strings.Join(e.Available, ", "))
}

// Is makes errors.Is(err, ErrConfiguration) hold.
func (e *UnknownEngineError) Is(target error) bool {
	return target == ErrConfiguration
}

// TranslateError maps an execution error to ErrDuplicateKey, ErrChildForeignKey or
// ErrParentForeignKey. Any other error is returned unchanged.
func TranslateError(err error) error {
	if sentinel := CodeOf(err).Err(); sentinel != nil {
		return sentinel
	}
	return err
}
