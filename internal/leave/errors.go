package leave

import (
	"errors"
	"fmt"

	"github.com/leavedesk/leavedesk/store"
)

// Kind classifies failures of leave operations. Each Kind is itself an
// error, so errors.Is(err, ErrNotFound) matches any *Error of that kind.
type Kind int

const (
	NotFound Kind = iota + 1
	InvalidInput
	Serialization
	Deserialization
)

var (
	ErrNotFound        error = NotFound
	ErrInvalidInput    error = InvalidInput
	ErrSerialization   error = Serialization
	ErrDeserialization error = Deserialization
)

func (k Kind) String() string {
	switch k {
	case NotFound:
		return "not found"
	case InvalidInput:
		return "invalid input"
	case Serialization:
		return "serialization error"
	case Deserialization:
		return "deserialization error"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

func (k Kind) Error() string {
	return k.String()
}

// Collection names used in error messages.
const (
	EmployeeCollection = "employee"
	RequestCollection  = "leave request"
)

type Error struct {
	Kind       Kind
	Collection string
	ID         uint64
	Msg        string
	Err        error
}

func (e *Error) Error() string {
	switch e.Kind {
	case NotFound:
		return fmt.Sprintf("%s with id=%d not found", e.Collection, e.ID)
	case InvalidInput:
		return fmt.Sprintf("invalid input: %s", e.Msg)
	}
	if e.Collection != "" {
		return fmt.Sprintf("%v: %s %d: %v", e.Kind, e.Collection, e.ID, e.Err)
	}
	return fmt.Sprintf("%v: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func notFound(collection string, id uint64) error {
	return &Error{Kind: NotFound, Collection: collection, ID: id}
}

func invalidInputf(format string, args ...any) error {
	return &Error{Kind: InvalidInput, Msg: fmt.Sprintf(format, args...)}
}

// classify maps storage failures onto the Serialization and Deserialization
// kinds. Other errors are returned unchanged.
func classify(err error, collection string, id uint64) error {
	if err == nil {
		return nil
	}
	var le *Error
	if errors.As(err, &le) {
		return err
	}
	var te *store.TableError
	if errors.As(err, &te) && len(te.Key) == 8 {
		if k, kerr := store.DecodeKey(te.Key); kerr == nil {
			id = k
		}
	}
	switch {
	case errors.Is(err, store.ErrEncoding):
		return &Error{Kind: Serialization, Collection: collection, ID: id, Err: err}
	case errors.Is(err, store.ErrCorrupted):
		return &Error{Kind: Deserialization, Collection: collection, ID: id, Err: err}
	}
	return err
}

// KindOf returns the Kind of err, or 0 if err is not a leave error.
func KindOf(err error) Kind {
	var le *Error
	if errors.As(err, &le) {
		return le.Kind
	}
	return 0
}
