// internal/apperror/apperror.go
package apperror

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so the transport layer can map it to a status code.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindAlreadyExists
	KindConflict
	KindAlreadyReturned
	KindHierarchyCycle
	KindHasChildren
	KindHasAssociatedBooks
	KindInvalidInput
	KindUnauthorized
	KindForbidden
	KindTooManyRequests
)

var kindNames = map[Kind]string{
	KindInternal:           "internal",
	KindNotFound:           "not_found",
	KindAlreadyExists:      "already_exists",
	KindConflict:           "conflict",
	KindAlreadyReturned:    "already_returned",
	KindHierarchyCycle:     "hierarchy_cycle",
	KindHasChildren:        "has_children",
	KindHasAssociatedBooks: "has_associated_books",
	KindInvalidInput:       "invalid_input",
	KindUnauthorized:       "unauthorized",
	KindForbidden:          "forbidden",
	KindTooManyRequests:    "too_many_requests",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Sentinels for errors.Is checks. Any *Error of the same kind matches.
var (
	ErrNotFound           = &Error{Kind: KindNotFound}
	ErrAlreadyExists      = &Error{Kind: KindAlreadyExists}
	ErrConflict           = &Error{Kind: KindConflict}
	ErrAlreadyReturned    = &Error{Kind: KindAlreadyReturned}
	ErrHierarchyCycle     = &Error{Kind: KindHierarchyCycle}
	ErrHasChildren        = &Error{Kind: KindHasChildren}
	ErrHasAssociatedBooks = &Error{Kind: KindHasAssociatedBooks}
	ErrInvalidInput       = &Error{Kind: KindInvalidInput}
	ErrUnauthorized       = &Error{Kind: KindUnauthorized}
	ErrForbidden          = &Error{Kind: KindForbidden}
	ErrTooManyRequests    = &Error{Kind: KindTooManyRequests}
)

// Error is a domain failure carrying the entity kind, its identifier and a
// message that can be shown to the caller as is.
type Error struct {
	Kind    Kind
	Entity  string
	ID      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func idString(id any) string {
	if id == nil {
		return ""
	}
	return fmt.Sprint(id)
}

// NotFound reports that entity with the given identifier does not exist.
func NotFound(entity string, id any) *Error {
	return &Error{
		Kind:    KindNotFound,
		Entity:  entity,
		ID:      idString(id),
		Message: fmt.Sprintf("%s not found with id: %v", entity, id),
	}
}

// AlreadyExists reports a uniqueness violation on field=value.
func AlreadyExists(entity, field, value string) *Error {
	return &Error{
		Kind:    KindAlreadyExists,
		Entity:  entity,
		ID:      value,
		Message: fmt.Sprintf("%s already exists with %s: %s", entity, field, value),
	}
}

// Conflict reports an operation that is not valid for the current state.
func Conflict(entity string, id any, message string) *Error {
	return &Error{Kind: KindConflict, Entity: entity, ID: idString(id), Message: message}
}

func AlreadyReturned(id int64) *Error {
	return &Error{
		Kind:    KindAlreadyReturned,
		Entity:  "borrowing transaction",
		ID:      idString(id),
		Message: fmt.Sprintf("book already returned for transaction %d", id),
	}
}

func HierarchyCycle(id int64, parentID int64) *Error {
	return &Error{
		Kind:    KindHierarchyCycle,
		Entity:  "category",
		ID:      idString(id),
		Message: fmt.Sprintf("category hierarchy contains cycle: %d cannot have parent %d", id, parentID),
	}
}

func HasChildren(entity string, id any) *Error {
	return &Error{
		Kind:    KindHasChildren,
		Entity:  entity,
		ID:      idString(id),
		Message: fmt.Sprintf("can't delete %s %v with children", entity, id),
	}
}

func HasAssociatedBooks(entity string, id any) *Error {
	return &Error{
		Kind:    KindHasAssociatedBooks,
		Entity:  entity,
		ID:      idString(id),
		Message: fmt.Sprintf("can't delete %s %v that has books", entity, id),
	}
}

func InvalidInput(message string) *Error {
	return &Error{Kind: KindInvalidInput, Message: message}
}

func Unauthorized(message string) *Error {
	return &Error{Kind: KindUnauthorized, Message: message}
}

func Forbidden(message string) *Error {
	return &Error{Kind: KindForbidden, Message: message}
}

func TooManyRequests(message string) *Error {
	return &Error{Kind: KindTooManyRequests, Message: message}
}
