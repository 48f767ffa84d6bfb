package native

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidState is returned by any access to an entity that was
	// deleted earlier in the same transaction.
	ErrInvalidState = errors.New("entity is no longer valid in this transaction")

	ErrNotFound          = errors.New("not found")
	ErrPropertyNotFound  = errors.New("property not found")
	ErrUnsupportedValue  = errors.New("unsupported property value")
	ErrInvalidKey        = errors.New("invalid property key")
	ErrHasRelationships  = errors.New("node still has relationships")
	ErrTxClosed          = errors.New("transaction closed")
	ErrTxRolledBack      = errors.New("transaction was marked rollback-only and has been rolled back")
	ErrIndexDeleted      = errors.New("index has been deleted")
	ErrWrongIndexKind    = errors.New("index exists for another entity kind")
	ErrRemoveUnsupported = errors.New("hits do not support removal")
	ErrInvalidQuery      = errors.New("invalid index query")
	ErrDBClosed          = errors.New("database closed")
)

// EntityError reports a failed operation on a particular node or relationship.
type EntityError struct {
	Kind EntityKind
	ID   uint64
	Op   string
	Err  error
}

func entityErr(kind EntityKind, id uint64, op string, err error) error {
	return &EntityError{kind, id, op, err}
}

func (e *EntityError) Unwrap() error {
	return e.Err
}

func (e *EntityError) Error() string {
	return fmt.Sprintf("%s %d: %s: %v", e.Kind, e.ID, e.Op, e.Err)
}

// IndexError reports a failed operation on a named index.
type IndexError struct {
	Index string
	Op    string
	Err   error
}

func (e *IndexError) Unwrap() error {
	return e.Err
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("index %q: %s: %v", e.Index, e.Op, e.Err)
}
