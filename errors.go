package pgraph

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrIdentifierRequired   = errors.New("identifier required")
	ErrInvalidPropertyValue = errors.New("invalid property value")
	ErrInvalidPropertyKey   = errors.New("invalid property key")
	ErrInvalidLabel         = errors.New("invalid label")
	ErrDuplicateIndex       = errors.New("index already exists")
	ErrIndexKindMismatch    = errors.New("index element kind mismatch")
	ErrIndexOperationFailed = errors.New("index operation failed")
	ErrIntegrityViolation   = errors.New("integrity violation")
	ErrTransactionFailure   = errors.New("transaction failure")
	ErrNoSuchElement        = errors.New("no such element")
	ErrUnsupportedOperation = errors.New("unsupported operation")
	ErrElementNotFound      = errors.New("element not found")
	ErrClosed               = errors.New("graph closed")
)

// PropertyValueError is returned for values outside the property domain.
// It matches ErrInvalidPropertyValue.
type PropertyValueError struct {
	Key   string
	Value any
	Msg   string
}

func (e *PropertyValueError) Unwrap() error {
	return ErrInvalidPropertyValue
}

func (e *PropertyValueError) Error() string {
	var buf strings.Builder
	buf.WriteString("invalid property value")
	if e.Key != "" {
		fmt.Fprintf(&buf, " for %q", e.Key)
	}
	fmt.Fprintf(&buf, " (%T): %s", e.Value, e.Msg)
	return buf.String()
}

func withKey(err error, key string) error {
	if pve, ok := err.(*PropertyValueError); ok && pve.Key == "" {
		copied := *pve
		copied.Key = key
		return &copied
	}
	return err
}

// IndexError describes a failed named or key index operation. It matches
// its Kind sentinel and the underlying engine error, if any.
type IndexError struct {
	Index string
	Op    string
	Kind  error
	Err   error
}

func indexErrf(name string, kind error, err error, format string, args ...any) error {
	return &IndexError{Index: name, Op: fmt.Sprintf(format, args...), Kind: kind, Err: err}
}

func (e *IndexError) Unwrap() []error {
	var errs []error
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

func (e *IndexError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "index %q: %s", e.Index, e.Op)
	if e.Kind != nil {
		buf.WriteString(": ")
		buf.WriteString(e.Kind.Error())
	}
	if e.Err != nil {
		buf.WriteString(": ")
		buf.WriteString(e.Err.Error())
	}
	return buf.String()
}

// TxError is returned when a transaction cannot begin or finish. It
// matches ErrTransactionFailure.
type TxError struct {
	TxID string
	Op   string
	Err  error
}

func (e *TxError) Unwrap() []error {
	return []error{ErrTransactionFailure, e.Err}
}

func (e *TxError) Error() string {
	if e.TxID == "" {
		return fmt.Sprintf("tx %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("tx %s %s: %v", e.TxID, e.Op, e.Err)
}

// IntegrityError reports more than one metadata vertex. It is fatal and
// matches ErrIntegrityViolation.
type IntegrityError struct {
	Count int
}

func (e *IntegrityError) Unwrap() error {
	return ErrIntegrityViolation
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("integrity violation: found %d graph metadata vertices, expected at most one", e.Count)
}

// ElementError reports a failed operation on a vertex or an edge.
type ElementError struct {
	Kind ElementKind
	ID   any
	Op   string
	Err  error
}

func elementErr(kind ElementKind, id any, op string, err error) error {
	return &ElementError{kind, id, op, err}
}

func (e *ElementError) Unwrap() error {
	return e.Err
}

func (e *ElementError) Error() string {
	return fmt.Sprintf("%s %v: %s: %v", e.Kind, e.ID, e.Op, e.Err)
}
