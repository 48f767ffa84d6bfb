package pgraph

import (
	"errors"
	"fmt"
	"iter"

	"github.com/andreyvit/pgraph/native"
)

// livenessKey is never a property key; reading it only tells whether the
// element still exists in the open transaction.
const livenessKey = "\x00liveness"

// source is a raw result stream from the engine. It may yield elements
// deleted earlier in the open transaction.
type source interface {
	next() (native.Entity, bool)
	remove(ent native.Entity) error
	close() error
}

type hitsSource struct {
	hits *native.Hits
}

func (src *hitsSource) next() (native.Entity, bool) {
	return src.hits.Next()
}

func (src *hitsSource) remove(ent native.Entity) error {
	if !src.hits.CanRemove() {
		return ErrUnsupportedOperation
	}
	return src.hits.Remove(ent)
}

func (src *hitsSource) close() error {
	src.hits.Close()
	return nil
}

// bothSource drains first, then second. The engine cannot list both
// directions at once.
type bothSource struct {
	first, second *native.Hits
	onSecond      bool
}

func (src *bothSource) next() (native.Entity, bool) {
	if !src.onSecond {
		if ent, ok := src.first.Next(); ok {
			return ent, true
		}
		src.onSecond = true
	}
	return src.second.Next()
}

func (src *bothSource) remove(ent native.Entity) error {
	return ErrUnsupportedOperation
}

func (src *bothSource) close() error {
	src.first.Close()
	src.second.Close()
	return nil
}

type iterState uint8

const (
	iterPending iterState = iota
	iterBuffered
	iterExhausted
	iterClosed
)

// Iterator yields the live elements of a raw engine result. It keeps one
// element buffered ahead: HasNext inspects the buffer, and Next returns
// the buffered element and fetches the following one.
//
// An Iterator belongs to the transaction it was created in and must not
// be used after that transaction ends.
type Iterator[E Element] struct {
	s     *Session
	src   source
	skip  func(ent native.Entity) bool
	wrap  func(ent native.Entity) (E, error)
	state iterState
	buf   native.Entity
}

func newIterator[E Element](s *Session, src source, skip func(native.Entity) bool, wrap func(native.Entity) (E, error)) *Iterator[E] {
	it := &Iterator[E]{s: s, src: src, skip: skip, wrap: wrap, state: iterPending}
	it.fetchNext()
	return it
}

// wrapAs converts native handles to E by their runtime kind.
func wrapAs[E Element](s *Session) func(native.Entity) (E, error) {
	return func(ent native.Entity) (E, error) {
		el := newElement(s, ent)
		e, ok := el.(E)
		if !ok {
			var zero E
			return zero, fmt.Errorf("unexpected %v %d in %T results", el.Kind(), el.ID(), zero)
		}
		return e, nil
	}
}

// fetchNext advances to the next element that is not skipped and is still
// alive. The liveness probe is the only thing trusted here: the raw source
// is known to return deleted elements.
func (it *Iterator[E]) fetchNext() {
	it.buf = nil
	for {
		ent, ok := it.src.next()
		if !ok {
			it.state = iterExhausted
			return
		}
		if it.skip != nil && it.skip(ent) {
			continue
		}
		if it.s.isDeleted(kindOfEntity(ent), ent.ID()) {
			it.s.g.metrics.staleSkipped.Inc()
			continue
		}
		if _, err := ent.PropertyOr(livenessKey, nil); errors.Is(err, native.ErrInvalidState) {
			it.s.g.metrics.staleSkipped.Inc()
			continue
		}
		it.buf = ent
		it.state = iterBuffered
		return
	}
}

func (it *Iterator[E]) HasNext() bool {
	return it.state == iterBuffered
}

// Next returns the buffered element, or ErrNoSuchElement.
func (it *Iterator[E]) Next() (E, error) {
	if it.state != iterBuffered {
		var zero E
		return zero, ErrNoSuchElement
	}
	ent := it.buf
	e, err := it.wrap(ent)
	it.fetchNext()
	return e, err
}

// Remove removes e from the underlying result, which only named index
// lookups support. It takes the element explicitly because the iterator
// has already read past it.
func (it *Iterator[E]) Remove(e E) error {
	if it.state == iterClosed {
		return fmt.Errorf("%w: iterator closed", ErrUnsupportedOperation)
	}
	if isNilElement(e) {
		return fmt.Errorf("remove: %w", ErrIdentifierRequired)
	}
	if _, err := it.s.start(true); err != nil {
		return err
	}
	ent, err := e.entity()
	if err != nil {
		return err
	}
	err = it.src.remove(ent)
	if errors.Is(err, ErrUnsupportedOperation) || errors.Is(err, native.ErrRemoveUnsupported) {
		return fmt.Errorf("%w: remove", ErrUnsupportedOperation)
	}
	return err
}

// Close releases the underlying engine resources. It can be called any
// number of times.
func (it *Iterator[E]) Close() error {
	if it.state == iterClosed {
		return nil
	}
	it.state = iterClosed
	it.buf = nil
	return it.src.close()
}

// All drains and closes the iterator.
func (it *Iterator[E]) All() ([]E, error) {
	defer it.Close()
	var result []E
	for it.HasNext() {
		e, err := it.Next()
		if err != nil {
			return result, err
		}
		result = append(result, e)
	}
	return result, nil
}

// Count drains and closes the iterator, counting live elements.
func (it *Iterator[E]) Count() (int, error) {
	defer it.Close()
	var n int
	for it.HasNext() {
		if _, err := it.Next(); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// Seq adapts the iterator for range loops, closing it when the loop ends.
func (it *Iterator[E]) Seq() iter.Seq2[E, error] {
	return func(yield func(E, error) bool) {
		defer it.Close()
		for it.HasNext() {
			e, err := it.Next()
			if !yield(e, err) || err != nil {
				return
			}
		}
	}
}

func kindOfEntity(ent native.Entity) ElementKind {
	if ent.Kind() == native.RelationshipKind {
		return EdgeKind
	}
	return VertexKind
}
