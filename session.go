package pgraph

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
	"github.com/google/uuid"

	"github.com/andreyvit/pgraph/native"
)

// Session carries the transaction state of one caller. Every operation
// starts a transaction if none is open; Commit or Rollback ends it, and
// the next operation starts another. A session must not be used by more
// than one goroutine at a time.
type Session struct {
	g          *Graph
	tx         *txContext
	checkElems bool
}

// txContext lives exactly as long as one native transaction.
type txContext struct {
	ntx       *native.Tx
	forWrite  bool
	id        uuid.UUID
	startTime time.Time
	stack     string

	deletedVertices *roaring64.Bitmap
	deletedEdges    *roaring64.Bitmap
}

func (s *Session) Graph() *Graph {
	return s.g
}

// start opens a transaction unless one is open already. Write intent
// accumulates: once any call asked for a write, the transaction commits
// with success.
func (s *Session) start(forWrite bool) (*native.Tx, error) {
	if tc := s.tx; tc != nil {
		tc.forWrite = tc.forWrite || forWrite
		return tc.ntx, nil
	}
	if s.g.closed.Load() {
		return nil, ErrClosed
	}
	ntx, err := s.g.db.BeginTx()
	if err != nil {
		return nil, &TxError{Op: "begin", Err: err}
	}
	tc := &txContext{
		ntx:             ntx,
		forWrite:        forWrite,
		id:              uuid.New(),
		startTime:       time.Now(),
		deletedVertices: roaring64.NewBitmap(),
		deletedEdges:    roaring64.NewBitmap(),
	}
	if trackTxns {
		tc.stack = string(debug.Stack())
	}
	s.tx = tc
	s.g.addSession(s, tc)
	if s.g.verbose {
		s.g.logger.Log(context.Background(), slog.LevelDebug, "tx begin", slog.String("tx", tc.id.String()), slog.Bool("write", forWrite))
	}
	return ntx, nil
}

// InTransaction reports whether the session has an open transaction.
func (s *Session) InTransaction() bool {
	return s.tx != nil
}

// TxID identifies the open transaction in logs, or is empty.
func (s *Session) TxID() string {
	if s.tx == nil {
		return ""
	}
	return s.tx.id.String()
}

// Commit ends the open transaction, if any. A transaction that was only
// read from is closed without being marked successful. Failures are
// returned as *TxError.
func (s *Session) Commit() error {
	return s.finish(true)
}

// Rollback ends the open transaction, if any, discarding its writes.
func (s *Session) Rollback() error {
	return s.finish(false)
}

func (s *Session) finish(commit bool) error {
	tc := s.tx
	if tc == nil {
		return nil
	}
	s.tx = nil
	s.g.removeSession(s)

	if tc.forWrite {
		if commit {
			tc.ntx.Success()
		} else {
			tc.ntx.Failure()
		}
	}
	err := tc.ntx.Close()

	outcome := "rollback"
	switch {
	case err != nil:
		outcome = "failed"
	case commit && tc.forWrite:
		outcome = "commit"
	case !tc.forWrite:
		outcome = "read"
	}
	s.g.metrics.txns.WithLabelValues(outcome).Inc()
	if s.g.verbose {
		s.g.logger.Log(context.Background(), slog.LevelDebug, "tx finish", slog.String("tx", tc.id.String()), slog.String("outcome", outcome), slog.Duration("dur", time.Since(tc.startTime)))
	}
	if err != nil {
		op := "rollback"
		if commit {
			op = "commit"
		}
		return &TxError{TxID: tc.id.String(), Op: op, Err: err}
	}
	return nil
}

// Close commits the open transaction on a best-effort basis: a failure is
// logged, not returned. Use Commit to learn about failures.
func (s *Session) Close() {
	id := s.TxID()
	if err := s.Commit(); err != nil {
		s.g.logger.Warn("failure on session close", slog.String("tx", id), slog.Any("err", err))
	}
}

func (s *Session) markDeleted(kind ElementKind, id uint64) {
	if s.tx == nil {
		return
	}
	if kind == EdgeKind {
		s.tx.deletedEdges.Add(id)
	} else {
		s.tx.deletedVertices.Add(id)
	}
}

func (s *Session) isDeleted(kind ElementKind, id uint64) bool {
	if s.tx == nil {
		return false
	}
	if kind == EdgeKind {
		return s.tx.deletedEdges.Contains(id)
	}
	return s.tx.deletedVertices.Contains(id)
}

// SetCheckElementsInTransaction switches consistency-checked mode, in
// which index counts filter out elements deleted in the open transaction
// at the cost of visiting each hit.
func (s *Session) SetCheckElementsInTransaction(check bool) {
	s.checkElems = check
}

func (s *Session) CheckElementsInTransaction() bool {
	return s.checkElems
}

// Raw returns the open native transaction, starting one for writing if
// needed. Writes made through it bypass validation.
func (s *Session) Raw() (*native.Tx, error) {
	return s.start(true)
}

type panicked struct {
	reason any
	stack  string
}

func (p panicked) Error() string {
	return fmt.Sprintf("panic: %v\n\n%s", p.reason, p.stack)
}

func safelyCall(fn func(*Session) error, s *Session) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = panicked{p, string(debug.Stack())}
		}
	}()
	return fn(s)
}
