package pgraph

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/andreyvit/pgraph/native"
)

const trackTxns = true

// Graph is a property graph with classic transaction semantics layered on
// top of a native engine. Work happens in sessions; see Session.
type Graph struct {
	db          *native.DB
	logger      *slog.Logger
	verbose     bool
	checkElems  bool
	features    Features
	queryEngine QueryEngine
	metrics     *metrics

	// adminMu serializes key index, named index and metadata changes.
	adminMu sync.Mutex

	closed atomic.Bool

	sessions     map[*Session]*txContext
	sessionsLock sync.Mutex
}

type Options struct {
	Logger  *slog.Logger
	Verbose bool

	// IsTesting trades durability for speed.
	IsTesting bool

	// CheckElementsInTransaction is the default consistency-checked mode
	// of new sessions.
	CheckElementsInTransaction bool

	QueryEngine QueryEngine

	// Registerer receives the graph's metrics. Nil means no registration.
	Registerer prometheus.Registerer

	Bolt native.BoltOptions
}

// Open opens or creates a graph stored in a Bolt file.
func Open(path string, opt Options) (*Graph, error) {
	bopt := opt.Bolt
	if opt.IsTesting {
		bopt.NoSync = true
	}
	st, err := native.OpenBolt(path, bopt)
	if err != nil {
		return nil, fmt.Errorf("pgraph: %w", err)
	}
	return OpenStorage(st, opt)
}

// OpenStorage opens a graph over any native storage backend. The storage
// is closed if opening fails.
func OpenStorage(st native.Storage, opt Options) (*Graph, error) {
	db, err := native.Open(st, native.Options{Logger: opt.Logger, Verbose: opt.Verbose})
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("pgraph: %w", err)
	}
	return New(db, opt)
}

// New wraps an open native database. Auto-indexing is restored from the
// key sets persisted on the metadata vertex, re-indexing existing data.
// The database is closed if restoring fails.
func New(db *native.DB, opt Options) (*Graph, error) {
	logger := opt.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	g := &Graph{
		db:          db,
		logger:      logger,
		verbose:     opt.Verbose,
		checkElems:  opt.CheckElementsInTransaction,
		features:    defaultFeatures,
		queryEngine: opt.QueryEngine,
		metrics:     newMetrics(opt.Registerer),
		sessions:    make(map[*Session]*txContext),
	}
	if err := g.loadKeyIndexes(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pgraph: loading key indexes: %w", err)
	}
	return g, nil
}

func (g *Graph) Native() *native.DB {
	return g.db
}

func (g *Graph) Logger() *slog.Logger {
	return g.logger
}

func (g *Graph) Features() Features {
	return g.features
}

func (g *Graph) String() string {
	return fmt.Sprintf("pgraph[%s]", g.features.Name)
}

// Session returns a new session. A session must be used by one goroutine
// at a time.
func (g *Graph) Session() *Session {
	return &Session{g: g, checkElems: g.checkElems}
}

// Update runs f in a fresh session, committing when f succeeds and rolling
// back otherwise. Panics in f are returned as errors.
func (g *Graph) Update(f func(s *Session) error) error {
	s := g.Session()
	err := safelyCall(f, s)
	if err != nil {
		if rerr := s.Rollback(); rerr != nil {
			g.logger.Warn("rollback failed", slog.Any("err", rerr))
		}
		return err
	}
	return s.Commit()
}

// View runs f in a fresh session that is closed without marking success.
func (g *Graph) View(f func(s *Session) error) error {
	s := g.Session()
	err := safelyCall(f, s)
	if rerr := s.Rollback(); err == nil {
		err = rerr
	}
	return err
}

// Shutdown commits every session that still has a transaction open,
// logging rather than returning their failures, and closes the engine.
// It must not race with the sessions themselves.
func (g *Graph) Shutdown() error {
	if g.closed.Swap(true) {
		return nil
	}
	g.sessionsLock.Lock()
	open := slices.Collect(maps.Keys(g.sessions))
	g.sessionsLock.Unlock()
	for _, s := range open {
		s.Close()
	}
	return g.db.Close()
}

func (g *Graph) IsClosed() bool {
	return g.closed.Load()
}

func (g *Graph) addSession(s *Session, tc *txContext) {
	g.metrics.openTxns.Inc()
	if !trackTxns {
		return
	}
	g.sessionsLock.Lock()
	defer g.sessionsLock.Unlock()
	g.sessions[s] = tc
}

func (g *Graph) removeSession(s *Session) {
	g.metrics.openTxns.Dec()
	if !trackTxns {
		return
	}
	g.sessionsLock.Lock()
	defer g.sessionsLock.Unlock()
	delete(g.sessions, s)
}

// DescribeOpenTxns lists sessions with open transactions, oldest first.
func (g *Graph) DescribeOpenTxns() string {
	if !trackTxns {
		return "OPEN TX TRACKING DISABLED"
	}

	type info struct {
		id        string
		startTime time.Time
		stack     string
	}
	g.sessionsLock.Lock()
	txns := make([]info, 0, len(g.sessions))
	for _, tc := range g.sessions {
		txns = append(txns, info{tc.id.String(), tc.startTime, tc.stack})
	}
	g.sessionsLock.Unlock()

	if len(txns) == 0 {
		return "NO OPEN TRANSACTIONS"
	}

	slices.SortFunc(txns, func(a, b info) int {
		return a.startTime.Compare(b.startTime)
	})

	now := time.Now()

	var buf strings.Builder
	fmt.Fprintf(&buf, "%d OPEN TRANSACTIONS:\n", len(txns))
	for _, tx := range txns {
		ms := now.Sub(tx.startTime).Milliseconds()
		if ms < 100 {
			fmt.Fprintf(&buf, "\n---\n%s open for %d ms\n", tx.id, ms)
		} else {
			fmt.Fprintf(&buf, "\n---\n%s open for %d ms:\n%s", tx.id, ms, tx.stack)
		}
	}

	return buf.String()
}

// admin runs an administrative change: the caller's transaction is
// committed first, then f runs in a fresh session under the admin lock and
// is committed before admin returns. If f or the commit fails, undo runs
// before the lock is released.
func (g *Graph) admin(caller *Session, op string, f func(as *Session) error, undo func()) error {
	if caller != nil {
		if err := caller.Commit(); err != nil {
			return err
		}
	}
	g.adminMu.Lock()
	defer g.adminMu.Unlock()
	err := g.adminLocked(op, f)
	if err != nil && undo != nil {
		undo()
	}
	return err
}

func (g *Graph) adminLocked(op string, f func(as *Session) error) error {
	as := g.Session()
	err := safelyCall(f, as)
	if err != nil {
		if rerr := as.Rollback(); rerr != nil {
			g.logger.Warn("admin rollback failed", slog.String("op", op), slog.Any("err", rerr))
		}
		return err
	}
	if err := as.Commit(); err != nil {
		return err
	}
	if g.verbose {
		g.logger.Log(context.Background(), slog.LevelDebug, "admin op committed", slog.String("op", op))
	}
	return nil
}
