package pgraph

import (
	"fmt"
	"iter"
)

// QueryEngine executes queries in some query language against a session.
// The graph only passes queries through.
type QueryEngine interface {
	Execute(s *Session, query string, params map[string]any) (iter.Seq2[map[string]any, error], error)
}

// Query runs query on the configured QueryEngine.
func (s *Session) Query(query string, params map[string]any) (iter.Seq2[map[string]any, error], error) {
	if s.g.queryEngine == nil {
		return nil, fmt.Errorf("%w: no query engine configured", ErrUnsupportedOperation)
	}
	if params == nil {
		params = map[string]any{}
	}
	if _, err := s.start(false); err != nil {
		return nil, err
	}
	return s.g.queryEngine.Execute(s, query, params)
}
