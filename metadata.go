package pgraph

import (
	"fmt"
	"log/slog"
)

// The metadata vertex persists graph-level configuration. It is the only
// vertex carrying metadataLabel, which user code cannot assign, and it is
// invisible to lookups and scans.
const (
	metadataLabel = "__pgraph_metadata__"

	vertexKeysProperty = "AUTO_INDEXED_VERTEX_KEYS"
	edgeKeysProperty   = "AUTO_INDEXED_EDGE_KEYS"
)

func keysProperty(kind ElementKind) string {
	if kind == EdgeKind {
		return edgeKeysProperty
	}
	return vertexKeysProperty
}

// findMetadataVertex returns the metadata vertex, nil if there is none,
// or an *IntegrityError if there are several.
func (s *Session) findMetadataVertex() (*Vertex, error) {
	ntx, err := s.start(false)
	if err != nil {
		return nil, err
	}
	hits, err := ntx.FindNodes(metadataLabel)
	if err != nil {
		return nil, err
	}
	found, err := newIterator(s, &hitsSource{hits}, nil, wrapAs[*Vertex](s)).All()
	if err != nil {
		return nil, err
	}
	switch len(found) {
	case 0:
		return nil, nil
	case 1:
		return found[0], nil
	default:
		return nil, &IntegrityError{Count: len(found)}
	}
}

// metadataVertex locates the metadata vertex, creating it if needed. The
// creation is committed right away, independently of whatever else the
// session does afterwards. Callers hold the admin lock.
func (s *Session) metadataVertex() (*Vertex, error) {
	mv, err := s.findMetadataVertex()
	if err != nil || mv != nil {
		return mv, err
	}

	if err := s.Commit(); err != nil {
		return nil, err
	}
	ntx, err := s.start(true)
	if err != nil {
		return nil, err
	}
	if _, err := ntx.CreateNode(metadataLabel); err != nil {
		s.Rollback()
		return nil, fmt.Errorf("creating metadata vertex: %w", err)
	}
	if err := s.Commit(); err != nil {
		return nil, err
	}
	s.g.logger.Info("created graph metadata vertex")

	mv, err = s.findMetadataVertex()
	if err != nil {
		return nil, err
	}
	if mv == nil {
		return nil, fmt.Errorf("%w: metadata vertex vanished after creation", ErrIntegrityViolation)
	}
	return mv, nil
}

// persistedKeys reads a key set from the metadata vertex. Absent means
// empty.
func (s *Session) persistedKeys(mv *Vertex, kind ElementKind) ([]string, error) {
	raw, err := mv.Property(keysProperty(kind))
	if err != nil || raw == nil {
		return nil, err
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: %s is %T, wanted a string array", ErrIntegrityViolation, keysProperty(kind), raw)
	}
	keys := make([]string, 0, len(list))
	for _, item := range list {
		k, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("%w: %s contains %T, wanted strings", ErrIntegrityViolation, keysProperty(kind), item)
		}
		keys = append(keys, k)
	}
	return keys, nil
}

// persistKeys stores the current key set of kind on the metadata vertex
// through the same validated path as any user property.
func (s *Session) persistKeys(kind ElementKind) error {
	mv, err := s.metadataVertex()
	if err != nil {
		return err
	}
	keys := s.g.db.AutoIndexer(kind.native()).AutoIndexedProperties()
	if err := mv.SetProperty(keysProperty(kind), keys); err != nil {
		return err
	}
	s.g.logger.Debug("persisted key indexes", slog.String("kind", kind.String()), slog.Any("keys", keys))
	return nil
}
