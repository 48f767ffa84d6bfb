package pgraph

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/hashicorp/go-multierror"

	"github.com/andreyvit/pgraph/native"
)

// CreateKeyIndex makes the engine auto-index key for elements of kind and
// indexes the values already stored under key. Creating an existing key
// index does nothing. params are accepted for symmetry with CreateIndex
// and are not used.
//
// Like all administrative operations, it first commits the session's open
// transaction and then runs in a transaction of its own.
func (s *Session) CreateKeyIndex(key string, kind ElementKind, params ...Parameter) error {
	if err := validateKeyIndexKey(key); err != nil {
		return err
	}
	var added bool
	return s.g.admin(s, "create key index", func(as *Session) (err error) {
		added, err = as.createKeyIndex(key, kind)
		return err
	}, func() {
		if added {
			s.g.db.AutoIndexer(kind.native()).StopAutoIndexingProperty(key)
		}
	})
}

func validateKeyIndexKey(key string) error {
	if key == "" {
		return fmt.Errorf("key index: %w: empty key", ErrInvalidPropertyKey)
	}
	return nil
}

// createKeyIndex runs under the admin lock. added reports whether key was
// newly registered with the auto-indexer, so a failed transaction can undo it.
func (s *Session) createKeyIndex(key string, kind ElementKind) (added bool, err error) {
	if _, err := s.metadataVertex(); err != nil {
		return false, err
	}
	ai := s.g.db.AutoIndexer(kind.native())
	if !ai.Enabled() {
		ai.SetEnabled(true)
	}
	if slices.Contains(ai.AutoIndexedProperties(), key) {
		return false, nil
	}
	ai.StartAutoIndexingProperty(key)

	n, err := s.reindex(key, kind)
	if err != nil {
		return true, err
	}
	if err := s.persistKeys(kind); err != nil {
		return true, err
	}
	s.g.logger.Info("created key index", slog.String("key", key), slog.String("kind", kind.String()), slog.Int("reindexed", n))
	return true, nil
}

// reindex rewrites every existing value of key so that the auto-indexer,
// which only sees writes, picks them up.
func (s *Session) reindex(key string, kind ElementKind) (int, error) {
	ntx, err := s.start(true)
	if err != nil {
		return 0, err
	}
	var hits *native.Hits
	var skip func(native.Entity) bool
	if kind == EdgeKind {
		hits, err = ntx.AllRelationships()
	} else {
		hits, err = ntx.AllNodes()
		skip = isMetadata
	}
	if err != nil {
		return 0, err
	}
	it := newIterator(s, &hitsSource{hits}, skip, wrapAs[Element](s))
	defer it.Close()

	var n int
	for it.HasNext() {
		el, err := it.Next()
		if err != nil {
			return n, err
		}
		ent, err := el.entity()
		if err != nil {
			return n, err
		}
		raw, err := ent.PropertyOr(key, nil)
		if err != nil {
			return n, fmt.Errorf("reindexing %s %d: %w", kind, ent.ID(), err)
		}
		if raw == nil {
			continue
		}
		if err := ent.SetProperty(key, raw); err != nil {
			return n, fmt.Errorf("reindexing %s %d: %w", kind, ent.ID(), err)
		}
		n++
	}
	s.g.metrics.reindexed.WithLabelValues(kind.String()).Add(float64(n))
	return n, nil
}

// DropKeyIndex stops auto-indexing key for elements of kind. Dropping a
// key that is not indexed does nothing.
func (s *Session) DropKeyIndex(key string, kind ElementKind) error {
	var removed bool
	return s.g.admin(s, "drop key index", func(as *Session) error {
		ai := as.g.db.AutoIndexer(kind.native())
		if !slices.Contains(ai.AutoIndexedProperties(), key) {
			return nil
		}
		ai.StopAutoIndexingProperty(key)
		removed = true
		if err := as.persistKeys(kind); err != nil {
			return err
		}
		as.g.logger.Info("dropped key index", slog.String("key", key), slog.String("kind", kind.String()))
		return nil
	}, func() {
		if removed {
			s.g.db.AutoIndexer(kind.native()).StartAutoIndexingProperty(key)
		}
	})
}

// IndexedKeys returns the sorted keys auto-indexed for kind.
func (s *Session) IndexedKeys(kind ElementKind) []string {
	ai := s.g.db.AutoIndexer(kind.native())
	if !ai.Enabled() {
		return []string{}
	}
	return ai.AutoIndexedProperties()
}

func (s *Session) isKeyIndexed(kind ElementKind, key string) bool {
	return slices.Contains(s.IndexedKeys(kind), key)
}

// loadKeyIndexes restores auto-indexing from the persisted key sets. The
// engine forgets its auto-indexer configuration on restart, and values
// written meanwhile are re-indexed too.
func (g *Graph) loadKeyIndexes() error {
	g.adminMu.Lock()
	defer g.adminMu.Unlock()
	return g.adminLocked("load key indexes", func(as *Session) error {
		mv, err := as.metadataVertex()
		if err != nil {
			return err
		}
		var result *multierror.Error
		for _, kind := range []ElementKind{VertexKind, EdgeKind} {
			keys, err := as.persistedKeys(mv, kind)
			if err != nil {
				result = multierror.Append(result, err)
				continue
			}
			for _, key := range keys {
				if _, err := as.createKeyIndex(key, kind); err != nil {
					g.db.AutoIndexer(kind.native()).StopAutoIndexingProperty(key)
					result = multierror.Append(result, fmt.Errorf("%s key %q: %w", kind, key, err))
				}
			}
		}
		return result.ErrorOrNil()
	})
}
