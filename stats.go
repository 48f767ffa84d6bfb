package pgraph

// Stats summarizes the size of the graph as the open transaction sees
// it. Element and index entry counts come straight from the engine, so
// they still include elements deleted in the open transaction.
type Stats struct {
	Vertices     int
	Edges        int
	LabelEntries int

	VertexKeyIndexEntries int
	EdgeKeyIndexEntries   int
	NamedIndexes          int
	NamedIndexEntries     int

	IndexedVertexKeys []string
	IndexedEdgeKeys   []string

	StorageSize int64
	OpenTxns    int64
}

func (st *Stats) TotalIndexEntries() int {
	return st.VertexKeyIndexEntries + st.EdgeKeyIndexEntries + st.NamedIndexEntries
}

func (s *Session) Stats() (Stats, error) {
	ntx, err := s.start(false)
	if err != nil {
		return Stats{}, err
	}
	ns, err := ntx.Stats()
	if err != nil {
		return Stats{}, err
	}
	st := Stats{
		Vertices:              ns.Nodes,
		Edges:                 ns.Relationships,
		LabelEntries:          ns.LabelEntries,
		VertexKeyIndexEntries: ns.AutoNodeEntries,
		EdgeKeyIndexEntries:   ns.AutoRelEntries,
		NamedIndexes:          ns.NamedIndexes,
		NamedIndexEntries:     ns.IndexNodeEntries + ns.IndexRelEntries,
		IndexedVertexKeys:     s.IndexedKeys(VertexKind),
		IndexedEdgeKeys:       s.IndexedKeys(EdgeKind),
		StorageSize:           ns.StorageSize,
		OpenTxns:              s.g.db.OpenTxns.Load(),
	}
	if mv, err := s.findMetadataVertex(); err == nil && mv != nil {
		st.Vertices--
		st.LabelEntries--
	}
	return st, nil
}
