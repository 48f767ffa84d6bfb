package pgraph

// Features describes what the graph supports. It is a plain value; a
// graph's features never change after it is opened.
type Features struct {
	Name string

	SupportsDuplicateEdges             bool
	SupportsSelfLoops                  bool
	SupportsSerializableObjectProperty bool
	SupportsBooleanProperty            bool
	SupportsDoubleProperty             bool
	SupportsFloatProperty              bool
	SupportsIntegerProperty            bool
	SupportsLongProperty               bool
	SupportsStringProperty             bool
	SupportsPrimitiveArrayProperty     bool
	SupportsUniformListProperty        bool
	SupportsMixedListProperty          bool
	SupportsMapProperty                bool

	IgnoresSuppliedIDs bool
	IsPersistent       bool
	IsWrapper          bool

	SupportsVertexIteration  bool
	SupportsEdgeIteration    bool
	SupportsEdgeRetrieval    bool
	SupportsVertexProperties bool
	SupportsEdgeProperties   bool

	SupportsIndices        bool
	SupportsVertexIndex    bool
	SupportsEdgeIndex      bool
	SupportsKeyIndices     bool
	SupportsVertexKeyIndex bool
	SupportsEdgeKeyIndex   bool

	SupportsTransactions               bool
	SupportsThreadedTransactions       bool
	SupportsThreadIsolatedTransactions bool
}

var defaultFeatures = Features{
	Name: "native",

	SupportsDuplicateEdges:             true,
	SupportsSelfLoops:                  true,
	SupportsSerializableObjectProperty: false,
	SupportsBooleanProperty:            true,
	SupportsDoubleProperty:             true,
	SupportsFloatProperty:              true,
	SupportsIntegerProperty:            true,
	SupportsLongProperty:               true,
	SupportsStringProperty:             true,
	SupportsPrimitiveArrayProperty:     true,
	SupportsUniformListProperty:        true,
	SupportsMixedListProperty:          false,
	SupportsMapProperty:                false,

	IgnoresSuppliedIDs: true,
	IsPersistent:       true,
	IsWrapper:          false,

	SupportsVertexIteration:  true,
	SupportsEdgeIteration:    true,
	SupportsEdgeRetrieval:    true,
	SupportsVertexProperties: true,
	SupportsEdgeProperties:   true,

	SupportsIndices:        true,
	SupportsVertexIndex:    true,
	SupportsEdgeIndex:      true,
	SupportsKeyIndices:     true,
	SupportsVertexKeyIndex: true,
	SupportsEdgeKeyIndex:   true,

	SupportsTransactions:               true,
	SupportsThreadedTransactions:       false,
	SupportsThreadIsolatedTransactions: true,
}
