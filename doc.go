/*
Package pgraph layers a property graph with classic transaction semantics
and automatic property indexing on top of the native engine in package
native.

The native engine is weaker than its users expect. Deleted elements stay
visible in scans and index lookups until the deleting transaction commits,
a rejected property value marks the whole transaction as rollback-only, and
its auto-indexer only sees writes made after a key was enabled. This
package hides all three.

# Sessions

All work happens in a Session. A session lazily begins a native
transaction on first use, remembers whether anything was written, and
remembers which elements it deleted. Commit only marks success when the
transaction wrote something; read-only transactions are simply closed.
Graph.Update and Graph.View wrap the common patterns.

Element handles (Vertex, Edge) hold an id and are resolved on every call,
so they stay valid across commits of their session.

# Values

Property values are normalized before they reach the engine: int becomes
int64, slices and sets of one scalar kind become typed arrays, anything
else is rejected with ErrInvalidPropertyValue without touching the
transaction. See ToValue.

# Key indexes

CreateKeyIndex enables automatic indexing of a property key, re-indexes
existing elements and records the key on a metadata vertex, so that a
reopened graph restores the same configuration. VerticesWith and
EdgesWith use the key index when one exists and scan otherwise.

Key index, named index and metadata changes are transaction boundaries:
they commit the caller's transaction and run in a transaction of their
own.

# Iteration

Every result set is an Iterator. It skips elements deleted in the current
session and elements that the engine reports as dead, so a stale engine
result never surfaces to the caller.
*/
package pgraph
