/*
Package native is an embedded property graph engine: nodes with labels,
typed relationships, properties, an auto index and named indexes, stored
in Bolt, Badger or memory.

Transactions are deliberately weaker than classic isolation. Reading or
writing an entity through its handle is immediately consistent, so a node
deleted in a transaction fails every later access with ErrInvalidState.
Bulk results are not: AllNodes, AllRelationships, FindNodes and index
lookups keep returning entities deleted in the still-open transaction
until it commits. Callers that need strict results probe each hit, for
example with PropertyOr.

Auto-indexer configuration lives in memory and must be re-established by
the caller after every Open.
*/
package native
