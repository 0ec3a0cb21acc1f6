// Package query is a typed, fluent query DSL over Bun. Entity paths declare
// tables, columns and associations; expressions built from them render to SQL
// predicates, projections and orderings; EntityQuery and TupleQuery assemble
// them into SELECT statements with joins, fetch joins, grouping and paging.
package query
