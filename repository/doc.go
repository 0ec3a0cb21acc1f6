// Package repository provides generic Bun repositories with CRUD, paging,
// upsert and specification queries, and the member repository built on the
// query DSL.
package repository
