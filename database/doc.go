// Package database provides connection management, migrations, foreign key
// handling, SQL seed files, configuration loading, error translation, query
// hooks and related utilities built on top of Bun.
package database
