// Package datastudy wires the member, team, item and hello repositories and
// the typed query factory to a Bun database.
package datastudy
