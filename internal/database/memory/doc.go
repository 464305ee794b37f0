// Package memory holds in-process implementations of every storage
// interface, selected with STORAGE_BACKEND=memory and used by tests.
// Each store guards its state with a single mutex, which gives the same
// atomicity the Postgres implementations get from conditional statements.
package memory
