// Package sqlmemory persists conversation history in a SQLite file through
// gorm. Each message is one row keyed by conversation id and an insertion
// sequence, so history survives restarts and is read back in order.
package sqlmemory
