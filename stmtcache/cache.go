// Package stmtcache implements the prepared-statement cache: an
// in-memory map from a request's stable integer identity to
// the prepared entry the server holds under a synthetic name. Unlike an
// LRU cache keyed on SQL text, this cache never evicts on its own — a
// connection's prepared statements live until DEALLOCATE or until the
// connection itself is gone, and the caller (the connection dispatcher,
// package pg) clears the whole cache on reconnect instead of evicting
// entries one at a time.
package stmtcache

import (
	"context"
	"fmt"

	"github.com/polydb/pg/pgconn"
)

// Entry is the cached shape of a prepared statement: its expanded query
// text, the parameter OIDs and binary-format flags the type walker
// computed for it, and whether the connection decided to run it in
// single-row mode.
type Entry struct {
	Name          string
	SQL           string
	ParamOIDs     []uint32
	ParamBinary   []bool
	SingleRowMode bool
}

// Cache maps request identity to Entry. It is owned exclusively by one
// connection, never shared across connections, and is not
// safe for concurrent use — the same discipline the connection dispatcher
// already applies to the rest of a connection's state.
type Cache struct {
	entries map[int64]*Entry
}

// New returns an empty Cache.
func New() *Cache {
	return &Cache{entries: make(map[int64]*Entry)}
}

// Get returns the cached entry for id, if any.
func (c *Cache) Get(id int64) (*Entry, bool) {
	e, ok := c.entries[id]
	return e, ok
}

// StatementName is the synthetic prepared-statement name used for a
// cached statement: "_caq{id}".
func StatementName(id int64) string {
	return fmt.Sprintf("_caq%d", id)
}

// Prepare sends PREPARE for sql under the synthetic name for id and, only
// if the server accepts it, inserts the entry into the cache. A failed
// PREPARE is never cached: the next call with the same identity retries
// the PREPARE from scratch.
func (c *Cache) Prepare(ctx context.Context, conn *pgconn.PgConn, id int64, sql string, paramOIDs []uint32, paramBinary []bool, singleRowMode bool) (*Entry, error) {
	name := StatementName(id)
	psd, err := conn.Prepare(ctx, name, sql, paramOIDs)
	if err != nil {
		return nil, err
	}
	entry := &Entry{
		Name:          name,
		SQL:           sql,
		ParamOIDs:     psd.ParamOIDs,
		ParamBinary:   paramBinary,
		SingleRowMode: singleRowMode,
	}
	c.entries[id] = entry
	return entry, nil
}

// Deallocate sends DEALLOCATE for id's prepared statement, returns any
// error the server or connection reports for it, and removes it from the
// cache regardless of whether the server still had it prepared.
func (c *Cache) Deallocate(ctx context.Context, conn *pgconn.PgConn, id int64) error {
	entry, ok := c.entries[id]
	if !ok {
		return nil
	}
	delete(c.entries, id)
	return conn.Exec(ctx, "DEALLOCATE "+entry.Name).Close()
}

// Clear drops every cached entry without sending DEALLOCATE. It is called
// after a successful reconnect: the new backend has no prepared
// statements at all, so there is nothing on the wire to tear down, and
// the next call for any identity will re-PREPARE lazily.
func (c *Cache) Clear() {
	c.entries = make(map[int64]*Entry)
}

// Len reports how many identities are currently cached.
func (c *Cache) Len() int {
	return len(c.entries)
}
