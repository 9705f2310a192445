package stmtcache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatementName(t *testing.T) {
	assert.Equal(t, "_caq1", StatementName(1))
	assert.Equal(t, "_caq42", StatementName(42))
}

func TestCacheGetMissing(t *testing.T) {
	c := New()
	_, ok := c.Get(1)
	assert.False(t, ok)
}

func TestCacheClearEmptiesEntries(t *testing.T) {
	c := New()
	c.entries[1] = &Entry{Name: "_caq1", SQL: "SELECT 1"}
	c.Clear()
	_, ok := c.Get(1)
	assert.False(t, ok)
}
