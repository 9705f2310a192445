// Package pgconn is a low-level PostgreSQL database driver.
/*
pgconn provides lower level access to a PostgreSQL connection than a database/sql connection. It operates at
nearly the same level is the C library libpq.

Establishing a Connection

Use Connect to establish a connection. It accepts a connection string in URL or DSN and will read the environment for
libpq style environment variables.

Executing a Query

ExecParams and ExecPrepared execute a single query. They return readers that iterate over each row. The Read method
reads all rows into memory.

Executing Multiple Queries in a Single Round Trip

Exec can execute multiple semicolon-separated queries in a single round trip. It returns a reader that iterates over
each query result. The ReadAll method reads all query results into memory.

Context Support

All potentially blocking operations take a context.Context. Canceling or timing out that context sets a deadline on
the underlying socket, which unblocks the in-progress read or write immediately. Rather than closing the connection
outright, pgconn then tries to recover it in the background: it drains any pending server messages, rolls back an
open transaction, and returns the connection to the idle state so it can be reused. Config.RecoverTimeout bounds how
long recovery is allowed to take, and Config.OnRecover can run custom logic alongside the drain; recovery waits for
it before the rollback. WaitForRecover
blocks until an in-progress recovery completes. If recovery itself fails, the connection is closed as it would have
been otherwise.
*/
package pgconn
