package pg

import (
	"context"

	"github.com/polydb/pg/pgconn"
	"github.com/polydb/pg/pgerr"
)

// postgresDriver is the one driver this core ships. It speaks the
// server's protocol through pgconn.PgConn and reports itself as both
// concurrency- and pool-capable — the gating table never needs to
// restrict it.
type postgresDriver struct{}

func (postgresDriver) Info() DriverInfo {
	return DriverInfo{Scheme: "postgresql", CanConcur: true, CanPool: true}
}

func (postgresDriver) Connect(ctx context.Context, cfg *Config, uri string) (*Conn, error) {
	if err := cfg.buildPGConnConfig(uri); err != nil {
		return nil, err
	}
	if cfg.NoticeProcessing != nil {
		cfg.pgConnConfig.OnNotice = func(_ *pgconn.PgConn, n *pgconn.Notice) {
			cfg.NoticeProcessing(n)
		}
	}

	pgConn, err := pgconn.ConnectConfig(ctx, cfg.pgConnConfig)
	if err != nil {
		return nil, pgerr.Wrap(pgerr.ConnectFailed, uri, "", &pgerr.ConnectErrorMsg{Step: "connect", Err: err})
	}

	if err := postConnectSetup(ctx, pgConn); err != nil {
		_ = pgConn.Close(ctx)
		return nil, pgerr.Wrap(pgerr.PostConnect, uri, "", &pgerr.ConnectErrorMsg{Step: "startup", Err: err})
	}

	conn := newConn(pgConn, uri, cfg, postgresDriver{}.Info())
	return conn, nil
}

// postConnectSetup issues SET TimeZone TO 'UTC' after a successful connect
// and auth.
func postConnectSetup(ctx context.Context, pgConn *pgconn.PgConn) error {
	_, err := pgConn.Exec(ctx, "SET TimeZone TO 'UTC'").ReadAll()
	return err
}
