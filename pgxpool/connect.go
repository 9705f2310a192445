package pgxpool

import (
	"context"

	"github.com/polydb/pg"
)

// ConnectOptions configures NewFromURI's pool. PostConnect, if set, is
// chained after pg.Connect and its error propagated, so the pool's
// connect closure runs any caller-supplied post-connect step.
type ConnectOptions struct {
	Config      *pg.Config
	MaxSize     *int32
	MaxIdleSize *int32
	MaxUseCount int32
	PostConnect func(ctx context.Context, conn *pg.Conn) error
}

// NewFromURI resolves uri's driver once to learn its capabilities for the
// gating table, then builds
// a Pool whose Connect closure opens a fresh pg.Conn (running PostConnect
// if supplied), whose Validate calls pg.Conn.Validate, and whose
// Disconnect calls pg.Conn.Close.
func NewFromURI(ctx context.Context, uri string, opts ConnectOptions) (*Pool, error) {
	info, err := pg.DriverInfoFor(uri)
	if err != nil {
		return nil, err
	}

	connect := func(ctx context.Context) (*pg.Conn, error) {
		conn, err := pg.Connect(ctx, opts.Config, "", uri)
		if err != nil {
			return nil, err
		}
		if opts.PostConnect != nil {
			if err := opts.PostConnect(ctx, conn); err != nil {
				_ = conn.Close(ctx)
				return nil, err
			}
		}
		return conn, nil
	}

	return New(ctx, Options{
		MaxSize:     opts.MaxSize,
		MaxIdleSize: opts.MaxIdleSize,
		MaxUseCount: opts.MaxUseCount,
		Connect:     connect,
		Disconnect:  func(conn *pg.Conn) { _ = conn.Close(context.Background()) },
		Validate:    func(ctx context.Context, conn *pg.Conn) error { return conn.Validate(ctx) },
	}, info)
}
