package pg

import "context"

// Connect resolves uri's scheme to a driver, applies tweaksVersion into
// cfg, and opens a connection. cfg may be nil, in which case a zero
// Config is used.
func Connect(ctx context.Context, cfg *Config, tweaksVersion string, uri string) (*Conn, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	if tweaksVersion != "" {
		cfg.TweaksVersion = tweaksVersion
	}

	d, err := loadDriver(uri)
	if err != nil {
		return nil, err
	}
	return d.Connect(ctx, cfg, uri)
}

// WithConnection acquires a connection, runs f, and guarantees Close on
// every exit path, including a panic unwinding through f.
func WithConnection(ctx context.Context, cfg *Config, uri string, f func(*Conn) error) (err error) {
	conn, err := Connect(ctx, cfg, "", uri)
	if err != nil {
		return err
	}
	defer func() {
		p := recover()
		closeErr := conn.Close(ctx)
		if p != nil {
			panic(p)
		}
		if err == nil {
			err = closeErr
		}
	}()
	err = f(conn)
	return err
}
