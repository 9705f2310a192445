// Package pgxpool implements the connection pool: a
// capacity/idle/use-count-bounded pool of *pg.Conn built on top of
// puddle.Pool for the slot bookkeeping, with the driver-capability gating,
// validation and use-count eviction policy layered on top — puddle itself
// knows nothing about idle caps or use counts.
package pgxpool

import (
	"context"
	"fmt"

	"github.com/jackc/puddle/v2"

	"github.com/polydb/pg"
)

const defaultMaxUseCount = 100

// driver-default sizes used when neither MaxSize nor MaxIdleSize is set.
const (
	driverDefaultMaxSize     = 4
	driverDefaultMaxIdleSize = 2
)

// Options configures a new Pool. Connect is mandatory; a nil Disconnect
// closes the connection, and Validate and Check are optional.
type Options struct {
	MaxSize     *int32
	MaxIdleSize *int32
	MaxUseCount int32 // 0 means defaultMaxUseCount

	Connect    func(ctx context.Context) (*pg.Conn, error)
	Disconnect func(conn *pg.Conn)
	Validate   func(ctx context.Context, conn *pg.Conn) error
	Check      func(conn *pg.Conn) bool
}

// slot is the value puddle.Pool manages: the live connection plus the
// use count its eviction policy tracks.
type slot struct {
	conn     *pg.Conn
	useCount int32
}

// Pool is the opaque handle New returns.
type Pool struct {
	p           *puddle.Pool[*slot]
	maxIdleSize int32
	maxUseCount int32
	validate    func(ctx context.Context, conn *pg.Conn) error
	check       func(conn *pg.Conn) bool
}

// Conn is an acquired pool entry. Release returns it to the pool (or
// disconnects it, per the idle/use-count rules) exactly once.
type Conn struct {
	pool     *Pool
	res      *puddle.Resource[*slot]
	released bool
}

// Underlying returns the acquired *pg.Conn.
func (c *Conn) Underlying() *pg.Conn { return c.res.Value().conn }

// Release returns c to the pool: if the
// entry's use count is still under MaxUseCount and the pool has fewer
// than MaxIdleSize idle entries, it is kept idle; otherwise it is
// disconnected.
func (c *Conn) Release() {
	if c.released {
		return
	}
	c.released = true

	s := c.res.Value()
	if s.useCount >= c.pool.maxUseCount || c.pool.p.Stat().IdleResources() >= c.pool.maxIdleSize {
		c.res.Destroy()
		return
	}
	c.res.Release()
}

// New creates a pool: it resolves MaxSize/MaxIdleSize
// against info's can_concur/can_pool gating, then wraps a puddle.Pool
// sized accordingly.
func New(ctx context.Context, opts Options, info pg.DriverInfo) (*Pool, error) {
	maxSize, maxIdleSize, err := resolveSizes(opts.MaxSize, opts.MaxIdleSize, info)
	if err != nil {
		return nil, err
	}

	maxUseCount := opts.MaxUseCount
	if maxUseCount == 0 {
		maxUseCount = defaultMaxUseCount
	}

	connect := opts.Connect
	disconnect := opts.Disconnect
	if disconnect == nil {
		disconnect = func(conn *pg.Conn) { _ = conn.Close(context.Background()) }
	}

	puddlePool, err := puddle.NewPool(&puddle.Config[*slot]{
		Constructor: func(ctx context.Context) (*slot, error) {
			conn, err := connect(ctx)
			if err != nil {
				return nil, err
			}
			return &slot{conn: conn}, nil
		},
		Destructor: func(s *slot) { disconnect(s.conn) },
		MaxSize:    maxSize,
	})
	if err != nil {
		return nil, err
	}

	return &Pool{
		p:           puddlePool,
		maxIdleSize: maxIdleSize,
		maxUseCount: maxUseCount,
		validate:    opts.Validate,
		check:       opts.Check,
	}, nil
}

// resolveSizes applies the argument rules and driver-capability gating table.
func resolveSizes(reqMaxSize, reqMaxIdleSize *int32, info pg.DriverInfo) (maxSize, maxIdleSize int32, err error) {
	switch {
	case reqMaxSize == nil && reqMaxIdleSize == nil:
		maxSize, maxIdleSize = driverDefaultMaxSize, driverDefaultMaxIdleSize
	case reqMaxSize != nil && reqMaxIdleSize == nil:
		if *reqMaxSize < 0 {
			return 0, 0, fmt.Errorf("pgxpool: max_size must be >= 0")
		}
		maxSize = *reqMaxSize
		maxIdleSize = maxSize
	case reqMaxSize == nil && reqMaxIdleSize != nil:
		return 0, 0, fmt.Errorf("pgxpool: max_idle_size cannot be set without max_size")
	default:
		maxSize = *reqMaxSize
		maxIdleSize = *reqMaxIdleSize
		if maxIdleSize < 0 || maxIdleSize > maxSize {
			return 0, 0, fmt.Errorf("pgxpool: max_idle_size must satisfy 0 <= max_idle_size <= max_size")
		}
	}

	switch {
	case info.CanConcur && info.CanPool:
		// requested sizes stand.
	case info.CanConcur && !info.CanPool:
		maxIdleSize = 0
	case !info.CanConcur && info.CanPool && maxIdleSize == 0:
		maxSize, maxIdleSize = 1, 0
	case !info.CanConcur && info.CanPool:
		maxSize, maxIdleSize = 1, 1
	case !info.CanConcur && !info.CanPool:
		maxSize, maxIdleSize = 1, 0
	}
	return maxSize, maxIdleSize, nil
}

// Acquire returns an idle entry after Validate, synthesizing a fresh
// connection if validation fails. Callers
// above MaxSize block until a slot frees up — puddle.Pool.Acquire already
// provides that queuing.
func (p *Pool) Acquire(ctx context.Context) (*Conn, error) {
	for {
		res, err := p.p.Acquire(ctx)
		if err != nil {
			return nil, err
		}

		s := res.Value()
		if p.validate != nil && res.IdleDuration() > 0 {
			if verr := p.validate(ctx, s.conn); verr != nil {
				res.Destroy()
				continue
			}
		}

		s.useCount++
		return &Conn{pool: p, res: res}, nil
	}
}

// Check invokes k with whether conn currently looks usable — delegated
// to the caller-supplied Check function if one was configured.
func (p *Pool) Check(conn *pg.Conn, k func(ok bool)) {
	if p.check != nil {
		k(p.check(conn))
		return
	}
	conn.Check(k)
}

// Stat exposes the live pool statistics (outstanding/idle counts) so
// callers can verify occupancy stays within bounds.
func (p *Pool) Stat() Stat {
	s := p.p.Stat()
	return Stat{
		MaxSize:           s.MaxResources(),
		AcquiredResources: s.AcquiredResources(),
		IdleResources:     s.IdleResources(),
	}
}

// Drain closes every idle entry; entries currently in use are closed on
// their next Release instead.
func (p *Pool) Drain() {
	p.p.Close()
}
