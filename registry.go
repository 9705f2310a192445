package pg

import (
	"context"
	"strings"
	"sync"

	"github.com/polydb/pg/pgerr"
)

// Driver is the per-scheme capability bag: a connect function plus the
// info the pool and the connection dispatcher need to gate behavior. The
// registry below is process-wide and grows monotonically — connections
// never remove a driver once registered.
type Driver interface {
	Info() DriverInfo
	Connect(ctx context.Context, cfg *Config, uri string) (*Conn, error)
}

var (
	registryMu sync.Mutex
	registry   = map[string]Driver{}
)

// RegisterDriver installs d under scheme. Re-registering the same scheme
// replaces the previous entry; this is normally only done once, by the
// package implementing the driver, via an init function.
func RegisterDriver(scheme string, d Driver) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[scheme] = d
}

func init() {
	RegisterDriver("postgresql", postgresDriver{})
	RegisterDriver("postgres", postgresDriver{})
}

// loadDriver resolves uri's scheme to a registered Driver. Discovery
// beyond the in-process registry (dynamic loading of a driver package) is
// left to the caller; Discover, if set, is given one chance per unknown
// scheme before loadDriver gives up.
var Discover func(scheme string) (Driver, bool)

func loadDriver(uri string) (Driver, error) {
	scheme, ok := uriScheme(uri)
	if !ok {
		return nil, pgerr.New(pgerr.LoadRejected, uri, "", "Missing URI scheme.")
	}

	registryMu.Lock()
	d, ok := registry[scheme]
	registryMu.Unlock()
	if ok {
		return d, nil
	}

	if Discover != nil {
		if d, ok := Discover(scheme); ok {
			RegisterDriver(scheme, d)
			return d, nil
		}
	}
	return nil, pgerr.New(pgerr.LoadRejected, uri, "", "no driver registered for scheme "+scheme)
}

// DriverInfoFor resolves uri's scheme and returns the driver's
// capabilities, the information pgxpool.New needs for its gating table
// before it constructs a single connection.
func DriverInfoFor(uri string) (DriverInfo, error) {
	d, err := loadDriver(uri)
	if err != nil {
		return DriverInfo{}, err
	}
	return d.Info(), nil
}

func uriScheme(uri string) (string, bool) {
	i := strings.Index(uri, "://")
	if i <= 0 {
		return "", false
	}
	return uri[:i], true
}
