package pg

import (
	"net/url"
	"strings"

	"github.com/polydb/pg/pgconn"
	"github.com/polydb/pg/pgerr"
)

// Config is the connector-level configuration map: an endpoint URI plus
// the handful of named keys the core itself reads (everything else is
// conninfo passthrough handled by pgconn.ParseConfig).
type Config struct {
	// EndpointURI overrides parts of the conninfo derived from the URI
	// passed to Connect.
	EndpointURI string

	// ConninfoExtra holds freeform passthrough keys; multi-valued entries
	// are CSV-joined and single-quoted when merged into the DSN.
	ConninfoExtra map[string][]string

	// NoticeProcessing, if set, receives server NOTICE messages.
	NoticeProcessing func(*pgconn.Notice)

	// UseSingleRowMode turns on single-row streaming for requests whose
	// Mult is ZeroOrMore (default false).
	UseSingleRowMode bool

	// TweaksVersion is set by Connect from its tweaksVersion argument
	// before connecting; it is not added to the conninfo string.
	TweaksVersion string

	// Tracer receives dispatcher lifecycle events; nil disables tracing.
	Tracer Tracer

	pgConnConfig *pgconn.Config
}

// conninfo renders the URI/host plus the merged passthrough settings into
// libpq conninfo form: if there are no extra settings and
// the URI has a host, the URI is passed through unchanged; otherwise every
// setting (including host and query params from the URI) is single-quoted
// (escaping \ and ') and space-joined.
func conninfo(rawURI string, extra map[string][]string) (string, error) {
	if len(extra) == 0 && hasHost(rawURI) {
		return rawURI, nil
	}

	settings := map[string][]string{}
	for k, v := range extra {
		settings[k] = append(settings[k], v...)
	}
	if host, ok := extractHost(rawURI); ok {
		settings["host"] = append([]string{host}, settings["host"]...)
	}
	if i := strings.Index(rawURI, "?"); i >= 0 {
		q, err := url.ParseQuery(rawURI[i+1:])
		if err != nil {
			return "", err
		}
		for k, vs := range q {
			settings[k] = append(settings[k], vs...)
		}
	}

	keys := make([]string, 0, len(settings))
	for k := range settings {
		keys = append(keys, k)
	}
	sortStrings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(quoteConninfoValue(strings.Join(settings[k], ",")))
	}
	return b.String(), nil
}

func quoteConninfoValue(v string) string {
	var b strings.Builder
	b.WriteByte('\'')
	for _, r := range v {
		if r == '\\' || r == '\'' {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	b.WriteByte('\'')
	return b.String()
}

func hasHost(rawURI string) bool {
	host, _ := extractHost(rawURI)
	return host != ""
}

func extractHost(rawURI string) (string, bool) {
	rest := rawURI
	if i := strings.Index(rest, "://"); i >= 0 {
		rest = rest[i+3:]
	}
	if i := strings.IndexAny(rest, "/?"); i >= 0 {
		rest = rest[:i]
	}
	if i := strings.LastIndex(rest, "@"); i >= 0 {
		rest = rest[i+1:]
	}
	if rest == "" {
		return "", false
	}
	return rest, true
}

func sortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

// resolveConninfo applies c's EndpointURI override and merges conninfo,
// returning the DSN pgconn.ParseConfig should receive.
func (c *Config) resolveConninfo(uri string) (string, error) {
	target := uri
	if c.EndpointURI != "" {
		target = c.EndpointURI
	}
	return conninfo(target, c.ConninfoExtra)
}

func (c *Config) toPGConnConfig() *pgconn.Config {
	return c.pgConnConfig
}

func (c *Config) buildPGConnConfig(uri string) error {
	dsn, err := c.resolveConninfo(uri)
	if err != nil {
		return pgerr.New(pgerr.LoadRejected, uri, "", err.Error())
	}
	cfg, err := pgconn.ParseConfig(dsn)
	if err != nil {
		return pgerr.Wrap(pgerr.ConnectFailed, uri, "", &pgerr.ConnectErrorMsg{Step: "parse", Err: err})
	}
	c.pgConnConfig = cfg
	return nil
}
