package pg

import "strings"

// Query is a query template: a tree of literal fragments, quoted string
// literals, positional parameter references and environment references,
// built by a template-expansion layer external to this package and
// handed to the dispatcher through Request.Template.
//
// Env expansion must leave no Env nodes once final=true; the
// dispatcher calls Render with final=true immediately before send, so a
// template that still needs an environment value at that point is a bug
// in the caller, not in pg.
type Query interface {
	render(b *strings.Builder, nextParam *int, final bool) error
}

// Lit is a literal SQL fragment inserted verbatim.
type Lit string

func (l Lit) render(b *strings.Builder, _ *int, _ bool) error {
	b.WriteString(string(l))
	return nil
}

// Quoted is a string literal; it is single-quoted and has embedded quotes
// doubled, as in a standard SQL string literal.
type Quoted string

func (q Quoted) render(b *strings.Builder, _ *int, _ bool) error {
	b.WriteByte('\'')
	for _, r := range string(q) {
		if r == '\'' {
			b.WriteByte('\'')
		}
		b.WriteRune(r)
	}
	b.WriteByte('\'')
	return nil
}

// P is a 0-indexed reference to the i-th parameter. It renders as the
// server's 1-indexed positional placeholder ($1, $2, ...).
type P int

func (p P) render(b *strings.Builder, nextParam *int, _ bool) error {
	b.WriteByte('$')
	b.WriteString(itoa(int(p) + 1))
	if int(p)+1 > *nextParam {
		*nextParam = int(p) + 1
	}
	return nil
}

// E is a reference to an environment value, resolved by Render's env map
// before a query may be sent. A template that still contains an E node
// after final expansion is rejected.
type E string

func (e E) render(b *strings.Builder, _ *int, final bool) error {
	if final {
		return errTemplate("unresolved environment reference " + string(e))
	}
	b.WriteString("${" + string(e) + "}")
	return nil
}

// S is a sequence of sub-templates concatenated in order.
type S []Query

func (s S) render(b *strings.Builder, nextParam *int, final bool) error {
	for _, q := range s {
		if err := q.render(b, nextParam, final); err != nil {
			return err
		}
	}
	return nil
}

// Render expands q against env, returning the literal query text the
// dispatcher sends and the highest positional placeholder number it
// rendered (the largest P index plus one, or 0 if none). final must be true for any query actually sent to the
// server; it is false only while the template layer is still assembling
// a query from fragments that reference a not-yet-bound environment.
func Render(q Query, env map[string]string, final bool) (string, int, error) {
	var b strings.Builder
	nextParam := 0
	if err := renderWithEnv(q, env, &b, &nextParam, final); err != nil {
		return "", 0, err
	}
	return b.String(), nextParam, nil
}

func renderWithEnv(q Query, env map[string]string, b *strings.Builder, nextParam *int, final bool) error {
	if e, ok := q.(E); ok {
		if v, found := env[string(e)]; found {
			b.WriteString(v)
			return nil
		}
		return e.render(b, nextParam, final)
	}
	if s, ok := q.(S); ok {
		for _, sub := range s {
			if err := renderWithEnv(sub, env, b, nextParam, final); err != nil {
				return err
			}
		}
		return nil
	}
	return q.render(b, nextParam, final)
}

type templateError string

func (e templateError) Error() string { return string(e) }

func errTemplate(msg string) error { return templateError(msg) }

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
