package env

import (
	"os"
	"regexp"
)

// placeholder matches {{name}}, {{$NAME}} and {{name:-fallback}}, with
// optional spaces inside the braces.
var placeholder = regexp.MustCompile(`\{\{\s*(\$?[A-Za-z_][A-Za-z0-9_.]*)\s*(?::-(.*?))?\s*\}\}`)

type WarnFunc func(format string, args ...any)

// Resolver expands placeholders in configuration values. A plain name is
// looked up in the variables from .env files; a $NAME reads the process
// environment. A placeholder that cannot be resolved and has no fallback is
// left in place.
type Resolver struct {
	vars map[string]string
	warn WarnFunc
}

func NewResolver(vars map[string]string) *Resolver {
	return &Resolver{vars: vars, warn: func(string, ...any) {}}
}

// SetWarnFunc is called once per unresolved placeholder during Resolve.
func (r *Resolver) SetWarnFunc(fn WarnFunc) {
	if fn != nil {
		r.warn = fn
	}
}

func (r *Resolver) lookup(name string) (string, bool) {
	if name[0] == '$' {
		v := os.Getenv(name[1:])
		return v, v != ""
	}
	v, ok := r.vars[name]
	return v, ok
}

func (r *Resolver) Resolve(input string) string {
	return placeholder.ReplaceAllStringFunc(input, func(match string) string {
		idx := placeholder.FindStringSubmatchIndex(match)
		name := match[idx[2]:idx[3]]
		if v, ok := r.lookup(name); ok {
			return v
		}
		if idx[4] >= 0 {
			return match[idx[4]:idx[5]]
		}
		if name[0] == '$' {
			r.warn("unresolved environment variable: %s", name)
		} else {
			r.warn("unresolved variable: %s", name)
		}
		return match
	})
}

// ResolveAll resolves every value of m into a new map.
func (r *Resolver) ResolveAll(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = r.Resolve(v)
	}
	return out
}

// Unresolved lists, in order, the placeholder names in input that Resolve
// would leave in place.
func (r *Resolver) Unresolved(input string) []string {
	var names []string
	for _, m := range placeholder.FindAllStringSubmatchIndex(input, -1) {
		name := input[m[2]:m[3]]
		if _, ok := r.lookup(name); ok || m[4] >= 0 {
			continue
		}
		names = append(names, name)
	}
	return names
}
