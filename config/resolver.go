package config

import (
	"os"
	"regexp"

	"github.com/google/uuid"

	"github.com/gulsumgudukbay/schnetpack-OOD/common/errors"
)

// Placeholder marks a required value the user must supply.
const Placeholder = "???"

var placeholderPattern = regexp.MustCompile(`\$\{([a-z_]+)\}`)

type ResolverFunc func() (string, error)

// ResolverRegistry maps interpolation names like ${uuid} to value producers.
// It is passed explicitly into Load; nothing is registered process-wide.
type ResolverRegistry struct {
	resolvers map[string]ResolverFunc
}

func NewResolverRegistry() *ResolverRegistry {
	return &ResolverRegistry{resolvers: make(map[string]ResolverFunc)}
}

func (r *ResolverRegistry) Register(name string, fn ResolverFunc) {
	r.resolvers[name] = fn
}

func (r *ResolverRegistry) Resolve(name string) (string, error) {
	fn, ok := r.resolvers[name]
	if !ok {
		return "", errors.Errorf("unknown config resolver %q", name)
	}
	return fn()
}

// DefaultResolvers returns a registry with the stock resolvers: ${uuid}
// yields a fresh time-based id per use, ${tmpdir} yields one temporary
// directory cached for the lifetime of the registry, i.e. per run.
func DefaultResolvers() *ResolverRegistry {
	r := NewResolverRegistry()
	r.Register("uuid", func() (string, error) {
		id, err := uuid.NewUUID()
		if err != nil {
			return "", err
		}
		return id.String(), nil
	})

	var tmpdir string
	r.Register("tmpdir", func() (string, error) {
		if tmpdir != "" {
			return tmpdir, nil
		}
		dir, err := os.MkdirTemp("", "run")
		if err != nil {
			return "", err
		}
		tmpdir = dir
		return tmpdir, nil
	})
	return r
}

// resolveValue expands every ${name} occurrence in a string value.
func resolveValue(s string, reg *ResolverRegistry) (string, error) {
	var resolveErr error
	out := placeholderPattern.ReplaceAllStringFunc(s, func(match string) string {
		name := placeholderPattern.FindStringSubmatch(match)[1]
		v, err := reg.Resolve(name)
		if err != nil {
			if resolveErr == nil {
				resolveErr = err
			}
			return match
		}
		return v
	})
	return out, resolveErr
}

// resolveTree walks a decoded YAML tree and expands placeholders in every
// string leaf, returning a new tree. The input is left untouched so the
// unresolved form can still be persisted.
func resolveTree(node interface{}, reg *ResolverRegistry) (interface{}, error) {
	switch v := node.(type) {
	case string:
		return resolveValue(v, reg)
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for k, child := range v {
			resolved, err := resolveTree(child, reg)
			if err != nil {
				return nil, err
			}
			out[k] = resolved
		}
		return out, nil
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, child := range v {
			resolved, err := resolveTree(child, reg)
			if err != nil {
				return nil, err
			}
			out[i] = resolved
		}
		return out, nil
	default:
		return node, nil
	}
}
