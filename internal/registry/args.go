package registry

import (
	"github.com/gulsumgudukbay/schnetpack-OOD/common/errors"
)

// Args holds the constructor arguments of a configuration fragment. Values
// arrive as whatever the YAML decoder produced, so the accessors normalize
// the usual numeric shapes.
type Args map[string]interface{}

func (a Args) String(key, def string) string {
	v, ok := a[key]
	if !ok || v == nil {
		return def
	}
	s, ok := v.(string)
	if !ok {
		return def
	}
	return s
}

func (a Args) Int(key string, def int) int {
	v, ok := a[key]
	if !ok || v == nil {
		return def
	}
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return def
}

func (a Args) Float(key string, def float64) float64 {
	v, ok := a[key]
	if !ok || v == nil {
		return def
	}
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	}
	return def
}

func (a Args) Bool(key string, def bool) bool {
	v, ok := a[key]
	if !ok || v == nil {
		return def
	}
	b, ok := v.(bool)
	if !ok {
		return def
	}
	return b
}

// IntList decodes a YAML sequence of numbers. Nil entries are kept as zeros
// so callers that treat zero as a no-op sentinel see them as such.
func (a Args) IntList(key string) ([]int, error) {
	v, ok := a[key]
	if !ok || v == nil {
		return nil, nil
	}
	seq, ok := v.([]interface{})
	if !ok {
		return nil, errors.Errorf("argument %q is not a list", key)
	}
	out := make([]int, 0, len(seq))
	for _, item := range seq {
		switch n := item.(type) {
		case nil:
			out = append(out, 0)
		case int:
			out = append(out, n)
		case int64:
			out = append(out, int(n))
		case float64:
			out = append(out, int(n))
		default:
			return nil, errors.Errorf("argument %q contains non-numeric entry %v", key, item)
		}
	}
	return out, nil
}
