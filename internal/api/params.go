package api

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"time"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// MastoOptionsKey is the reserved parameter that carries per-call retry
// overrides. It is removed before the request is encoded.
const MastoOptionsKey = "masto_options"

// File is a binary parameter value. Any File in a parameter bag switches the
// request body to multipart/form-data.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// RetryOptions overrides the client retry policy for a single call when stored
// under MastoOptionsKey. Zero fields fall back to the client policy.
type RetryOptions struct {
	MaxRetries int
	RetryDelay time.Duration
}

// Params is an insertion-ordered parameter bag. The zero value and a nil
// *Params are both valid empty bags for reading.
type Params struct {
	m *orderedmap.OrderedMap[string, any]
}

// NewParams returns an empty parameter bag.
func NewParams() *Params {
	return &Params{m: orderedmap.New[string, any]()}
}

// Set stores value under key, keeping the original position for existing keys.
func (p *Params) Set(key string, value any) *Params {
	if p.m == nil {
		p.m = orderedmap.New[string, any]()
	}
	p.m.Set(key, value)
	return p
}

// Get returns the value stored under key.
func (p *Params) Get(key string) (any, bool) {
	if p == nil || p.m == nil {
		return nil, false
	}
	return p.m.Get(key)
}

// Delete removes key from the bag.
func (p *Params) Delete(key string) {
	if p == nil || p.m == nil {
		return
	}
	p.m.Delete(key)
}

// Len returns the number of entries.
func (p *Params) Len() int {
	if p == nil || p.m == nil {
		return 0
	}
	return p.m.Len()
}

// Keys returns the keys in insertion order.
func (p *Params) Keys() []string {
	keys := make([]string, 0, p.Len())
	p.each(func(k string, _ any) {
		keys = append(keys, k)
	})
	return keys
}

// Clone returns a copy of the bag. Values are shared, entries are not.
func (p *Params) Clone() *Params {
	out := NewParams()
	p.each(func(k string, v any) {
		out.m.Set(k, v)
	})
	return out
}

// MarshalJSON encodes the bag as a JSON object in insertion order.
func (p *Params) MarshalJSON() ([]byte, error) {
	if p == nil || p.m == nil {
		return []byte("{}"), nil
	}
	return p.m.MarshalJSON()
}

// UnmarshalJSON decodes a JSON object, keeping key order.
func (p *Params) UnmarshalJSON(data []byte) error {
	m := orderedmap.New[string, any]()
	if err := m.UnmarshalJSON(data); err != nil {
		return err
	}
	p.m = m
	return nil
}

func (p *Params) each(fn func(key string, value any)) {
	if p == nil || p.m == nil {
		return
	}
	for pair := p.m.Oldest(); pair != nil; pair = pair.Next() {
		fn(pair.Key, pair.Value)
	}
}

func (p *Params) hasFile() bool {
	found := false
	p.each(func(_ string, v any) {
		switch v.(type) {
		case File, *File:
			found = true
		}
	})
	return found
}

// takeRetryOptions removes MastoOptionsKey from the bag and returns the
// overrides it held.
func (p *Params) takeRetryOptions() (RetryOptions, error) {
	raw, ok := p.Get(MastoOptionsKey)
	if !ok {
		return RetryOptions{}, nil
	}
	p.Delete(MastoOptionsKey)

	switch v := raw.(type) {
	case nil:
		return RetryOptions{}, nil
	case RetryOptions:
		return v, nil
	case *RetryOptions:
		if v == nil {
			return RetryOptions{}, nil
		}
		return *v, nil
	case map[string]any:
		var opts RetryOptions
		if n, ok := v["maxRetries"]; ok {
			f, err := toFloat(n)
			if err != nil {
				return RetryOptions{}, fmt.Errorf("%s.maxRetries: %w", MastoOptionsKey, err)
			}
			opts.MaxRetries = int(f)
		}
		if n, ok := v["retryDelay"]; ok {
			f, err := toFloat(n)
			if err != nil {
				return RetryOptions{}, fmt.Errorf("%s.retryDelay: %w", MastoOptionsKey, err)
			}
			opts.RetryDelay = time.Duration(f * float64(time.Millisecond))
		}
		return opts, nil
	default:
		return RetryOptions{}, fmt.Errorf("%s: unsupported value of type %T", MastoOptionsKey, raw)
	}
}

// truthy reports whether v counts as a present value for path substitution.
func truthy(v any) bool {
	if v == nil {
		return false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String:
		return rv.Len() > 0
	case reflect.Bool:
		return rv.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() != 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return rv.Uint() != 0
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		return f != 0 && !math.IsNaN(f)
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return !rv.IsNil()
	}
	return true
}

// formatValue renders a scalar parameter value as text.
func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case fmt.Stringer:
		return x.String()
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case []byte:
		return string(x)
	}
	return fmt.Sprint(v)
}

// listValues returns the elements of a slice or array value. Byte slices are
// treated as scalars.
func listValues(v any) ([]any, bool) {
	if v == nil {
		return nil, false
	}
	if _, ok := v.([]byte); ok {
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

func toFloat(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case string:
		return strconv.ParseFloat(x, 64)
	case fmt.Stringer:
		return strconv.ParseFloat(x.String(), 64)
	}
	return 0, fmt.Errorf("expected a number, got %T", v)
}
