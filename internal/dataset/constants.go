package dataset

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Constants accessors. The flight constants table is a small immutable set
// of numeric values, arrays and keyed sub-tables supplied per flight.
// Lookups are explicit: a caller either requires a key or names a default.

// Const returns the raw constant under name.
func (d *Dataset) Const(name string) (any, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	v, ok := d.constants[name]
	return v, ok
}

// Float returns a required scalar constant.
func (d *Dataset) Float(name string) (float64, error) {
	v, ok := d.Const(name)
	if !ok {
		return 0, fmt.Errorf("constant not in dataset: %s", name)
	}
	f, ok := toFloat(v)
	if !ok {
		return 0, fmt.Errorf("constant %s is not numeric: %T", name, v)
	}
	return f, nil
}

// FloatOr returns a scalar constant, falling back to a designated default
// when the key is absent.
func (d *Dataset) FloatOr(name string, def float64) float64 {
	f, err := d.Float(name)
	if err != nil {
		return def
	}
	return f
}

// Floats returns a required array constant.
func (d *Dataset) Floats(name string) ([]float64, error) {
	v, ok := d.Const(name)
	if !ok {
		return nil, fmt.Errorf("constant not in dataset: %s", name)
	}
	return toFloats(v, name)
}

// String returns a required string constant.
func (d *Dataset) String(name string) (string, error) {
	v, ok := d.Const(name)
	if !ok {
		return "", fmt.Errorf("constant not in dataset: %s", name)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("constant %s is not a string: %T", name, v)
	}
	return s, nil
}

// StringOr returns a string constant with a designated default.
func (d *Dataset) StringOr(name, def string) string {
	s, err := d.String(name)
	if err != nil {
		return def
	}
	return s
}

// Strings returns a required string array constant.
func (d *Dataset) Strings(name string) ([]string, error) {
	v, ok := d.Const(name)
	if !ok {
		return nil, fmt.Errorf("constant not in dataset: %s", name)
	}
	raw, ok := v.([]any)
	if !ok {
		if ss, ok := v.([]string); ok {
			return ss, nil
		}
		return nil, fmt.Errorf("constant %s is not a string array: %T", name, v)
	}
	out := make([]string, len(raw))
	for i, e := range raw {
		s, ok := e.(string)
		if !ok {
			return nil, fmt.Errorf("constant %s[%d] is not a string: %T", name, i, e)
		}
		out[i] = s
	}
	return out, nil
}

// FloatMap returns a required keyed table of scalars.
func (d *Dataset) FloatMap(name string) (map[string]float64, error) {
	v, ok := d.Const(name)
	if !ok {
		return nil, fmt.Errorf("constant not in dataset: %s", name)
	}
	m, ok := toMap(v)
	if !ok {
		return nil, fmt.Errorf("constant %s is not a table: %T", name, v)
	}
	out := make(map[string]float64, len(m))
	for k, e := range m {
		f, ok := toFloat(e)
		if !ok {
			return nil, fmt.Errorf("constant %s[%s] is not numeric: %T", name, k, e)
		}
		out[k] = f
	}
	return out, nil
}

// FloatsMap returns a required keyed table of arrays.
func (d *Dataset) FloatsMap(name string) (map[string][]float64, error) {
	v, ok := d.Const(name)
	if !ok {
		return nil, fmt.Errorf("constant not in dataset: %s", name)
	}
	m, ok := toMap(v)
	if !ok {
		return nil, fmt.Errorf("constant %s is not a table: %T", name, v)
	}
	out := make(map[string][]float64, len(m))
	for k, e := range m {
		fs, err := toFloats(e, name+"."+k)
		if err != nil {
			return nil, err
		}
		out[k] = fs
	}
	return out, nil
}

// NestedFloatMap returns a required two-level keyed table of scalars.
func (d *Dataset) NestedFloatMap(name string) (map[string]map[string]float64, error) {
	v, ok := d.Const(name)
	if !ok {
		return nil, fmt.Errorf("constant not in dataset: %s", name)
	}
	m, ok := toMap(v)
	if !ok {
		return nil, fmt.Errorf("constant %s is not a table: %T", name, v)
	}
	out := make(map[string]map[string]float64, len(m))
	for k, e := range m {
		sub, ok := toMap(e)
		if !ok {
			return nil, fmt.Errorf("constant %s[%s] is not a table: %T", name, k, e)
		}
		inner := make(map[string]float64, len(sub))
		for kk, ee := range sub {
			f, ok := toFloat(ee)
			if !ok {
				return nil, fmt.Errorf("constant %s[%s][%s] is not numeric: %T", name, k, kk, ee)
			}
			inner[kk] = f
		}
		out[k] = inner
	}
	return out, nil
}

// SetConst installs or aliases one constant. Used by the vane-type channel
// remapping, which aliases old-naming-scheme calibration keys onto the
// roles of the newer wiring.
func (d *Dataset) SetConst(name string, v any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.constants[name] = v
}

// LoadConstantsYAML reads a flight constants file.
func LoadConstantsYAML(path string) (map[string]any, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read constants file: %w", err)
	}
	var out map[string]any
	if err := yaml.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("parse constants file: %w", err)
	}
	return out, nil
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	default:
		return 0, false
	}
}

func toFloats(v any, name string) ([]float64, error) {
	switch x := v.(type) {
	case []float64:
		return x, nil
	case []any:
		out := make([]float64, len(x))
		for i, e := range x {
			f, ok := toFloat(e)
			if !ok {
				return nil, fmt.Errorf("constant %s[%d] is not numeric: %T", name, i, e)
			}
			out[i] = f
		}
		return out, nil
	default:
		return nil, fmt.Errorf("constant %s is not an array: %T", name, v)
	}
}

func toMap(v any) (map[string]any, bool) {
	switch x := v.(type) {
	case map[string]any:
		return x, true
	default:
		return nil, false
	}
}
