package event

// Data is the mutable key-value bag created fresh for every event and
// threaded through middleware, rules and the handler. Accessors return
// default values on missing keys or type mismatches so pipeline code
// can read enrichments without assertion boilerplate.
type Data map[string]any

// Merge copies all entries of other into the bag, overwriting on
// collision. A nil other is a no-op.
func (d Data) Merge(other map[string]any) {
	for k, v := range other {
		d[k] = v
	}
}

// Value returns the raw value for key and whether it was present.
func (d Data) Value(key string) (any, bool) {
	v, ok := d[key]
	return v, ok
}

// String returns the string value for key, or defaultVal if missing or
// not a string.
func (d Data) String(key, defaultVal string) string {
	if s, ok := d[key].(string); ok {
		return s
	}
	return defaultVal
}

// Int64 returns the integer value for key, or defaultVal if missing or
// not a recognized numeric type.
func (d Data) Int64(key string, defaultVal int64) int64 {
	switch v := d[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	default:
		return defaultVal
	}
}

// Bool returns the bool value for key, or defaultVal if missing or not
// a bool.
func (d Data) Bool(key string, defaultVal bool) bool {
	if b, ok := d[key].(bool); ok {
		return b
	}
	return defaultVal
}

// Strings returns the string-slice value for key, converting a []any
// of strings when needed, or defaultVal otherwise.
func (d Data) Strings(key string, defaultVal []string) []string {
	switch v := d[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return defaultVal
			}
			out = append(out, s)
		}
		return out
	default:
		return defaultVal
	}
}
