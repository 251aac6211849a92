package protocol

// ArgKind is the declared type of a command argument.
type ArgKind int

const (
	ArgNumber ArgKind = iota
	ArgString
	ArgNumbers
	ArgStrings
)

func (k ArgKind) String() string {
	switch k {
	case ArgNumber:
		return "number"
	case ArgString:
		return "string"
	case ArgNumbers:
		return "number[]"
	case ArgStrings:
		return "string[]"
	default:
		return "unknown"
	}
}

// Args is the argument map of a Request. Values arrive from different
// decoders (JSON gives float64 and []any, CBOR gives sized integers), so the
// accessors accept every numeric and list representation those produce.
type Args map[string]any

// Has reports whether key is present, whatever its value.
func (a Args) Has(key string) bool {
	_, ok := a[key]
	return ok
}

// Is reports whether key is present and holds a value of kind.
func (a Args) Is(key string, kind ArgKind) bool {
	switch kind {
	case ArgNumber:
		_, ok := a.Number(key)
		return ok
	case ArgString:
		_, ok := a.String(key)
		return ok
	case ArgNumbers:
		_, ok := a.Numbers(key)
		return ok
	case ArgStrings:
		_, ok := a.Strings(key)
		return ok
	}
	return false
}

// Number returns a numeric argument as float64.
func (a Args) Number(key string) (float64, bool) {
	v, ok := a[key]
	if !ok {
		return 0, false
	}
	return toNumber(v)
}

// Int returns a numeric argument truncated toward zero.
func (a Args) Int(key string) (int, bool) {
	f, ok := a.Number(key)
	if !ok {
		return 0, false
	}
	return int(f), true
}

// String returns a string argument.
func (a Args) String(key string) (string, bool) {
	s, ok := a[key].(string)
	return s, ok
}

// Numbers returns a list of numbers. Every element must be numeric.
func (a Args) Numbers(key string) ([]float64, bool) {
	switch v := a[key].(type) {
	case []float64:
		return v, true
	case []int:
		out := make([]float64, len(v))
		for i, n := range v {
			out[i] = float64(n)
		}
		return out, true
	case []any:
		out := make([]float64, len(v))
		for i, e := range v {
			n, ok := toNumber(e)
			if !ok {
				return nil, false
			}
			out[i] = n
		}
		return out, true
	}
	return nil, false
}

// Strings returns a list of strings. Every element must be a string.
func (a Args) Strings(key string) ([]string, bool) {
	switch v := a[key].(type) {
	case []string:
		return v, true
	case []any:
		out := make([]string, len(v))
		for i, e := range v {
			s, ok := e.(string)
			if !ok {
				return nil, false
			}
			out[i] = s
		}
		return out, true
	}
	return nil, false
}

func toNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}
