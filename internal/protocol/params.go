package protocol

import "fmt"

// Params holds a request's parameter object. JSON numbers arrive as
// float64; getters normalize the numeric types handlers care about.
type Params map[string]interface{}

// Str returns a required string parameter.
func (p Params) Str(key string) (string, error) {
	v, ok := p[key]
	if !ok {
		return "", fmt.Errorf("missing param: %s", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("param %s must be a string", key)
	}
	return s, nil
}

// OptStr returns a string parameter or def when absent.
func (p Params) OptStr(key, def string) string {
	if s, ok := p[key].(string); ok {
		return s
	}
	return def
}

// Bytes returns a required base64-encoded binary parameter, decoded.
func (p Params) Bytes(key string) ([]byte, error) {
	s, err := p.Str(key)
	if err != nil {
		return nil, err
	}
	return Decode64(s)
}

// Int64 returns a required integer parameter.
func (p Params) Int64(key string) (int64, error) {
	v, ok := p[key]
	if !ok {
		return 0, fmt.Errorf("missing param: %s", key)
	}
	n, ok := toInt64(v)
	if !ok {
		return 0, fmt.Errorf("param %s must be an integer", key)
	}
	return n, nil
}

// OptInt64 returns an integer parameter and whether it was present.
func (p Params) OptInt64(key string) (int64, bool) {
	v, ok := p[key]
	if !ok {
		return 0, false
	}
	n, ok := toInt64(v)
	return n, ok
}

// ID returns a required request-id parameter.
func (p Params) ID(key string) (uint64, error) {
	n, err := p.Int64(key)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("param %s must be a request id", key)
	}
	return uint64(n), nil
}

// OptBool returns a boolean parameter or def when absent.
func (p Params) OptBool(key string, def bool) bool {
	if b, ok := p[key].(bool); ok {
		return b
	}
	return def
}

// OptStrSlice returns a list-of-strings parameter, empty when absent.
func (p Params) OptStrSlice(key string) []string {
	raw, ok := p[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// List returns a required array parameter.
func (p Params) List(key string) ([]interface{}, error) {
	v, ok := p[key]
	if !ok {
		return nil, fmt.Errorf("missing param: %s", key)
	}
	l, ok := v.([]interface{})
	if !ok {
		return nil, fmt.Errorf("param %s must be an array", key)
	}
	return l, nil
}

func toInt64(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case float64:
		return int64(n), true
	case int64:
		return n, true
	case int:
		return int64(n), true
	case uint64:
		return int64(n), true
	}
	return 0, false
}
