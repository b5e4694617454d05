package routing

import (
	"net/url"
	"strconv"
	"strings"
)

// Reserved value keys carrying per-call build overrides.
const (
	KeyMethod   = "_method"
	KeyExternal = "_external"
	KeyScheme   = "_scheme"
	KeyAnchor   = "_anchor"
)

var reservedKeys = []string{KeyMethod, KeyExternal, KeyScheme, KeyAnchor}

// Values are the parameters of a URL build: path parameters first, the rest
// become the query string.
type Values map[string]string

func (v Values) Clone() Values {
	out := make(Values, len(v))
	for k, val := range v {
		out[k] = val
	}
	return out
}

// Overrides holds the reserved keys stripped from a Values set. The raw
// strings are kept so Attach restores exactly what Split removed.
type Overrides struct {
	raw map[string]string
}

// Split separates reserved override keys from values. values is not mutated.
func Split(values Values) (Overrides, Values) {
	rest := make(Values, len(values))
	var o Overrides
	for k, v := range values {
		if isReserved(k) {
			if o.raw == nil {
				o.raw = make(map[string]string, len(reservedKeys))
			}
			o.raw[k] = v
			continue
		}
		rest[k] = v
	}
	return o, rest
}

// Attach returns a copy of values with the overrides merged back in.
func (o Overrides) Attach(values Values) Values {
	out := values.Clone()
	for k, v := range o.raw {
		out[k] = v
	}
	return out
}

func (o Overrides) Empty() bool {
	return len(o.raw) == 0
}

// Method is the upper-cased method constraint, empty when unconstrained.
func (o Overrides) Method() string {
	return strings.ToUpper(strings.TrimSpace(o.raw[KeyMethod]))
}

func (o Overrides) External() bool {
	v, err := strconv.ParseBool(strings.TrimSpace(o.raw[KeyExternal]))
	return err == nil && v
}

func (o Overrides) Scheme() string {
	return strings.TrimSpace(o.raw[KeyScheme])
}

func (o Overrides) Anchor() string {
	return o.raw[KeyAnchor]
}

func isReserved(key string) bool {
	for _, k := range reservedKeys {
		if k == key {
			return true
		}
	}
	return false
}

func encodeQuery(values Values) string {
	if len(values) == 0 {
		return ""
	}
	q := make(url.Values, len(values))
	for k, v := range values {
		q.Set(k, v)
	}
	return q.Encode()
}
