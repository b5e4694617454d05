package routing

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrBuild        = errors.New("routing: could not build url")
	ErrInvalidRoute = errors.New("routing: invalid route")
)

// BuildError is the routing miss: no route bound to Endpoint can be built
// from Values. It matches ErrBuild.
type BuildError struct {
	Endpoint string
	Values   Values
	Method   string
	Reason   string
}

func (e *BuildError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "routing: could not build url for endpoint %q", e.Endpoint)
	if e.Method != "" {
		fmt.Fprintf(&b, " (%s)", e.Method)
	}
	if len(e.Values) > 0 {
		keys := make([]string, 0, len(e.Values))
		for k := range e.Values {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fmt.Fprintf(&b, " with values [%s]", strings.Join(keys, ", "))
	}
	if e.Reason != "" {
		b.WriteString(": ")
		b.WriteString(e.Reason)
	}
	return b.String()
}

func (e *BuildError) Is(target error) bool {
	return target == ErrBuild
}
