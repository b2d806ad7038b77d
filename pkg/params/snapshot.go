package params

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/raykavin/chartsync/pkg/core"
)

// Snapshot is an immutable view of a subset of parameters. Two snapshots
// are equal iff they cover the same names with equal values.
type Snapshot struct {
	names  []string
	values map[string]any
	key    string
}

func newSnapshot(names []string, values map[string]any) Snapshot {
	sorted := append([]string(nil), names...)
	sort.Strings(sorted)

	var b strings.Builder
	for i, name := range sorted {
		if i > 0 {
			b.WriteByte(';')
		}
		b.WriteString(name)
		b.WriteByte('=')
		v, ok := values[name]
		if !ok {
			b.WriteString("<absent>")
			continue
		}
		b.WriteString(formatValue(v))
	}

	return Snapshot{names: sorted, values: values, key: b.String()}
}

// Key is a canonical string form: equal snapshots have equal keys.
func (s Snapshot) Key() string { return s.key }

func (s Snapshot) Equal(o Snapshot) bool { return s.key == o.key }

func (s Snapshot) Names() []string { return append([]string(nil), s.names...) }

func (s Snapshot) Get(name string) (any, bool) {
	v, ok := s.values[name]
	return v, ok
}

func (s Snapshot) Int(name string) (int, error) {
	v, ok := s.values[name]
	if !ok {
		return 0, &core.UnknownParameterError{Name: name}
	}
	n, ok := asInt(v)
	if !ok {
		return 0, &core.DomainError{Name: name, Value: v, Reason: "not an integer"}
	}
	return n, nil
}

func (s Snapshot) Float(name string) (float64, error) {
	v, ok := s.values[name]
	if !ok {
		return 0, &core.UnknownParameterError{Name: name}
	}
	f, ok := asFloat(v)
	if !ok {
		return 0, &core.DomainError{Name: name, Value: v, Reason: "not a number"}
	}
	return f, nil
}

func (s Snapshot) Bool(name string) (bool, error) {
	v, ok := s.values[name]
	if !ok {
		return false, &core.UnknownParameterError{Name: name}
	}
	b, ok := v.(bool)
	if !ok {
		return false, &core.DomainError{Name: name, Value: v, Reason: "not a bool"}
	}
	return b, nil
}

// Text returns name as a string; non-string values are formatted.
func (s Snapshot) Text(name string) (string, error) {
	v, ok := s.values[name]
	if !ok {
		return "", &core.UnknownParameterError{Name: name}
	}
	str, ok := v.(string)
	if !ok {
		return fmt.Sprint(v), nil
	}
	return str, nil
}

// IntOr returns the integer value of name, or def when it is absent.
func (s Snapshot) IntOr(name string, def int) int {
	if n, err := s.Int(name); err == nil {
		return n
	}
	return def
}

// Map returns a copy of the captured values.
func (s Snapshot) Map() map[string]any {
	out := make(map[string]any, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

func formatValue(v any) string {
	switch x := v.(type) {
	case float64:
		return "f:" + strconv.FormatFloat(x, 'g', -1, 64)
	case int:
		return "i:" + strconv.Itoa(x)
	case bool:
		return "b:" + strconv.FormatBool(x)
	case string:
		return "s:" + strconv.Quote(x)
	}
	return fmt.Sprintf("%T:%v", v, v)
}
