package pipeline

import (
	"fmt"
	"sort"
	"strings"
)

// DataValue is a single named reading. Value holds a numeric or boolean payload.
type DataValue struct {
	Value  any
	Unit   string
	Labels map[string]string
}

// String renders the value with its unit, e.g. "13.20 V".
func (v DataValue) String() string {
	var s string
	switch x := v.Value.(type) {
	case float64:
		s = fmt.Sprintf("%.2f", x)
	case float32:
		s = fmt.Sprintf("%.2f", x)
	default:
		s = fmt.Sprint(x)
	}
	if v.Unit != "" {
		s += " " + v.Unit
	}
	return s
}

// Sample maps field names (e.g. "adc_vl_f", "ping") to their readings.
// Steps must treat a Sample they receive as read-only.
type Sample map[string]DataValue

// Strings returns the sample rendered as field → string, for log output.
func (s Sample) Strings() map[string]string {
	out := make(map[string]string, len(s))
	for k, v := range s {
		out[k] = v.String()
	}
	return out
}

// Keys returns the field names in sorted order.
func (s Sample) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Describe renders the sample as "k1=v1 k2=v2" with keys sorted.
func (s Sample) Describe() string {
	var b strings.Builder
	for i, k := range s.Keys() {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(s[k].String())
	}
	return b.String()
}
