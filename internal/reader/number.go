package reader

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Number holds a numeric field that venues send either as a JSON number or
// as a string. Decoding never fails so one odd field cannot reject a frame.
type Number struct {
	raw     string
	present bool
}

// NumberOf wraps a string field that was already decoded.
func NumberOf(s string) Number {
	s = strings.TrimSpace(s)
	return Number{raw: s, present: s != ""}
}

func (n *Number) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || bytes.Equal(b, []byte("null")):
		*n = Number{}
	case b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			*n = Number{raw: string(b), present: true}
			return nil
		}
		*n = NumberOf(s)
	default:
		*n = Number{raw: string(b), present: true}
	}
	return nil
}

// Present reports whether the field carried a non-empty value.
func (n Number) Present() bool { return n.present }

func (n Number) String() string { return n.raw }

// Float parses the value and rejects NaN and infinities.
func (n Number) Float() (float64, bool) {
	if !n.present {
		return 0, false
	}
	v, err := strconv.ParseFloat(n.raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// Ptr returns the parsed value or nil when absent or invalid.
func (n Number) Ptr() *float64 {
	v, ok := n.Float()
	if !ok {
		return nil
	}
	return &v
}

// Int parses an integer millisecond style value. Zero means unusable.
func (n Number) Int() int64 {
	if !n.present {
		return 0
	}
	if v, err := strconv.ParseInt(n.raw, 10, 64); err == nil {
		return v
	}
	if v, ok := n.Float(); ok {
		return int64(v)
	}
	return 0
}

// PickRate applies rate precedence. The first present candidate is used;
// when it is not a finite number the message is rejected and later
// candidates are not consulted.
func PickRate(candidates ...Number) (float64, bool) {
	for _, c := range candidates {
		if c.Present() {
			return c.Float()
		}
	}
	return 0, false
}
