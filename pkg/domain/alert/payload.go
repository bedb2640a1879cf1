package alert

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// NormalizePayload returns a deep copy of payload in the shape it has after
// a JSON round trip through the alert store. Integral numbers become int64,
// other numbers float64, objects map[string]any and arrays []any. Strings
// are cloned so the copy never aliases a caller's buffers.
func NormalizePayload(payload map[string]any) map[string]any {
	out := make(map[string]any, len(payload))
	for k, v := range payload {
		out[strings.Clone(k)] = normalizeValue(v)
	}
	return out
}

// Decode parses a stored alert, keeping integral payload numbers as int64.
func Decode(data []byte) (*SecurityAlert, error) {
	var a SecurityAlert
	if err := decodeJSON(data, &a); err != nil {
		return nil, err
	}
	a.Payload = NormalizePayload(a.Payload)
	return &a, nil
}

func decodeJSON(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}

func normalizeValue(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		return strings.Clone(t)
	case bool:
		return t
	case json.Number:
		return normalizeNumber(t)
	case int:
		return int64(t)
	case int8:
		return int64(t)
	case int16:
		return int64(t)
	case int32:
		return int64(t)
	case int64:
		return t
	case uint:
		return normalizeUint(uint64(t))
	case uint8:
		return int64(t)
	case uint16:
		return int64(t)
	case uint32:
		return int64(t)
	case uint64:
		return normalizeUint(t)
	case float64:
		return normalizeFloat(t)
	case map[string]any:
		return NormalizePayload(t)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = normalizeValue(item)
		}
		return out
	default:
		return roundTrip(t)
	}
}

func normalizeNumber(n json.Number) any {
	if i, err := n.Int64(); err == nil {
		return i
	}
	if f, err := n.Float64(); err == nil {
		return normalizeFloat(f)
	}
	return n.String()
}

func normalizeUint(u uint64) any {
	if u > math.MaxInt64 {
		return float64(u)
	}
	return int64(u)
}

func normalizeFloat(f float64) any {
	if f == math.Trunc(f) && f >= math.MinInt64 && f < math.MaxInt64 {
		return int64(f)
	}
	return f
}

// roundTrip handles every other type (structs, typed slices and maps,
// time.Time, float32) by encoding it the way the store would.
func roundTrip(v any) any {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	var decoded any
	if err := decodeJSON(data, &decoded); err != nil {
		return string(data)
	}
	return normalizeValue(decoded)
}
