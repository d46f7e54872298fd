package canonical

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/big"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// Marshal produces the canonical encoding of a JSON-compatible value:
// object keys sorted lexicographically at every nesting level, arrays in
// index order, no insignificant whitespace. Two values that are equal after
// key reordering encode to the same bytes, so the output is usable both as
// a signing payload and as a replicated storage representation.
//
// Non-finite numbers, functions, channels and circular references are
// encoding errors, never silently skipped.
func Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := encode(&buf, v, map[uintptr]bool{}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encode(buf *bytes.Buffer, v any, seen map[uintptr]bool) error {
	switch x := v.(type) {
	case nil:
		buf.WriteString("null")
	case bool:
		buf.WriteString(strconv.FormatBool(x))
	case string:
		return encodeString(buf, x)
	case json.Number:
		// preserves the exact literal a client serialized
		buf.WriteString(string(x))
	case float32:
		return encodeFloat(buf, float64(x))
	case float64:
		return encodeFloat(buf, x)
	case int:
		buf.WriteString(strconv.FormatInt(int64(x), 10))
	case int8, int16, int32, int64:
		buf.WriteString(strconv.FormatInt(reflect.ValueOf(x).Int(), 10))
	case uint, uint8, uint16, uint32, uint64:
		buf.WriteString(strconv.FormatUint(reflect.ValueOf(x).Uint(), 10))
	case *big.Int:
		if x == nil {
			buf.WriteString("null")
		} else {
			buf.WriteString(x.String())
		}
	case map[string]any:
		return encodeObject(buf, x, seen)
	case []any:
		return encodeArray(buf, x, seen)
	default:
		return encodeOther(buf, v, seen)
	}
	return nil
}

func encodeObject(buf *bytes.Buffer, m map[string]any, seen map[uintptr]bool) error {
	ptr := reflect.ValueOf(m).Pointer()
	if seen[ptr] {
		return errors.New("cannot serialize circular references")
	}
	seen[ptr] = true

	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := encodeString(buf, k); err != nil {
			return err
		}
		buf.WriteByte(':')
		if err := encode(buf, m[k], seen); err != nil {
			return err
		}
	}
	buf.WriteByte('}')

	delete(seen, ptr)
	return nil
}

func encodeArray(buf *bytes.Buffer, a []any, seen map[uintptr]bool) error {
	if a != nil {
		ptr := reflect.ValueOf(a).Pointer()
		if seen[ptr] {
			return errors.New("cannot serialize circular references")
		}
		seen[ptr] = true
		defer delete(seen, ptr)
	}

	buf.WriteByte('[')
	for i, e := range a {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := encode(buf, e, seen); err != nil {
			return err
		}
	}
	buf.WriteByte(']')
	return nil
}

// encodeOther handles structs, typed maps and typed slices by round-tripping
// through encoding/json, then re-encoding canonically. json.Marshal already
// rejects funcs, channels and cyclic data.
func encodeOther(buf *bytes.Buffer, v any, seen map[uintptr]bool) error {
	switch reflect.ValueOf(v).Kind() {
	case reflect.Func, reflect.Chan, reflect.UnsafePointer, reflect.Complex64, reflect.Complex128:
		return fmt.Errorf("cannot serialize value of type %T", v)
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("cannot serialize value of type %T: %v", v, err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var plain any
	if err := dec.Decode(&plain); err != nil {
		return fmt.Errorf("cannot serialize value of type %T: %v", v, err)
	}
	return encode(buf, plain, seen)
}

func encodeString(buf *bytes.Buffer, s string) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	buf.Write(bytes.TrimRight(tmp.Bytes(), "\n"))
	return nil
}

func encodeFloat(buf *bytes.Buffer, f float64) error {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return errors.New("cannot serialize non-finite numbers")
	}
	abs := math.Abs(f)
	if f == 0 || (abs >= 1e-6 && abs < 1e21) {
		buf.WriteString(strconv.FormatFloat(f, 'f', -1, 64))
		return nil
	}
	// exponential range, without zero-padded exponents
	s := strconv.FormatFloat(f, 'e', -1, 64)
	if i := strings.IndexByte(s, 'e'); i >= 0 {
		mant, exp := s[:i], s[i+1:]
		sign := ""
		if exp[0] == '+' || exp[0] == '-' {
			sign, exp = string(exp[0]), exp[1:]
		}
		exp = strings.TrimLeft(exp, "0")
		if exp == "" {
			exp = "0"
		}
		s = mant + "e" + sign + exp
	}
	buf.WriteString(s)
	return nil
}
