package response

import (
	"bytes"
	"encoding"
	"encoding/json"
	"math"
	"reflect"
	"strconv"
	"strings"
	"unsafe"
)

// EncodeJSON encodes v without escaping '/', '<', '>' or '&' and with
// non-ASCII characters left as is. Floats with an integral value keep their
// fraction ("1.0"). indent selects four-space indentation.
func EncodeJSON(v any, indent bool) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if indent {
		enc.SetIndent("", "    ")
	}
	if err := enc.Encode(preserveFloats(reflect.ValueOf(v))); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

var (
	jsonMarshalerType = reflect.TypeFor[json.Marshaler]()
	textMarshalerType = reflect.TypeFor[encoding.TextMarshaler]()
)

// preserveFloats rewrites the value tree so floats are emitted as
// json.Number literals. Types with their own marshaling are left intact.
func preserveFloats(v reflect.Value) any {
	if !v.IsValid() {
		return nil
	}
	if v.Type().Implements(jsonMarshalerType) || v.Type().Implements(textMarshalerType) {
		if (v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface) && v.IsNil() {
			return nil
		}
		return v.Interface()
	}

	switch v.Kind() {
	case reflect.Pointer, reflect.Interface:
		if v.IsNil() {
			return nil
		}
		return preserveFloats(v.Elem())
	case reflect.Float32, reflect.Float64:
		return floatNumber(v.Float(), v.Type().Bits())
	case reflect.Map:
		if v.IsNil() {
			return nil
		}
		out := make(map[string]any, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			key, ok := mapKey(iter.Key())
			if !ok {
				return v.Interface()
			}
			out[key] = preserveFloats(iter.Value())
		}
		return out
	case reflect.Slice:
		if v.IsNil() {
			return nil
		}
		if v.Type().Elem().Kind() == reflect.Uint8 {
			return v.Interface()
		}
		fallthrough
	case reflect.Array:
		out := make([]any, v.Len())
		for i := range out {
			out[i] = preserveFloats(v.Index(i))
		}
		return out
	case reflect.Struct:
		obj := &object{}
		obj.addFields(v, 0)
		return obj
	default:
		return v.Interface()
	}
}

// mapKey formats a map key the way encoding/json does. Unsupported key
// kinds report false so the caller hands the map to the encoder, which
// returns the error.
func mapKey(k reflect.Value) (string, bool) {
	if k.Kind() == reflect.String {
		return k.String(), true
	}
	if k.CanInterface() {
		if tm, ok := k.Interface().(encoding.TextMarshaler); ok {
			if k.Kind() == reflect.Pointer && k.IsNil() {
				return "", true
			}
			b, err := tm.MarshalText()
			if err != nil {
				return "", false
			}
			return string(b), true
		}
	}
	switch k.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(k.Int(), 10), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(k.Uint(), 10), true
	}
	return "", false
}

// object is a JSON object that keeps struct field order.
type object struct {
	members []member
}

type member struct {
	key    string
	value  any
	depth  int
	tagged bool
}

// addFields collects exported fields following json tag names, "-",
// omitempty and string. Untagged embedded structs are flattened whether or
// not the embedded type is exported.
func (o *object) addFields(v reflect.Value, depth int) {
	if !v.CanAddr() {
		c := reflect.New(v.Type()).Elem()
		c.Set(v)
		v = c
	}
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("json")
		if tag == "-" {
			continue
		}
		name, opts, _ := strings.Cut(tag, ",")

		ft := field.Type
		if ft.Kind() == reflect.Pointer {
			ft = ft.Elem()
		}
		if field.Anonymous {
			if !field.IsExported() && ft.Kind() != reflect.Struct {
				continue
			}
		} else if !field.IsExported() {
			continue
		}

		fv := exposed(v.Field(i))
		if field.Anonymous && name == "" && ft.Kind() == reflect.Struct {
			if fv.Kind() == reflect.Pointer {
				if fv.IsNil() {
					continue
				}
				fv = exposed(fv.Elem())
			}
			o.addFields(fv, depth+1)
			continue
		}

		tagged := name != ""
		if name == "" {
			name = field.Name
		}
		if hasOption(opts, "omitempty") && isEmpty(fv) {
			continue
		}
		m := member{key: name, depth: depth, tagged: tagged}
		if hasOption(opts, "string") && quotable(field.Type) {
			m.value = quoted(fv)
		} else {
			m.value = preserveFloats(fv)
		}
		o.members = append(o.members, m)
	}
}

// exposed returns v readable through Interface. Fields reached through an
// unexported embedded struct are read-only in reflect even when exported.
func exposed(v reflect.Value) reflect.Value {
	if v.CanInterface() || !v.CanAddr() {
		return v
	}
	return reflect.NewAt(v.Type(), unsafe.Pointer(v.UnsafeAddr())).Elem()
}

// dominant drops members hidden by a shallower field of the same name. At
// equal depth a single tagged field wins; otherwise all of them are dropped.
func (o *object) dominant() []member {
	out := make([]member, 0, len(o.members))
	for i, m := range o.members {
		keep := true
		for j, other := range o.members {
			if i == j || other.key != m.key {
				continue
			}
			if other.depth < m.depth || other.depth == m.depth && (other.tagged || !m.tagged) {
				keep = false
				break
			}
		}
		if keep {
			out = append(out, m)
		}
	}
	return out
}

// MarshalJSON implements json.Marshaler.
func (o *object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, m := range o.dominant() {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := encodeCompact(m.key)
		if err != nil {
			return nil, err
		}
		val, err := encodeCompact(m.value)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// quotable reports whether the string option applies to t.
func quotable(t reflect.Type) bool {
	if t.Implements(jsonMarshalerType) || t.Implements(textMarshalerType) {
		return false
	}
	if t.Name() == "" && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

// quoted encodes a scalar inside a JSON string.
func quoted(v reflect.Value) any {
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}
	switch v.Kind() {
	case reflect.String:
		b, err := encodeCompact(v.String())
		if err != nil {
			return v.String()
		}
		return string(b)
	case reflect.Bool:
		return strconv.FormatBool(v.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(v.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(v.Uint(), 10)
	default:
		if n, ok := floatNumber(v.Float(), v.Type().Bits()).(json.Number); ok {
			return n.String()
		}
		return v.Float()
	}
}

func encodeCompact(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

func hasOption(opts, want string) bool {
	for opts != "" {
		var opt string
		opt, opts, _ = strings.Cut(opts, ",")
		if opt == want {
			return true
		}
	}
	return false
}

func isEmpty(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Array, reflect.Map, reflect.Slice, reflect.String:
		return v.Len() == 0
	case reflect.Bool, reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Interface, reflect.Pointer:
		return v.IsZero()
	}
	return false
}

// floatNumber formats f the way encoding/json does and appends ".0" to
// integral values. NaN and infinities are passed on so the encoder rejects
// them.
func floatNumber(f float64, bits int) any {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return f
	}
	format := byte('f')
	if abs := math.Abs(f); abs != 0 && (bits == 64 && (abs < 1e-6 || abs >= 1e21) || bits == 32 && (float32(abs) < 1e-6 || float32(abs) >= 1e21)) {
		format = 'e'
	}
	s := strconv.FormatFloat(f, format, -1, bits)
	if format == 'e' {
		// 1e-07 becomes 1e-7.
		if n := len(s); n >= 4 && s[n-4] == 'e' && s[n-3] == '-' && s[n-2] == '0' {
			s = s[:n-2] + s[n-1:]
		}
	}
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return json.Number(s)
}
