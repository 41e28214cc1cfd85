// Package sanitize converts arbitrary caller-supplied values into trees the
// wire codec is guaranteed to encode. Classification is structural, not
// nominal: values are dispatched on what they can do (read bytes, hold
// key/value pairs, iterate) rather than on their declared type, so payloads
// from any framework can be passed through unchanged.
package sanitize

import (
	"fmt"
	"reflect"

	"github.com/drblury/oplog/internal/runtime/jsoncodec"
)

// FileLike is the capability probe for open file handles: anything that can
// read bytes and report a name. *os.File satisfies it, as do most upload
// wrappers. Matching values are replaced by a reference record; file
// contents are never inlined into an event.
type FileLike interface {
	Read(p []byte) (n int, err error)
	Name() string
}

// Value returns a structurally equivalent copy of v containing only
// JSON-representable leaves: strings, numbers, booleans, nil, and nested
// mappings/sequences thereof. It never panics and never fails; values the
// codec rejects degrade to their string form. Input must be acyclic; there
// is no cycle detection. No ordering is guaranteed between mapping keys.
//
// Value is idempotent: applying it to its own output yields a structurally
// equal tree.
func Value(v any) any {
	return field(v, "")
}

// Field sanitizes v like Value, recording fieldName in any file reference
// produced at the top level.
func Field(v any, fieldName string) any {
	return field(v, fieldName)
}

func field(v any, name string) any {
	if v == nil {
		return nil
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer && rv.IsNil() {
		// Typed nil pointers would otherwise satisfy capability probes and
		// blow up on method calls.
		return nil
	}

	if f, ok := v.(FileLike); ok {
		return fileRef(f, name)
	}

	switch rv.Kind() {
	case reflect.Pointer:
		return field(rv.Elem().Interface(), name)

	case reflect.Map:
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			key := mapKey(iter.Key())
			out[key] = field(iter.Value().Interface(), key)
		}
		return out

	case reflect.Slice, reflect.Array:
		// Byte slices are scalars, not sequences; the codec encodes them
		// directly.
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			break
		}
		out := make([]any, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			out = append(out, field(rv.Index(i).Interface(), name))
		}
		return out

	case reflect.Chan, reflect.Func, reflect.UnsafePointer:
		return fmt.Sprint(v)
	}

	if jsoncodec.Encodable(v) {
		return v
	}
	return fmt.Sprint(v)
}

func fileRef(f FileLike, fieldName string) map[string]any {
	return map[string]any{
		"file_ref": map[string]any{
			"name":  f.Name(),
			"field": fieldName,
			"type":  "file_reference",
		},
	}
}

func mapKey(k reflect.Value) string {
	if k.Kind() == reflect.String {
		return k.String()
	}
	return fmt.Sprint(k.Interface())
}

// Mapping sanitizes every value of m, preserving keys. A nil map yields an
// empty, non-nil map so the encoded record always carries a mapping.
func Mapping(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for key, value := range m {
		out[key] = field(value, key)
	}
	return out
}
