package wire

import (
	"errors"
	"fmt"
	"math"

	"google.golang.org/protobuf/types/known/structpb"
)

// ErrInvalidField is returned when a document field has an unexpected type.
var ErrInvalidField = errors.New("invalid field")

// fieldReader reads typed fields from a struct and remembers the first type error.
type fieldReader struct {
	// fields are the struct fields being read.
	fields map[string]*structpb.Value
	// err is the first error met.
	err error
}

// newFieldReader creates a reader over s. A nil struct reads as empty.
func newFieldReader(s *structpb.Struct) *fieldReader {
	return &fieldReader{
		fields: s.GetFields(),
	}
}

// fail records the first type error.
func (r *fieldReader) fail(key, want string) {
	if r.err == nil {
		r.err = fmt.Errorf("%w %q: want %s", ErrInvalidField, key, want)
	}
}

// present reports whether key holds a non-null value.
func (r *fieldReader) present(key string) bool {
	v, ok := r.fields[key]
	if !ok || v == nil {
		return false
	}

	_, isNull := v.GetKind().(*structpb.Value_NullValue)

	return !isNull
}

// text reads a string field. Missing fields read as "".
func (r *fieldReader) text(key string) string {
	if !r.present(key) {
		return ""
	}

	v, ok := r.fields[key].GetKind().(*structpb.Value_StringValue)
	if !ok {
		r.fail(key, "string")

		return ""
	}

	return v.StringValue
}

// number reads a numeric field. Missing fields read as 0.
func (r *fieldReader) number(key string) float64 {
	if !r.present(key) {
		return 0
	}

	v, ok := r.fields[key].GetKind().(*structpb.Value_NumberValue)
	if !ok {
		r.fail(key, "number")

		return 0
	}

	return v.NumberValue
}

// counter reads a non-negative whole number.
func (r *fieldReader) counter(key string) uint64 {
	n := r.number(key)
	if n < 0 || n != math.Trunc(n) {
		r.fail(key, "non-negative integer")

		return 0
	}

	return uint64(n)
}

// flag reads a boolean field. Missing fields read as false.
func (r *fieldReader) flag(key string) bool {
	if !r.present(key) {
		return false
	}

	v, ok := r.fields[key].GetKind().(*structpb.Value_BoolValue)
	if !ok {
		r.fail(key, "bool")

		return false
	}

	return v.BoolValue
}

// list reads a list field. Missing fields read as nil.
func (r *fieldReader) list(key string) []*structpb.Value {
	if !r.present(key) {
		return nil
	}

	v, ok := r.fields[key].GetKind().(*structpb.Value_ListValue)
	if !ok {
		r.fail(key, "list")

		return nil
	}

	return v.ListValue.GetValues()
}

// structs converts list items to structs, failing on other kinds.
func structs(key string, values []*structpb.Value) ([]*structpb.Struct, error) {
	result := make([]*structpb.Struct, 0, len(values))

	for i, v := range values {
		s := v.GetStructValue()
		if s == nil {
			return nil, fmt.Errorf("%w %s[%d]: want object", ErrInvalidField, key, i)
		}

		result = append(result, s)
	}

	return result, nil
}
