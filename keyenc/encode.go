// Package keyenc turns structured cache keys into stable byte sequences.
//
// A key is an arbitrarily nested structure built from a closed set of shapes:
// nil, booleans, strings, signed and unsigned integers, floats, byte blobs,
// sequences ([]any) and mappings (map[string]any or map[any]any). Two
// logically equal keys encode to identical bytes regardless of process,
// platform, or map insertion order; anything outside the permitted set is
// rejected rather than encoded on a best-effort basis.
package keyenc

import (
	"fmt"
	"math"
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

// encMode is the shared deterministic CBOR encoder. Canonical mode sorts
// mapping keys by their encoded bytes, so map iteration order never leaks
// into the output.
var encMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic("keyenc: cbor encode mode: " + err.Error())
	}
	encMode = em
}

// Encode serializes key into its canonical byte form.
//
// Integers are widened to 64 bits before encoding, so int32(7) and uint8(7)
// encode identically; integers and floats remain distinct types. NaN floats
// are rejected because they have no logical equality. Returns
// ErrUnsupportedKeyType for values outside the permitted set and
// ErrCircularKey for self-referencing structures.
func Encode(key any) ([]byte, error) {
	norm, err := normalize(key, make(map[uintptr]struct{}))
	if err != nil {
		return nil, err
	}
	data, err := encMode.Marshal(norm)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedKeyType, err)
	}
	return data, nil
}

// normalize validates v against the permitted key shapes and widens numeric
// types so logically equal values share one representation. seen tracks the
// backing pointers of containers on the current path to detect cycles.
func normalize(v any, seen map[uintptr]struct{}) (any, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case bool, string:
		return val, nil
	case int:
		return int64(val), nil
	case int8:
		return int64(val), nil
	case int16:
		return int64(val), nil
	case int32:
		return int64(val), nil
	case int64:
		return val, nil
	case uint:
		return normalizeUint(uint64(val)), nil
	case uint8:
		return int64(val), nil
	case uint16:
		return int64(val), nil
	case uint32:
		return int64(val), nil
	case uint64:
		return normalizeUint(val), nil
	case float32:
		return normalizeFloat(float64(val))
	case float64:
		return normalizeFloat(val)
	case []byte:
		return val, nil
	case []any:
		return normalizeSlice(val, seen)
	case map[string]any:
		return normalizeStringMap(val, seen)
	case map[any]any:
		return normalizeAnyMap(val, seen)
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedKeyType, v)
	}
}

// normalizeUint keeps unsigned values in int64 form when they fit, so
// signed and unsigned spellings of the same number share one normalized
// representation (CBOR encodes both identically either way, but a shared
// form also keeps normalized mapping keys free of duplicates).
func normalizeUint(u uint64) any {
	if u <= math.MaxInt64 {
		return int64(u)
	}
	return u
}

func normalizeFloat(f float64) (any, error) {
	if math.IsNaN(f) {
		return nil, fmt.Errorf("%w: NaN has no logical equality", ErrUnsupportedKeyType)
	}
	return f, nil
}

func normalizeSlice(s []any, seen map[uintptr]struct{}) (any, error) {
	if len(s) == 0 {
		return []any{}, nil
	}
	ptr := reflect.ValueOf(s).Pointer()
	if _, ok := seen[ptr]; ok {
		return nil, ErrCircularKey
	}
	seen[ptr] = struct{}{}
	defer delete(seen, ptr)

	out := make([]any, len(s))
	for i, elem := range s {
		norm, err := normalize(elem, seen)
		if err != nil {
			return nil, err
		}
		out[i] = norm
	}
	return out, nil
}

func normalizeStringMap(m map[string]any, seen map[uintptr]struct{}) (any, error) {
	ptr := reflect.ValueOf(m).Pointer()
	if _, ok := seen[ptr]; ok {
		return nil, ErrCircularKey
	}
	seen[ptr] = struct{}{}
	defer delete(seen, ptr)

	out := make(map[string]any, len(m))
	for k, elem := range m {
		norm, err := normalize(elem, seen)
		if err != nil {
			return nil, err
		}
		out[k] = norm
	}
	return out, nil
}

func normalizeAnyMap(m map[any]any, seen map[uintptr]struct{}) (any, error) {
	ptr := reflect.ValueOf(m).Pointer()
	if _, ok := seen[ptr]; ok {
		return nil, ErrCircularKey
	}
	seen[ptr] = struct{}{}
	defer delete(seen, ptr)

	out := make(map[any]any, len(m))
	for k, elem := range m {
		// Go map keys are comparable, so normalize can only yield a scalar
		// here; containers and other shapes are rejected by the type switch.
		normKey, err := normalize(k, seen)
		if err != nil {
			return nil, err
		}
		normVal, err := normalize(elem, seen)
		if err != nil {
			return nil, err
		}
		out[normKey] = normVal
	}
	return out, nil
}
