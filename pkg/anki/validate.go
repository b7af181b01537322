package anki

import (
	"encoding/json"
	"fmt"

	"github.com/japaniel/cardsmith/pkg/apierr"
)

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case json.Number, float64, int, int64:
		return "number"
	case string:
		return "string"
	case bool:
		return "boolean"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	}
	return fmt.Sprintf("%T", v)
}

func unexpectedType(location, expected string, v any) error {
	return apierr.Newf("Unexpected type at %s: expected %s, received %s", location, expected, typeName(v)).
		With("location", location).
		With("expected", expected).
		With("received", typeName(v))
}

func asArray(v any, location string, expectedLength int) ([]any, error) {
	arr, ok := v.([]any)
	if !ok {
		return nil, unexpectedType(location, "array", v)
	}
	if expectedLength >= 0 && len(arr) != expectedLength {
		return nil, apierr.Newf("Unexpected result array size: expected %d, received %d", expectedLength, len(arr)).
			With("expected", expectedLength).
			With("received", len(arr))
	}
	return arr, nil
}

func asObject(v any, location string) (map[string]any, error) {
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, unexpectedType(location, "object", v)
	}
	return obj, nil
}

func asInt64(v any, location string) (int64, error) {
	n, ok := v.(json.Number)
	if !ok {
		return 0, unexpectedType(location, "number", v)
	}
	i, err := n.Int64()
	if err != nil {
		f, ferr := n.Float64()
		if ferr != nil {
			return 0, unexpectedType(location, "number", v)
		}
		i = int64(f)
	}
	return i, nil
}

func asInt(v any, location string) (int, error) {
	i, err := asInt64(v, location)
	return int(i), err
}

func asString(v any, location string) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", unexpectedType(location, "string", v)
	}
	return s, nil
}

func asBool(v any, location string) (bool, error) {
	b, ok := v.(bool)
	if !ok {
		return false, unexpectedType(location, "boolean", v)
	}
	return b, nil
}

func asStringArray(v any, location string) ([]string, error) {
	arr, err := asArray(v, location, -1)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(arr))
	for i, item := range arr {
		if out[i], err = asString(item, fmt.Sprintf("%s[%d]", location, i)); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func asInt64Array(v any, location string, expectedLength int) ([]int64, error) {
	arr, err := asArray(v, location, expectedLength)
	if err != nil {
		return nil, err
	}
	out := make([]int64, len(arr))
	for i, item := range arr {
		if out[i], err = asInt64(item, fmt.Sprintf("%s[%d]", location, i)); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// nullableInt64 accepts a number or null.
func nullableInt64(v any, location string) (*int64, error) {
	if v == nil {
		return nil, nil
	}
	i, err := asInt64(v, location)
	if err != nil {
		return nil, unexpectedType(location, "number or null", v)
	}
	return &i, nil
}
