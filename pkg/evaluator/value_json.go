package evaluator

import (
	"encoding/json"
	"fmt"
	"math"
)

// ValueToJSON marshals a Value to JSON bytes.
// Numbers output integers without decimal point. Functions and non-finite
// numbers have no JSON form and are written as their printed string.
func ValueToJSON(v Value) ([]byte, error) {
	return json.Marshal(valueToRaw(v))
}

func valueToRaw(v Value) any {
	switch val := v.(type) {
	case nil, Nil:
		return nil

	case Bool:
		return val.Value

	case Number:
		if math.IsInf(val.Value, 0) || math.IsNaN(val.Value) {
			return Stringify(val)
		}
		// Output integers without decimal point
		if val.Value == math.Trunc(val.Value) && val.Value >= -(1<<63) && val.Value < (1<<63) {
			return int64(val.Value)
		}
		return val.Value

	case String:
		return val.Value

	case *Closure:
		return val.String()
	}

	return nil
}

// ValueToJSONString is a convenience that returns a string.
func ValueToJSONString(v Value) string {
	b, err := ValueToJSON(v)
	if err != nil {
		return "null"
	}
	return string(b)
}

// EnvToJSON marshals the bindings of a single scope as a JSON object with
// keys in sorted order.
func EnvToJSON(env *Env) ([]byte, error) {
	snap := env.Snapshot()
	out := make(map[string]any, len(snap))
	for name, v := range snap {
		out[name] = valueToRaw(v)
	}
	// encoding/json sorts map keys.
	return json.MarshalIndent(out, "", "  ")
}

// ParseJSONToValue converts a JSON scalar to a Value. Arrays and objects
// have no slox counterpart and are rejected.
func ParseJSONToValue(data json.RawMessage) (Value, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	return anyToValue(raw)
}

func anyToValue(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return NewNil(), nil
	case bool:
		return NewBool(val), nil
	case float64:
		return NewNumber(val), nil
	case string:
		return NewString(val), nil
	}
	return nil, fmt.Errorf("unsupported JSON value of type %T", v)
}
