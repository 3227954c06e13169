package models

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Value is the optional string-or-number argument of an action.
type Value struct {
	raw     string
	set     bool
	numeric bool
}

func StringValue(s string) Value {
	return Value{raw: s, set: true}
}

func IntValue(n int) Value {
	return Value{raw: strconv.Itoa(n), set: true, numeric: true}
}

// IsSet reports whether the descriptor carried a value at all.
func (v Value) IsSet() bool { return v.set }

// IsEmpty is true for a missing value and for the empty string.
func (v Value) IsEmpty() bool { return !v.set || v.raw == "" }

func (v Value) IsNumeric() bool { return v.numeric }

func (v Value) String() string { return v.raw }

// IsZero lets yaml omitempty drop unset values.
func (v Value) IsZero() bool { return !v.set }

// Int parses the value as a whole number. Integral floats such as "500.0"
// are accepted.
func (v Value) Int() (int, error) {
	if !v.set {
		return 0, errors.New("value is not set")
	}
	s := strings.TrimSpace(v.raw)
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) || f >= math.MaxInt64 || f <= math.MinInt64 {
		return 0, errors.Errorf("value %q is not an integer", v.raw)
	}
	return int(f), nil
}

func (v Value) MarshalJSON() ([]byte, error) {
	if !v.set {
		return []byte("null"), nil
	}
	if v.numeric {
		return []byte(v.raw), nil
	}
	return json.Marshal(v.raw)
}

func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*v = Value{}
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = StringValue(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return errors.Errorf("value must be a string or a number, got %s", string(data))
	}
	*v = Value{raw: n.String(), set: true, numeric: true}
	return nil
}

func (v Value) MarshalYAML() (any, error) {
	if !v.set {
		return nil, nil
	}
	if v.numeric {
		return &yaml.Node{Kind: yaml.ScalarNode, Value: v.raw}, nil
	}
	return v.raw, nil
}

func (v *Value) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return errors.Errorf("line %d: value must be a string or a number", node.Line)
	}
	switch node.ShortTag() {
	case "!!null":
		*v = Value{}
	case "!!int", "!!float":
		*v = Value{raw: node.Value, set: true, numeric: true}
	default:
		*v = StringValue(node.Value)
	}
	return nil
}
