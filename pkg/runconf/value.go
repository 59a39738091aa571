package runconf

import (
	"fmt"
	"strconv"
	"strings"
)

// Value is a single run-configuration value: either a scalar (number,
// boolean, string) or a list of scalars describing a discrete search-space
// choice. A bare key with no value is a boolean flag.
type Value struct {
	raw   string
	items []string
	list  bool
	flag  bool
}

func ScalarValue(s string) Value {
	return Value{raw: s}
}

func IntValue(i int) Value {
	return Value{raw: strconv.Itoa(i)}
}

func FloatValue(f float64) Value {
	return Value{raw: strconv.FormatFloat(f, 'g', -1, 64)}
}

func BoolValue(b bool) Value {
	if b {
		return Value{raw: "True"}
	}
	return Value{raw: "False"}
}

func FlagValue() Value {
	return Value{flag: true}
}

func ListValue(items []string) Value {
	return Value{items: items, list: true}
}

func IntListValue(vs []int) Value {
	items := make([]string, len(vs))
	for i, v := range vs {
		items[i] = strconv.Itoa(v)
	}
	return ListValue(items)
}

func (v Value) IsList() bool { return v.list }

func (v Value) IsFlag() bool { return v.flag }

// Str returns the scalar as a plain string, with surrounding quotes removed.
// For lists it returns the canonical bracketed form.
func (v Value) Str() string {
	if v.list {
		return v.String()
	}
	if v.flag {
		return "True"
	}
	return unquote(v.raw)
}

func (v Value) Int() (int, error) {
	if v.list {
		return 0, fmt.Errorf("value %s is a list, not an integer", v.String())
	}
	n, err := strconv.Atoi(v.Str())
	if err != nil {
		return 0, fmt.Errorf("invalid integer %q", v.raw)
	}
	return n, nil
}

func (v Value) Float() (float64, error) {
	if v.list {
		return 0, fmt.Errorf("value %s is a list, not a number", v.String())
	}
	f, err := strconv.ParseFloat(v.Str(), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", v.raw)
	}
	return f, nil
}

func (v Value) Bool() (bool, error) {
	if v.flag {
		return true, nil
	}
	if v.list {
		return false, fmt.Errorf("value %s is a list, not a boolean", v.String())
	}
	switch strings.ToLower(v.Str()) {
	case "true":
		return true, nil
	case "false":
		return false, nil
	}
	return false, fmt.Errorf("invalid boolean %q", v.raw)
}

func (v Value) Strings() []string {
	if !v.list {
		return []string{v.Str()}
	}
	out := make([]string, len(v.items))
	for i, it := range v.items {
		out[i] = unquote(it)
	}
	return out
}

func (v Value) Ints() ([]int, error) {
	items := v.Strings()
	out := make([]int, len(items))
	for i, it := range items {
		n, err := strconv.Atoi(it)
		if err != nil {
			return nil, fmt.Errorf("invalid integer %q in list", it)
		}
		out[i] = n
	}
	return out, nil
}

func (v Value) Floats() ([]float64, error) {
	items := v.Strings()
	out := make([]float64, len(items))
	for i, it := range items {
		f, err := strconv.ParseFloat(it, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q in list", it)
		}
		out[i] = f
	}
	return out, nil
}

// String renders the value as it appears in a configuration file.
func (v Value) String() string {
	if v.list {
		return "[" + strings.Join(v.items, ", ") + "]"
	}
	return v.raw
}

func unquote(s string) string {
	if len(s) >= 2 {
		if (s[0] == '\'' && s[len(s)-1] == '\'') || (s[0] == '"' && s[len(s)-1] == '"') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

// ParseBetas parses the adam-betas convention used by the run files,
// a quoted pair like '(0.9, 0.98)'.
func ParseBetas(s string) (float64, float64, error) {
	s = strings.TrimSpace(unquote(strings.TrimSpace(s)))
	if !strings.HasPrefix(s, "(") || !strings.HasSuffix(s, ")") {
		return 0, 0, fmt.Errorf("invalid betas %q: expected '(beta1, beta2)'", s)
	}
	parts := strings.Split(s[1:len(s)-1], ",")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid betas %q: expected two values", s)
	}
	b1, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid betas %q: %w", s, err)
	}
	b2, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid betas %q: %w", s, err)
	}
	return b1, b2, nil
}
