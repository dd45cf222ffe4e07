package model

import (
	"fmt"
	"strconv"
	"strings"
)

// ValueType converts between persisted text and typed content.
type ValueType interface {
	// Name identifies the type in messages.
	Name() string

	// Decode parses text into content.
	Decode(text string) (any, error)

	// Encode renders content as text.
	Encode(v any) (string, error)
}

// Built-in value types.
var (
	String  ValueType = stringType{}
	Integer ValueType = integerType{}
	Boolean ValueType = booleanType{}
	Decimal ValueType = decimalType{}
)

type stringType struct{}

func (stringType) Name() string                    { return "string" }
func (stringType) Decode(text string) (any, error) { return text, nil }
func (stringType) Encode(v any) (string, error)    { return fmt.Sprint(v), nil }

type integerType struct{}

func (integerType) Name() string { return "integer" }

func (integerType) Decode(text string) (any, error) {
	return strconv.ParseInt(strings.TrimSpace(text), 10, 64)
}

func (integerType) Encode(v any) (string, error) {
	switch n := v.(type) {
	case int:
		return strconv.Itoa(n), nil
	case int64:
		return strconv.FormatInt(n, 10), nil
	case int32:
		return strconv.FormatInt(int64(n), 10), nil
	default:
		return "", fmt.Errorf("%w: %T is not an integer", ErrIllegalArgument, v)
	}
}

type booleanType struct{}

func (booleanType) Name() string { return "boolean" }

func (booleanType) Decode(text string) (any, error) {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "true", "yes", "on", "1":
		return true, nil
	case "false", "no", "off", "0":
		return false, nil
	}
	return nil, fmt.Errorf("not a boolean: %q", text)
}

func (booleanType) Encode(v any) (string, error) {
	b, ok := v.(bool)
	if !ok {
		return "", fmt.Errorf("%w: %T is not a boolean", ErrIllegalArgument, v)
	}
	return strconv.FormatBool(b), nil
}

type decimalType struct{}

func (decimalType) Name() string { return "decimal" }

func (decimalType) Decode(text string) (any, error) {
	return strconv.ParseFloat(strings.TrimSpace(text), 64)
}

func (decimalType) Encode(v any) (string, error) {
	f, ok := v.(float64)
	if !ok {
		return "", fmt.Errorf("%w: %T is not a decimal", ErrIllegalArgument, v)
	}
	return strconv.FormatFloat(f, 'f', -1, 64), nil
}

// EnumType accepts a fixed set of values, compared case-insensitively.
// Decoding yields the canonical spelling.
type EnumType struct {
	name   string
	values []string
}

// Enum creates an enumeration value type.
func Enum(name string, values ...string) *EnumType {
	return &EnumType{name: name, values: values}
}

// Name returns the enumeration name.
func (e *EnumType) Name() string { return e.name }

// Values returns the canonical values.
func (e *EnumType) Values() []string {
	out := make([]string, len(e.values))
	copy(out, e.values)
	return out
}

// Decode returns the canonical value matching text.
func (e *EnumType) Decode(text string) (any, error) {
	for _, v := range e.values {
		if strings.EqualFold(v, strings.TrimSpace(text)) {
			return v, nil
		}
	}
	return nil, fmt.Errorf("%q is not one of %s", text, strings.Join(e.values, ", "))
}

// Encode renders a value of the enumeration.
func (e *EnumType) Encode(v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: %T is not a string", ErrIllegalArgument, v)
	}
	decoded, err := e.Decode(s)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrIllegalArgument, err)
	}
	return decoded.(string), nil
}
