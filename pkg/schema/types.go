package schema

import (
	"fmt"
	"reflect"

	"github.com/aretw0/weave/pkg/domain"
)

// Type checks that a value fits one port data type.
type Type interface {
	// Name is the data type name, e.g. "string" or "number".
	Name() string
	Validate(value any) error
}

// kindType is a built-in Type decided by the reflected kind of a value.
type kindType struct {
	dt    domain.DataType
	match func(reflect.Value) bool
}

func (k kindType) Name() string { return string(k.dt) }

func (k kindType) Validate(value any) error {
	if k.match == nil {
		return nil
	}
	if value == nil || !k.match(reflect.ValueOf(value)) {
		return fmt.Errorf("expected %s, got %T", k.dt, value)
	}
	return nil
}

func isNumber(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func kindIs(kinds ...reflect.Kind) func(reflect.Value) bool {
	return func(v reflect.Value) bool {
		for _, k := range kinds {
			if v.Kind() == k {
				return true
			}
		}
		return false
	}
}

// builtins holds one Type per port data type. Any has no matcher.
var builtins = map[domain.DataType]Type{
	domain.DataAny:     kindType{dt: domain.DataAny},
	domain.DataString:  kindType{dt: domain.DataString, match: kindIs(reflect.String)},
	domain.DataNumber:  kindType{dt: domain.DataNumber, match: isNumber},
	domain.DataBoolean: kindType{dt: domain.DataBoolean, match: kindIs(reflect.Bool)},
	domain.DataArray:   kindType{dt: domain.DataArray, match: kindIs(reflect.Slice, reflect.Array)},
	domain.DataObject: kindType{dt: domain.DataObject, match: func(v reflect.Value) bool {
		return v.Kind() == reflect.Map && v.Type().Key().Kind() == reflect.String
	}},
}

func Any() Type    { return builtins[domain.DataAny] }
func String() Type { return builtins[domain.DataString] }
func Number() Type { return builtins[domain.DataNumber] }
func Bool() Type   { return builtins[domain.DataBoolean] }
func Array() Type  { return builtins[domain.DataArray] }
func Object() Type { return builtins[domain.DataObject] }

type customType struct {
	name  string
	check func(any) error
}

func (c customType) Name() string             { return c.name }
func (c customType) Validate(value any) error { return c.check(value) }

// Custom returns a Type named name that delegates to validate.
func Custom(name string, validate func(any) error) Type {
	return customType{name: name, check: validate}
}

// ParseType resolves a port data type. An empty data type means any.
func ParseType(dt domain.DataType) (Type, error) {
	if dt == "" {
		dt = domain.DataAny
	}
	if t, ok := builtins[dt]; ok {
		return t, nil
	}
	return nil, fmt.Errorf("unsupported data type: %s", dt)
}
