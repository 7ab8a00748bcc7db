package schema

import (
	"maps"
	"slices"
)

// Field describes one config entry.
type Field struct {
	Type     Type
	Required bool
}

// Schema maps config keys to the field they must hold.
type Schema map[string]Field

// Validate checks data against s, prefixing every reported path with prefix.
// Keys the schema does not mention pass through untouched. Problems are
// reported in key order so output is stable between runs.
func Validate(s Schema, data map[string]any, prefix string) error {
	var found problems
	for _, name := range slices.Sorted(maps.Keys(s)) {
		field := s[name]
		value := data[name]
		if value == nil {
			if field.Required {
				found.add(prefix+name, "required", nil)
			}
			continue
		}
		if err := field.Type.Validate(value); err != nil {
			found.add(prefix+name, err.Error(), value)
		}
	}
	return found.err()
}
