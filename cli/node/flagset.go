package node

import (
	"time"
)

// FlagSet is a serializable flag set implementation. It allows to pack the
// flags coming from a CLI application and send them to a daemon.
//
// - implements cli.Flags
type FlagSet map[string]interface{}

// String implements cli.Flags. It returns the string associated with the flag
// name if it is set, otherwise it returns an empty string.
func (fset FlagSet) String(name string) string {
	switch v := fset[name].(type) {
	case string:
		return v
	default:
		return ""
	}
}

// StringSlice implements cli.Flags. It returns the slice of strings associated
// with the flag name if it is set, otherwise it returns nil.
func (fset FlagSet) StringSlice(name string) []string {
	switch v := fset[name].(type) {
	case []string:
		return v
	case []interface{}:
		values := make([]string, 0, len(v))
		for _, elem := range v {
			str, ok := elem.(string)
			if ok {
				values = append(values, str)
			}
		}

		return values
	default:
		return nil
	}
}

// Duration implements cli.Flags. It returns the duration associated with the
// flag name if it is set, otherwise it returns zero.
func (fset FlagSet) Duration(name string) time.Duration {
	switch v := fset[name].(type) {
	case float64:
		return time.Duration(v)
	default:
		return 0
	}
}

// Path implements cli.Flags. It returns the path associated with the flag name
// if it is set, otherwise it returns an empty string.
func (fset FlagSet) Path(name string) string {
	switch v := fset[name].(type) {
	case string:
		return v
	default:
		return ""
	}
}

// Int implements cli.Flags. It returns the integer associated with the flag if
// it is set, otherwise it returns zero. A flag set decoded from JSON holds
// numbers as floats, which are accepted when they have no fractional part.
func (fset FlagSet) Int(name string) int {
	switch v := fset[name].(type) {
	case int:
		return v
	case float64:
		if v != float64(int(v)) {
			return 0
		}

		return int(v)
	default:
		return 0
	}
}

// Bool implements cli.Flags. It returns the boolean associated with the flag if
// it is set, otherwise it returns false.
func (fset FlagSet) Bool(name string) bool {
	switch v := fset[name].(type) {
	case bool:
		return v
	default:
		return false
	}
}
