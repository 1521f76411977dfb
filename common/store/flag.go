package store

import (
	"database/sql/driver"
	"fmt"
	"strings"
)

// Flag is a nullable boolean column. Older rows store booleans as "Si"/"No",
// "1"/"0" or integers; they are all decoded here.
type Flag struct {
	Bool  bool
	Valid bool
}

func DbFlag(value *bool) Flag {
	if value == nil {
		return Flag{}
	}
	return Flag{Bool: *value, Valid: true}
}

func DbBool(value bool) Flag {
	return Flag{Bool: value, Valid: true}
}

// True reports a set and true flag.
func (f Flag) True() bool {
	return f.Valid && f.Bool
}

func (f Flag) Ptr() *bool {
	if !f.Valid {
		return nil
	}
	b := f.Bool
	return &b
}

func (f *Flag) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*f = Flag{}
	case bool:
		*f = Flag{Bool: v, Valid: true}
	case int64:
		*f = Flag{Bool: v != 0, Valid: true}
	case float64:
		*f = Flag{Bool: v != 0, Valid: true}
	case []byte:
		return f.Scan(string(v))
	case string:
		b, ok := ParseFlag(v)
		if !ok {
			return fmt.Errorf("cannot read %q as a boolean", v)
		}
		*f = Flag{Bool: b, Valid: true}
	default:
		return fmt.Errorf("cannot read %T as a boolean", src)
	}
	return nil
}

func (f Flag) Value() (driver.Value, error) {
	if !f.Valid {
		return nil, nil
	}
	return f.Bool, nil
}

// ParseFlag reads the textual booleans found in the data and sent by clients.
func ParseFlag(value string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "si", "sí", "s", "1", "true", "t", "yes", "y":
		return true, true
	case "no", "n", "0", "false", "f":
		return false, true
	}
	return false, false
}
