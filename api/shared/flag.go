package shared

import (
	"encoding/json"
	"fmt"

	"github.com/cear54/api-t-cuida/common/store"
)

// Flag is a boolean request field. Older clients send "Si"/"No", 0/1 or real booleans.
type Flag struct {
	Set   bool
	Value bool
}

func (f *Flag) UnmarshalJSON(b []byte) error {
	var raw interface{}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case nil:
		*f = Flag{}
	case bool:
		*f = Flag{Set: true, Value: v}
	case float64:
		*f = Flag{Set: true, Value: v != 0}
	case string:
		if v == "" {
			*f = Flag{}
			return nil
		}
		value, ok := store.ParseFlag(v)
		if !ok {
			return fmt.Errorf("cannot read %q as a boolean", v)
		}
		*f = Flag{Set: true, Value: value}
	default:
		return fmt.Errorf("cannot read %s as a boolean", string(b))
	}
	return nil
}

func (f Flag) MarshalJSON() ([]byte, error) {
	if !f.Set {
		return []byte("null"), nil
	}
	return json.Marshal(f.Value)
}

func (f Flag) Db() store.Flag {
	if !f.Set {
		return store.Flag{}
	}
	return store.DbBool(f.Value)
}

func FlagFromDb(f store.Flag) Flag {
	return Flag{Set: f.Valid, Value: f.Bool}
}
