package dialect

import (
	"encoding/json"
	"fmt"

	"github.com/leapstack-labs/leapstore/pkg/core"
)

// BindArray converts a Go slice bound to an array column into a driver value.
func (d *Dialect) BindArray(value any) (any, error) {
	if d.Arrays == core.ArrayNative && d.arrayBinder != nil {
		return d.arrayBinder(value), nil
	}
	b, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("failed to encode array value: %w", err)
	}
	return string(b), nil
}

// ScanArray returns a scan target that decodes an array column into dest,
// which must be a pointer to a slice.
func (d *Dialect) ScanArray(dest any) any {
	if d.Arrays == core.ArrayNative && d.arrayScanner != nil {
		return d.arrayScanner(dest)
	}
	return &jsonArray{dest: dest}
}

// jsonArray scans JSON text columns into a slice.
type jsonArray struct {
	dest any
}

func (a *jsonArray) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		return json.Unmarshal([]byte("null"), a.dest)
	case string:
		return json.Unmarshal([]byte(v), a.dest)
	case []byte:
		return json.Unmarshal(v, a.dest)
	default:
		return fmt.Errorf("cannot scan %T into array column", src)
	}
}
