package flow

import "fmt"

// FieldData maps a field name to its captured value: a string for text-like
// inputs and radio groups, a bool for checkboxes. A name is present only once
// the corresponding field has been captured at least once. The map is owned
// exclusively by the Session; collaborators receive copies.
type FieldData map[string]any

// String returns the string representation of the named value. Absent fields
// stringify to "", checkbox state to "true"/"false".
func (d FieldData) String(name string) string {
	v, ok := d[name]
	if !ok {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case bool:
		if t {
			return "true"
		}
		return "false"
	default:
		// Values restored from an old snapshot may carry other JSON types.
		return fmt.Sprint(t)
	}
}

// Clone returns a shallow copy. Values are strings and bools, so a shallow
// copy is a full copy.
func (d FieldData) Clone() FieldData {
	c := make(FieldData, len(d))
	for k, v := range d {
		c[k] = v
	}
	return c
}
