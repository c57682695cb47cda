package store

import "fmt"

// String returns a document field as text. Numbers and other scalar values
// some backends produce (for example float64 from JSON) are formatted with
// fmt; a missing field is the empty string.
func (d Document) String(field string) string {
	v, ok := d.Fields[field]
	if !ok || v == nil {
		return ""
	}
	switch x := v.(type) {
	case string:
		return x
	case []byte:
		return string(x)
	default:
		return fmt.Sprint(x)
	}
}
