package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Decimal is a numeric value kept as text so prices and quantities round-trip exactly.
// It decodes from a JSON string or number and always encodes as a string.
type Decimal string

func (d Decimal) String() string { return string(d) }

// IsZero reports whether the value is empty.
func (d Decimal) IsZero() bool { return strings.TrimSpace(string(d)) == "" }

func (d *Decimal) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*d = ""
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*d = Decimal(strings.TrimSpace(s))
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("decimal: %s is neither a string nor a number", data)
	}
	*d = Decimal(n.String())
	return nil
}
