package controllers

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// flexInt decodes a JSON integer given either as a number or as a numeric
// string, so {"teacher_id": 7} and {"teacher_id": "7"} are equivalent.
type flexInt int64

func (n *flexInt) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		*n = 0
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		raw = strings.TrimSpace(s)
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("%q is not an integer", raw)
	}
	*n = flexInt(v)
	return nil
}

// ID returns the value as a record id; anything not positive becomes 0.
func (n flexInt) ID() uint {
	if n <= 0 || int64(n) > int64(^uint32(0)) {
		return 0
	}
	return uint(n)
}
