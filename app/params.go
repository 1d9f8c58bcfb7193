package app

import (
	"encoding/json"
	"fmt"

	"onthesis/domain/dataset"
)

// cellText accepts a JSON string or number and keeps its text form, so
// find/replace values may be sent either way.
type cellText string

func (c *cellText) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*c = cellText(s)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("expected a string or a number")
	}
	*c = cellText(dataset.FormatNumber(f))
	return nil
}
