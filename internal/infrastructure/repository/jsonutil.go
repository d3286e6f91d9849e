package repository

import (
	"encoding/json"

	"gorm.io/datatypes"
)

// toJSON marshals a value into a datatypes.JSON column, nil-safe.
func toJSON(v any) datatypes.JSON {
	if v == nil {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return raw
}

// fromJSON unmarshals a datatypes.JSON column into out, treating empty
// columns as the zero value.
func fromJSON(raw datatypes.JSON, out any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, out)
}
