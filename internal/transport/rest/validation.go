package rest

import (
	"strconv"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// JSON numbers decode as float64; clients also occasionally send numeric
// fields as strings, so both are accepted.
func toInt64(v interface{}) (int64, error) {
	switch t := v.(type) {
	case float64:
		return int64(t), nil
	case string:
		return strconv.ParseInt(t, 10, 64)
	default:
		return 0, &ValidationError{Message: "invalid type for int field"}
	}
}

func toFloat64(v interface{}) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case string:
		return strconv.ParseFloat(t, 64)
	default:
		return 0, &ValidationError{Message: "invalid type for number field"}
	}
}
