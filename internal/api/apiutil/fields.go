package apiutil

import (
	"strconv"
	"strings"

	"github.com/codr1/Spinergy/internal/models"
)

func ParsePositiveIntField(raw string, field string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, FieldError{Field: field, Reason: "is required"}
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return 0, FieldError{Field: field, Reason: "must be greater than 0"}
	}
	return value, nil
}

func ParseDateField(raw string, field string) (models.Date, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return models.Date{}, FieldError{Field: field, Reason: "is required"}
	}
	d, err := models.ParseDate(raw)
	if err != nil {
		return models.Date{}, FieldError{Field: field, Reason: "must be a YYYY-MM-DD date"}
	}
	return d, nil
}

// ParseBoolField treats an empty value as false.
func ParseBoolField(raw string, field string) (bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false, nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false, FieldError{Field: field, Reason: "must be true or false"}
	}
	return value, nil
}

func RequireField(raw string, field string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", FieldError{Field: field, Reason: "is required"}
	}
	return raw, nil
}
