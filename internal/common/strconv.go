package common

import (
	"strconv"
	"strings"
)

// ParseInt64Default parses an int64 falling back to the default when parsing fails.
func ParseInt64Default(value string, def int64) int64 {
	if strings.TrimSpace(value) == "" {
		return def
	}
	parsed, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil {
		return def
	}
	return parsed
}

// ParseFloatDefault parses a decimal reading leniently: empty or unparsable
// input yields the default. Collection forms send fat/SNF/quantity as free
// text and the pricing contract treats garbage as zero rather than rejecting.
func ParseFloatDefault(value string, def float64) float64 {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return def
	}
	return parsed
}
