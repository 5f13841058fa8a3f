package providers

import "github.com/spf13/cast"

// Provider APIs disagree on JSON scalar types: Flickr sends most numbers as
// strings, Google Photos sends counts as strings and sizes as numbers. These
// helpers accept either and never fail.

// StringValue renders a decoded JSON scalar as a string. Numbers keep
// their integer form; nil becomes "".
func StringValue(v any) string {
	return cast.ToString(v)
}

// IntValue parses a decoded JSON number or numeric string. Invalid input
// yields 0.
func IntValue(v any) int {
	return cast.ToInt(v)
}

// FloatValue parses a decoded JSON number or numeric string.
func FloatValue(v any) float64 {
	return cast.ToFloat64(v)
}
