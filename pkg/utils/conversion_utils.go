package utils

import "strconv"

// Int64ToStr converts an int64 to its string representation.
func Int64ToStr(num int64) string {
	return strconv.FormatInt(num, 10)
}

// StrToInt64 converts a string to an int64.
// Returns 0 and an error if the conversion fails.
func StrToInt64(s string) (int64, error) {
	return strconv.ParseInt(s, 10, 64)
}

// StrToPositiveInt64 is StrToInt64 restricted to identifiers (> 0).
func StrToPositiveInt64(s string) (int64, bool) {
	n, err := StrToInt64(s)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
