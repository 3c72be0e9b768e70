package extract

import "strings"

// Normalize strips thousands separators so "1,250.00" reads as one number.
// Applying it twice gives the same text.
func Normalize(raw string) string {
	return strings.ReplaceAll(raw, ",", "")
}
