package utils

import (
	"strings"
	"unicode"
)

// NormalizePlate uppercases a plate and drops everything that is not an ASCII
// letter or digit, so "ab12 cde" and "AB-12-CDE" compare equal.
func NormalizePlate(plate string) string {
	var b strings.Builder
	b.Grow(len(plate))
	for _, r := range strings.ToUpper(plate) {
		if r > unicode.MaxASCII {
			continue
		}
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
