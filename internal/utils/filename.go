package utils

import "strings"

var filenameReplacer = strings.NewReplacer(
	"/", "_",
	"\\", "_",
	":", "_",
	"*", "_",
	"?", "_",
	"\"", "_",
	"<", "_",
	">", "_",
	"|", "_",
	" ", "_",
)

// SanitizeFilename replaces characters that are not allowed in download names.
func SanitizeFilename(name string) string {
	return filenameReplacer.Replace(name)
}
