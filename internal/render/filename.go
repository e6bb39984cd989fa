package render

import (
	"regexp"
	"strings"
)

const maxFilenameLen = 50

// titleSpace matches what browsers treat as whitespace in titles, including
// no-break and other Unicode spaces. RE2's \s covers ASCII only.
const titleSpace = `\t\n\v\f\r\p{Zs}\x{2028}\x{2029}\x{FEFF}`

var (
	filenameUnsafe = regexp.MustCompile(`[^a-zA-Z0-9` + titleSpace + `-]`)
	whitespaceRun  = regexp.MustCompile(`[` + titleSpace + `]+`)
)

// SuggestFilename turns a page title into a lower-case, hyphenated name of at
// most 50 characters, without extension. fallback is used when nothing
// usable is left.
func SuggestFilename(title, fallback string) string {
	if whitespaceRun.ReplaceAllString(title, "") == "" {
		return fallback
	}
	name := filenameUnsafe.ReplaceAllString(title, "")
	name = whitespaceRun.ReplaceAllString(name, "-")
	name = strings.ToLower(name)
	if len(name) > maxFilenameLen {
		name = name[:maxFilenameLen]
	}
	if strings.Trim(name, "-") == "" {
		return fallback
	}
	return name
}
