package catalogs

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// RockChunkName maps a terrain label to the debris def it produces.
//
// Labels follow "<descriptor> <RockToken>"; the last space-separated token is
// capitalized and appended to prefix ("rough granite" -> "ChunkGranite").
// Labels with other shapes still yield a name, it just won't resolve. An
// empty label yields "".
func RockChunkName(prefix, label string) string {
	fields := strings.Split(label, " ")
	token := fields[len(fields)-1]
	if token == "" {
		return ""
	}
	return prefix + capitalizeFirst(token)
}

func capitalizeFirst(s string) string {
	r, n := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[n:]
}
