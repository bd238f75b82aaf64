package diagram

import (
	"crypto/sha1"
	"encoding/hex"
	"strings"
)

// alias maps an arbitrary entity id to a stable PlantUML identifier. Entity
// ids may contain spaces, slashes, or dots; the alias is the type prefix plus
// the first 12 hex characters of the id's SHA-1, which always matches
// ^[A-Za-z_][A-Za-z0-9_]*$ and never collides across distinct raw ids in
// practice. Re-rendering the same topology yields the same aliases.
func alias(prefix, raw string) string {
	digest := sha1.Sum([]byte(raw))
	return prefix + "_" + hex.EncodeToString(digest[:])[:12]
}

var labelEscaper = strings.NewReplacer(
	`\`, `\\`,
	`"`, `\"`,
	"\n", `\n`,
)

// EscapeLabel makes free text safe inside a quoted PlantUML label:
// backslashes, double quotes, and newlines are escaped so generated markup
// stays well-formed for any input content.
func EscapeLabel(value string) string {
	return labelEscaper.Replace(value)
}
