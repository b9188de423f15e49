// internal/extract/normalize.go
package extract

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

var controlReplacer = strings.NewReplacer("\x00", "", "\r\n", "\n", "\r", "\n", "\f", "\n")

// Normalize folds compatibility characters (ligatures, full-width forms)
// with NFKC and unifies line endings.
func Normalize(text string) string {
	return controlReplacer.Replace(norm.NFKC.String(text))
}
