// Package knol identifies cards by their content so that a card keeps its
// review history when the file it lives in is re-imported.
package knol

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Normalize joins front and back after lowercasing, trimming and unifying line
// endings, so cosmetic edits do not change a card's identity.
func Normalize(front, back string) string {
	clean := func(part string) string {
		p := strings.ReplaceAll(part, "\r\n", "\n")
		p = strings.ToLower(strings.TrimSpace(p))
		return strings.Join(strings.Fields(p), " ")
	}
	// Newline separator keeps "ab"+"c" distinct from "a"+"bc".
	return clean(front) + "\n" + clean(back)
}

// Hash returns the hex SHA-256 of the normalized card content.
func Hash(front, back string) string {
	sum := sha256.Sum256([]byte(Normalize(front, back)))
	return hex.EncodeToString(sum[:])
}
