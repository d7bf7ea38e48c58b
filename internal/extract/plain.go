package extract

import (
	"strings"
	"unicode/utf8"
)

// extractPlain returns content as text. Invalid UTF-8 sequences are
// replaced with the replacement character.
func extractPlain(content []byte) (*Result, error) {
	text := string(content)
	if !utf8.Valid(content) {
		text = strings.ToValidUTF8(text, "\ufffd")
	}
	return &Result{Text: text}, nil
}
