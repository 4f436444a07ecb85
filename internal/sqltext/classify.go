package sqltext

import (
	"strings"
	"unicode"

	"github.com/shakram02/go-mcp-db-gateway/internal/backend"
)

// ReadKeyword is the leading keyword that marks a statement as a read.
const ReadKeyword = "SELECT"

// LeadingKeyword returns the first keyword of sql in upper case, skipping
// whitespace, comments and opening parentheses.
func LeadingKeyword(k backend.Kind, sql string) string {
	s := strings.TrimLeftFunc(StripStringsAndComments(k, sql), func(r rune) bool {
		return unicode.IsSpace(r) || r == '('
	})
	end := strings.IndexFunc(s, func(r rune) bool {
		return !(unicode.IsLetter(r) || r == '_')
	})
	if end < 0 {
		end = len(s)
	}
	return strings.ToUpper(s[:end])
}

// IsRead reports whether sql is a row-returning read. Everything else is
// executed as a write.
func IsRead(k backend.Kind, sql string) bool {
	return LeadingKeyword(k, sql) == ReadKeyword
}
