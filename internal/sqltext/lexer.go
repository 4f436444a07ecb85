// Package sqltext does the small amount of SQL text handling the gateway
// needs: telling reads from writes, splitting scripts into statements and the
// optional read-only guard. It understands each dialect's comments and quoting
// so that keywords inside literals and comments are never acted on.
package sqltext

import (
	"strings"

	"github.com/shakram02/go-mcp-db-gateway/internal/backend"
)

type spanKind int

const (
	spanCode spanKind = iota
	spanString
	spanIdent
	spanComment
)

type span struct {
	kind  spanKind
	text  string
	quote byte
}

// dialect captures the lexical differences between the SQL backends.
type dialect struct {
	hashComments     bool // MySQL: # starts a line comment
	backslashEscapes bool // MySQL: \' inside strings
	doubleQuoteIsStr bool // MySQL: "..." is a string, elsewhere an identifier
	dollarQuotes     bool // PostgreSQL: $tag$...$tag$
	backticks        bool // MySQL, SQLite
	brackets         bool // SQLite: [identifier]
}

func dialectFor(k backend.Kind) dialect {
	switch k {
	case backend.MySQL:
		return dialect{hashComments: true, backslashEscapes: true, doubleQuoteIsStr: true, backticks: true}
	case backend.Postgres:
		return dialect{dollarQuotes: true}
	case backend.SQLite:
		return dialect{backticks: true, brackets: true}
	case backend.MongoDB:
	}
	return dialect{}
}

// scan cuts sql into code, literal, quoted-identifier and comment spans.
// Unterminated literals and comments run to the end of the input.
func scan(k backend.Kind, sql string) []span {
	d := dialectFor(k)
	var spans []span
	n := len(sql)
	codeStart := 0
	i := 0

	flush := func(end int) {
		if end > codeStart {
			spans = append(spans, span{kind: spanCode, text: sql[codeStart:end]})
		}
	}
	emit := func(kind spanKind, start, end int, quote byte) {
		flush(start)
		spans = append(spans, span{kind: kind, text: sql[start:end], quote: quote})
		codeStart = end
		i = end
	}

	for i < n {
		c := sql[i]
		switch {
		case c == '-' && i+1 < n && sql[i+1] == '-', d.hashComments && c == '#':
			end := strings.IndexByte(sql[i:], '\n')
			if end < 0 {
				end = n
			} else {
				end += i
			}
			emit(spanComment, i, end, 0)

		case c == '/' && i+1 < n && sql[i+1] == '*':
			end := strings.Index(sql[i+2:], "*/")
			if end < 0 {
				end = n
			} else {
				end += i + 4
			}
			emit(spanComment, i, end, 0)

		case d.dollarQuotes && c == '$':
			if tag, ok := dollarTag(sql[i:]); ok {
				if closeIdx := strings.Index(sql[i+len(tag):], tag); closeIdx >= 0 {
					emit(spanString, i, i+len(tag)+closeIdx+len(tag), '$')
					continue
				}
			}
			i++

		case c == '\'':
			emit(spanString, i, quotedEnd(sql, i, '\'', d.backslashEscapes), '\'')

		case c == '"':
			if d.doubleQuoteIsStr {
				emit(spanString, i, quotedEnd(sql, i, '"', d.backslashEscapes), '"')
			} else {
				emit(spanIdent, i, quotedEnd(sql, i, '"', false), '"')
			}

		case d.backticks && c == '`':
			emit(spanIdent, i, closingEnd(sql, i, '`'), '`')

		case d.brackets && c == '[':
			emit(spanIdent, i, closingEnd(sql, i, ']'), '[')

		default:
			i++
		}
	}
	flush(n)
	return spans
}

// quotedEnd returns the index just past the literal opened at start. A doubled
// quote is an escaped quote; backslash escapes are honoured when allowed.
func quotedEnd(sql string, start int, q byte, backslash bool) int {
	n := len(sql)
	i := start + 1
	for i < n {
		switch {
		case backslash && sql[i] == '\\' && i+1 < n:
			i += 2
		case sql[i] == q && i+1 < n && sql[i+1] == q:
			i += 2
		case sql[i] == q:
			return i + 1
		default:
			i++
		}
	}
	return n
}

func closingEnd(sql string, start int, closer byte) int {
	end := strings.IndexByte(sql[start+1:], closer)
	if end < 0 {
		return len(sql)
	}
	return start + 1 + end + 1
}

// dollarTag recognises "$$" or "$name$" at the start of s. Positional
// parameters such as $1 are not tags.
func dollarTag(s string) (string, bool) {
	for j := 1; j < len(s); j++ {
		c := s[j]
		if c == '$' {
			return s[:j+1], true
		}
		isLetter := c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c >= 0x80
		isDigit := c >= '0' && c <= '9'
		if !isLetter && !(isDigit && j > 1) {
			return "", false
		}
	}
	return "", false
}

// StripStringsAndComments replaces literals with empty placeholders and
// comments with a single space, keeping quoted identifiers intact, so keyword
// checks only ever see real SQL.
func StripStringsAndComments(k backend.Kind, sql string) string {
	var b strings.Builder
	b.Grow(len(sql))
	for _, s := range scan(k, sql) {
		switch s.kind {
		case spanCode, spanIdent:
			b.WriteString(s.text)
		case spanString:
			if s.quote == '$' {
				b.WriteString("''")
			} else {
				b.WriteByte(s.quote)
				b.WriteByte(s.quote)
			}
		case spanComment:
			b.WriteByte(' ')
		}
	}
	return b.String()
}
