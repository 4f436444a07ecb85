package sqltext

import (
	"strings"

	"github.com/shakram02/go-mcp-db-gateway/internal/backend"
)

// Split breaks a script into statements on semicolons that appear outside
// literals, identifiers and comments. Empty statements are dropped and the
// rest are trimmed; comments stay attached to the statement they precede.
func Split(k backend.Kind, script string) []string {
	var (
		stmts []string
		cur   strings.Builder
	)
	push := func() {
		stmt := strings.TrimSpace(cur.String())
		cur.Reset()
		if stmt != "" && !onlyComments(k, stmt) {
			stmts = append(stmts, stmt)
		}
	}

	for _, s := range scan(k, script) {
		if s.kind != spanCode {
			cur.WriteString(s.text)
			continue
		}
		parts := strings.Split(s.text, ";")
		for i, part := range parts {
			cur.WriteString(part)
			if i < len(parts)-1 {
				push()
			}
		}
	}
	push()
	return stmts
}

func onlyComments(k backend.Kind, stmt string) bool {
	return strings.TrimSpace(StripStringsAndComments(k, stmt)) == ""
}
