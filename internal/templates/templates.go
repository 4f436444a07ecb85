// Package templates maps a free-text description to a canned starter schema
// with sample rows. The SQL is written once in SQLite syntax and rewritten for
// the other SQL dialects.
package templates

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/shakram02/go-mcp-db-gateway/internal/backend"
)

// Payload is what a creation tool runs for a matched description.
type Payload struct {
	Name   string
	Schema string
	Data   string
	// Collections and Documents are used for MongoDB only. Documents maps a
	// collection to a JSON array of documents.
	Collections []string
	Documents   map[string]json.RawMessage
}

type template struct {
	name        string
	keywords    []string
	schema      string
	data        string
	collections []string
	documents   map[string]string
}

// Lookup returns the first template whose keywords occur in description,
// rendered for kind.
func Lookup(description string, kind backend.Kind) (*Payload, bool) {
	desc := strings.ToLower(description)
	for _, t := range catalog {
		for _, kw := range t.keywords {
			if strings.Contains(desc, kw) {
				return t.render(kind), true
			}
		}
	}
	return nil, false
}

// Names lists the available templates.
func Names() []string {
	out := make([]string, len(catalog))
	for i, t := range catalog {
		out[i] = t.name
	}
	return out
}

func (t template) render(kind backend.Kind) *Payload {
	p := &Payload{Name: t.name}
	if kind == backend.MongoDB {
		p.Collections = append([]string(nil), t.collections...)
		if len(t.documents) > 0 {
			p.Documents = make(map[string]json.RawMessage, len(t.documents))
			for coll, docs := range t.documents {
				p.Documents[coll] = json.RawMessage(docs)
			}
		}
		return p
	}
	p.Schema = Rewrite(kind, t.schema)
	p.Data = Rewrite(kind, t.data)
	return p
}

var (
	reAutoincrement = regexp.MustCompile(`(?i)INTEGER PRIMARY KEY AUTOINCREMENT`)
	reDatetime      = regexp.MustCompile(`(?i)\bDATETIME\b`)
	reText          = regexp.MustCompile(`\bTEXT\b`)
	reCurrentDate   = regexp.MustCompile(`(?i)DEFAULT CURRENT_DATE\b`)
)

// Rewrite converts SQLite-flavoured DDL to kind's dialect.
func Rewrite(kind backend.Kind, sql string) string {
	switch kind {
	case backend.Postgres:
		sql = reAutoincrement.ReplaceAllString(sql, "SERIAL PRIMARY KEY")
		sql = reDatetime.ReplaceAllString(sql, "TIMESTAMP")
	case backend.MySQL:
		sql = reAutoincrement.ReplaceAllString(sql, "INT AUTO_INCREMENT PRIMARY KEY")
		// MySQL cannot index TEXT without a prefix length.
		sql = reText.ReplaceAllString(sql, "VARCHAR(255)")
		sql = reCurrentDate.ReplaceAllString(sql, "DEFAULT (CURRENT_DATE)")
	case backend.SQLite, backend.MongoDB:
	}
	return sql
}
