package result

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	NoData      = "No data found"
	NoDocuments = "No documents found"
)

// Render turns a result into the text preview returned to the caller.
func Render(r *Result) string {
	if r == nil {
		return NoData
	}
	if r.Kind == Write {
		return summary(r)
	}
	var out string
	if r.Document {
		out = Documents(r.Rows)
	} else {
		out = Table(r.Columns, r.Rows)
	}
	if r.Truncated {
		out += fmt.Sprintf("\n\n(output truncated to %d rows)", len(r.Rows))
	}
	return out
}

// Table renders rows as a pipe-separated table. Columns come from cols when
// given, otherwise from the first record.
func Table(cols []string, rows []Record) string {
	if len(rows) == 0 {
		return NoData
	}
	if len(cols) == 0 {
		cols = rows[0].Keys()
	}

	cells := make([][]string, len(rows))
	widths := make([]int, len(cols))
	for i, c := range cols {
		widths[i] = utf8.RuneCountInString(c)
	}
	for ri, row := range rows {
		cells[ri] = make([]string, len(cols))
		for ci, c := range cols {
			v, _ := row.At(ci, c)
			s := Cell(v)
			cells[ri][ci] = s
			if n := utf8.RuneCountInString(s); n > widths[ci] {
				widths[ci] = n
			}
		}
	}

	lines := make([]string, 0, len(rows)+2)
	header := make([]string, len(cols))
	sep := make([]string, len(cols))
	for i, c := range cols {
		header[i] = pad(c, widths[i])
		sep[i] = strings.Repeat("-", widths[i])
	}
	lines = append(lines, strings.Join(header, " | "), strings.Join(sep, "-|-"))
	for _, row := range cells {
		padded := make([]string, len(row))
		for i, s := range row {
			padded[i] = pad(s, widths[i])
		}
		lines = append(lines, strings.Join(padded, " | "))
	}
	return strings.Join(lines, "\n")
}

// Documents renders each record as a numbered, indented JSON block.
func Documents(docs []Record) string {
	if len(docs) == 0 {
		return NoDocuments
	}
	blocks := make([]string, len(docs))
	for i, d := range docs {
		b, err := json.MarshalIndent(d, "", "  ")
		if err != nil {
			b = []byte(fmt.Sprintf("<unrenderable document: %v>", err))
		}
		blocks[i] = fmt.Sprintf("Document %d:\n%s", i+1, b)
	}
	return strings.Join(blocks, "\n\n")
}

// Cell stringifies a value for tabular output. Nil renders as empty.
func Cell(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}

func pad(s string, width int) string {
	n := utf8.RuneCountInString(s)
	if n >= width {
		return s
	}
	return s + strings.Repeat(" ", width-n)
}

func summary(r *Result) string {
	switch r.Operation {
	case OpInsertOne:
		if len(r.InsertedIDs) == 1 {
			return fmt.Sprintf("Document inserted with ID: %s", Cell(r.InsertedIDs[0]))
		}
		return fmt.Sprintf("%d document(s) inserted", r.Count)
	case OpInsertMany:
		return fmt.Sprintf("%d document(s) inserted", r.Count)
	case OpUpdateOne:
		s := fmt.Sprintf("%d document(s) updated (matched: %d)", r.Count, r.Matched)
		if r.UpsertedID != nil {
			s += fmt.Sprintf(", upserted ID: %s", Cell(r.UpsertedID))
		}
		return s
	case OpDeleteOne:
		return fmt.Sprintf("%d document(s) deleted", r.Count)
	}
	s := fmt.Sprintf("Query executed successfully. Rows affected: %d", r.Count)
	if r.LastInsertID != nil {
		s += fmt.Sprintf(", Last ID: %d", *r.LastInsertID)
	}
	return s
}
