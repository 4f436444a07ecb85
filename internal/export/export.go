// Package export writes query results to CSV files. Every export is an
// ordinary read through the gateway, so pooling, timeouts and the read-only
// guard all apply.
package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/shakram02/go-mcp-db-gateway/internal/adapter"
	"github.com/shakram02/go-mcp-db-gateway/internal/backend"
	"github.com/shakram02/go-mcp-db-gateway/internal/errors"
	"github.com/shakram02/go-mcp-db-gateway/internal/gateway"
	"github.com/shakram02/go-mcp-db-gateway/internal/result"
	"github.com/shakram02/go-mcp-db-gateway/internal/sqltext"
)

// Preview sizes, in data rows.
const (
	previewRows     = 10
	bulkPreviewRows = 3
)

// File describes one written CSV file.
type File struct {
	Path      string
	Table     string
	Columns   []string
	Rows      int
	Size      int64
	Truncated bool
	Preview   string
}

func (f *File) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Exported %d rows to %s\n", f.Rows, f.Path)
	fmt.Fprintf(&b, "Columns: %s\n", strings.Join(f.Columns, ", "))
	fmt.Fprintf(&b, "File size: %s", humanize.IBytes(uint64(f.Size)))
	if f.Truncated {
		b.WriteString("\nRow limit reached; the export is incomplete")
	}
	if f.Preview != "" {
		fmt.Fprintf(&b, "\n\nPreview:\n%s", f.Preview)
	}
	return b.String()
}

// Bulk is the outcome of exporting every table of a database.
type Bulk struct {
	Dir    string
	Files  []*File
	Failed map[string]error
}

// Rows is the number of data rows written across all files.
func (b *Bulk) Rows() int {
	n := 0
	for _, f := range b.Files {
		n += f.Rows
	}
	return n
}

func (b *Bulk) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Exported %d tables (%d rows) to %s\n", len(b.Files), b.Rows(), b.Dir)
	for _, f := range b.Files {
		fmt.Fprintf(&sb, "\n%s: %d rows -> %s", f.Table, f.Rows, filepath.Base(f.Path))
	}
	failed := make([]string, 0, len(b.Failed))
	for table := range b.Failed {
		failed = append(failed, table)
	}
	sort.Strings(failed)
	for _, table := range failed {
		fmt.Fprintf(&sb, "\n%s: failed: %v", table, b.Failed[table])
	}
	for _, f := range b.Files {
		if f.Preview != "" {
			fmt.Fprintf(&sb, "\n\n%s:\n%s", filepath.Base(f.Path), f.Preview)
		}
	}
	return sb.String()
}

// Exporter writes CSV files under a default directory.
type Exporter struct {
	gw  *gateway.Gateway
	dir string
	now func() time.Time
	log *slog.Logger
}

func New(gw *gateway.Gateway, dir string, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	if dir == "" {
		dir = "."
	}
	return &Exporter{gw: gw, dir: dir, now: time.Now, log: logger.With("component", "export")}
}

// TableOptions tune a single-table export.
type TableOptions struct {
	Limit      int
	OutputPath string
	NoHeader   bool
}

// Table exports table, or its first Limit rows.
func (e *Exporter) Table(ctx context.Context, cfg backend.Config, table string, opts TableOptions) (*File, error) {
	if err := sqlOnly(cfg.Kind); err != nil {
		return nil, err
	}
	if strings.TrimSpace(table) == "" {
		return nil, errors.Invalid(cfg.Kind, "table_name is required")
	}
	query := "SELECT * FROM " + QuoteIdent(cfg.Kind, table)
	if opts.Limit > 0 {
		query += " LIMIT " + strconv.Itoa(opts.Limit)
	}
	path := opts.OutputPath
	if path == "" {
		path = filepath.Join(e.dir, table+"_export.csv")
	}
	f, err := e.export(ctx, cfg, query, path, !opts.NoHeader, previewRows)
	if err != nil {
		return nil, err
	}
	f.Table = table
	return f, nil
}

// Query exports the rows of a SELECT. filename is joined to the default
// directory; outputPath, when set, wins.
func (e *Exporter) Query(ctx context.Context, cfg backend.Config, query, filename, outputPath string) (*File, error) {
	if err := sqlOnly(cfg.Kind); err != nil {
		return nil, err
	}
	if !sqltext.IsRead(cfg.Kind, query) {
		return nil, errors.Invalid(cfg.Kind, "only SELECT queries can be exported")
	}
	path := outputPath
	if path == "" {
		if filename == "" {
			filename = fmt.Sprintf("query_export_%d", e.now().UnixMilli())
		}
		if !strings.HasSuffix(filename, ".csv") {
			filename += ".csv"
		}
		path = filepath.Join(e.dir, filename)
	}
	return e.export(ctx, cfg, query, path, true, previewRows)
}

// AllTables writes one <table>.csv per table into dir. A table that fails is
// recorded and the rest still export.
func (e *Exporter) AllTables(ctx context.Context, cfg backend.Config, dir string) (*Bulk, error) {
	if err := sqlOnly(cfg.Kind); err != nil {
		return nil, err
	}
	if dir == "" {
		dir = e.dir
	}
	tables, err := e.gw.ListTables(ctx, cfg)
	if err != nil {
		return nil, err
	}
	b := &Bulk{Dir: dir, Failed: map[string]error{}}
	for _, table := range tables {
		query := "SELECT * FROM " + QuoteIdent(cfg.Kind, table)
		f, err := e.export(ctx, cfg, query, filepath.Join(dir, table+".csv"), true, bulkPreviewRows)
		if err != nil {
			e.log.Warn("table export failed", "backend", cfg.Kind, "table", table, "error", err)
			b.Failed[table] = err
			continue
		}
		f.Table = table
		b.Files = append(b.Files, f)
	}
	return b, nil
}

func (e *Exporter) export(ctx context.Context, cfg backend.Config, query, path string, header bool, preview int) (*File, error) {
	r, err := e.gw.Query(ctx, cfg, adapter.Descriptor{SQL: &adapter.SQLQuery{Query: query}}, false)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Query(cfg.Kind, "creating export directory", err)
	}
	fh, err := os.Create(path)
	if err != nil {
		return nil, errors.Query(cfg.Kind, "creating export file", err)
	}
	werr := WriteCSV(fh, r.Columns, r.Rows, header)
	cerr := fh.Close()
	if werr != nil {
		return nil, errors.Query(cfg.Kind, "writing CSV", werr)
	}
	if cerr != nil {
		return nil, errors.Query(cfg.Kind, "writing CSV", cerr)
	}

	st, err := os.Stat(path)
	if err != nil {
		return nil, errors.Query(cfg.Kind, "reading export file", err)
	}
	var pv strings.Builder
	n := min(preview, len(r.Rows))
	if err := WriteCSV(&pv, r.Columns, r.Rows[:n], header); err != nil {
		return nil, errors.Query(cfg.Kind, "rendering preview", err)
	}
	p := strings.TrimRight(pv.String(), "\n")
	if more := len(r.Rows) - n; more > 0 {
		p += fmt.Sprintf("\n... and %d more rows", more)
	}

	e.log.Info("exported", "backend", cfg.Kind, "path", path, "rows", len(r.Rows))
	return &File{
		Path:      path,
		Columns:   r.Columns,
		Rows:      len(r.Rows),
		Size:      st.Size(),
		Truncated: r.Truncated,
		Preview:   p,
	}, nil
}

// WriteCSV writes rows in column order. nil cells are empty.
func WriteCSV(w io.Writer, cols []string, rows []result.Record, header bool) error {
	if len(cols) == 0 && len(rows) > 0 {
		cols = rows[0].Keys()
	}
	cw := csv.NewWriter(w)
	if header && len(cols) > 0 {
		if err := cw.Write(cols); err != nil {
			return err
		}
	}
	rec := make([]string, len(cols))
	for _, row := range rows {
		for i, c := range cols {
			v, _ := row.At(i, c)
			rec[i] = result.Cell(v)
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// QuoteIdent quotes a table name for kind.
func QuoteIdent(kind backend.Kind, name string) string {
	if kind == backend.MySQL {
		return "`" + strings.ReplaceAll(name, "`", "``") + "`"
	}
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func sqlOnly(kind backend.Kind) error {
	if !kind.IsSQL() {
		return errors.Invalid(kind, "CSV export supports SQL backends only")
	}
	return nil
}
