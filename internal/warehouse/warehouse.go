// Package warehouse loads summary and transaction workbooks into a local
// DuckDB file and answers the queries the QC checks run against it.
package warehouse

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/marcboeker/go-duckdb"
	"go.uber.org/zap"

	"RebateRecon/internal/checksum"
	"RebateRecon/internal/config"
	"RebateRecon/internal/workbook"
)

type Warehouse struct {
	db   *sql.DB
	path string
	log  *zap.Logger
	now  func() time.Time
}

// Column is one row of information_schema.columns.
type Column struct {
	Name     string
	Type     string
	Nullable bool
}

// LoadResult reports one sheet written to one table.
type LoadResult struct {
	BatchID  string
	Sheet    string
	Table    string
	Rows     int
	Created  bool
	Checksum string
}

// Open connects to the DuckDB file at path, creating it when missing.
func Open(path string, log *zap.Logger) (*Warehouse, error) {
	if log == nil {
		log = zap.NewNop()
	}
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect duckdb %s: %w", path, err)
	}
	return &Warehouse{db: db, path: path, log: log, now: time.Now}, nil
}

func (w *Warehouse) Close() error {
	if w == nil || w.db == nil {
		return nil
	}
	return w.db.Close()
}

func (w *Warehouse) DB() *sql.DB { return w.db }

func (w *Warehouse) Path() string { return w.path }

// ClearTables deletes every row of the given tables. Tables that do not
// exist yet are skipped.
func (w *Warehouse) ClearTables(ctx context.Context, tables []string) ([]string, error) {
	var cleared []string
	for _, t := range tables {
		ok, err := w.TableExists(ctx, t)
		if err != nil {
			return cleared, err
		}
		if !ok {
			w.log.Warn("table not found, skipping", zap.String("table", t))
			continue
		}
		if _, err := w.db.ExecContext(ctx, "DELETE FROM "+quoteIdent(t)); err != nil {
			return cleared, fmt.Errorf("clear %s: %w", t, err)
		}
		cleared = append(cleared, t)
	}
	w.log.Info("cleared summary tables", zap.Strings("tables", cleared))
	return cleared, nil
}

// LoadSummaries appends every sheet of a summary workbook to its table,
// creating the table from the sheet's columns when it does not exist.
func (w *Warehouse) LoadSummaries(ctx context.Context, path string, sheetToTable map[string]string) ([]LoadResult, error) {
	sum, err := checksum.File(path)
	if err != nil {
		return nil, err
	}
	wb, err := workbook.Open(path, workbook.Options{Raw: true})
	if err != nil {
		return nil, err
	}
	defer wb.Close()

	if err := w.ensureAudit(ctx); err != nil {
		return nil, err
	}
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	batch := uuid.NewString()
	var out []LoadResult
	for _, sheet := range wb.SheetNames() {
		table := sheet
		if t, ok := sheetToTable[sheet]; ok && t != "" {
			table = t
		}
		rows, err := wb.Rows(sheet)
		if err != nil {
			return nil, err
		}
		frame, err := NewFrame(rows)
		if errors.Is(err, ErrNoHeader) {
			w.log.Warn("empty sheet, skipping", zap.String("sheet", sheet))
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("sheet %q: %w", sheet, err)
		}

		exists, err := tableExists(ctx, tx, table)
		if err != nil {
			return nil, err
		}
		if err := writeFrame(ctx, tx, table, frame, !exists); err != nil {
			return nil, fmt.Errorf("load sheet %q into %s: %w", sheet, table, err)
		}
		res := LoadResult{BatchID: batch, Sheet: sheet, Table: table, Rows: len(frame.Rows), Created: !exists, Checksum: sum}
		if err := w.audit(ctx, tx, res, path); err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	// Nothing is kept, audit rows included, unless every sheet loaded.
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit %s: %w", filepath.Base(path), err)
	}
	for _, res := range out {
		w.log.Info("loaded sheet",
			zap.String("sheet", res.Sheet),
			zap.String("table", res.Table),
			zap.Int("rows", res.Rows),
			zap.Bool("created", res.Created))
	}
	return out, nil
}

// LoadTransactions replaces table with the first sheet of the workbook and
// returns the new table's columns.
func (w *Warehouse) LoadTransactions(ctx context.Context, path, table string) ([]Column, error) {
	if table == "" {
		table = config.TransactionsTable
	}
	sum, err := checksum.File(path)
	if err != nil {
		return nil, err
	}
	wb, err := workbook.Open(path, workbook.Options{Raw: true})
	if err != nil {
		return nil, err
	}
	defer wb.Close()

	sheets := wb.SheetNames()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), ErrNoHeader)
	}
	rows, err := wb.Rows(sheets[0])
	if err != nil {
		return nil, err
	}
	frame, err := NewFrame(rows)
	if err != nil {
		return nil, fmt.Errorf("sheet %q: %w", sheets[0], err)
	}

	if err := w.ensureAudit(ctx); err != nil {
		return nil, err
	}
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+quoteIdent(table)); err != nil {
		return nil, fmt.Errorf("drop %s: %w", table, err)
	}
	if err := writeFrame(ctx, tx, table, frame, true); err != nil {
		return nil, fmt.Errorf("load transactions into %s: %w", table, err)
	}
	res := LoadResult{BatchID: uuid.NewString(), Sheet: sheets[0], Table: table, Rows: len(frame.Rows), Created: true, Checksum: sum}
	if err := w.audit(ctx, tx, res, path); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit %s: %w", table, err)
	}
	w.log.Info("loaded transactions", zap.String("table", table), zap.Int("rows", res.Rows))
	return w.TableInfo(ctx, table)
}

func writeFrame(ctx context.Context, tx *sql.Tx, table string, f *Frame, create bool) error {
	if create {
		defs := make([]string, len(f.Columns))
		for i, c := range f.Columns {
			defs[i] = quoteIdent(c) + " " + f.Types[i]
		}
		ddl := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", quoteIdent(table), strings.Join(defs, ", "))
		if _, err := tx.ExecContext(ctx, ddl); err != nil {
			return err
		}
	}
	if len(f.Rows) > 0 {
		names := make([]string, len(f.Columns))
		marks := make([]string, len(f.Columns))
		for i, c := range f.Columns {
			names[i] = quoteIdent(c)
			marks[i] = "?"
		}
		stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
			quoteIdent(table), strings.Join(names, ", "), strings.Join(marks, ", ")))
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, r := range f.Rows {
			if _, err := stmt.ExecContext(ctx, r...); err != nil {
				return err
			}
		}
	}
	return nil
}

func (w *Warehouse) ensureAudit(ctx context.Context) error {
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		batch_id VARCHAR,
		table_name VARCHAR,
		sheet_name VARCHAR,
		source_file VARCHAR,
		checksum VARCHAR,
		row_count BIGINT,
		loaded_at TIMESTAMP
	)`, quoteIdent(config.LoadAuditTable))
	if _, err := w.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create %s: %w", config.LoadAuditTable, err)
	}
	return nil
}

func (w *Warehouse) audit(ctx context.Context, tx *sql.Tx, res LoadResult, source string) error {
	_, err := tx.ExecContext(ctx,
		fmt.Sprintf("INSERT INTO %s VALUES (?, ?, ?, ?, ?, ?, ?)", quoteIdent(config.LoadAuditTable)),
		res.BatchID, res.Table, res.Sheet, filepath.Base(source), res.Checksum, int64(res.Rows), w.now().UTC())
	if err != nil {
		return fmt.Errorf("write load audit: %w", err)
	}
	return nil
}

// AlreadyLoaded reports whether a file with the same name and contents as
// path was loaded before.
func (w *Warehouse) AlreadyLoaded(ctx context.Context, path string) (bool, error) {
	if err := w.ensureAudit(ctx); err != nil {
		return false, err
	}
	var sum string
	err := w.db.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT checksum FROM %s
		WHERE source_file = ? AND checksum IS NOT NULL
		ORDER BY loaded_at DESC
		LIMIT 1`, quoteIdent(config.LoadAuditTable)), filepath.Base(path)).Scan(&sum)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lookup load audit: %w", err)
	}
	return checksum.NewMatcher(sum).MatchFile(path)
}

func (w *Warehouse) TableExists(ctx context.Context, table string) (bool, error) {
	return tableExists(ctx, w.db, table)
}

type rowQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func tableExists(ctx context.Context, q rowQuerier, table string) (bool, error) {
	var n int
	err := q.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM information_schema.tables WHERE table_name = ?", table).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("lookup table %s: %w", table, err)
	}
	return n > 0, nil
}

// Tables lists the base tables in the main schema.
func (w *Warehouse) Tables(ctx context.Context) ([]string, error) {
	rows, err := w.db.QueryContext(ctx,
		"SELECT table_name FROM information_schema.tables WHERE table_schema = 'main' ORDER BY table_name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

func (w *Warehouse) TableInfo(ctx context.Context, table string) ([]Column, error) {
	rows, err := w.db.QueryContext(ctx, `
		SELECT column_name, data_type, is_nullable
		FROM information_schema.columns
		WHERE table_name = ?
		ORDER BY ordinal_position`, table)
	if err != nil {
		return nil, fmt.Errorf("table info %s: %w", table, err)
	}
	defer rows.Close()
	var out []Column
	for rows.Next() {
		var c Column
		var nullable string
		if err := rows.Scan(&c.Name, &c.Type, &nullable); err != nil {
			return nil, err
		}
		c.Nullable = nullable == "YES"
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("table %s not found", table)
	}
	return out, nil
}

// RowCount returns SELECT COUNT(*) for table.
func (w *Warehouse) RowCount(ctx context.Context, table string) (int64, error) {
	var n int64
	if err := w.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+quoteIdent(table)).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}

// FileCounts counts rows per trimmed, non-empty archive_file_name.
func (w *Warehouse) FileCounts(ctx context.Context, table string) (map[string]int64, error) {
	q := fmt.Sprintf(`
		SELECT TRIM(CAST(archive_file_name AS VARCHAR)) AS name, COUNT(*)
		FROM %s
		WHERE archive_file_name IS NOT NULL
		GROUP BY name
		ORDER BY name`, quoteIdent(table))
	rows, err := w.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("file counts %s: %w", table, err)
	}
	defer rows.Close()
	out := make(map[string]int64)
	for rows.Next() {
		var name string
		var n int64
		if err := rows.Scan(&name, &n); err != nil {
			return nil, err
		}
		if name == "" {
			continue
		}
		out[name] += n
	}
	return out, rows.Err()
}

// TextRow is one table row with the requested columns cast to text.
type TextRow struct {
	RowID  int64
	Values map[string]sql.NullString
}

func (r TextRow) Get(col string) string {
	return r.Values[col].String
}

// ReadText selects columns from table as VARCHAR in rowid order. Columns
// the table lacks come back NULL and are reported in missing.
func (w *Warehouse) ReadText(ctx context.Context, table string, columns []string) (rows []TextRow, missing []string, err error) {
	info, err := w.TableInfo(ctx, table)
	if err != nil {
		return nil, nil, err
	}
	have := make(map[string]bool, len(info))
	for _, c := range info {
		have[c.Name] = true
	}

	exprs := make([]string, len(columns))
	for i, c := range columns {
		if have[c] {
			exprs[i] = fmt.Sprintf("CAST(%s AS VARCHAR)", quoteIdent(c))
		} else {
			exprs[i] = "CAST(NULL AS VARCHAR)"
			missing = append(missing, c)
		}
	}
	q := fmt.Sprintf("SELECT rowid, %s FROM %s ORDER BY rowid", strings.Join(exprs, ", "), quoteIdent(table))
	res, err := w.db.QueryContext(ctx, q)
	if err != nil {
		return nil, missing, fmt.Errorf("read %s: %w", table, err)
	}
	defer res.Close()

	for res.Next() {
		vals := make([]sql.NullString, len(columns))
		dest := make([]any, len(columns)+1)
		var id int64
		dest[0] = &id
		for i := range vals {
			dest[i+1] = &vals[i]
		}
		if err := res.Scan(dest...); err != nil {
			return nil, missing, err
		}
		r := TextRow{RowID: id, Values: make(map[string]sql.NullString, len(columns))}
		for i, c := range columns {
			r.Values[c] = vals[i]
		}
		rows = append(rows, r)
	}
	return rows, missing, res.Err()
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
