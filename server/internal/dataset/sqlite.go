package dataset

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strconv"
	"strings"

	_ "modernc.org/sqlite"
)

// LoadSQLite reads the product columns of table from the SQLite database at
// path. The file must already exist.
func LoadSQLite(ctx context.Context, path, table string, opts Options) (*Result, error) {
	if table == "" {
		return nil, fmt.Errorf("dataset: sqlite %q: table name is required", path)
	}
	// sql.Open would create a missing file.
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("dataset: open sqlite %q: %w", path, err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("dataset: open sqlite %q: %w", path, err)
	}
	defer db.Close()

	res, err := readTable(ctx, db, table, fmt.Sprintf("sqlite:%s#%s", path, table), opts)
	if err != nil {
		return nil, fmt.Errorf("dataset: sqlite %q: %w", path, err)
	}
	return res, nil
}

func readTable(ctx context.Context, db *sql.DB, table, source string, opts Options) (*Result, error) {
	cols, err := tableColumns(ctx, db, table)
	if err != nil {
		return nil, err
	}
	idx, err := columnIndex(cols)
	if err != nil {
		return nil, err
	}

	selected := make([]string, len(Columns))
	for i, c := range Columns {
		selected[i] = quoteIdent(cols[idx[c]])
	}
	q := fmt.Sprintf("SELECT %s FROM %s", strings.Join(selected, ", "), quoteIdent(table))
	rows, err := db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	defer rows.Close()

	c := &collector{opts: opts, source: source}
	values := make([]any, len(Columns))
	scans := make([]any, len(Columns))
	for i := range values {
		scans[i] = &values[i]
	}
	pos := make(map[string]int, len(Columns))
	for i, col := range Columns {
		pos[col] = i
	}

	for row := 1; rows.Next(); row++ {
		if err := rows.Scan(scans...); err != nil {
			return nil, fmt.Errorf("scan row %d: %w", row, err)
		}
		get := func(col string) string { return cellText(values[pos[col]]) }
		if err := c.add(row, get); err != nil {
			return nil, err
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return c.result(), nil
}

func tableColumns(ctx context.Context, db *sql.DB, table string) ([]string, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", quoteIdent(table)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var cid, notnull, pk int
		var name, ctype string
		var dflt sql.NullString
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return nil, err
		}
		cols = append(cols, name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("table %q not found or has no columns", table)
	}
	return cols, nil
}

// cellText renders a scanned SQLite value the way it would appear in a CSV
// export, so both sources share one parser.
func cellText(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(x)
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
