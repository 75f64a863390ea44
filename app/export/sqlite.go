package export

import (
	"context"
	"database/sql"
	"strings"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"plotloader/app/fields"
	"plotloader/app/interfaces"
)

// SQLiteTable is the table rows are inserted into.
const SQLiteTable = "rows"

// sqlIdent quotes a column name. Keys come from file headers and may hold
// any character.
func sqlIdent(id string) string {
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}

// ToSQLite writes table into the SQLite database at path, replacing any
// existing table of the same name. Numeric columns get REAL affinity,
// everything else TEXT. Absent and null cells are stored as NULL.
func ToSQLite(ctx context.Context, path string, table *interfaces.Table) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return errors.Wrap(err, "failed to open database")
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		return errors.Wrap(err, "failed to open database")
	}

	columns := table.AllColumns()
	if len(columns) == 0 {
		return errors.Errorf("%s has no columns to export", table.Source)
	}
	numeric := make([]bool, len(columns))
	defs := make([]string, len(columns))
	names := make([]string, len(columns))
	for i, key := range columns {
		numeric[i] = fields.IsColumnNumeric(table.Rows, key)
		affinity := "TEXT"
		if numeric[i] {
			affinity = "REAL"
		}
		names[i] = sqlIdent(key)
		defs[i] = names[i] + " " + affinity
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+sqlIdent(SQLiteTable)); err != nil {
		return errors.Wrap(err, "failed to drop table")
	}
	create := "CREATE TABLE " + sqlIdent(SQLiteTable) + " (" + strings.Join(defs, ", ") + ")"
	if _, err := tx.ExecContext(ctx, create); err != nil {
		return errors.Wrap(err, "failed to create table")
	}

	insert := "INSERT INTO " + sqlIdent(SQLiteTable) + " (" + strings.Join(names, ", ") +
		") VALUES (" + strings.TrimRight(strings.Repeat("?,", len(columns)), ",") + ")"
	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return errors.Wrap(err, "failed to prepare insert")
	}
	defer stmt.Close()

	args := make([]any, len(columns))
	for r, row := range table.Rows {
		for i, key := range columns {
			v := row.Value(key)
			if numeric[i] {
				v = fields.Coerce(v)
			}
			args[i] = sqlValue(v)
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return errors.Wrapf(err, "failed to insert row %d", r+1)
		}
	}

	return errors.Wrap(tx.Commit(), "failed to commit")
}

func sqlValue(v interfaces.Value) any {
	if v.Kind == interfaces.KindBool {
		if v.Bool {
			return "true"
		}
		return "false"
	}
	return v.Interface()
}
