package export

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"plotloader/app/interfaces"
)

// Package export writes a loaded table back out, either as delimited text,
// as an Excel workbook or into a SQLite database. Columns are the union of
// all row keys so nothing parsed is lost.

// ErrUnsupportedExportFormat is returned for destinations whose extension
// names no known format.
var ErrUnsupportedExportFormat = errors.New("unsupported export format")

// Format identifies an export destination type.
type Format string

const (
	FormatCSV    Format = "csv"
	FormatXLSX   Format = "xlsx"
	FormatSQLite Format = "sqlite"
)

// FormatForPath picks the export format from the destination's extension.
func FormatForPath(path string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(path), ".")) {
	case "csv":
		return FormatCSV, nil
	case "xlsx":
		return FormatXLSX, nil
	case "db", "sqlite", "sqlite3":
		return FormatSQLite, nil
	}
	return "", errors.Wrapf(ErrUnsupportedExportFormat, "%q", path)
}

// ToFile writes table to path in the format its extension names.
func ToFile(ctx context.Context, path string, table *interfaces.Table) error {
	format, err := FormatForPath(path)
	if err != nil {
		return err
	}

	switch format {
	case FormatSQLite:
		return ToSQLite(ctx, path, table)
	case FormatXLSX:
		return writeFile(path, func(w io.Writer) error { return WriteXLSX(w, table) })
	default:
		return writeFile(path, func(w io.Writer) error { return WriteCSV(w, table) })
	}
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "failed to create export file")
	}
	if err := write(f); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return err
	}
	return errors.Wrap(f.Close(), "failed to close export file")
}

// cellText renders a value for text output. Absent and null cells are empty.
func cellText(v interfaces.Value) string {
	switch v.Kind {
	case interfaces.KindAbsent, interfaces.KindNull:
		return ""
	}
	return v.String()
}

// WriteCSV writes table as comma separated text with a header row.
func WriteCSV(w io.Writer, table *interfaces.Table) error {
	columns := table.AllColumns()
	cw := csv.NewWriter(w)
	if err := cw.Write(columns); err != nil {
		return errors.Wrap(err, "failed to write header")
	}

	record := make([]string, len(columns))
	for _, row := range table.Rows {
		for i, key := range columns {
			record[i] = cellText(row.Value(key))
		}
		if err := cw.Write(record); err != nil {
			return errors.Wrap(err, "failed to write row")
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "failed to flush csv")
}
