package export

import (
	"bytes"
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"plotloader/app/interfaces"
)

func sampleTable() *interfaces.Table {
	a := interfaces.NewRow(3)
	a.Set("name", interfaces.String("alpha"))
	a.Set("score", interfaces.String("1.5"))
	a.Set("ok", interfaces.Bool(true))

	b := interfaces.NewRow(3)
	b.Set("name", interfaces.String("beta, gamma"))
	b.Set("score", interfaces.Number(2))
	b.Set("note", interfaces.Null())

	return &interfaces.Table{Source: "sample.json", Rows: []*interfaces.Row{a, b}}
}

func TestFormatForPath(t *testing.T) {
	for path, want := range map[string]Format{
		"out.csv":      FormatCSV,
		"OUT.XLSX":     FormatXLSX,
		"dir/data.db":  FormatSQLite,
		"data.sqlite3": FormatSQLite,
	} {
		got, err := FormatForPath(path)
		require.NoError(t, err, path)
		assert.Equal(t, want, got, path)
	}

	_, err := FormatForPath("out.parquet")
	assert.True(t, errors.Is(err, ErrUnsupportedExportFormat))
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleTable()))
	assert.Equal(t, "name,score,ok,note\nalpha,1.5,true,\n\"beta, gamma\",2,,\n", buf.String())
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, sampleTable()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"name", "score", "ok", "note"}, rows[0])
	assert.Equal(t, "alpha", rows[1][0])
	assert.Equal(t, "1.5", rows[1][1])
	assert.Equal(t, "beta, gamma", rows[2][0])

	cellType, err := f.GetCellType(SheetName, "B2")
	require.NoError(t, err)
	assert.NotEqual(t, excelize.CellTypeSharedString, cellType, "numeric column is stored as numbers")
}

func TestToSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.db")
	ctx := context.Background()
	require.NoError(t, ToSQLite(ctx, path, sampleTable()))
	// Exporting again replaces the table.
	require.NoError(t, ToSQLite(ctx, path, sampleTable()))

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	var count int
	require.NoError(t, db.QueryRowContext(ctx, `SELECT COUNT(*) FROM "rows"`).Scan(&count))
	assert.Equal(t, 2, count)

	var total float64
	require.NoError(t, db.QueryRowContext(ctx, `SELECT SUM(score) FROM "rows"`).Scan(&total))
	assert.InDelta(t, 3.5, total, 1e-9)

	var scoreType string
	require.NoError(t, db.QueryRowContext(ctx, `SELECT typeof(score) FROM "rows" LIMIT 1`).Scan(&scoreType))
	assert.Equal(t, "real", scoreType)

	var note sql.NullString
	require.NoError(t, db.QueryRowContext(ctx, `SELECT note FROM "rows" WHERE name = 'beta, gamma'`).Scan(&note))
	assert.False(t, note.Valid)
}

func TestToFile(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	csvPath := filepath.Join(dir, "out.csv")
	require.NoError(t, ToFile(ctx, csvPath, sampleTable()))
	b, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	assert.Contains(t, string(b), "name,score,ok,note")

	xlsxPath := filepath.Join(dir, "out.xlsx")
	require.NoError(t, ToFile(ctx, xlsxPath, sampleTable()))
	_, err = os.Stat(xlsxPath)
	assert.NoError(t, err)

	err = ToFile(ctx, filepath.Join(dir, "out.txt"), sampleTable())
	assert.True(t, errors.Is(err, ErrUnsupportedExportFormat))
}
