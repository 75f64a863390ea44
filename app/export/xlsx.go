package export

import (
	"io"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"plotloader/app/fields"
	"plotloader/app/interfaces"
)

// SheetName is the worksheet the table is written to.
const SheetName = "Data"

// WriteXLSX writes table as a single-sheet workbook. Columns whose values
// are all numeric are written as numbers so spreadsheets can chart them.
func WriteXLSX(w io.Writer, table *interfaces.Table) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return errors.Wrap(err, "failed to name sheet")
	}

	columns := table.AllColumns()
	numeric := make([]bool, len(columns))
	header := make([]any, len(columns))
	for i, key := range columns {
		header[i] = key
		numeric[i] = fields.IsColumnNumeric(table.Rows, key)
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return errors.Wrap(err, "failed to write header")
	}

	for r, row := range table.Rows {
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		values := make([]any, len(columns))
		for i, key := range columns {
			v := row.Value(key)
			if numeric[i] {
				v = fields.Coerce(v)
			}
			values[i] = v.Interface()
		}
		if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
			return errors.Wrapf(err, "failed to write row %d", r+1)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return errors.Wrap(err, "failed to write workbook")
	}
	return nil
}
