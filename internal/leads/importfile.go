package leads

import (
	"encoding/csv"
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/leadscout/internal/model"
)

type importColumn int

const (
	colName importColumn = iota
	colWebsite
	colLocation
	colNotes
)

var headerAliases = map[string]importColumn{
	"name":          colName,
	"business name": colName,
	"company":       colName,
	"website":       colWebsite,
	"url":           colWebsite,
	"domain":        colWebsite,
	"location":      colLocation,
	"address":       colLocation,
	"notes":         colNotes,
}

// ReadCSV parses a bulk-import CSV. The first row is the header.
func ReadCSV(r io.Reader) ([]model.BusinessRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, eris.Wrapf(model.ErrInvalidRequest, "leads: read csv: %v", err)
	}
	return rowsToRecords(rows)
}

// ReadXLSX parses the first sheet of a bulk-import workbook.
func ReadXLSX(path string) ([]model.BusinessRecord, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "leads: open xlsx %s", path)
	}
	if len(f.Sheets) == 0 {
		return nil, eris.Wrapf(model.ErrInvalidRequest, "leads: xlsx %s has no sheets", path)
	}

	sheet := f.Sheets[0]
	rows := make([][]string, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		if row == nil {
			continue
		}
		vals := make([]string, len(row.Cells))
		for i, cell := range row.Cells {
			vals[i] = cell.String()
		}
		rows = append(rows, vals)
	}
	return rowsToRecords(rows)
}

func rowsToRecords(rows [][]string) ([]model.BusinessRecord, error) {
	if len(rows) == 0 {
		return nil, eris.Wrap(model.ErrInvalidRequest, "leads: import file is empty")
	}

	cols := mapHeader(rows[0])
	if _, ok := cols[colName]; !ok {
		return nil, eris.Wrap(model.ErrInvalidRequest, "leads: import file has no name column")
	}

	out := make([]model.BusinessRecord, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if blankRow(row) {
			continue
		}
		out = append(out, model.BusinessRecord{
			Name:     field(row, cols, colName),
			Website:  field(row, cols, colWebsite),
			Location: field(row, cols, colLocation),
			Notes:    field(row, cols, colNotes),
			Source:   model.SourceImported,
		})
	}
	return out, nil
}

// mapHeader returns the index of each recognised column. The first header
// matching a column wins.
func mapHeader(header []string) map[importColumn]int {
	cols := make(map[importColumn]int, len(header))
	for i, h := range header {
		h = strings.TrimPrefix(h, "\ufeff")
		h = strings.ToLower(strings.Join(strings.Fields(h), " "))
		col, ok := headerAliases[h]
		if !ok {
			continue
		}
		if _, seen := cols[col]; !seen {
			cols[col] = i
		}
	}
	return cols
}

func field(row []string, cols map[importColumn]int, col importColumn) string {
	i, ok := cols[col]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func blankRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
