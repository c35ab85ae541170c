package export

import (
	"context"
	"errors"
	"os"
	"sync"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/invoice-cli/internal/model"
)

const defaultSheetName = "Faktury"

// Workbook appends rows to a local XLSX file, creating it with a header row
// on first use.
type Workbook struct {
	mu        sync.Mutex
	path      string
	sheetName string
}

// NewWorkbook creates a Workbook appender for path.
func NewWorkbook(path, sheetName string) *Workbook {
	if sheetName == "" {
		sheetName = defaultSheetName
	}
	return &Workbook{path: path, sheetName: sheetName}
}

// AppendRow implements Appender.
func (w *Workbook) AppendRow(_ context.Context, inv *model.ProcessedInvoice) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	f, sheet, err := w.open()
	if err != nil {
		return err
	}

	addRow(sheet, Row(inv))
	return eris.Wrapf(f.Save(w.path), "export: save workbook %s", w.path)
}

// Rows returns every row of the sheet, header included.
func (w *Workbook) Rows() ([][]string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	f, err := xlsx.OpenFile(w.path)
	if err != nil {
		return nil, eris.Wrap(err, "export: open workbook")
	}
	sheet, ok := f.Sheet[w.sheetName]
	if !ok {
		return nil, eris.Errorf("export: sheet %q not found", w.sheetName)
	}

	rows := make([][]string, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = cell.String()
		}
		rows = append(rows, cells)
	}
	return rows, nil
}

func (w *Workbook) open() (*xlsx.File, *xlsx.Sheet, error) {
	var f *xlsx.File
	if _, err := os.Stat(w.path); errors.Is(err, os.ErrNotExist) {
		f = xlsx.NewFile()
	} else {
		if f, err = xlsx.OpenFile(w.path); err != nil {
			return nil, nil, eris.Wrapf(err, "export: open workbook %s", w.path)
		}
	}

	if sheet, ok := f.Sheet[w.sheetName]; ok {
		return f, sheet, nil
	}
	sheet, err := f.AddSheet(w.sheetName)
	if err != nil {
		return nil, nil, eris.Wrapf(err, "export: add sheet %s", w.sheetName)
	}
	addRow(sheet, Header)
	return f, sheet, nil
}

func addRow(sheet *xlsx.Sheet, values []string) {
	row := sheet.AddRow()
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}
