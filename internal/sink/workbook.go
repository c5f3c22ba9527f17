package sink

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/opportunity-research/internal/model"
)

// WorkbookSheet is the sheet entries are appended to.
const WorkbookSheet = "Lookups"

// WorkbookHeader is the first row of a newly created workbook.
var WorkbookHeader = []string{"ID", "Timestamp", "Name", "Title", "Company", "Research", "Opportunities"}

// Workbook appends one row per entry to a local .xlsx file. The file and
// its header row are created on first use.
type Workbook struct {
	path string
	mu   sync.Mutex
}

// NewWorkbook returns a Workbook sink writing to path.
func NewWorkbook(path string) *Workbook {
	return &Workbook{path: path}
}

func (w *Workbook) Name() string { return "xlsx" }

func (w *Workbook) Append(ctx context.Context, e model.LogEntry) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return eris.Wrap(err, "xlsx: append")
	}

	f, err := w.load()
	if err != nil {
		return err
	}

	sheet, ok := f.Sheet[WorkbookSheet]
	if !ok {
		if sheet, err = addSheet(f); err != nil {
			return err
		}
	}

	addRow(sheet, []string{
		e.ID,
		e.Timestamp.UTC().Format(time.RFC3339),
		e.Name,
		e.Title,
		e.Company,
		e.ResearchText,
		e.OpportunitiesText,
	})

	if err := f.Save(w.path); err != nil {
		return eris.Wrapf(err, "xlsx: save %s", w.path)
	}
	return nil
}

func (w *Workbook) load() (*xlsx.File, error) {
	if _, err := os.Stat(w.path); errors.Is(err, fs.ErrNotExist) {
		return xlsx.NewFile(), nil
	}
	f, err := xlsx.OpenFile(w.path)
	if err != nil {
		return nil, eris.Wrapf(err, "xlsx: open %s", w.path)
	}
	return f, nil
}

func addSheet(f *xlsx.File) (*xlsx.Sheet, error) {
	sheet, err := f.AddSheet(WorkbookSheet)
	if err != nil {
		return nil, eris.Wrap(err, "xlsx: add sheet")
	}
	addRow(sheet, WorkbookHeader)
	return sheet, nil
}

func addRow(sheet *xlsx.Sheet, values []string) {
	row := sheet.AddRow()
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}

func (w *Workbook) Close() error { return nil }
