package tabular

import (
	"context"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/turtacn/Catalysis-Ingest/internal/domain/reaction"
	"github.com/turtacn/Catalysis-Ingest/pkg/errors"
)

// XLSXReader reads the first worksheet of an Excel workbook.
type XLSXReader struct{}

// NewXLSXReader returns an XLSXReader.
func NewXLSXReader() *XLSXReader { return &XLSXReader{} }

// Read implements Reader.  The first row is the header.  Cell values are read
// unformatted so that numbers keep their full precision.
func (x *XLSXReader) Read(ctx context.Context, r io.Reader) (reaction.RawTable, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return reaction.RawTable{}, errors.Wrap(err, errors.ErrCodeDataSourceParse, "xlsx: open workbook")
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return reaction.RawTable{}, errors.New(errors.ErrCodeEmptyTable, "xlsx: workbook has no sheets")
	}
	if err := ctx.Err(); err != nil {
		return reaction.RawTable{}, err
	}
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return reaction.RawTable{}, errors.Wrapf(err, errors.ErrCodeDataSourceParse, "xlsx: read sheet %q", sheets[0])
	}
	if len(rows) == 0 {
		return reaction.RawTable{}, errors.New(errors.ErrCodeEmptyTable, "xlsx: first sheet is empty")
	}
	return reaction.NewRawTableFromRows(rows[0], rows[1:]), nil
}
