package tabular

import (
	"context"
	"encoding/csv"
	"io"
	"strings"

	"github.com/turtacn/Catalysis-Ingest/internal/domain/reaction"
	"github.com/turtacn/Catalysis-Ingest/pkg/errors"
)

const utf8BOM = "\ufeff"

// CSVReader reads comma-separated files with a header row.
type CSVReader struct {
	Comma rune
}

// NewCSVReader returns a reader for comma-separated input.
func NewCSVReader() *CSVReader { return &CSVReader{Comma: ','} }

// Read implements Reader.  Rows may be ragged; columns blank in every row are
// dropped.
func (c *CSVReader) Read(ctx context.Context, r io.Reader) (reaction.RawTable, error) {
	cr := csv.NewReader(r)
	cr.Comma = c.Comma
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = false

	header, err := cr.Read()
	if err == io.EOF {
		return reaction.RawTable{}, errors.New(errors.ErrCodeEmptyTable, "csv: file is empty")
	}
	if err != nil {
		return reaction.RawTable{}, errors.Wrap(err, errors.ErrCodeDataSourceParse, "csv: read header")
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], utf8BOM)
	}

	var rows [][]string
	for {
		if err := ctx.Err(); err != nil {
			return reaction.RawTable{}, err
		}
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return reaction.RawTable{}, errors.Wrap(err, errors.ErrCodeDataSourceParse, "csv: read row")
		}
		rows = append(rows, rec)
	}
	return reaction.NewRawTableFromRows(header, rows), nil
}
