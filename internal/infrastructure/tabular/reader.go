// Package tabular reads lab-data files into reaction.RawTable values.
package tabular

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/turtacn/Catalysis-Ingest/internal/domain/reaction"
	"github.com/turtacn/Catalysis-Ingest/pkg/errors"
)

// Format identifies a supported file format by extension.
type Format string

const (
	FormatCSV  Format = ".csv"
	FormatXLSX Format = ".xlsx"
	FormatHDF5 Format = ".h5"
)

// Reader decodes one file body into a table.
type Reader interface {
	Read(ctx context.Context, r io.Reader) (reaction.RawTable, error)
}

// DetectFormat returns the format for path by its extension, case-insensitive.
func DetectFormat(path string) (Format, bool) {
	switch Format(strings.ToLower(filepath.Ext(path))) {
	case FormatCSV:
		return FormatCSV, true
	case FormatXLSX:
		return FormatXLSX, true
	case FormatHDF5:
		return FormatHDF5, true
	default:
		return "", false
	}
}

// ReaderFor returns the table reader for path.  HDF5 containers are not
// tables and are rejected here like any other unknown extension.
func ReaderFor(path string) (Reader, error) {
	f, _ := DetectFormat(path)
	switch f {
	case FormatCSV:
		return NewCSVReader(), nil
	case FormatXLSX:
		return NewXLSXReader(), nil
	default:
		return nil, errors.UnsupportedFormat(path, string(FormatCSV), string(FormatXLSX))
	}
}

// ReadFile opens path from the local filesystem and decodes it.
func ReadFile(ctx context.Context, path string) (reaction.RawTable, error) {
	rd, err := ReaderFor(path)
	if err != nil {
		return reaction.RawTable{}, err
	}
	f, err := os.Open(path)
	if err != nil {
		return reaction.RawTable{}, errors.Wrapf(err, errors.ErrCodeDataSourceRead, "open %s", path)
	}
	defer f.Close()
	return rd.Read(ctx, f)
}
