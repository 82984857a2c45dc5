//go:build cgo && !nohdf5

package hdf5

import (
	"encoding/binary"
	"math"
	"sort"

	"gonum.org/v1/hdf5"

	"github.com/turtacn/Catalysis-Ingest/internal/infrastructure/tabular"
	"github.com/turtacn/Catalysis-Ingest/pkg/errors"
)

// File is an open HDF5 container.
type File struct {
	f *hdf5.File
}

var _ tabular.H5Source = (*File)(nil)

// Open opens path read-only.
func Open(path string) (*File, error) {
	f, err := hdf5.OpenFile(path, hdf5.F_ACC_RDONLY)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrCodeDataSourceRead, "hdf5: open %s", path)
	}
	return &File{f: f}, nil
}

// Close releases the file handle.
func (f *File) Close() error {
	return f.f.Close()
}

// Keys lists the members of the group at path, sorted by name.
func (f *File) Keys(path string) ([]string, error) {
	g, err := f.f.OpenGroup(path)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrCodeHDF5Layout, "hdf5: open group %q", path)
	}
	defer g.Close()

	n, err := g.NumObjects()
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrCodeHDF5Layout, "hdf5: count members of %q", path)
	}
	keys := make([]string, 0, n)
	for i := uint(0); i < n; i++ {
		name, err := g.ObjectNameByIndex(i)
		if err != nil {
			return nil, errors.Wrapf(err, errors.ErrCodeHDF5Layout, "hdf5: member %d of %q", i, path)
		}
		keys = append(keys, name)
	}
	sort.Strings(keys)
	return keys, nil
}

// Dataset reads the compound dataset at path.  Float and integer members
// become numeric fields, fixed-length string members become text fields;
// other member classes are skipped.  Members are decoded little-endian.
func (f *File) Dataset(path string) (*tabular.Dataset, error) {
	ds, err := f.f.OpenDataset(path)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrCodeHDF5Layout, "hdf5: open dataset %q", path)
	}
	defer ds.Close()

	dt, err := ds.Datatype()
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrCodeHDF5Layout, "hdf5: datatype of %q", path)
	}
	defer dt.Close()
	if dt.Class() != hdf5.T_COMPOUND {
		return nil, errors.Newf(errors.ErrCodeHDF5Layout, "hdf5: %q is not a compound dataset", path)
	}

	space := ds.Space()
	defer space.Close()
	rows := space.SimpleExtentNPoints()
	rowSize := int(dt.Size())

	buf := make([]byte, rows*rowSize)
	if rows > 0 {
		if err := ds.Read(&buf); err != nil {
			return nil, errors.Wrapf(err, errors.ErrCodeDataSourceRead, "hdf5: read %q", path)
		}
	}

	ct := &hdf5.CompoundType{Datatype: *dt}
	out := tabular.NewDataset()
	for m := 0; m < ct.NMembers(); m++ {
		mt, err := ct.MemberType(m)
		if err != nil {
			return nil, errors.Wrapf(err, errors.ErrCodeHDF5Layout, "hdf5: member %d of %q", m, path)
		}
		col := member{
			name:    ct.MemberName(m),
			offset:  ct.MemberOffset(m),
			size:    int(mt.Size()),
			rowSize: rowSize,
			rows:    rows,
		}
		class, vlen := mt.Class(), mt.IsVariableStr()
		mt.Close()

		switch {
		case class == hdf5.T_FLOAT:
			out.AddNumeric(col.name, col.floats(buf))
		case class == hdf5.T_INTEGER:
			out.AddNumeric(col.name, col.ints(buf))
		case class == hdf5.T_STRING && !vlen:
			out.AddText(col.name, col.strings(buf))
		}
	}
	return out, nil
}

type member struct {
	name    string
	offset  int
	size    int
	rowSize int
	rows    int
}

func (m member) cell(buf []byte, row int) []byte {
	start := row*m.rowSize + m.offset
	return buf[start : start+m.size]
}

func (m member) floats(buf []byte) []float64 {
	out := make([]float64, m.rows)
	for i := range out {
		b := m.cell(buf, i)
		switch m.size {
		case 4:
			out[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(b)))
		case 8:
			out[i] = math.Float64frombits(binary.LittleEndian.Uint64(b))
		default:
			out[i] = math.NaN()
		}
	}
	return out
}

func (m member) ints(buf []byte) []float64 {
	out := make([]float64, m.rows)
	for i := range out {
		b := m.cell(buf, i)
		switch m.size {
		case 1:
			out[i] = float64(int8(b[0]))
		case 2:
			out[i] = float64(int16(binary.LittleEndian.Uint16(b)))
		case 4:
			out[i] = float64(int32(binary.LittleEndian.Uint32(b)))
		case 8:
			out[i] = float64(int64(binary.LittleEndian.Uint64(b)))
		default:
			out[i] = math.NaN()
		}
	}
	return out
}

func (m member) strings(buf []byte) []string {
	out := make([]string, m.rows)
	for i := range out {
		out[i] = string(m.cell(buf, i))
	}
	return out
}
