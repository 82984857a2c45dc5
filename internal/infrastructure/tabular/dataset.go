package tabular

import "strings"

// Dataset is a decoded HDF5 compound dataset: one named field per member,
// each either numeric or text.
type Dataset struct {
	Fields  []string
	numeric map[string][]float64
	text    map[string][]string
}

// NewDataset returns an empty dataset.
func NewDataset() *Dataset {
	return &Dataset{numeric: map[string][]float64{}, text: map[string][]string{}}
}

// AddNumeric appends a numeric field.
func (d *Dataset) AddNumeric(name string, values []float64) {
	d.Fields = append(d.Fields, name)
	d.numeric[name] = values
}

// AddText appends a text field.  NUL padding and surrounding spaces are
// trimmed.
func (d *Dataset) AddText(name string, values []string) {
	trimmed := make([]string, len(values))
	for i, v := range values {
		trimmed[i] = strings.TrimSpace(strings.TrimRight(v, "\x00"))
	}
	d.Fields = append(d.Fields, name)
	d.text[name] = trimmed
}

// Float returns a numeric field.
func (d *Dataset) Float(name string) ([]float64, bool) {
	v, ok := d.numeric[name]
	return v, ok
}

// Text returns a text field.
func (d *Dataset) Text(name string) ([]string, bool) {
	v, ok := d.text[name]
	return v, ok
}

// Has reports whether the dataset has the field.
func (d *Dataset) Has(name string) bool {
	_, n := d.numeric[name]
	_, t := d.text[name]
	return n || t
}

// H5Source is a read-only view of an HDF5 container.
type H5Source interface {
	// Keys lists the member names of the group at path, in name order.
	Keys(path string) ([]string, error)
	// Dataset decodes the compound dataset at path.
	Dataset(path string) (*Dataset, error)
	Close() error
}
