//go:build !cgo || nohdf5

package cli

import (
	"github.com/turtacn/Catalysis-Ingest/internal/infrastructure/tabular"
	"github.com/turtacn/Catalysis-Ingest/pkg/errors"
)

// openH5 stands in when the binary is built without the HDF5 C library.
func openH5(path string) (tabular.H5Source, error) {
	return nil, errors.New(errors.ErrCodeFeatureDisabled, "hdf5 support not compiled in: "+path)
}

//Personal.AI order the ending
