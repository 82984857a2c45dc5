//go:build cgo && !nohdf5

package cli

import (
	"github.com/turtacn/Catalysis-Ingest/internal/infrastructure/tabular"
	"github.com/turtacn/Catalysis-Ingest/internal/infrastructure/tabular/hdf5"
)

func openH5(path string) (tabular.H5Source, error) {
	f, err := hdf5.Open(path)
	if err != nil {
		return nil, err
	}
	return f, nil
}

//Personal.AI order the ending
