// Package hdf5 adapts gonum's HDF5 bindings to tabular.H5Source.  It needs
// cgo and the HDF5 C library; build with -tags nohdf5 (or CGO_ENABLED=0) to
// leave it out, in which case the CLI reports HDF5 input as a disabled feature.
package hdf5

//Personal.AI order the ending
