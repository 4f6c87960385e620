package pdb

import "errors"

// ErrNoTypeStream is returned when a PDB declares no usable TPI stream.
var ErrNoTypeStream = errors.New("PDB has no type information stream")

// ErrTypeNotFound is returned by name and index lookups that miss.
var ErrTypeNotFound = errors.New("type not found")
