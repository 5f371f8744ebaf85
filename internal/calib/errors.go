package calib

import (
	"errors"
	"fmt"
)

// Domain errors for locating and loading calibration data.
var (
	// ErrNoMatch indicates no file in the dataset directory matched a required pattern.
	ErrNoMatch = errors.New("calib: no file matches pattern")

	// ErrBadName indicates the geometry segment of a filename is not two integers.
	ErrBadName = errors.New("calib: cannot parse geometry from filename")

	// ErrShape indicates the element count of a file does not fit the requested shape.
	ErrShape = errors.New("calib: element count does not match shape")

	// ErrParse indicates a token in a data file is not a number.
	ErrParse = errors.New("calib: invalid numeric value")

	// ErrDimensionMismatch indicates SVD factors with inconsistent dimensions.
	ErrDimensionMismatch = errors.New("calib: dimension mismatch between factors")

	// ErrSVDFailed indicates the influence matrix could not be factorized.
	ErrSVDFailed = errors.New("calib: svd factorization failed")
)

// FileError wraps an error with the file and kind it was raised for.
type FileError struct {
	Path string
	Kind Kind
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s (%s): %v", e.Path, e.Kind, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}
