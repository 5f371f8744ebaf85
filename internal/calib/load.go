package calib

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// Calibration holds the matrices of one dataset, reshaped to its geometry.
type Calibration struct {
	Dataset     *Dataset
	InfMat      *mat.Dense
	PseudoIdent *mat.Dense
	U           *mat.Dense
	V           *mat.Dense
	SingVal     *mat.VecDense
}

// Matrix returns the 2D matrix loaded for k, or nil for vector kinds.
func (c *Calibration) Matrix(k Kind) *mat.Dense {
	switch k {
	case KindInfMat:
		return c.InfMat
	case KindPseudoIdent:
		return c.PseudoIdent
	case KindU:
		return c.U
	case KindV:
		return c.V
	}
	return nil
}

// Load reads every file of ds.
func Load(ds *Dataset) (*Calibration, error) {
	cal := &Calibration{Dataset: ds}

	for _, k := range Kinds {
		rows, cols := ds.Shape(k)
		if cols == 0 {
			v, err := LoadVector(ds.Path(k), rows)
			if err != nil {
				return nil, &FileError{Path: ds.Path(k), Kind: k, Err: err}
			}
			cal.SingVal = v
			continue
		}

		m, err := LoadMatrix(ds.Path(k), rows, cols)
		if err != nil {
			return nil, &FileError{Path: ds.Path(k), Kind: k, Err: err}
		}
		switch k {
		case KindInfMat:
			cal.InfMat = m
		case KindPseudoIdent:
			cal.PseudoIdent = m
		case KindU:
			cal.U = m
		case KindV:
			cal.V = m
		}
	}

	return cal, nil
}

// LoadMatrix reads a numeric text file and reshapes it row-major to rows x cols.
func LoadMatrix(path string, rows, cols int) (*mat.Dense, error) {
	values, err := readFile(path)
	if err != nil {
		return nil, err
	}
	if rows <= 0 || cols <= 0 || len(values) != rows*cols {
		return nil, fmt.Errorf("%w: %d values into %dx%d", ErrShape, len(values), rows, cols)
	}
	return mat.NewDense(rows, cols, values), nil
}

// LoadVector reads a numeric text file holding exactly n values.
func LoadVector(path string, n int) (*mat.VecDense, error) {
	values, err := readFile(path)
	if err != nil {
		return nil, err
	}
	if n <= 0 || len(values) != n {
		return nil, fmt.Errorf("%w: %d values into (%d,)", ErrShape, len(values), n)
	}
	return mat.NewVecDense(n, values), nil
}

func readFile(path string) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return ReadValues(f)
}

// ReadValues parses every number in r. Values are separated by whitespace or
// commas; '#' starts a comment that runs to the end of the line.
func ReadValues(r io.Reader) ([]float64, error) {
	var values []float64

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	line := 0
	for sc.Scan() {
		line++
		text := sc.Text()
		if i := strings.IndexByte(text, '#'); i >= 0 {
			text = text[:i]
		}
		fields := strings.FieldsFunc(text, func(r rune) bool {
			return r == ',' || r == ' ' || r == '\t' || r == '\r'
		})
		for _, field := range fields {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: %q", ErrParse, line, field)
			}
			values = append(values, v)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	return values, nil
}
