package calib

import (
	"bufio"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"

	"gonum.org/v1/gonum/mat"
)

// Synthesize factorizes an influence matrix and returns the calibration a
// calibration run would store for it. The V factor is stored transposed so
// that Actuation yields the pseudo-inverse. infmat needs at least as many
// rows as columns.
func Synthesize(infmat *mat.Dense) (*Calibration, error) {
	r, c := infmat.Dims()
	if r < c {
		return nil, fmt.Errorf("%w: influence matrix is %dx%d, want rows >= cols", ErrDimensionMismatch, r, c)
	}

	var svd mat.SVD
	if ok := svd.Factorize(infmat, mat.SVDThin); !ok {
		return nil, ErrSVDFailed
	}

	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	cal := &Calibration{
		InfMat:  mat.DenseCopyOf(infmat),
		U:       &u,
		V:       mat.DenseCopyOf(v.T()),
		SingVal: mat.NewVecDense(c, svd.Values(nil)),
	}

	act, err := Actuation(cal.U, cal.SingVal, cal.V)
	if err != nil {
		return nil, err
	}
	cal.PseudoIdent = &mat.Dense{}
	cal.PseudoIdent.Mul(act, infmat)

	return cal, nil
}

// RandomInfluence returns an nmeas x nmodes matrix with uniform entries in
// [-1, 1), reproducible for a given seed.
func RandomInfluence(nmeas, nmodes int, seed uint64) *mat.Dense {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	data := make([]float64, nmeas*nmodes)
	for i := range data {
		data[i] = 2*rng.Float64() - 1
	}
	return mat.NewDense(nmeas, nmodes, data)
}

// FileName builds <prefix>.<device>_<kind>_<nmeas>_<nmodes>.csv.
func FileName(prefix, device string, k Kind, nmeas, nmodes int) string {
	return fmt.Sprintf("%s.%s_%s_%d_%d.csv", prefix, device, k, nmeas, nmodes)
}

// Write stores cal in dir using the calibration file naming scheme, one value
// per line in row-major order.
func Write(dir, prefix, device string, cal *Calibration) (*Dataset, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	nmeas, nmodes := cal.InfMat.Dims()
	ds := &Dataset{
		Dir:    dir,
		Device: device,
		NMeas:  nmeas,
		NModes: nmodes,
		Files:  make(map[Kind]string, len(Kinds)),
		Extra:  make(map[Kind][]string),
	}

	for _, k := range Kinds {
		name := FileName(prefix, device, k, nmeas, nmodes)
		var values []float64
		if k == KindSingVal {
			values = Values(cal.SingVal)
		} else {
			values = mat.DenseCopyOf(cal.Matrix(k)).RawMatrix().Data
		}
		if err := writeValues(filepath.Join(dir, name), values); err != nil {
			return nil, &FileError{Path: filepath.Join(dir, name), Kind: k, Err: err}
		}
		ds.Files[k] = name
	}
	cal.Dataset = ds

	return ds, nil
}

func writeValues(path string, values []float64) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	buf := make([]byte, 0, 32)
	for _, v := range values {
		buf = strconv.AppendFloat(buf[:0], v, 'f', 15, 64)
		buf = append(buf, '\n')
		if _, err := w.Write(buf); err != nil {
			return err
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return f.Close()
}
