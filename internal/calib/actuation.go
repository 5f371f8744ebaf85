package calib

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Actuation reconstructs the actuation matrix V^T * diag(1/s) * U^T from the
// SVD factors of an influence matrix. u is nmeas x nmodes, s has nmodes
// values and v is nmodes x nmodes; the result is nmodes x nmeas.
//
// Singular values are inverted as they are: a zero value yields Inf or NaN
// entries in the result.
func Actuation(u *mat.Dense, s *mat.VecDense, v *mat.Dense) (*mat.Dense, error) {
	return ActuationCutoff(u, s, v, 0)
}

// ActuationCutoff is Actuation with singular value truncation. Modes past
// ModesUsed(s, cutoff) contribute zero instead of 1/s.
func ActuationCutoff(u *mat.Dense, s *mat.VecDense, v *mat.Dense, cutoff float64) (*mat.Dense, error) {
	if u == nil || s == nil || v == nil {
		return nil, fmt.Errorf("%w: nil factor", ErrDimensionMismatch)
	}
	_, ucols := u.Dims()
	vrows, vcols := v.Dims()
	n := s.Len()
	if ucols != n || vrows != n || vcols != n {
		return nil, fmt.Errorf("%w: U has %d cols, s has %d values, V is %dx%d",
			ErrDimensionMismatch, ucols, n, vrows, vcols)
	}

	sv := Values(s)
	used := ModesUsed(sv, cutoff)

	inv := make([]float64, n)
	for i := 0; i < used; i++ {
		inv[i] = 1.0 / sv[i]
	}
	sigma := mat.NewDiagDense(n, inv)

	var right mat.Dense
	right.Mul(sigma, u.T())

	var act mat.Dense
	act.Mul(v.T(), &right)

	return &act, nil
}

// ModesUsed returns how many leading singular values a cutoff keeps:
//
//	cutoff == 0     all modes
//	cutoff <  0     drop the last |cutoff| modes
//	cutoff >= 1     keep int(cutoff) modes
//	0 < cutoff < 1  keep modes until their sum reaches that fraction of the total
func ModesUsed(s []float64, cutoff float64) int {
	n := len(s)
	switch {
	case cutoff == 0:
		return n
	case cutoff < 0:
		return max(n-int(math.Round(-cutoff)), 0)
	case cutoff >= 1:
		return min(int(cutoff), n)
	}

	total := 0.0
	for _, v := range s {
		total += v
	}
	acc := 0.0
	for i, v := range s {
		acc += v
		if acc >= cutoff*total {
			return i + 1
		}
	}
	return n
}

// TipVector returns a length-n vector with 1 at even indices.
func TipVector(n int) *mat.VecDense {
	return indicator(n, 0)
}

// TiltVector returns a length-n vector with 1 at odd indices.
func TiltVector(n int) *mat.VecDense {
	return indicator(n, 1)
}

func indicator(n, offset int) *mat.VecDense {
	v := mat.NewVecDense(n, nil)
	for i := offset; i < n; i += 2 {
		v.SetVec(i, 1)
	}
	return v
}

// TipTilt applies the actuation matrix to the tip and tilt test vectors. The
// results hold one amplitude per mode.
func TipTilt(act *mat.Dense) (tip, tilt *mat.VecDense, err error) {
	if act == nil {
		return nil, nil, fmt.Errorf("%w: nil actuation matrix", ErrDimensionMismatch)
	}
	rows, cols := act.Dims()

	tip = mat.NewVecDense(rows, nil)
	tip.MulVec(act, TipVector(cols))

	tilt = mat.NewVecDense(rows, nil)
	tilt.MulVec(act, TiltVector(cols))

	return tip, tilt, nil
}

// Values copies the elements of v into a slice.
func Values(v mat.Vector) []float64 {
	out := make([]float64, v.Len())
	for i := range out {
		out[i] = v.AtVec(i)
	}
	return out
}
