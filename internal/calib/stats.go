package calib

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Stats summarizes the quality of an SVD based actuation matrix.
type Stats struct {
	Modes        int
	MinSingular  float64
	MaxSingular  float64
	Condition    float64
	ZeroSingular int
	Cutoff       float64
	ModesUsed    int
	SingularUsed float64
	// PseudoIdentResidual is max|P - A*M| against the stored pseudo-identity.
	PseudoIdentResidual float64
	// IdentityDeviation is max|A*M - I|.
	IdentityDeviation float64
}

// Analyze computes Stats for the actuation matrix act built from cal with the
// given cutoff.
func Analyze(cal *Calibration, act *mat.Dense, cutoff float64) Stats {
	sv := Values(cal.SingVal)

	st := Stats{
		Modes:     len(sv),
		Cutoff:    cutoff,
		ModesUsed: ModesUsed(sv, cutoff),
	}

	st.MinSingular, st.MaxSingular = math.Inf(1), math.Inf(-1)
	total, used := 0.0, 0.0
	for i, v := range sv {
		if v == 0 {
			st.ZeroSingular++
		}
		st.MinSingular = math.Min(st.MinSingular, v)
		st.MaxSingular = math.Max(st.MaxSingular, v)
		total += v
		if i < st.ModesUsed {
			used += v
		}
	}
	st.Condition = st.MaxSingular / st.MinSingular
	if total != 0 {
		st.SingularUsed = used / total
	}

	if act != nil && cal.InfMat != nil {
		ar, _ := act.Dims()
		_, mc := cal.InfMat.Dims()
		if ar == mc {
			var prod mat.Dense
			prod.Mul(act, cal.InfMat)
			st.IdentityDeviation = maxAbsDiff(&prod, identity(ar))
			if cal.PseudoIdent != nil {
				pr, pc := cal.PseudoIdent.Dims()
				if pr == ar && pc == ar {
					st.PseudoIdentResidual = maxAbsDiff(&prod, cal.PseudoIdent)
				}
			}
		}
	}

	return st
}

// SVD is a fresh factorization of an influence matrix.
type SVD struct {
	U      *mat.Dense
	V      *mat.Dense
	Values []float64
	// MaxDiff is the largest difference to the stored singular values, or
	// NaN when their count differs.
	MaxDiff float64
}

// Refactor recomputes the thin SVD of the influence matrix and compares its
// singular values to the stored ones.
func Refactor(cal *Calibration) (*SVD, error) {
	var svd mat.SVD
	if ok := svd.Factorize(cal.InfMat, mat.SVDThin); !ok {
		return nil, ErrSVDFailed
	}

	out := &SVD{
		U:      &mat.Dense{},
		V:      &mat.Dense{},
		Values: svd.Values(nil),
	}
	svd.UTo(out.U)
	svd.VTo(out.V)

	out.MaxDiff = math.NaN()
	if cal.SingVal != nil && cal.SingVal.Len() == len(out.Values) {
		out.MaxDiff = 0
		for i, v := range out.Values {
			out.MaxDiff = math.Max(out.MaxDiff, math.Abs(v-cal.SingVal.AtVec(i)))
		}
	}

	return out, nil
}

func identity(n int) *mat.DiagDense {
	d := make([]float64, n)
	for i := range d {
		d[i] = 1
	}
	return mat.NewDiagDense(n, d)
}

func maxAbsDiff(a, b mat.Matrix) float64 {
	r, c := a.Dims()
	worst := 0.0
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			d := math.Abs(a.At(i, j) - b.At(i, j))
			if math.IsNaN(d) {
				return math.NaN()
			}
			worst = math.Max(worst, d)
		}
	}
	return worst
}
