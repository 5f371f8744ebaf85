package calib

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestWriteLoadRoundTrip(t *testing.T) {
	cal, err := Synthesize(RandomInfluence(8, 3, 1))
	require.NoError(t, err)

	dir := t.TempDir()
	written, err := Write(dir, "dev.wfs.shwfs", "ixonwfs_alpao_dm97", cal)
	require.NoError(t, err)
	assert.Equal(t, "dev.wfs.shwfs.ixonwfs_alpao_dm97_infmat_8_3.csv", written.Files[KindInfMat])

	ds, err := Locate(dir, nil)
	require.NoError(t, err)
	assert.Equal(t, written.Files, ds.Files)
	assert.Equal(t, "ixonwfs_alpao_dm97", ds.Device)

	loaded, err := Load(ds)
	require.NoError(t, err)

	for _, k := range []Kind{KindInfMat, KindPseudoIdent, KindU, KindV} {
		assert.True(t, mat.EqualApprox(cal.Matrix(k), loaded.Matrix(k), 1e-12), "kind %s", k)
	}
	assert.InDeltaSlice(t, Values(cal.SingVal), Values(loaded.SingVal), 1e-12)
}

func TestLoad_ShapeMismatch(t *testing.T) {
	cal, err := Synthesize(RandomInfluence(6, 2, 3))
	require.NoError(t, err)

	dir := t.TempDir()
	ds, err := Write(dir, "dev", "dm", cal)
	require.NoError(t, err)

	ds.NMeas = 5
	_, err = Load(ds)
	require.ErrorIs(t, err, ErrShape)

	var fe *FileError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, KindInfMat, fe.Kind)
}

func TestSynthesize_TooFewRows(t *testing.T) {
	_, err := Synthesize(RandomInfluence(2, 3, 1))
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestAnalyze(t *testing.T) {
	cal, err := Synthesize(RandomInfluence(10, 4, 11))
	require.NoError(t, err)

	act, err := Actuation(cal.U, cal.SingVal, cal.V)
	require.NoError(t, err)

	st := Analyze(cal, act, 0)
	assert.Equal(t, 4, st.Modes)
	assert.Equal(t, 4, st.ModesUsed)
	assert.Equal(t, 0, st.ZeroSingular)
	assert.InDelta(t, 1.0, st.SingularUsed, 1e-12)
	assert.InDelta(t, st.MaxSingular/st.MinSingular, st.Condition, 1e-12)
	assert.GreaterOrEqual(t, st.Condition, 1.0)
	assert.Less(t, st.IdentityDeviation, 1e-9)
	assert.Less(t, st.PseudoIdentResidual, 1e-9)
}

func TestAnalyze_KnownCase(t *testing.T) {
	u, s, v := fixture()
	act, err := Actuation(u, s, v)
	require.NoError(t, err)

	cal := &Calibration{U: u, V: v, SingVal: s}
	st := Analyze(cal, act, 1)

	assert.Equal(t, 2.0, st.MaxSingular)
	assert.Equal(t, 0.5, st.MinSingular)
	assert.Equal(t, 4.0, st.Condition)
	assert.Equal(t, 1, st.ModesUsed)
	assert.InDelta(t, 0.8, st.SingularUsed, 1e-12)
}

func TestAnalyze_ZeroSingular(t *testing.T) {
	cal := &Calibration{SingVal: mat.NewVecDense(3, []float64{3, 1, 0})}

	st := Analyze(cal, nil, 0)
	assert.Equal(t, 1, st.ZeroSingular)
	assert.True(t, math.IsInf(st.Condition, 1))
}

func TestRefactor(t *testing.T) {
	cal, err := Synthesize(RandomInfluence(9, 4, 5))
	require.NoError(t, err)

	svd, err := Refactor(cal)
	require.NoError(t, err)
	assert.Len(t, svd.Values, 4)
	assert.Less(t, svd.MaxDiff, 1e-12)

	cal.SingVal = mat.NewVecDense(2, []float64{1, 1})
	svd, err = Refactor(cal)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(svd.MaxDiff))
}
