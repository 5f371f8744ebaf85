package calib

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("0\n"), 0644))
	}
}

func TestParseName(t *testing.T) {
	device, nmeas, nmodes, err := ParseName("dev.wfs.shwfs.ixonwfs_alpao_dm97_infmat_80_50.csv")
	require.NoError(t, err)
	assert.Equal(t, "ixonwfs_alpao_dm97", device)
	assert.Equal(t, 80, nmeas)
	assert.Equal(t, 50, nmodes)
}

func TestParseName_Invalid(t *testing.T) {
	tests := []string{
		"dev.wfs.ixonwfs_alpao_dm97_U_80_50.csv",
		"dev.wfs.ixonwfs_alpao_dm97_infmat_80.csv",
		"dev.wfs.ixonwfs_alpao_dm97_infmat_80_50_3.csv",
		"dev.wfs.ixonwfs_alpao_dm97_infmat_80_x.csv",
		"dev.wfs.ixonwfs_alpao_dm97_infmat_0_50.csv",
	}
	for _, name := range tests {
		_, _, _, err := ParseName(name)
		assert.ErrorIs(t, err, ErrBadName, name)
	}
}

func TestLocate(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir,
		"dev.wfs.shwfs.ixonwfs_alpao_dm97_infmat_80_50.csv",
		"dev.wfs.shwfs.ixonwfs_alpao_dm97_pseudo-ident_80_50.csv",
		"dev.wfs.shwfs.ixonwfs_alpao_dm97_U_80_50.csv",
		"dev.wfs.shwfs.ixonwfs_alpao_dm97_V_80_50.csv",
		"dev.wfs.shwfs.ixonwfs_alpao_dm97_singval_80_50.csv",
		"notes.txt",
	)

	ds, err := Locate(dir, nil)
	require.NoError(t, err)

	assert.Equal(t, "ixonwfs_alpao_dm97", ds.Device)
	assert.Equal(t, 80, ds.NMeas)
	assert.Equal(t, 50, ds.NModes)
	assert.Len(t, ds.Files, len(Kinds))
	assert.Equal(t, "dev.wfs.shwfs.ixonwfs_alpao_dm97_V_80_50.csv", ds.Files[KindV])
	assert.Empty(t, ds.Extra)

	rows, cols := ds.Shape(KindU)
	assert.Equal(t, [2]int{80, 50}, [2]int{rows, cols})
	rows, cols = ds.Shape(KindSingVal)
	assert.Equal(t, [2]int{50, 0}, [2]int{rows, cols})
}

func TestLocate_SelectsOnePerPattern(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir,
		"b.dm_infmat_4_2.csv",
		"a.dm_infmat_4_2.csv",
		"a.dm_pseudo-ident_4_2.csv",
		"a.dm_U_4_2.csv",
		"a.dm_V_4_2.csv",
		"a.dm_singval_4_2.csv",
	)

	ds, err := Locate(dir, nil)
	require.NoError(t, err)
	assert.Equal(t, "a.dm_infmat_4_2.csv", ds.Files[KindInfMat])
	assert.Equal(t, []string{"b.dm_infmat_4_2.csv"}, ds.Extra[KindInfMat])
}

func TestLocate_Missing(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir,
		"a.dm_infmat_4_2.csv",
		"a.dm_U_4_2.csv",
	)

	_, err := Locate(dir, nil)
	require.ErrorIs(t, err, ErrNoMatch)

	var fe *FileError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, KindPseudoIdent, fe.Kind)
}

func TestLocate_CustomPattern(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir,
		"a.dm_infmat_4_2.csv",
		"a.dm_pseudo-ident_4_2.csv",
		"a.dm_U_4_2.csv",
		"a.dm_V_4_2.csv",
		"a.dm_singular_4_2.csv",
	)

	_, err := Locate(dir, nil)
	require.ErrorIs(t, err, ErrNoMatch)

	ds, err := Locate(dir, map[Kind]string{KindSingVal: "*_singular_*.csv"})
	require.NoError(t, err)
	assert.Equal(t, "a.dm_singular_4_2.csv", ds.Files[KindSingVal])
}
