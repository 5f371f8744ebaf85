// Package calib loads and checks adaptive-optics calibration data.
//
// A calibration run leaves a set of text matrices in one directory:
//
//   - [KindInfMat]: influence matrix, nmeas x nmodes
//   - [KindPseudoIdent]: pseudo-identity, nmodes x nmodes
//   - [KindU], [KindV]: SVD factors, nmeas x nmodes and nmodes x nmodes
//   - [KindSingVal]: singular values, nmodes
//
// Filenames follow <prefix>.<device>_<kind>_<nmeas>_<nmodes>.csv. The geometry
// and device name are taken from the influence matrix filename.
//
// # Example
//
//	ds, _ := calib.Locate(dir, nil)
//	cal, _ := calib.Load(ds)
//	act, _ := calib.Actuation(cal.U, cal.SingVal, cal.V)
//	tip, tilt, _ := calib.TipTilt(act)
//
// Zero singular values are not guarded: the actuation matrix then holds
// Inf or NaN entries. [Analyze] counts them.
package calib
