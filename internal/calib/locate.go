package calib

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

type Kind string

const (
	KindInfMat      Kind = "infmat"
	KindPseudoIdent Kind = "pseudo-ident"
	KindU           Kind = "U"
	KindV           Kind = "V"
	KindSingVal     Kind = "singval"
)

// Kinds lists every calibration file kind in load order.
var Kinds = []Kind{KindInfMat, KindPseudoIdent, KindU, KindV, KindSingVal}

// Pattern returns the default glob for a kind, e.g. "*_infmat_*.csv".
func (k Kind) Pattern() string {
	return "*_" + string(k) + "_*.csv"
}

// Title is the plot title used for a kind.
func (k Kind) Title() string {
	switch k {
	case KindInfMat:
		return "Influence matrix"
	case KindPseudoIdent:
		return "Pseudo ident"
	case KindSingVal:
		return "Singular values"
	default:
		return string(k)
	}
}

// DefaultPatterns returns the glob used for every kind.
func DefaultPatterns() map[Kind]string {
	p := make(map[Kind]string, len(Kinds))
	for _, k := range Kinds {
		p[k] = k.Pattern()
	}
	return p
}

// Dataset is one calibration run on disk.
type Dataset struct {
	Dir    string
	Device string
	NMeas  int
	NModes int
	Files  map[Kind]string
	// Extra holds matches that were not selected, per kind.
	Extra map[Kind][]string
}

// Path returns the full path of the file selected for k.
func (d *Dataset) Path(k Kind) string {
	return filepath.Join(d.Dir, d.Files[k])
}

// Shape returns the dimensions a kind is reshaped to. Vectors have cols == 0.
func (d *Dataset) Shape(k Kind) (rows, cols int) {
	switch k {
	case KindInfMat, KindU:
		return d.NMeas, d.NModes
	case KindPseudoIdent, KindV:
		return d.NModes, d.NModes
	default:
		return d.NModes, 0
	}
}

// Locate scans dir for one file per kind. A nil patterns map uses
// DefaultPatterns; missing entries fall back to the default for that kind.
// When several files match a pattern the lexically first one is selected.
func Locate(dir string, patterns map[Kind]string) (*Dataset, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	ds := &Dataset{
		Dir:   dir,
		Files: make(map[Kind]string, len(Kinds)),
		Extra: make(map[Kind][]string),
	}

	for _, k := range Kinds {
		pattern := k.Pattern()
		if p, ok := patterns[k]; ok && p != "" {
			pattern = p
		}
		matches, err := match(names, pattern)
		if err != nil {
			return nil, err
		}
		if len(matches) == 0 {
			return nil, &FileError{Path: filepath.Join(dir, pattern), Kind: k, Err: ErrNoMatch}
		}
		ds.Files[k] = matches[0]
		if len(matches) > 1 {
			ds.Extra[k] = matches[1:]
		}
	}

	device, nmeas, nmodes, err := ParseName(ds.Files[KindInfMat])
	if err != nil {
		return nil, &FileError{Path: ds.Path(KindInfMat), Kind: KindInfMat, Err: err}
	}
	ds.Device, ds.NMeas, ds.NModes = device, nmeas, nmodes

	return ds, nil
}

func match(names []string, pattern string) ([]string, error) {
	var out []string
	for _, name := range names {
		ok, err := filepath.Match(pattern, name)
		if err != nil {
			return nil, fmt.Errorf("pattern %q: %w", pattern, err)
		}
		if ok {
			out = append(out, name)
		}
	}
	return out, nil
}

// ParseName extracts the device name and geometry from an influence matrix
// filename like dev.wfs.shwfs.ixonwfs_alpao_dm97_infmat_80_50.csv.
func ParseName(name string) (device string, nmeas, nmodes int, err error) {
	base := strings.TrimSuffix(filepath.Base(name), ".csv")

	sep := "_" + string(KindInfMat) + "_"
	head, geometry, ok := strings.Cut(base, sep)
	if !ok {
		return "", 0, 0, fmt.Errorf("%w: %q has no %q segment", ErrBadName, name, sep)
	}

	if i := strings.LastIndex(head, "."); i >= 0 {
		head = head[i+1:]
	}

	parts := strings.Split(geometry, "_")
	if len(parts) != 2 {
		return "", 0, 0, fmt.Errorf("%w: %q: want 2 integers, got %d fields", ErrBadName, name, len(parts))
	}
	nmeas, err = strconv.Atoi(parts[0])
	if err != nil {
		return "", 0, 0, fmt.Errorf("%w: %q: %v", ErrBadName, name, err)
	}
	nmodes, err = strconv.Atoi(parts[1])
	if err != nil {
		return "", 0, 0, fmt.Errorf("%w: %q: %v", ErrBadName, name, err)
	}
	if nmeas <= 0 || nmodes <= 0 {
		return "", 0, 0, fmt.Errorf("%w: %q: geometry must be positive", ErrBadName, name)
	}

	return head, nmeas, nmodes, nil
}
