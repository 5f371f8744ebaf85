package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/san-kum/calinspect/internal/calib"
	"github.com/san-kum/calinspect/internal/inspect"
	"gonum.org/v1/gonum/mat"
)

const (
	metadataFile  = "metadata.json"
	actuationFile = "actuation.csv"
	tipTiltFile   = "tiptilt.csv"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

// ReportMetadata is the JSON form of an inspection report. Metrics holds only
// finite values; the others are kept in NonFinite as "+Inf", "-Inf" or "NaN".
type ReportMetadata struct {
	ID        string             `json:"id"`
	Device    string             `json:"device"`
	Dir       string             `json:"dir"`
	Timestamp time.Time          `json:"timestamp"`
	NMeas     int                `json:"nmeas"`
	NModes    int                `json:"nmodes"`
	Files     map[string]string  `json:"files"`
	Images    []string           `json:"images,omitempty"`
	Metrics   map[string]float64 `json:"metrics"`
	NonFinite map[string]string  `json:"non_finite,omitempty"`
}

// Metrics flattens st into named values, Inf and NaN included.
func Metrics(st calib.Stats) map[string]float64 {
	return map[string]float64{
		"modes":                 float64(st.Modes),
		"min_singular":          st.MinSingular,
		"max_singular":          st.MaxSingular,
		"condition":             st.Condition,
		"zero_singular":         float64(st.ZeroSingular),
		"cutoff":                st.Cutoff,
		"modes_used":            float64(st.ModesUsed),
		"singular_used":         st.SingularUsed,
		"pseudo_ident_residual": st.PseudoIdentResidual,
		"identity_deviation":    st.IdentityDeviation,
	}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Metadata builds the stored form of rep under the given id.
func Metadata(id string, rep *inspect.Report) ReportMetadata {
	meta := ReportMetadata{
		ID:        id,
		Device:    rep.Device,
		Dir:       rep.Dir,
		Timestamp: rep.Timestamp,
		NMeas:     rep.NMeas,
		NModes:    rep.NModes,
		Files:     make(map[string]string, len(rep.Files)),
		Images:    rep.Images,
		Metrics:   make(map[string]float64),
	}
	for k, path := range rep.Files {
		meta.Files[string(k)] = filepath.Base(path)
	}
	for name, v := range Metrics(rep.Stats) {
		if finite(v) {
			meta.Metrics[name] = v
		} else {
			if meta.NonFinite == nil {
				meta.NonFinite = make(map[string]string)
			}
			meta.NonFinite[name] = formatFloat(v)
		}
	}
	return meta
}

// Save records rep as <device>_<unix time>, with a numeric suffix when that
// directory is already taken, and returns the report id.
func (s *Store) Save(rep *inspect.Report) (string, error) {
	if err := s.Init(); err != nil {
		return "", err
	}

	ts := rep.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	base := fmt.Sprintf("%s_%d", rep.Device, ts.Unix())
	id := base
	runDir := filepath.Join(s.baseDir, id)
	for n := 1; ; n++ {
		err := os.Mkdir(runDir, 0755)
		if err == nil {
			break
		}
		if !os.IsExist(err) {
			return "", err
		}
		id = fmt.Sprintf("%s_%d", base, n)
		runDir = filepath.Join(s.baseDir, id)
	}

	if err := writeReport(runDir, Metadata(id, rep), rep); err != nil {
		os.RemoveAll(runDir)
		return "", err
	}

	return id, nil
}

// writeReport writes the payload files first so that a directory holding
// metadata.json is always complete.
func writeReport(runDir string, meta ReportMetadata, rep *inspect.Report) error {
	if rep.Actuation != nil {
		if err := writeMatrix(filepath.Join(runDir, actuationFile), rep.Actuation); err != nil {
			return err
		}
	}
	if err := writeTipTilt(filepath.Join(runDir, tipTiltFile), rep.Tip, rep.Tilt); err != nil {
		return err
	}
	return writeJSON(filepath.Join(runDir, metadataFile), meta)
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func writeMatrix(path string, m mat.Matrix) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	rows, cols := m.Dims()
	row := make([]string, cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			row[j] = formatFloat(m.At(i, j))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func writeTipTilt(path string, tip, tilt []float64) error {
	if len(tip) != len(tilt) {
		return fmt.Errorf("tip has %d modes, tilt has %d", len(tip), len(tilt))
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"mode", "tip", "tilt"}); err != nil {
		return err
	}
	for i := range tip {
		if err := w.Write([]string{strconv.Itoa(i), formatFloat(tip[i]), formatFloat(tilt[i])}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// List returns every stored report, oldest first.
func (s *Store) List() ([]ReportMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []ReportMetadata{}, nil
		}
		return nil, err
	}

	reports := make([]ReportMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		reports = append(reports, *meta)
	}

	sort.SliceStable(reports, func(i, j int) bool {
		if !reports[i].Timestamp.Equal(reports[j].Timestamp) {
			return reports[i].Timestamp.Before(reports[j].Timestamp)
		}
		return reports[i].ID < reports[j].ID
	})
	return reports, nil
}

func (s *Store) Load(id string) (*ReportMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, id, metadataFile))
	if err != nil {
		return nil, err
	}

	var meta ReportMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("%s: %w", id, err)
	}
	return &meta, nil
}

// LoadActuation reads back the actuation matrix saved with report id.
func (s *Store) LoadActuation(id string) (*mat.Dense, error) {
	records, err := readCSV(filepath.Join(s.baseDir, id, actuationFile))
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%s: empty actuation matrix", id)
	}

	rows, cols := len(records), len(records[0])
	data := make([]float64, 0, rows*cols)
	for i, rec := range records {
		if len(rec) != cols {
			return nil, fmt.Errorf("%s: row %d has %d values, want %d", id, i, len(rec), cols)
		}
		for _, field := range rec {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("%s: row %d: %w", id, i, err)
			}
			data = append(data, v)
		}
	}
	return mat.NewDense(rows, cols, data), nil
}

// LoadTipTilt reads back the tip and tilt responses saved with report id.
func (s *Store) LoadTipTilt(id string) (tip, tilt []float64, err error) {
	records, err := readCSV(filepath.Join(s.baseDir, id, tipTiltFile))
	if err != nil {
		return nil, nil, err
	}
	if len(records) < 2 {
		return []float64{}, []float64{}, nil
	}

	tip = make([]float64, 0, len(records)-1)
	tilt = make([]float64, 0, len(records)-1)
	for i := 1; i < len(records); i++ {
		rec := records[i]
		if len(rec) != 3 {
			return nil, nil, fmt.Errorf("%s: tip/tilt row %d has %d fields", id, i, len(rec))
		}
		a, err := strconv.ParseFloat(rec[1], 64)
		if err != nil {
			return nil, nil, err
		}
		b, err := strconv.ParseFloat(rec[2], 64)
		if err != nil {
			return nil, nil, err
		}
		tip = append(tip, a)
		tilt = append(tilt, b)
	}
	return tip, tilt, nil
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	return r.ReadAll()
}
