package storage

import (
	"encoding/json"
	"io"
	"os"

	"github.com/san-kum/calinspect/internal/calib"
	"github.com/san-kum/calinspect/internal/inspect"
	"gonum.org/v1/gonum/mat"
)

// ExportData is the self-contained JSON export of one report. Non-finite
// values are written as null.
type ExportData struct {
	ReportMetadata
	SingularValues []*float64   `json:"singular_values,omitempty"`
	Tip            []*float64   `json:"tip"`
	Tilt           []*float64   `json:"tilt"`
	Actuation      [][]*float64 `json:"actuation,omitempty"`
}

func nullable(vals []float64) []*float64 {
	out := make([]*float64, len(vals))
	for i := range vals {
		if finite(vals[i]) {
			out[i] = &vals[i]
		}
	}
	return out
}

func nullableRows(m mat.Matrix) [][]*float64 {
	rows, _ := m.Dims()
	out := make([][]*float64, rows)
	for i := 0; i < rows; i++ {
		out[i] = nullable(mat.Row(nil, i, m))
	}
	return out
}

// NewExport builds the export of a report that has not been stored, or was
// stored under id.
func NewExport(id string, rep *inspect.Report) *ExportData {
	data := &ExportData{
		ReportMetadata: Metadata(id, rep),
		Tip:            nullable(rep.Tip),
		Tilt:           nullable(rep.Tilt),
	}
	if rep.Calibration != nil && rep.Calibration.SingVal != nil {
		data.SingularValues = nullable(calib.Values(rep.Calibration.SingVal))
	}
	if rep.Actuation != nil {
		data.Actuation = nullableRows(rep.Actuation)
	}
	return data
}

// Export assembles the export of stored report id. Stored reports do not
// keep the singular values.
func (s *Store) Export(id string) (*ExportData, error) {
	meta, err := s.Load(id)
	if err != nil {
		return nil, err
	}
	tip, tilt, err := s.LoadTipTilt(id)
	if err != nil {
		return nil, err
	}
	data := &ExportData{
		ReportMetadata: *meta,
		Tip:            nullable(tip),
		Tilt:           nullable(tilt),
	}
	act, err := s.LoadActuation(id)
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	if act != nil {
		data.Actuation = nullableRows(act)
	}
	return data, nil
}

func WriteJSON(w io.Writer, data *ExportData) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

func ExportJSON(path string, data *ExportData) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return WriteJSON(f, data)
}

func ExportJSONStdout(data *ExportData) error {
	return WriteJSON(os.Stdout, data)
}
