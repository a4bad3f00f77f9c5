package storage

import (
	"encoding/json"
	"io"
	"os"

	"github.com/san-kum/impulse/internal/sim"
)

type ExportData struct {
	Metadata RunMetadata  `json:"metadata"`
	Samples  []sim.Sample `json:"samples"`
}

// ExportJSON writes one combined document of a stored run.
func (s *Store) ExportJSON(runID, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return s.Export(runID, file)
}

func (s *Store) Export(runID string, w io.Writer) error {
	meta, err := s.Load(runID)
	if err != nil {
		return err
	}
	samples, err := s.LoadSeries(runID)
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(ExportData{Metadata: *meta, Samples: samples})
}
