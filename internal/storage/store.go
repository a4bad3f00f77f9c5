package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/san-kum/impulse/internal/sim"
)

const (
	metadataFile = "metadata.json"
	seriesFile   = "series.csv"
)

var ErrRunNotFound = errors.New("storage: run not found")

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

func (s *Store) Dir() string { return s.baseDir }

type RunMetadata struct {
	ID                 string             `json:"id"`
	Scene              string             `json:"scene"`
	Preset             string             `json:"preset,omitempty"`
	Timestamp          time.Time          `json:"timestamp"`
	Seed               int64              `json:"seed"`
	Dt                 float64            `json:"dt"`
	Duration           float64            `json:"duration"`
	RecordEvery        int                `json:"record_every"`
	Steps              int                `json:"steps"`
	PositionCorrection string             `json:"position_correction"`
	VelocityIterations int                `json:"velocity_iterations"`
	PositionIterations int                `json:"position_iterations"`
	Workers            int                `json:"workers"`
	Bodies             int                `json:"bodies"`
	EnergyDrift        float64            `json:"energy_drift"`
	Metrics            map[string]float64 `json:"metrics"`
	Errors             []string           `json:"errors,omitempty"`
}

var columns = []string{
	"time", "step", "kinetic", "potential", "max_speed", "max_depth",
	"contacts", "points", "normal_impulse", "awake", "sleeping", "pairs", "islands",
}

func formatFloat(v float64) string { return strconv.FormatFloat(v, 'g', 10, 64) }

func row(s sim.Sample) []string {
	return []string{
		formatFloat(s.Time),
		strconv.Itoa(s.Step),
		formatFloat(s.KineticEnergy),
		formatFloat(s.PotentialEnergy),
		formatFloat(s.MaxSpeed),
		formatFloat(s.MaxDepth),
		strconv.Itoa(s.Contacts),
		strconv.Itoa(s.Points),
		formatFloat(s.NormalImpulse),
		strconv.Itoa(s.AwakeBodies),
		strconv.Itoa(s.SleepingBodies),
		strconv.Itoa(s.Pairs),
		strconv.Itoa(s.Islands),
	}
}

// Save writes metadata.json and series.csv under a new run directory and
// returns the run id. ID and Timestamp are filled in when empty.
func (s *Store) Save(meta RunMetadata, result *sim.Result) (string, error) {
	if meta.Timestamp.IsZero() {
		meta.Timestamp = time.Now()
	}
	if meta.ID == "" {
		meta.ID = fmt.Sprintf("%s_%d", meta.Scene, meta.Timestamp.UnixNano())
	}
	meta.Steps = result.StepsTaken
	meta.EnergyDrift = result.EnergyDrift
	meta.Metrics = result.Metrics
	for _, err := range result.Errors {
		meta.Errors = append(meta.Errors, err.Error())
	}

	runDir := filepath.Join(s.baseDir, meta.ID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	if err := writeJSON(filepath.Join(runDir, metadataFile), meta); err != nil {
		return "", err
	}
	if err := writeSeries(filepath.Join(runDir, seriesFile), result.Samples); err != nil {
		return "", err
	}
	return meta.ID, nil
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

func writeSeries(path string, samples []sim.Sample) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(columns); err != nil {
		return err
	}
	for _, s := range samples {
		if err := w.Write(row(s)); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// List returns every readable run, newest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].Timestamp.After(runs[j].Timestamp)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("parse %s metadata: %w", runID, err)
	}
	return &meta, nil
}

// LoadSeries reads the recorded samples back. Columns are matched by name,
// so series written with fewer columns still load.
func (s *Store) LoadSeries(runID string) ([]sim.Sample, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, seriesFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return []sim.Sample{}, nil
	}

	index := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		index[name] = i
	}
	float := func(rec []string, name string) float64 {
		i, ok := index[name]
		if !ok || i >= len(rec) {
			return 0
		}
		v, _ := strconv.ParseFloat(rec[i], 64)
		return v
	}
	integer := func(rec []string, name string) int {
		return int(float(rec, name))
	}

	samples := make([]sim.Sample, 0, len(records)-1)
	for _, rec := range records[1:] {
		if len(rec) == 0 {
			continue
		}
		samples = append(samples, sim.Sample{
			Time:            float(rec, "time"),
			Step:            integer(rec, "step"),
			KineticEnergy:   float(rec, "kinetic"),
			PotentialEnergy: float(rec, "potential"),
			MaxSpeed:        float(rec, "max_speed"),
			MaxDepth:        float(rec, "max_depth"),
			Contacts:        integer(rec, "contacts"),
			Points:          integer(rec, "points"),
			NormalImpulse:   float(rec, "normal_impulse"),
			AwakeBodies:     integer(rec, "awake"),
			SleepingBodies:  integer(rec, "sleeping"),
			Pairs:           integer(rec, "pairs"),
			Islands:         integer(rec, "islands"),
		})
	}
	return samples, nil
}
