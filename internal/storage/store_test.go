package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/san-kum/impulse/internal/sim"
)

func testResult() *sim.Result {
	return &sim.Result{
		Samples: []sim.Sample{
			{Time: 0, Step: 0, KineticEnergy: 0, PotentialEnergy: 10, AwakeBodies: 1},
			{Time: 0.5, Step: 30, KineticEnergy: 2.5, PotentialEnergy: 7.5, MaxDepth: 0.004, Contacts: 1, Points: 1, NormalImpulse: 0.16, AwakeBodies: 1, Pairs: 1, Islands: 1},
		},
		StepsTaken: 30,
		Metrics: map[string]float64{
			"max_penetration": 0.004,
		},
		EnergyDrift: 0.01,
	}
}

func TestStoreSaveLoad(t *testing.T) {
	st := New(t.TempDir())
	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	runID, err := st.Save(RunMetadata{Scene: "rest", Seed: 42, Dt: 1.0 / 60, Duration: 0.5}, testResult())
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if runID == "" {
		t.Error("expected non-empty run id")
	}

	meta, err := st.Load(runID)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if meta.Scene != "rest" || meta.Seed != 42 || meta.Steps != 30 {
		t.Errorf("unexpected metadata: %+v", meta)
	}
	if meta.Metrics["max_penetration"] != 0.004 {
		t.Errorf("expected max_penetration 0.004, got %f", meta.Metrics["max_penetration"])
	}

	samples, err := st.LoadSeries(runID)
	if err != nil {
		t.Fatalf("load series failed: %v", err)
	}
	if len(samples) != 2 {
		t.Fatalf("expected 2 samples, got %d", len(samples))
	}
	if samples[1] != testResult().Samples[1] {
		t.Errorf("sample did not round trip:\n got %+v\nwant %+v", samples[1], testResult().Samples[1])
	}
}

func TestStoreList(t *testing.T) {
	st := New(t.TempDir())
	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	runs, err := st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("expected 0 runs, got %d", len(runs))
	}

	old := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, scene := range []string{"stack", "rain"} {
		meta := RunMetadata{Scene: scene, Timestamp: old.Add(time.Duration(i) * time.Hour)}
		if _, err := st.Save(meta, testResult()); err != nil {
			t.Fatalf("save failed: %v", err)
		}
	}

	runs, err = st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].Scene != "rain" {
		t.Errorf("expected newest run first, got %s", runs[0].Scene)
	}
}

func TestStoreMissingRun(t *testing.T) {
	st := New(t.TempDir())
	if _, err := st.Load("ghost"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound, got %v", err)
	}
	if _, err := st.LoadSeries("ghost"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound, got %v", err)
	}
}

func TestStoreFileStructure(t *testing.T) {
	tmpDir := t.TempDir()
	st := New(tmpDir)

	result := testResult()
	result.Errors = []error{errors.New("step 3 (t=0.0500): invalid body state (NaN/Inf)")}
	runID, err := st.Save(RunMetadata{Scene: "rest"}, result)
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	runDir := filepath.Join(tmpDir, runID)
	for _, name := range []string{"metadata.json", "series.csv"} {
		if _, err := os.Stat(filepath.Join(runDir, name)); os.IsNotExist(err) {
			t.Errorf("%s not created", name)
		}
	}

	meta, err := st.Load(runID)
	if err != nil {
		t.Fatal(err)
	}
	if len(meta.Errors) != 1 {
		t.Errorf("expected recorded error in metadata, got %v", meta.Errors)
	}
}

func TestExport(t *testing.T) {
	st := New(t.TempDir())
	runID, err := st.Save(RunMetadata{Scene: "rest"}, testResult())
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := st.Export(runID, &buf); err != nil {
		t.Fatalf("export failed: %v", err)
	}
	var doc ExportData
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("export is not valid JSON: %v", err)
	}
	if doc.Metadata.ID != runID || len(doc.Samples) != 2 {
		t.Errorf("unexpected export: id %s, %d samples", doc.Metadata.ID, len(doc.Samples))
	}

	path := filepath.Join(t.TempDir(), "out.json")
	if err := st.ExportJSON(runID, path); err != nil {
		t.Fatalf("export file failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Error("export file not written")
	}
}
