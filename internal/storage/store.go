// Package storage keeps finished runs on disk, one directory per run with
// metadata.json, samples.csv and the followed path as path.yaml.
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

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/san-kum/pathloop/internal/command"
	"github.com/san-kum/pathloop/internal/geom"
	"github.com/san-kum/pathloop/internal/path"
	"github.com/san-kum/pathloop/internal/pursuit"
)

// ErrRunNotFound is returned by Load for an unknown run id.
var ErrRunNotFound = errors.New("storage: run not found")

const (
	metadataFile = "metadata.json"
	samplesFile  = "samples.csv"
	pathFile     = "path.yaml"
)

var sampleHeader = []string{"time", "x", "y", "theta", "goal_x", "goal_y", "left", "right", "segment", "fraction"}

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID        string             `json:"id"`
	Name      string             `json:"name"`
	Timestamp time.Time          `json:"timestamp"`
	Period    float64            `json:"period"`
	Lookahead float64            `json:"lookahead"`
	Epsilon   float64            `json:"epsilon"`
	MaxSpeed  float64            `json:"max_speed"`
	FrontSide string             `json:"front_side"`
	State     string             `json:"state"`
	Ticks     int                `json:"ticks"`
	Metrics   map[string]float64 `json:"metrics"`
}

// NewRunID returns name plus the first block of a random uuid.
func NewRunID(name string) string {
	return fmt.Sprintf("%s_%s", name, uuid.NewString()[:8])
}

// Save writes a run and returns its id. meta.ID and meta.Timestamp are
// filled in when empty.
func (s *Store) Save(meta RunMetadata, p path.Path, samples []command.Sample) (string, error) {
	if meta.ID == "" {
		meta.ID = NewRunID(meta.Name)
	}
	if meta.Timestamp.IsZero() {
		meta.Timestamp = time.Now()
	}
	runDir := filepath.Join(s.baseDir, meta.ID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	if err := writeJSON(filepath.Join(runDir, metadataFile), meta); err != nil {
		return "", err
	}
	if err := writeSamples(filepath.Join(runDir, samplesFile), samples); err != nil {
		return "", err
	}
	if p.Len() > 0 {
		if err := path.Save(filepath.Join(runDir, pathFile), p); err != nil {
			return "", err
		}
	}
	return meta.ID, nil
}

func writeJSON(file string, v interface{}) (err error) {
	f, err := os.Create(file)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, f.Close()) }()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeSamples(file string, samples []command.Sample) (err error) {
	f, err := os.Create(file)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, f.Close()) }()

	w := csv.NewWriter(f)
	if err := w.Write(sampleHeader); err != nil {
		return err
	}
	for _, smp := range samples {
		row := []string{
			formatFloat(smp.Elapsed),
			formatFloat(smp.Pose.Translation.X),
			formatFloat(smp.Pose.Translation.Y),
			formatFloat(smp.Pose.Rotation.Radians()),
			formatFloat(smp.Goal.X),
			formatFloat(smp.Goal.Y),
			formatFloat(smp.Left),
			formatFloat(smp.Right),
			strconv.Itoa(smp.Progress.Segment),
			formatFloat(smp.Progress.Fraction),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

// List returns all readable runs, newest first.
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
	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.After(runs[j].Timestamp) })
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
		return nil, fmt.Errorf("storage: decode %s: %w", runID, err)
	}
	return &meta, nil
}

// LoadPath returns the path a run followed.
func (s *Store) LoadPath(runID string) (path.Path, error) {
	return path.Load(filepath.Join(s.baseDir, runID, pathFile))
}

func (s *Store) LoadSamples(runID string) ([]command.Sample, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, samplesFile))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = len(sampleHeader)
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("storage: read samples: %w", err)
	}
	if len(records) < 2 {
		return []command.Sample{}, nil
	}

	samples := make([]command.Sample, 0, len(records)-1)
	for i, record := range records[1:] {
		smp, err := parseSample(record)
		if err != nil {
			return nil, fmt.Errorf("storage: samples row %d: %w", i+1, err)
		}
		smp.Tick = i + 1
		samples = append(samples, smp)
	}
	return samples, nil
}

func parseSample(record []string) (command.Sample, error) {
	var vals [10]float64
	for i, field := range record {
		if i == 8 {
			continue
		}
		v, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return command.Sample{}, err
		}
		vals[i] = v
	}
	seg, err := strconv.Atoi(record[8])
	if err != nil {
		return command.Sample{}, err
	}
	return command.Sample{
		Elapsed:  vals[0],
		Pose:     geom.NewPose(vals[1], vals[2], geom.Rotation(vals[3])),
		Goal:     geom.Translation{X: vals[4], Y: vals[5]},
		Left:     vals[6],
		Right:    vals[7],
		Progress: pursuit.Progress{Segment: seg, Fraction: vals[9]},
	}, nil
}

// Delete removes a run directory.
func (s *Store) Delete(runID string) error {
	dir := filepath.Join(s.baseDir, runID)
	if _, err := os.Stat(filepath.Join(dir, metadataFile)); err != nil {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return os.RemoveAll(dir)
}
