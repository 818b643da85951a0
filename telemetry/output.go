package telemetry

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"
	"github.com/pthm-cable/invaders/config"
)

// OutputManager places training and experiment artifacts under one directory.
// A nil *OutputManager discards everything.
type OutputManager struct {
	dir            string
	metricsPattern string
	genomePattern  string
	summaryFile    string
}

// NewOutputManager creates the output directory and returns a manager for it.
// Returns nil if dir is empty (output disabled).
func NewOutputManager(dir string, cfg config.OutputConfig) (*OutputManager, error) {
	if dir == "" {
		return nil, nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}
	return &OutputManager{
		dir:            dir,
		metricsPattern: cfg.MetricsPattern,
		genomePattern:  cfg.GenomePattern,
		summaryFile:    cfg.SummaryFile,
	}, nil
}

// Dir returns the output directory path.
func (om *OutputManager) Dir() string {
	if om == nil {
		return ""
	}
	return om.dir
}

// MetricsPath returns the per-profile training metrics CSV path.
func (om *OutputManager) MetricsPath(profile string) string {
	if om == nil {
		return ""
	}
	return filepath.Join(om.dir, fmt.Sprintf(om.metricsPattern, profile))
}

// GenomePath returns the per-profile best genome path.
func (om *OutputManager) GenomePath(profile string) string {
	if om == nil {
		return ""
	}
	return filepath.Join(om.dir, fmt.Sprintf(om.genomePattern, profile))
}

// SummaryPath returns the experiment summary CSV path.
func (om *OutputManager) SummaryPath() string {
	if om == nil {
		return ""
	}
	return filepath.Join(om.dir, om.summaryFile)
}

// WriteConfig saves the current configuration as YAML.
func (om *OutputManager) WriteConfig(cfg *config.Config) error {
	if om == nil {
		return nil
	}
	return cfg.WriteYAML(filepath.Join(om.dir, "config.yaml"))
}

// AppendGenerationMetrics appends one row to the profile's metrics CSV.
func (om *OutputManager) AppendGenerationMetrics(profile string, row GenerationMetricsRow) error {
	if om == nil {
		return nil
	}
	if err := AppendCSV(om.MetricsPath(profile), []GenerationMetricsRow{row}); err != nil {
		return fmt.Errorf("writing training metrics: %w", err)
	}
	return nil
}

// AppendPerf appends a generation timing row to the profile's perf CSV.
func (om *OutputManager) AppendPerf(profile string, row PerfStatsCSV) error {
	if om == nil {
		return nil
	}
	path := filepath.Join(om.dir, fmt.Sprintf("perf_%s.csv", profile))
	if err := AppendCSV(path, []PerfStatsCSV{row}); err != nil {
		return fmt.Errorf("writing perf: %w", err)
	}
	return nil
}

// AppendBookmarks appends bookmark records to the profile's bookmark CSV.
func (om *OutputManager) AppendBookmarks(profile string, bookmarks []Bookmark) error {
	if om == nil || len(bookmarks) == 0 {
		return nil
	}
	path := filepath.Join(om.dir, fmt.Sprintf("bookmarks_%s.csv", profile))
	if err := AppendCSV(path, bookmarks); err != nil {
		return fmt.Errorf("writing bookmarks: %w", err)
	}
	return nil
}

// WriteExperimentSummary rewrites the experiment summary CSV, one row per
// profile in run order.
func (om *OutputManager) WriteExperimentSummary(results []ExperimentResult) error {
	if om == nil {
		return nil
	}
	rows := make([]ExperimentSummaryRow, len(results))
	for i, r := range results {
		rows[i] = r.SummaryRow()
	}

	f, err := os.Create(om.SummaryPath())
	if err != nil {
		return fmt.Errorf("creating experiment summary: %w", err)
	}
	if err := gocsv.Marshal(rows, f); err != nil {
		f.Close()
		return fmt.Errorf("writing experiment summary: %w", err)
	}
	return f.Close()
}

// AppendCSV appends records to path, writing the header only when the file is
// new or empty. records must be a slice of csv-tagged structs.
func AppendCSV(path string, records any) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, f.Close())
	}()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	if info.Size() == 0 {
		return gocsv.Marshal(records, f)
	}
	return gocsv.MarshalWithoutHeaders(records, f)
}
