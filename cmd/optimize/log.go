package main

import (
	"encoding/csv"
	"os"
	"strconv"

	"github.com/pthm-cable/invaders/telemetry"
)

// tuneLog appends one CSV row per evaluation and flushes after each, so an
// interrupted run keeps everything evaluated so far.
type tuneLog struct {
	f *os.File
	w *csv.Writer
}

func newTuneLog(path string, params *ParamVector) (*tuneLog, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	header := []string{"eval", "fitness", "avg_kills", "avg_wave_clears", "avg_frames_survived", "avg_laser_hits_taken"}
	for _, spec := range params.Specs {
		header = append(header, spec.Name)
	}
	l := &tuneLog{f: f, w: csv.NewWriter(f)}
	if err := l.w.Write(header); err != nil {
		f.Close()
		return nil, err
	}
	return l, nil
}

// Write records one evaluation.
func (l *tuneLog) Write(eval int, fitness float64, m telemetry.BenchmarkMetrics, values []float64) error {
	row := []string{
		strconv.Itoa(eval),
		formatFloat(fitness, 6),
		formatFloat(m.AvgKills, 4),
		formatFloat(m.AvgWaveClears, 4),
		formatFloat(m.AvgFramesSurvived, 2),
		formatFloat(m.AvgLaserHitsTaken, 4),
	}
	for _, v := range values {
		row = append(row, formatFloat(v, 6))
	}
	if err := l.w.Write(row); err != nil {
		return err
	}
	l.w.Flush()
	return l.w.Error()
}

// Close flushes and closes the file.
func (l *tuneLog) Close() error {
	l.w.Flush()
	if err := l.w.Error(); err != nil {
		l.f.Close()
		return err
	}
	return l.f.Close()
}

func formatFloat(v float64, prec int) string {
	return strconv.FormatFloat(v, 'f', prec, 64)
}
