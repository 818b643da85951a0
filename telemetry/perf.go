package telemetry

import (
	"log/slog"
	"time"
)

// Phase names for one training generation.
const (
	PhaseEvaluate  = "evaluate"
	PhaseSpeciate  = "speciate"
	PhaseReproduce = "reproduce"
	PhaseReport    = "report"
)

var generationPhases = []string{PhaseEvaluate, PhaseSpeciate, PhaseReproduce, PhaseReport}

// PerfSample holds timing data for a single generation.
type PerfSample struct {
	Duration time.Duration
	Frames   int
	Phases   map[string]time.Duration
}

// PerfCollector tracks generation timing over a rolling window.
type PerfCollector struct {
	windowSize    int
	samples       []PerfSample
	writeIndex    int
	sampleCount   int
	currentPhases map[string]time.Duration
	genStart      time.Time
	phaseStart    time.Time
	lastPhase     string
	frames        int
}

// NewPerfCollector creates a collector averaging over windowSize generations.
func NewPerfCollector(windowSize int) *PerfCollector {
	if windowSize < 1 {
		windowSize = 10
	}
	return &PerfCollector{
		windowSize:    windowSize,
		samples:       make([]PerfSample, windowSize),
		currentPhases: make(map[string]time.Duration),
	}
}

// StartGeneration begins timing a new generation.
func (p *PerfCollector) StartGeneration() {
	p.genStart = time.Now()
	p.currentPhases = make(map[string]time.Duration)
	p.lastPhase = ""
	p.frames = 0
}

// StartPhase ends the running phase, if any, and begins timing phase.
func (p *PerfCollector) StartPhase(phase string) {
	now := time.Now()
	if p.lastPhase != "" {
		p.currentPhases[p.lastPhase] += now.Sub(p.phaseStart)
	}
	p.phaseStart = now
	p.lastPhase = phase
}

// AddFrames records simulated frames for throughput.
func (p *PerfCollector) AddFrames(n int) {
	p.frames += n
}

// EndGeneration closes the running phase and records the sample.
func (p *PerfCollector) EndGeneration() {
	now := time.Now()
	if p.lastPhase != "" {
		p.currentPhases[p.lastPhase] += now.Sub(p.phaseStart)
		p.lastPhase = ""
	}

	p.samples[p.writeIndex] = PerfSample{
		Duration: now.Sub(p.genStart),
		Frames:   p.frames,
		Phases:   p.currentPhases,
	}
	p.writeIndex = (p.writeIndex + 1) % p.windowSize
	if p.sampleCount < p.windowSize {
		p.sampleCount++
	}
}

// PerfStats holds aggregated timing over the window.
type PerfStats struct {
	AvgDuration time.Duration
	MinDuration time.Duration
	MaxDuration time.Duration

	PhaseAvg map[string]time.Duration
	PhasePct map[string]float64

	// Simulated frames per wall-clock second.
	FramesPerSecond float64
}

// Stats computes aggregated statistics over the current window.
func (p *PerfCollector) Stats() PerfStats {
	if p.sampleCount == 0 {
		return PerfStats{
			PhaseAvg: make(map[string]time.Duration),
			PhasePct: make(map[string]float64),
		}
	}

	var total, minD, maxD time.Duration
	var frames int
	phaseSum := make(map[string]time.Duration)
	for i := 0; i < p.sampleCount; i++ {
		s := p.samples[i]
		total += s.Duration
		frames += s.Frames
		if i == 0 || s.Duration < minD {
			minD = s.Duration
		}
		if s.Duration > maxD {
			maxD = s.Duration
		}
		for phase, dur := range s.Phases {
			phaseSum[phase] += dur
		}
	}

	avg := total / time.Duration(p.sampleCount)
	phaseAvg := make(map[string]time.Duration)
	phasePct := make(map[string]float64)
	for phase, sum := range phaseSum {
		phaseAvg[phase] = sum / time.Duration(p.sampleCount)
		if avg > 0 {
			phasePct[phase] = float64(phaseAvg[phase]) / float64(avg) * 100
		}
	}

	var fps float64
	if total > 0 {
		fps = float64(frames) / total.Seconds()
	}

	return PerfStats{
		AvgDuration:     avg,
		MinDuration:     minD,
		MaxDuration:     maxD,
		PhaseAvg:        phaseAvg,
		PhasePct:        phasePct,
		FramesPerSecond: fps,
	}
}

// LogValue implements slog.LogValuer for structured logging.
func (s PerfStats) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Int64("avg_gen_ms", s.AvgDuration.Milliseconds()),
		slog.Int64("min_gen_ms", s.MinDuration.Milliseconds()),
		slog.Int64("max_gen_ms", s.MaxDuration.Milliseconds()),
		slog.Float64("frames_per_sec", s.FramesPerSecond),
	}
	for _, phase := range generationPhases {
		if pct, ok := s.PhasePct[phase]; ok && pct > 0.1 {
			attrs = append(attrs, slog.Float64(phase+"_pct", float64(int(pct*10))/10))
		}
	}
	return slog.GroupValue(attrs...)
}

// PerfStatsCSV is a flat struct for CSV export of generation timing.
type PerfStatsCSV struct {
	Generation   int     `csv:"generation"`
	AvgGenMS     int64   `csv:"avg_gen_ms"`
	MinGenMS     int64   `csv:"min_gen_ms"`
	MaxGenMS     int64   `csv:"max_gen_ms"`
	FramesPerSec float64 `csv:"frames_per_sec"`
	EvaluatePct  float64 `csv:"evaluate_pct"`
	SpeciatePct  float64 `csv:"speciate_pct"`
	ReproducePct float64 `csv:"reproduce_pct"`
	ReportPct    float64 `csv:"report_pct"`
}

// ToCSV converts PerfStats to a flat CSV-friendly struct.
func (s PerfStats) ToCSV(generation int) PerfStatsCSV {
	return PerfStatsCSV{
		Generation:   generation,
		AvgGenMS:     s.AvgDuration.Milliseconds(),
		MinGenMS:     s.MinDuration.Milliseconds(),
		MaxGenMS:     s.MaxDuration.Milliseconds(),
		FramesPerSec: s.FramesPerSecond,
		EvaluatePct:  s.PhasePct[PhaseEvaluate],
		SpeciatePct:  s.PhasePct[PhaseSpeciate],
		ReproducePct: s.PhasePct[PhaseReproduce],
		ReportPct:    s.PhasePct[PhaseReport],
	}
}
