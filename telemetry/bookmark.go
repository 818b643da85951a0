package telemetry

import (
	"fmt"
	"log/slog"
)

// BookmarkType identifies the type of bookmark.
type BookmarkType string

const (
	BookmarkFirstKill            BookmarkType = "first_kill"
	BookmarkFirstWaveClear       BookmarkType = "first_wave_clear"
	BookmarkFitnessBreakthrough  BookmarkType = "fitness_breakthrough"
	BookmarkAccuracyBreakthrough BookmarkType = "accuracy_breakthrough"
	BookmarkSurvivorCollapse     BookmarkType = "survivor_collapse"
)

// Bookmark marks a notable generation in a training run.
type Bookmark struct {
	Type        BookmarkType `csv:"type"`
	Generation  int          `csv:"generation"`
	Description string       `csv:"description"`
}

// LogBookmark logs the bookmark using slog.
func (b Bookmark) LogBookmark() {
	slog.Info("bookmark",
		"type", string(b.Type),
		"generation", b.Generation,
		"description", b.Description,
	)
}

// BookmarkDetector watches generation metrics for milestones.
type BookmarkDetector struct {
	// Rolling history (circular buffer)
	history     []GenerationMetricsRow
	historySize int
	historyIdx  int
	historyFull bool

	seen         int
	sawKill      bool
	sawWaveClear bool
	bestFitness  float64
	survivorPeak int
}

// NewBookmarkDetector creates a detector with the given history size.
func NewBookmarkDetector(historySize int) *BookmarkDetector {
	if historySize < 3 {
		historySize = 3
	}
	return &BookmarkDetector{
		history:     make([]GenerationMetricsRow, historySize),
		historySize: historySize,
	}
}

// Check analyzes the latest row and returns any triggered bookmarks.
func (bd *BookmarkDetector) Check(row GenerationMetricsRow) []Bookmark {
	var bookmarks []Bookmark

	if !bd.sawKill && row.Kills > 0 {
		bd.sawKill = true
		bookmarks = append(bookmarks, Bookmark{
			Type:        BookmarkFirstKill,
			Generation:  row.Generation,
			Description: fmt.Sprintf("First kills: %d over %d shots", row.Kills, row.ShotsFired),
		})
	}
	if !bd.sawWaveClear && row.WaveClears > 0 {
		bd.sawWaveClear = true
		bookmarks = append(bookmarks, Bookmark{
			Type:        BookmarkFirstWaveClear,
			Generation:  row.Generation,
			Description: fmt.Sprintf("First wave cleared (%d clears)", row.WaveClears),
		})
	}

	if bd.historyFull || bd.historyIdx > 0 {
		if b := bd.checkFitnessBreakthrough(row); b != nil {
			bookmarks = append(bookmarks, *b)
		}
		if b := bd.checkAccuracyBreakthrough(row); b != nil {
			bookmarks = append(bookmarks, *b)
		}
		if b := bd.checkSurvivorCollapse(row); b != nil {
			bookmarks = append(bookmarks, *b)
		}
	}

	bd.addToHistory(row)
	if bd.seen == 0 || row.BestFitness > bd.bestFitness {
		bd.bestFitness = row.BestFitness
	}
	bd.seen++
	if row.SurvivorsAtEnd > bd.survivorPeak {
		bd.survivorPeak = row.SurvivorsAtEnd
	}

	return bookmarks
}

func (bd *BookmarkDetector) addToHistory(row GenerationMetricsRow) {
	bd.history[bd.historyIdx] = row
	bd.historyIdx = (bd.historyIdx + 1) % bd.historySize
	if bd.historyIdx == 0 {
		bd.historyFull = true
	}
}

func (bd *BookmarkDetector) getHistory() []GenerationMetricsRow {
	if bd.historyFull {
		return bd.history
	}
	return bd.history[:bd.historyIdx]
}

// checkFitnessBreakthrough fires when the best genome beats the run's previous
// best by more than a fifth of the recent average spread.
func (bd *BookmarkDetector) checkFitnessBreakthrough(row GenerationMetricsRow) *Bookmark {
	history := bd.getHistory()
	if len(history) < 3 {
		return nil
	}

	var spread float64
	for _, h := range history {
		spread += h.BestFitness - h.WorstFitness
	}
	spread /= float64(len(history))
	if spread <= 0 {
		return nil
	}

	gain := row.BestFitness - bd.bestFitness
	if gain > spread*0.2 {
		return &Bookmark{
			Type:        BookmarkFitnessBreakthrough,
			Generation:  row.Generation,
			Description: fmt.Sprintf("Best fitness %.3f beats previous best %.3f by %.3f", row.BestFitness, bd.bestFitness, gain),
		}
	}
	return nil
}

func (bd *BookmarkDetector) checkAccuracyBreakthrough(row GenerationMetricsRow) *Bookmark {
	history := bd.getHistory()
	if len(history) < 3 {
		return nil
	}

	var kills, shots int
	for _, h := range history {
		kills += h.Kills
		shots += h.ShotsFired
	}
	if kills == 0 || shots == 0 || row.ShotsFired == 0 {
		return nil
	}

	avg := float64(kills) / float64(shots)
	if row.KillPerShot > avg*2.0 && row.Kills >= 3 {
		return &Bookmark{
			Type:        BookmarkAccuracyBreakthrough,
			Generation:  row.Generation,
			Description: fmt.Sprintf("Kill/shot %.3f is %.1fx average (%.3f)", row.KillPerShot, row.KillPerShot/avg, avg),
		}
	}
	return nil
}

func (bd *BookmarkDetector) checkSurvivorCollapse(row GenerationMetricsRow) *Bookmark {
	if bd.survivorPeak < 4 {
		return nil
	}

	drop := 1.0 - float64(row.SurvivorsAtEnd)/float64(bd.survivorPeak)
	if drop > 0.5 {
		oldPeak := bd.survivorPeak
		bd.survivorPeak = row.SurvivorsAtEnd
		return &Bookmark{
			Type:        BookmarkSurvivorCollapse,
			Generation:  row.Generation,
			Description: fmt.Sprintf("Survivors fell %.0f%% from peak %d to %d", drop*100, oldPeak, row.SurvivorsAtEnd),
		}
	}
	return nil
}
