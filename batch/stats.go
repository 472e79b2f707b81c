package batch

import (
	"time"

	"go.uber.org/zap"
)

// runStats accumulates per-image measurements over one run. The worker
// goroutine owns it; nothing reads it concurrently.
type runStats struct {
	processed  int
	skipped    int
	failed     int
	detections int

	minTime   time.Duration
	maxTime   time.Duration
	totalTime time.Duration
	timed     int
}

// observe records one detector pass: its wall time, how many
// annotations it kept, and whether it failed.
func (s *runStats) observe(d time.Duration, detections int, err error) {
	if err != nil {
		s.failed++
	} else {
		s.processed++
		s.detections += detections
	}

	if s.timed == 0 || d < s.minTime {
		s.minTime = d
	}
	if d > s.maxTime {
		s.maxTime = d
	}
	s.totalTime += d
	s.timed++
}

// skip counts an image that already had a record.
func (s *runStats) skip() {
	s.skipped++
}

func (s *runStats) avgTime() time.Duration {
	if s.timed == 0 {
		return 0
	}
	return s.totalTime / time.Duration(s.timed)
}

// fields renders the summary for the closing log line of a run.
func (s *runStats) fields() []zap.Field {
	return []zap.Field{
		zap.Int("processed", s.processed),
		zap.Int("skipped", s.skipped),
		zap.Int("failed", s.failed),
		zap.Int("detections", s.detections),
		zap.Duration("image_avg", s.avgTime()),
		zap.Duration("image_max", s.maxTime),
	}
}
