package batch

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRunStatsObserve(t *testing.T) {
	var s runStats

	s.observe(40*time.Millisecond, 3, nil)
	s.observe(20*time.Millisecond, 1, nil)
	s.observe(60*time.Millisecond, 0, errors.New("boom"))
	s.skip()

	assert.Equal(t, 2, s.processed)
	assert.Equal(t, 1, s.failed)
	assert.Equal(t, 1, s.skipped)
	assert.Equal(t, 4, s.detections, "failed passes contribute no detections")
	assert.Equal(t, 20*time.Millisecond, s.minTime)
	assert.Equal(t, 60*time.Millisecond, s.maxTime)
	assert.Equal(t, 40*time.Millisecond, s.avgTime(), "mean over every timed pass, failures included")
}

func TestRunStatsZeroValue(t *testing.T) {
	var s runStats

	assert.Zero(t, s.avgTime(), "no timed passes yet")
	assert.Len(t, s.fields(), 6)
}
