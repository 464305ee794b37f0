package health

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEWMA(t *testing.T) {
	assert.Equal(t, 500.0, EWMA(0, 500, 0.2, true), "first sample seeds the average")
	assert.InDelta(t, 180.0, EWMA(100, 500, 0.2, false), 1e-9)
	assert.InDelta(t, 100.0, EWMA(100, 100, 0.2, false), 1e-9)
}

func TestLatencyPenalty(t *testing.T) {
	target := 2 * time.Second

	tests := []struct {
		name  string
		avgMs float64
		want  float64
	}{
		{"below target", 1500, 0},
		{"at target", 2000, 0},
		{"halfway to ceiling", 6000, 50},
		{"at ceiling", 10000, 100},
		{"beyond ceiling", 25000, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, LatencyPenalty(tt.avgMs, target), 1e-9)
		})
	}
}

func TestScore(t *testing.T) {
	assert.Equal(t, 100.0, Score(0, 0, 0))
	assert.Equal(t, 70.0, Score(50, 0, 0))
	assert.Equal(t, 82.0, Score(20, 20, 0))
	assert.Equal(t, 90.0, Score(0, 0, 100))
	assert.Equal(t, 0.0, Score(100, 100, 100), "clamped at zero")
}

func TestBackoff(t *testing.T) {
	assert.Equal(t, BaseBackoff, Backoff(100))
	assert.Equal(t, BaseBackoff, Backoff(85))
	assert.Equal(t, 2*time.Second, Backoff(79))
	assert.Equal(t, 32*time.Second, Backoff(0))
	assert.Equal(t, 32*time.Second, Backoff(-10))
}
