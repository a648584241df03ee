package ethercat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJitterEstimatorFirstCallOnlySeeds(t *testing.T) {
	var j JitterEstimator
	j.Update(1_000_000, 1_000_000)
	assert.EqualValues(t, 0, j.Estimate())
	assert.EqualValues(t, 0, j.Samples())
}

func TestJitterEstimatorConvergesOnStableCycle(t *testing.T) {
	var j JitterEstimator
	t0 := int64(0)
	cycle := int64(1_000_000)
	for i := 0; i < 100; i++ {
		j.Update(t0, cycle)
		t0 += cycle
	}
	assert.EqualValues(t, 0, j.Estimate())
	assert.EqualValues(t, 99, j.Samples())
}

func TestJitterEstimatorTracksDeviation(t *testing.T) {
	var j JitterEstimator
	cycle := int64(1_000_000)
	j.Update(0, cycle)
	j.Update(cycle+50_000, cycle)
	assert.Greater(t, j.Estimate(), int64(0))
	assert.EqualValues(t, 1, j.Samples())
}

func TestJitterEstimatorReset(t *testing.T) {
	var j JitterEstimator
	j.Update(0, 1_000_000)
	j.Update(2_000_000, 1_000_000)
	assert.NotZero(t, j.Samples())
	j.Reset()
	assert.EqualValues(t, 0, j.Estimate())
	assert.EqualValues(t, 0, j.Samples())
}
