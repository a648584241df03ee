package ethercat

import "sync/atomic"

// JitterEstimator tracks an exponentially-weighted estimate of cyclic
// arrival jitter per RFC 1889, exactly as described in spec §3 and §4.D.
//
// Update is only ever called from the realtime thread running Receive.
// Reads (Estimate, Samples) happen from any thread and are coherent
// without locking: estimate and samples are published with atomic stores
// and loaded with atomic loads, single-writer/multi-reader.
type JitterEstimator struct {
	hasPrevious     atomic.Bool
	previousArrival int64 // nanoseconds, only touched by the writer
	estimate        atomic.Int64
	samples         atomic.Int64
}

// Update folds a new arrival timestamp into the estimate. cycleTimeNanos
// is the nominal cycle time T; t is the DC-master timestamp of this
// arrival. The very first call only seeds previousArrival and does not
// update the estimate, mirroring the original master's
// "if previousArrivalTime != 0" guard.
func (j *JitterEstimator) Update(t int64, cycleTimeNanos int64) {
	if !j.hasPrevious.Load() {
		j.previousArrival = t
		j.hasPrevious.Store(true)
		return
	}

	delta := (t - j.previousArrival) - cycleTimeNanos
	if delta < 0 {
		delta = -delta
	}

	estimate := j.estimate.Load()
	estimate += (delta - estimate) / 16
	j.estimate.Store(estimate)
	j.samples.Add(1)

	j.previousArrival = t
}

// Estimate returns the current jitter estimate in nanoseconds. Always
// non-negative; zero before the first update.
func (j *JitterEstimator) Estimate() int64 {
	return j.estimate.Load()
}

// Samples returns the number of updates folded into Estimate so far.
func (j *JitterEstimator) Samples() int64 {
	return j.samples.Load()
}

// Reset clears accumulated state, used when DC is disabled so that
// Estimate() and Samples() remain 0 as required by spec §8.
func (j *JitterEstimator) Reset() {
	j.hasPrevious.Store(false)
	j.previousArrival = 0
	j.estimate.Store(0)
	j.samples.Store(0)
}
