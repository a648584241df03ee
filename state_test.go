package ethercat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStateOrdinalProgression(t *testing.T) {
	assert.True(t, StateInit.less(StatePreOp))
	assert.True(t, StatePreOp.less(StateBoot))
	assert.True(t, StateBoot.less(StateSafeOp))
	assert.True(t, StateSafeOp.less(StateOp))
	assert.False(t, StateOp.less(StateInit))
}

func TestOfflineFaultRecoveringShutdownPullDownAggregate(t *testing.T) {
	for _, s := range []SubdeviceState{StateOffline, StateFault, StateRecovering, StateShutdown} {
		assert.True(t, s.less(StateInit), "%s should be less advanced than INIT", s)
	}
}

func TestStateStringRoundTrips(t *testing.T) {
	assert.Equal(t, "OP", StateOp.String())
	assert.Equal(t, "SAFE_OP", StateSafeOp.String())
	assert.Equal(t, "UNKNOWN", SubdeviceState(99).String())
}
