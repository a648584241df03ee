// Package ethercat is a pure Go implementation of an EtherCAT master core.
//
// It drives subdevices through the mandatory state progression
// (INIT -> PRE-OP -> SAFE-OP -> OP), exchanges cyclic process data under
// realtime timing constraints, and maintains distributed-clock
// synchronization with an online jitter estimate. The raw datagram
// engine (socket, mailbox, SDO, SII/EEPROM) is not part of this package;
// it is provided by a host-supplied BusDriver implementation.
package ethercat

const (
	// IOMAP_MIN is the minimum size, in bytes, of the allocated process image.
	IOMAP_MIN = 655360

	// MAX_EXECUTION_JITTER_DEFAULT is the default gate, in nanoseconds, for
	// promoting subdevices to OP when distributed clocks are enabled.
	MAX_EXECUTION_JITTER_DEFAULT = 25000

	// NO_FRAME is the sentinel working counter value returned by Receive
	// when no datagram arrived within the configured timeout.
	NO_FRAME = -1

	// MinJitterSamples is the number of jitter samples the housekeeping
	// state machine requires before it trusts the estimate enough to gate
	// promotion to OP. At the 1/16 EWMA factor used by JitterEstimator,
	// 50 samples incorporate about 96% of a step change (1 - (15/16)^50).
	MinJitterSamples = 50

	// DefaultReceiveTimeoutMicros is used when the host never calls
	// SetEtherCATReceiveTimeout.
	DefaultReceiveTimeoutMicros = 2000
)
