package ethercat

// SubdeviceState is the logical state of a single subdevice as tracked by
// the housekeeping state machine (spec §4.G). It is distinct from the raw
// bus state reported by the driver: logical state additionally models
// RECOVERING, FAULT and SHUTDOWN, none of which exist on the wire.
type SubdeviceState uint8

const (
	StateOffline SubdeviceState = iota
	StateInit
	StatePreOp
	StateBoot
	StateSafeOp
	StateOp
	StateFault
	StateRecovering
	StateShutdown
)

var subdeviceStateNames = map[SubdeviceState]string{
	StateOffline:     "OFFLINE",
	StateInit:        "INIT",
	StatePreOp:       "PRE_OP",
	StateBoot:        "BOOT",
	StateSafeOp:      "SAFE_OP",
	StateOp:          "OP",
	StateFault:       "FAULT",
	StateRecovering:  "RECOVERING",
	StateShutdown:    "SHUTDOWN",
}

func (s SubdeviceState) String() string {
	if name, ok := subdeviceStateNames[s]; ok {
		return name
	}
	return "UNKNOWN"
}

// ordinal returns the progression order used to compute Master.GetState,
// the minimum (least-advanced) state across bound subdevices.
// Per spec §4.G: INIT < PRE_OP < BOOT < SAFE_OP < OP.
// OFFLINE, FAULT, RECOVERING and SHUTDOWN are not part of that progression
// and are treated as less-advanced than INIT so that any subdevice in one
// of those states pulls the aggregate state down with it.
func (s SubdeviceState) ordinal() int {
	switch s {
	case StateInit:
		return 1
	case StatePreOp:
		return 2
	case StateBoot:
		return 3
	case StateSafeOp:
		return 4
	case StateOp:
		return 5
	default:
		// OFFLINE, FAULT, RECOVERING, SHUTDOWN
		return 0
	}
}

// less reports whether s is strictly less advanced than other, by the
// ordinal progression above.
func (s SubdeviceState) less(other SubdeviceState) bool {
	return s.ordinal() < other.ordinal()
}
