package ethercat

import log "github.com/sirupsen/logrus"

// TraceEvent identifies a milestone in Master.init's eleven-step lifecycle
// (spec §4.E), reported to StatusCallback.Trace for diagnostics.
type TraceEvent int

const (
	TraceFastIRQ TraceEvent = iota
	TraceCreateContext
	TraceOpenInterface
	TraceInitializingSubdevices
	TraceDCEnabled
	TraceDCDisabled
	TraceConfiguringSubdevices
	TraceWaitForPreOp
	TraceAllocateProcessImage
	TraceLinkBuffers
	TraceConfigureTxRx
	TraceConfigureComplete
	TraceStopHousekeeping
)

var traceEventNames = map[TraceEvent]string{
	TraceFastIRQ:                "FAST_IRQ",
	TraceCreateContext:          "CREATE_CONTEXT",
	TraceOpenInterface:          "OPEN_INTERFACE",
	TraceInitializingSubdevices: "INITIALIZING_SUBDEVICES",
	TraceDCEnabled:              "DC_ENABLED",
	TraceDCDisabled:             "DC_DISABLED",
	TraceConfiguringSubdevices:  "CONFIGURING_SUBDEVICES",
	TraceWaitForPreOp:           "WAIT_FOR_PREOP",
	TraceAllocateProcessImage:   "ALLOCATE_PROCESS_IMAGE",
	TraceLinkBuffers:            "LINK_BUFFERS",
	TraceConfigureTxRx:          "CONFIGURE_TXRX",
	TraceConfigureComplete:      "CONFIGURE_COMPLETE",
	TraceStopHousekeeping:       "STOP_HOUSEKEEPING",
}

func (t TraceEvent) String() string {
	if name, ok := traceEventNames[t]; ok {
		return name
	}
	return "UNKNOWN"
}

// NotificationKind identifies a non-fatal condition StatusCallback.Notify
// reports, each carrying a specific payload type (spec §7).
type NotificationKind int

const (
	// NotifyUnconfiguredSubdevice carries a SubdeviceRef for a wire
	// subdevice with no matching registration.
	NotifyUnconfiguredSubdevice NotificationKind = iota
	// NotifySubdeviceNotFound carries a SubdeviceRef for a registered
	// subdevice missing from the wire.
	NotifySubdeviceNotFound
	// NotifyExpectedWorkingCounter carries an int, the computed
	// expectedWorkingCounter, once known.
	NotifyExpectedWorkingCounter
	// NotifyDCNotCapable carries no payload (nil); the bus declined DC.
	NotifyDCNotCapable
)

var notificationKindNames = map[NotificationKind]string{
	NotifyUnconfiguredSubdevice:  "UNCONFIGURED_SUBDEVICE",
	NotifySubdeviceNotFound:      "SUBDEVICE_NOT_FOUND",
	NotifyExpectedWorkingCounter: "EXPECTED_WORKING_COUNTER",
	NotifyDCNotCapable:           "DC_NOT_CAPABLE",
}

func (k NotificationKind) String() string {
	if name, ok := notificationKindNames[k]; ok {
		return name
	}
	return "UNKNOWN"
}

// StatusCallback receives diagnostics from Master without the caller
// needing to know which lifecycle phase produced them. Tagged variants
// (TraceEvent/NotificationKind plus an any payload) were chosen over a
// family of Notify*Subtype methods so that a host can add a new event
// without widening the interface (spec §9 design note).
type StatusCallback interface {
	Trace(kind TraceEvent)
	Notify(kind NotificationKind, payload any)
}

// logStatusCallback is the default StatusCallback, logging through
// logrus with the teacher's bracketed-tag idiom (e.g. "[INIT]").
type logStatusCallback struct{}

// NewLogStatusCallback returns a StatusCallback that logs every trace and
// notification event through logrus at an appropriate level.
func NewLogStatusCallback() StatusCallback {
	return logStatusCallback{}
}

func (logStatusCallback) Trace(kind TraceEvent) {
	log.Debugf("[INIT] %s", kind)
}

func (logStatusCallback) Notify(kind NotificationKind, payload any) {
	switch kind {
	case NotifyUnconfiguredSubdevice, NotifySubdeviceNotFound, NotifyDCNotCapable:
		log.Warnf("[MASTER] %s: %+v", kind, payload)
	default:
		log.Infof("[MASTER] %s: %+v", kind, payload)
	}
}

// multiStatusCallback fans a single event out to several callbacks, used
// when both a log sink and a trace-file sink (internal/tracesink) are
// configured simultaneously.
type multiStatusCallback []StatusCallback

// NewMultiStatusCallback combines callbacks into one, grounded on the
// teacher's pattern of fanning a single CANopen event to multiple
// frameListeners (pkg/canopen.BusManager.Subscribe).
func NewMultiStatusCallback(callbacks ...StatusCallback) StatusCallback {
	return multiStatusCallback(callbacks)
}

func (m multiStatusCallback) Trace(kind TraceEvent) {
	for _, cb := range m {
		cb.Trace(kind)
	}
}

func (m multiStatusCallback) Notify(kind NotificationKind, payload any) {
	for _, cb := range m {
		cb.Notify(kind, payload)
	}
}
