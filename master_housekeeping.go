package ethercat

import (
	"time"

	log "github.com/sirupsen/logrus"
	"go.uber.org/multierr"
)

// housekeepingPeriod is the polling interval for StartHousekeeping's
// background loop, grounded on the teacher's launchNodeProcess cyclic
// goroutine (pkg/network/network.go).
const housekeepingPeriod = 50 * time.Millisecond

// StartHousekeeping launches the background thread that polls subdevice
// AL status and drives fault recovery, separate from the realtime
// send/receive thread (spec §4.G, §5). Safe to call at most once; a
// second call is a no-op.
func (m *Master) StartHousekeeping() {
	if m.housekeepingStop != nil {
		return
	}
	m.housekeepingStop = make(chan struct{})
	m.housekeepingDone = make(chan struct{})

	go func() {
		defer close(m.housekeepingDone)
		ticker := time.NewTicker(housekeepingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-m.housekeepingStop:
				return
			case <-ticker.C:
				m.runOnce()
			}
		}
	}()
}

// runOnce reads each subdevice's observed state, as last refreshed by
// Receive's updateStateVariables call, and drives the housekeeping state
// machine: gated promotion to OP, fault detection and recovery, per spec
// §4.G. It never queries the driver for observation itself; it reads the
// state Receive last stored and, when it drives a transition, records the
// resulting logical state (OP, RECOVERING or FAULT) with setState.
func (m *Master) runOnce() {
	m.mu.RLock()
	subdevices := make([]*Subdevice, len(m.subdevices))
	copy(subdevices, m.subdevices)
	m.mu.RUnlock()

	for _, sd := range subdevices {
		if sd.slot == 0 {
			continue
		}

		observed := sd.State()

		switch observed {
		case StateSafeOp:
			if !m.readyForOp() {
				continue
			}
			if err := m.guard.With(func(d BusDriver) error {
				return d.RequestState(sd.slot, StateOp)
			}); err != nil {
				log.Warnf("[HOUSEKEEPING] OP promotion request failed for %d:%d: %v", sd.Alias, sd.Position, err)
				continue
			}
			sd.setState(StateOp)
		case StateFault:
			log.Warnf("[HOUSEKEEPING] subdevice %d:%d observed in FAULT", sd.Alias, sd.Position)
			if m.recoveryDisabled {
				continue
			}
			sd.setState(StateRecovering)
		case StateRecovering:
			if m.recoveryDisabled {
				sd.setState(StateFault)
				continue
			}
			if err := m.guard.With(func(d BusDriver) error {
				return d.RequestState(sd.slot, StateOp)
			}); err != nil {
				log.Warnf("[HOUSEKEEPING] recovery request failed for %d:%d: %v", sd.Alias, sd.Position, err)
				continue
			}
			sd.setState(StateOp)
		}
	}
}

// readyForOp reports whether spec §4.G's OP-promotion gate is satisfied:
// the preceding cycle's working counter matched expectations, and, if DC
// is enabled, the jitter estimate has settled within bounds.
func (m *Master) readyForOp() bool {
	if m.actualWKC.Load() != m.expectedWKC.Load() {
		return false
	}
	if m.enableDCRequested && m.dcCapable {
		if m.jitter.Samples() < MinJitterSamples {
			return false
		}
		if m.jitter.Estimate() > m.maxExecutionJitter {
			return false
		}
	}
	return true
}

// Shutdown stops housekeeping, requests INIT for every subdevice, and
// closes the driver. Non-fatal per-subdevice shutdown errors are
// aggregated rather than short-circuiting the rest of the shutdown
// sequence, mirroring the original master's best-effort shutdownSlaves
// loop.
func (m *Master) Shutdown() error {
	m.shutdownMu.Lock()
	defer m.shutdownMu.Unlock()

	if !m.initialized.Load() {
		return ErrNotInitialized
	}

	m.trace(TraceStopHousekeeping)
	if m.housekeepingStop != nil {
		close(m.housekeepingStop)
		<-m.housekeepingDone
		m.housekeepingStop = nil
	}

	var errs error
	if err := m.shutdownSubdevices(); err != nil {
		errs = multierr.Append(errs, err)
	}

	if err := m.guard.With(func(d BusDriver) error {
		return d.Close()
	}); err != nil {
		errs = multierr.Append(errs, err)
	}

	m.initialized.Store(false)
	masterInstanceActive.Store(false)
	return errs
}

func (m *Master) shutdownSubdevices() error {
	m.mu.RLock()
	subdevices := make([]*Subdevice, len(m.subdevices))
	copy(subdevices, m.subdevices)
	m.mu.RUnlock()

	var errs error
	for _, sd := range subdevices {
		if err := sd.shutdown(m.guard); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}
