package ethercat

// Send transmits the current output process image. It must be called
// from the realtime thread only, never concurrently with housekeeping's
// driver access; DriverGuard enforces the latter.
func (m *Master) Send() error {
	if !m.initialized.Load() {
		return ErrNotInitialized
	}
	return m.send()
}

func (m *Master) send() error {
	return m.guard.With(func(d BusDriver) error {
		return d.SendProcessData()
	})
}

// Receive blocks for the configured EtherCATReceiveTimeout waiting for
// the cyclic datagram. On a frame it stores the working counter, folds
// the arrival time into the jitter estimate (if DC is enabled), and
// instructs every bound subdevice to refresh its observed state from the
// driver's cached state record, per spec §4.D and §4.F. On NO_FRAME it
// performs no other side effect: actualWorkingCounter, the jitter
// estimator and subdevice state are all left untouched.
func (m *Master) Receive() (int, error) {
	if !m.initialized.Load() {
		return 0, ErrNotInitialized
	}
	wkc, err := m.receiveSimple()
	if err != nil {
		return wkc, err
	}
	if wkc == NO_FRAME {
		return wkc, nil
	}

	m.actualWKC.Store(int64(wkc))

	if m.enableDCRequested && m.dcCapable {
		var now int64
		_ = m.guard.With(func(d BusDriver) error {
			now = d.DCTime()
			return nil
		})
		m.dcTime.Store(now)
		m.jitter.Update(now, m.cycleTimeNanos)
	}

	m.mu.RLock()
	subdevices := make([]*Subdevice, len(m.subdevices))
	copy(subdevices, m.subdevices)
	m.mu.RUnlock()
	for _, sd := range subdevices {
		sd.updateStateVariables(m.guard)
	}

	return wkc, nil
}

// receiveSimple performs the driver-level receive only, skipping jitter,
// subdevice state refresh and working-counter storage, per spec §4.F.
// Used both by Receive and by Init's priming cycle, where none of that is
// meaningful yet.
func (m *Master) receiveSimple() (int, error) {
	var wkc int
	err := m.guard.With(func(d BusDriver) error {
		var innerErr error
		wkc, innerErr = d.ReceiveProcessData(m.receiveTimeout)
		return innerErr
	})
	if err != nil {
		return NO_FRAME, err
	}
	return wkc, nil
}
