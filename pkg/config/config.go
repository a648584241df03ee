// Package config loads host-supplied EtherCAT master configuration from
// YAML, grounded on ch10gate's cmd/ch10d/main.go loadConfig, and
// per-subdevice CoE defaults from an EDS-style ini file, grounded on the
// teacher's pkg/config package (NodeConfigurator reading Identity and
// Manufacturer fields via ini-backed SDO descriptors).
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Pathorse/ihmc-ethercat-master"
)

// TraceLogConfig configures the rotating trace-event sink
// (internal/tracesink), mirroring ch10gate's logConfig block.
type TraceLogConfig struct {
	Directory  string `yaml:"directory"`
	MaxSizeMB  int    `yaml:"maxSizeMB"`
	MaxAgeDays int    `yaml:"maxAgeDays"`
	MaxBackups int    `yaml:"maxBackups"`
	Compress   bool   `yaml:"compress"`
}

// SubdeviceEntry declares one expected subdevice in YAML.
type SubdeviceEntry struct {
	Name        string `yaml:"name"`
	Alias       uint16 `yaml:"alias"`
	Position    uint16 `yaml:"position"`
	VendorId    uint32 `yaml:"vendorId"`
	ProductCode uint32 `yaml:"productCode"`
	SDODefaults string `yaml:"sdoDefaults"`
}

// HostConfig is the top-level YAML document describing one Master.
type HostConfig struct {
	Interface             string           `yaml:"interface"`
	EnableDC              bool             `yaml:"enableDC"`
	CycleTimeNs           int64            `yaml:"cycleTimeNs"`
	RequireAllSlaves      bool             `yaml:"requireAllSlaves"`
	DisableRecovery       bool             `yaml:"disableRecovery"`
	ReceiveTimeoutMicros  int64            `yaml:"receiveTimeoutMicros"`
	MaxExecutionJitterNs  int64            `yaml:"maxExecutionJitterNs"`
	CommissioningReport   string           `yaml:"commissioningReport"`
	TraceLog              TraceLogConfig   `yaml:"traceLog"`
	Subdevices            []SubdeviceEntry `yaml:"subdevices"`
}

// Load decodes a HostConfig from path.
func Load(path string) (HostConfig, error) {
	var cfg HostConfig
	f, err := os.Open(path)
	if err != nil {
		return cfg, err
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("decode host config: %w", err)
	}
	return cfg, nil
}

// ReceiveTimeout returns the configured receive timeout, falling back to
// ethercat.DefaultReceiveTimeout when unset.
func (c HostConfig) ReceiveTimeout() time.Duration {
	if c.ReceiveTimeoutMicros <= 0 {
		return ethercat.DefaultReceiveTimeout
	}
	return time.Duration(c.ReceiveTimeoutMicros) * time.Microsecond
}

// CycleTime returns the configured DC cycle period in nanoseconds,
// falling back to a 1ms nominal cycle when unset.
func (c HostConfig) CycleTime() int64 {
	if c.CycleTimeNs <= 0 {
		return 1_000_000
	}
	return c.CycleTimeNs
}

// MaxExecutionJitter returns the configured jitter threshold that gates
// promotion to OP, falling back to ethercat.MAX_EXECUTION_JITTER_DEFAULT when unset.
func (c HostConfig) MaxExecutionJitter() int64 {
	if c.MaxExecutionJitterNs <= 0 {
		return ethercat.MAX_EXECUTION_JITTER_DEFAULT
	}
	return c.MaxExecutionJitterNs
}

// BuildSubdevices constructs ethercat.Subdevice values for every entry,
// loading each one's SDODefaults file (if set) via LoadSDODefaults.
func (c HostConfig) BuildSubdevices() ([]*ethercat.Subdevice, error) {
	var out []*ethercat.Subdevice
	for _, entry := range c.Subdevices {
		sd := ethercat.NewSubdevice(entry.Name, entry.Alias, entry.Position, entry.VendorId, entry.ProductCode)
		if entry.SDODefaults != "" {
			descriptors, err := LoadSDODefaults(entry.SDODefaults)
			if err != nil {
				return nil, fmt.Errorf("subdevice %s: %w", entry.Name, err)
			}
			for _, d := range descriptors {
				sd.AddSDODescriptor(d.Index, d.SubIndex, d.Value)
			}
		}
		out = append(out, sd)
	}
	return out, nil
}
