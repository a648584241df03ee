package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Pathorse/ihmc-ethercat-master"
)

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	assert.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadParsesHostConfig(t *testing.T) {
	path := writeTempFile(t, "ethercat.yaml", `
interface: eth0
enableDC: true
requireAllSlaves: true
receiveTimeoutMicros: 3000
subdevices:
  - name: io1
    alias: 1
    position: 1
    vendorId: 16
    productCode: 32
`)
	cfg, err := Load(path)
	assert.NoError(t, err)
	assert.Equal(t, "eth0", cfg.Interface)
	assert.True(t, cfg.EnableDC)
	assert.True(t, cfg.RequireAllSlaves)
	assert.Len(t, cfg.Subdevices, 1)
	assert.EqualValues(t, 16, cfg.Subdevices[0].VendorId)
}

func TestReceiveTimeoutFallsBackToDefault(t *testing.T) {
	cfg := HostConfig{}
	assert.Equal(t, ethercat.DefaultReceiveTimeout, cfg.ReceiveTimeout())
}

func TestMaxExecutionJitterFallsBackToDefault(t *testing.T) {
	cfg := HostConfig{}
	assert.EqualValues(t, ethercat.MAX_EXECUTION_JITTER_DEFAULT, cfg.MaxExecutionJitter())
}

func TestBuildSubdevicesLoadsSDODefaults(t *testing.T) {
	defaultsPath := writeTempFile(t, "defaults.ini", `
[6000sub01]
DefaultValue = 0102

[6000sub02]
DefaultValue = ff
`)
	cfg := HostConfig{
		Subdevices: []SubdeviceEntry{
			{Name: "io1", Alias: 1, Position: 1, VendorId: 1, ProductCode: 2, SDODefaults: defaultsPath},
		},
	}
	subdevices, err := cfg.BuildSubdevices()
	assert.NoError(t, err)
	assert.Len(t, subdevices, 1)
	assert.Equal(t, "io1", subdevices[0].Name)
}

func TestLoadSDODefaultsParsesIndexAndSubIndex(t *testing.T) {
	path := writeTempFile(t, "defaults.ini", `
[1018sub01]
DefaultValue = deadbeef
`)
	descriptors, err := LoadSDODefaults(path)
	assert.NoError(t, err)
	assert.Len(t, descriptors, 1)
	assert.EqualValues(t, 0x1018, descriptors[0].Index)
	assert.EqualValues(t, 0x01, descriptors[0].SubIndex)
	assert.Equal(t, []byte{0xde, 0xad, 0xbe, 0xef}, descriptors[0].Value)
}
