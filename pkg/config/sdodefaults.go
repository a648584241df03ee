package config

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/ini.v1"

	"github.com/Pathorse/ihmc-ethercat-master"
)

// LoadSDODefaults parses an EDS-style ini file into SDO descriptors. Each
// section name is "<index>sub<subIndex>" in hex, e.g. "6000sub01",
// holding a "DefaultValue" key of hex-encoded bytes, following the same
// section-naming convention the teacher's EDS parser uses for object
// dictionary entries (pkg/od/parser.go).
func LoadSDODefaults(path string) ([]ethercat.SDODescriptor, error) {
	f, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load sdo defaults %s: %w", path, err)
	}

	var out []ethercat.SDODescriptor
	for _, section := range f.Sections() {
		if section.Name() == ini.DefaultSection {
			continue
		}
		index, subIndex, err := parseSectionName(section.Name())
		if err != nil {
			return nil, fmt.Errorf("section %s: %w", section.Name(), err)
		}
		raw := section.Key("DefaultValue").String()
		if raw == "" {
			continue
		}
		value, err := hex.DecodeString(raw)
		if err != nil {
			return nil, fmt.Errorf("section %s: DefaultValue not hex: %w", section.Name(), err)
		}
		out = append(out, ethercat.SDODescriptor{Index: index, SubIndex: subIndex, Value: value})
	}
	return out, nil
}

func parseSectionName(name string) (uint16, uint8, error) {
	indexHex, subHex, hasSub := strings.Cut(name, "sub")
	idx, err := strconv.ParseUint(indexHex, 16, 16)
	if err != nil {
		return 0, 0, fmt.Errorf("expected <index> or <index>sub<subindex>, got %q", name)
	}
	if !hasSub {
		return uint16(idx), 0, nil
	}
	sub, err := strconv.ParseUint(subHex, 16, 8)
	if err != nil {
		return 0, 0, fmt.Errorf("expected <index> or <index>sub<subindex>, got %q", name)
	}
	return uint16(idx), uint8(sub), nil
}
