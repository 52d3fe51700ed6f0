package iconclient

import (
	"time"

	"github.com/icon-robotics/iconclient/condition"
	"github.com/icon-robotics/iconclient/iconerr"
)

// OperationalStatus is the server's coarse operational state.
type OperationalStatus int

const (
	OperationalStatusUnspecified OperationalStatus = iota
	OperationalStatusDisabled
	OperationalStatusEnabled
	OperationalStatusFaulted
)

// String renders the status the way log lines and error messages expect.
func (s OperationalStatus) String() string {
	switch s {
	case OperationalStatusDisabled:
		return "DISABLED"
	case OperationalStatusEnabled:
		return "ENABLED"
	case OperationalStatusFaulted:
		return "FAULTED"
	default:
		return "UNSPECIFIED"
	}
}

// ActionSignature describes one action type the server can instantiate.
type ActionSignature struct {
	ActionTypeName       string
	FixedParametersType  string
	SlotTypes            []string
	FeatureInterfaces    []string
}

// FeatureInterface names one capability a part config exposes.
type FeatureInterface string

// PartConfig is a part's generic configuration plus its opaque part-specific
// config, as returned inside a RobotConfig.
type PartConfig struct {
	Name              string
	FeatureInterfaces []FeatureInterface
	ConfigTypeName    string
	ConfigPayload     []byte
}

// RobotConfig is a snapshot of the server's overall and per-part
// configuration, as returned by [Client.GetConfig].
type RobotConfig struct {
	ControlFrequencyHz float64
	ServerName         string
	PartConfigs        []PartConfig
}

// PartConfig looks up the config for partName.
func (c RobotConfig) PartConfig(partName string) (PartConfig, bool) {
	for _, p := range c.PartConfigs {
		if p.Name == partName {
			return p, true
		}
	}
	return PartConfig{}, false
}

// PartStatus is the latest sensed state reported for a single part.
type PartStatus struct {
	PartName  string
	StateVariables map[string]condition.Value
}

// StatusSnapshot is the latest sensed state for every part, as returned by
// [Client.GetStatus].
type StatusSnapshot struct {
	PartStatuses map[string]PartStatus
}

// PartPropertyMap is a nested map of part name -> property name -> value,
// used to set part properties in one round trip.
type PartPropertyMap struct {
	Properties map[string]map[string]condition.Value
}

// NewPartPropertyMap returns an empty PartPropertyMap ready for Set calls.
func NewPartPropertyMap() PartPropertyMap {
	return PartPropertyMap{Properties: make(map[string]map[string]condition.Value)}
}

// Set records a property value for (partName, propertyName). Part properties
// are bool- or double-valued only; value must not be an int64 condition.Value.
func (m PartPropertyMap) Set(partName, propertyName string, value condition.Value) error {
	if value.Kind == condition.ValueKindInt64 {
		return iconerr.InvalidArgument(
			"part property %s.%s: int64 values are not supported, use bool or double", partName, propertyName)
	}
	props, ok := m.Properties[partName]
	if !ok {
		props = make(map[string]condition.Value)
		m.Properties[partName] = props
	}
	props[propertyName] = value
	return nil
}

// TimestampedPartProperties is the result of [Client.GetPartProperties]: the
// current value of every known part property, alongside the wall-clock and
// control-loop timestamps at which the snapshot was taken.
type TimestampedPartProperties struct {
	TimestampWall    time.Time
	TimestampControl time.Duration
	Properties       map[string]map[string]condition.Value
}
