// Package statevar builds state variable path strings: dotted references
// into a part's or the system's sensed state, used as the state variable
// name of a [github.com/icon-robotics/iconclient/condition].Comparison.
//
// A path is a "@"-prefixed, "."-joined sequence of nodes, each a name with an
// optional array index in brackets, e.g. "@left_arm.ArmPart.sensed_position[2]".
package statevar

import (
	"strconv"
	"strings"

	"github.com/icon-robotics/iconclient/iconerr"
)

// MaxNodeNameLength is the maximum length of a single path node's name.
const MaxNodeNameLength = 40

const (
	pathPrefix    = "@"
	pathSeparator = "."
)

// Node is one segment of a state variable path: a name and an optional
// array index.
type Node struct {
	Name string
	// HasIndex and Index together model the original's std::optional<size_t>:
	// a node either has no index, or one non-negative index.
	HasIndex bool
	Index    uint64
}

// IndexedNode builds a Node with an array index.
func IndexedNode(name string, index uint64) Node {
	return Node{Name: name, HasIndex: true, Index: index}
}

// PlainNode builds a Node with no array index.
func PlainNode(name string) Node {
	return Node{Name: name}
}

// String renders the node as it appears in a path: name, or name[index].
func (n Node) String() string {
	if n.HasIndex {
		return n.Name + "[" + strconv.FormatUint(n.Index, 10) + "]"
	}
	return n.Name
}

// Equal reports whether two nodes represent the same path segment.
func (n Node) Equal(other Node) bool {
	return n.Name == other.Name && n.HasIndex == other.HasIndex && n.Index == other.Index
}

// Build joins nodes into a "@"-prefixed, "."-separated path string. It
// returns InvalidArgument if nodes is empty, any node name is empty, or any
// node name exceeds [MaxNodeNameLength].
func Build(nodes ...Node) (string, error) {
	if len(nodes) == 0 {
		return "", iconerr.InvalidArgument("statevar: path must have at least one node")
	}
	parts := make([]string, len(nodes))
	for i, n := range nodes {
		if n.Name == "" {
			return "", iconerr.InvalidArgument("statevar: node %d has an empty name", i)
		}
		if len(n.Name) > MaxNodeNameLength {
			return "", iconerr.InvalidArgument(
				"statevar: node %d name %q exceeds max length %d", i, n.Name, MaxNodeNameLength)
		}
		parts[i] = n.String()
	}
	return pathPrefix + strings.Join(parts, pathSeparator), nil
}

// MustBuild is like Build but panics on error. The part-type builder
// functions below use it: their fixed node names are compile-time constants,
// but the caller's part and block names are not checked beforehand, so an
// empty or overlong one makes those builders panic.
func MustBuild(nodes ...Node) string {
	s, err := Build(nodes...)
	if err != nil {
		panic(err)
	}
	return s
}

// Node name constants for the fixed part of each path, mirroring the
// original's state_variable_path_constants.h.
const (
	armTypeNode        = "ArmPart"
	ftTypeNode         = "ForceTorqueSensorPart"
	adioTypeNode       = "ADIOPart"
	gripperTypeNode    = "GripperPart"
	rangefinderNode    = "RangefinderPart"
	safetyTypeNode     = "Safety"

	sensedPositionNode         = "sensed_position"
	sensedVelocityNode         = "sensed_velocity"
	sensedAccelerationNode     = "sensed_acceleration"
	sensedTorqueNode           = "sensed_torque"
	baseTwistTipSensedNode     = "base_twist_tip_sensed"
	baseLinearVelocityTipNode  = "base_linear_velocity_tip_sensed"
	baseAngularVelocityTipNode = "base_angular_velocity_tip_sensed"
	currentControlModeNode     = "current_control_mode"

	wrenchAtTipNode          = "wrench_at_tip"
	forceMagnitudeAtTipNode  = "force_magnitude_at_tip"
	torqueMagnitudeAtTipNode = "torque_magnitude_at_tip"

	gripperSensedStateNode  = "sensed_state"
	gripperOpeningWidthNode = "opening_width"

	digitalInputNode  = "di"
	digitalOutputNode = "do"
	analogInputNode   = "ai"

	rangefinderDistanceNode  = "distance"
	enableButtonStatusNode   = "enable_button_status"
)

// TwistDimension selects one scalar of a 6-vector twist.
type TwistDimension int

const (
	TwistX TwistDimension = iota
	TwistY
	TwistZ
	TwistRX
	TwistRY
	TwistRZ
)

// WrenchDimension selects one scalar of a 6-vector wrench.
type WrenchDimension int

const (
	WrenchX WrenchDimension = iota
	WrenchY
	WrenchZ
	WrenchRX
	WrenchRY
	WrenchRZ
)

func indexedArmPath(partName, fieldNode string, index uint64) string {
	return MustBuild(PlainNode(partName), PlainNode(armTypeNode), IndexedNode(fieldNode, index))
}

// ArmSensedPosition returns the path to a single sensed joint position
// (double).
func ArmSensedPosition(partName string, jointIndex uint64) string {
	return indexedArmPath(partName, sensedPositionNode, jointIndex)
}

// ArmSensedVelocity returns the path to a single sensed joint velocity
// (double).
func ArmSensedVelocity(partName string, jointIndex uint64) string {
	return indexedArmPath(partName, sensedVelocityNode, jointIndex)
}

// ArmSensedAcceleration returns the path to a single sensed joint
// acceleration (double).
func ArmSensedAcceleration(partName string, jointIndex uint64) string {
	return indexedArmPath(partName, sensedAccelerationNode, jointIndex)
}

// ArmSensedTorque returns the path to a single sensed joint torque (double).
func ArmSensedTorque(partName string, jointIndex uint64) string {
	return indexedArmPath(partName, sensedTorqueNode, jointIndex)
}

// ArmBaseTwistTipSensed returns the path to one dimension of the sensed tip
// twist in the arm's base frame (double).
func ArmBaseTwistTipSensed(partName string, dim TwistDimension) string {
	return indexedArmPath(partName, baseTwistTipSensedNode, uint64(dim))
}

// ArmBaseLinearVelocityTipSensed returns the path to the Cartesian linear
// velocity magnitude of the arm tip in the base frame (double).
func ArmBaseLinearVelocityTipSensed(partName string) string {
	return MustBuild(PlainNode(partName), PlainNode(armTypeNode), PlainNode(baseLinearVelocityTipNode))
}

// ArmBaseAngularVelocityTipSensed returns the path to the Cartesian angular
// velocity magnitude of the arm tip in the base frame (double).
func ArmBaseAngularVelocityTipSensed(partName string) string {
	return MustBuild(PlainNode(partName), PlainNode(armTypeNode), PlainNode(baseAngularVelocityTipNode))
}

// ArmCurrentControlMode returns the path to the arm's currently used control
// mode (int64, values of the server's PartControlMode enum).
func ArmCurrentControlMode(partName string) string {
	return MustBuild(PlainNode(partName), PlainNode(armTypeNode), PlainNode(currentControlModeNode))
}

// FTWrenchAtTip returns the path to one dimension of the wrench sensed at
// the force-torque sensor's tip frame (double).
func FTWrenchAtTip(partName string, dim WrenchDimension) string {
	return MustBuild(PlainNode(partName), PlainNode(ftTypeNode), IndexedNode(wrenchAtTipNode, uint64(dim)))
}

// FTForceMagnitudeAtTip returns the path to the sensed force magnitude at
// the force-torque sensor's tip frame (double).
func FTForceMagnitudeAtTip(partName string) string {
	return MustBuild(PlainNode(partName), PlainNode(ftTypeNode), PlainNode(forceMagnitudeAtTipNode))
}

// FTTorqueMagnitudeAtTip returns the path to the sensed torque magnitude at
// the force-torque sensor's tip frame (double).
func FTTorqueMagnitudeAtTip(partName string) string {
	return MustBuild(PlainNode(partName), PlainNode(ftTypeNode), PlainNode(torqueMagnitudeAtTipNode))
}

// GripperSensedState returns the path to the gripper's sensed state (int64,
// values of the server's GripperState_SensedState enum).
func GripperSensedState(partName string) string {
	return MustBuild(PlainNode(partName), PlainNode(gripperTypeNode), PlainNode(gripperSensedStateNode))
}

// GripperOpeningWidth returns the path to the gripper's sensed opening width
// (double).
func GripperOpeningWidth(partName string) string {
	return MustBuild(PlainNode(partName), PlainNode(gripperTypeNode), PlainNode(gripperOpeningWidthNode))
}

// RangefinderDistance returns the path to the rangefinder's sensed distance
// (double).
func RangefinderDistance(partName string) string {
	return MustBuild(PlainNode(partName), PlainNode(rangefinderNode), PlainNode(rangefinderDistanceNode))
}

// ADIODigitalInput returns the path to one digital input signal (bool).
func ADIODigitalInput(partName, blockName string, signalIndex uint64) string {
	return MustBuild(PlainNode(partName), PlainNode(adioTypeNode), PlainNode(digitalInputNode),
		IndexedNode(blockName, signalIndex))
}

// ADIODigitalOutput returns the path to one digital output signal (bool).
func ADIODigitalOutput(partName, blockName string, signalIndex uint64) string {
	return MustBuild(PlainNode(partName), PlainNode(adioTypeNode), PlainNode(digitalOutputNode),
		IndexedNode(blockName, signalIndex))
}

// ADIOAnalogInput returns the path to one analog input signal (double).
func ADIOAnalogInput(partName, blockName string, signalIndex uint64) string {
	return MustBuild(PlainNode(partName), PlainNode(adioTypeNode), PlainNode(analogInputNode),
		IndexedNode(blockName, signalIndex))
}

// SafetyEnableButtonStatus returns the path to the system-wide enable safety
// button state (int64, values of the server's ButtonStatus enum). This path
// has no part-name node: it describes a single robot cell-wide signal.
func SafetyEnableButtonStatus() string {
	return MustBuild(PlainNode(safetyTypeNode), PlainNode(enableButtonStatusNode))
}
