// Package iconclient is a client library for the ICON real-time robot
// control server. It multiplexes reactive control actions onto a set of
// robot parts (arms, grippers, force sensors) owned by a remote real-time
// server over a bidirectional streaming RPC.
//
// The package is organized as:
//
//   - [Client]: the unary control surface (enable/disable, part discovery,
//     speed override, part properties).
//   - [github.com/icon-robotics/iconclient/session]: the duplex streaming
//     session core — action/reaction graph, watcher pump, streaming input
//     writer.
//   - [github.com/icon-robotics/iconclient/condition]: the condition
//     algebra evaluated by reactions.
//   - [github.com/icon-robotics/iconclient/statevar]: state-variable path
//     construction.
//   - [github.com/icon-robotics/iconclient/rotation] and
//     [github.com/icon-robotics/iconclient/transform]: SO(3)/SE(3) math.
//   - [github.com/icon-robotics/iconclient/limits]: joint/Cartesian limits
//     and payload bookkeeping.
//   - [github.com/icon-robotics/iconclient/rtstatus]: allocation-free status
//     types for realtime code paths.
//
// This library is not a robot simulator, motion planner, or trajectory
// generator; those concerns live on the server or in separate planning
// services consumed only via RPC contracts.
package iconclient
