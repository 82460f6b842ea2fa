// Package fluidic wraps graphcore.Graph with the container-node type system
// shared by sketches and executable machines: movement/role tags, capability
// slots, and conditional edges whose traversal depends on the preceding edge
// in a flow.
package fluidic

import "fmt"

// MovementType classifies how fluid moves through a container.
type MovementType int

const (
	MovementIrrelevant MovementType = iota
	MovementContinuous
	MovementDiscrete
)

func (m MovementType) String() string {
	switch m {
	case MovementContinuous:
		return "continuous"
	case MovementDiscrete:
		return "discrete"
	case MovementIrrelevant:
		return "irrelevant"
	default:
		return "unknown"
	}
}

// ParseMovementType parses the JSON/text form of a MovementType.
func ParseMovementType(s string) (MovementType, error) {
	switch s {
	case "continuous":
		return MovementContinuous, nil
	case "discrete":
		return MovementDiscrete, nil
	case "irrelevant":
		return MovementIrrelevant, nil
	default:
		return 0, fmt.Errorf("fluidic: unknown movement type %q", s)
	}
}

// RoleType classifies a container's fluidic role.
type RoleType int

const (
	RoleUnknown RoleType = iota
	RoleInlet
	RoleFlow
	RoleSink
	RoleConvergentSwitch
	RoleDivergentSwitch
	RoleBidirectionalSwitch
	RoleConvergentSwitchInlet
	RoleDivergentSwitchSink
)

func (r RoleType) String() string {
	switch r {
	case RoleInlet:
		return "inlet"
	case RoleFlow:
		return "flow"
	case RoleSink:
		return "sink"
	case RoleConvergentSwitch:
		return "convergent_switch"
	case RoleDivergentSwitch:
		return "divergent_switch"
	case RoleBidirectionalSwitch:
		return "bidirectional_switch"
	case RoleConvergentSwitchInlet:
		return "convergent_switch_inlet"
	case RoleDivergentSwitchSink:
		return "divergent_switch_sink"
	default:
		return "unknown"
	}
}

// ParseRoleType parses the JSON/text form of a RoleType.
func ParseRoleType(s string) (RoleType, error) {
	switch s {
	case "inlet":
		return RoleInlet, nil
	case "flow":
		return RoleFlow, nil
	case "sink":
		return RoleSink, nil
	case "convergent_switch":
		return RoleConvergentSwitch, nil
	case "divergent_switch":
		return RoleDivergentSwitch, nil
	case "bidirectional_switch":
		return RoleBidirectionalSwitch, nil
	case "convergent_switch_inlet":
		return RoleConvergentSwitchInlet, nil
	case "divergent_switch_sink":
		return RoleDivergentSwitchSink, nil
	case "unknown", "":
		return RoleUnknown, nil
	default:
		return 0, fmt.Errorf("fluidic: unknown role type %q", s)
	}
}

// ContainerNodeType is the (movement, role) type tag shared by sketch and
// machine containers. Equality is componentwise, except a wildcard
// MovementIrrelevant on either side matches any movement.
type ContainerNodeType struct {
	Movement MovementType
	Role     RoleType
}

// Matches reports whether other satisfies this type as a predicate: roles
// must be equal, movement matches unless either side is MovementIrrelevant.
func (t ContainerNodeType) Matches(other ContainerNodeType) bool {
	if t.Role != other.Role {
		return false
	}
	if t.Movement == MovementIrrelevant || other.Movement == MovementIrrelevant {
		return true
	}
	return t.Movement == other.Movement
}

func (t ContainerNodeType) String() string {
	return fmt.Sprintf("(%s, %s)", t.Movement, t.Role)
}
