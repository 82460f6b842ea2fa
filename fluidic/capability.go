package fluidic

import (
	"fmt"

	"github.com/fluidlab/fluidmap/ferrors"
)

// ActuatorRef is the stable boundary record for a plugin-backed actuator: a
// handle into the externally managed command sink / plugin registry, never
// an owning reference (§9 "shared ownership of actuators"). Device I/O and
// plugin resolution are external collaborators; fluidmap only carries this
// descriptor.
type ActuatorRef struct {
	CommunicationsChannelID int               `json:"communications_channel_id"`
	PluginName              string            `json:"plugin_name"`
	Parameters              map[string]string `json:"parameters,omitempty"`
}

// CapabilitySlots is the option-valued capability record attached to an
// ExecutableContainerNode. Modeled as a flat struct of optional handles
// rather than an inheritance hierarchy, per §9's capability-polymorphism
// note — the small fixed family of roles is data (the slot-requirement
// table below), not a type hierarchy.
type CapabilitySlots struct {
	Injector    *ActuatorRef
	Extractor   *ActuatorRef
	ODSensor    *ActuatorRef
	Mixer       *ActuatorRef
	Temperature *ActuatorRef
	Light       *ActuatorRef
	Controls    []ActuatorRef
}

// HasInjector, HasExtractor, HasODSensor report slot presence.
func (c CapabilitySlots) HasInjector() bool  { return c.Injector != nil }
func (c CapabilitySlots) HasExtractor() bool { return c.Extractor != nil }
func (c CapabilitySlots) HasODSensor() bool  { return c.ODSensor != nil }

// ControlCount reports the number of control valves attached.
func (c CapabilitySlots) ControlCount() int { return len(c.Controls) }

// ValidateForRole checks that the capability slots satisfy the role's
// requirement, per §3's ExecutableContainerNode paragraph:
//
//	bidirectional_switch: injector + extractor + >=2 controls
//	inlet:                extractor
//	sink:                 injector
//	flow:                 injector + extractor
//	convergent_switch:       injector + >=1 control
//	divergent_switch:        extractor + >=1 control
//	convergent_switch_inlet: extractor + injector + >=1 control
//	divergent_switch_sink:   injector + extractor + >=1 control
func (c CapabilitySlots) ValidateForRole(role RoleType) error {
	missing := func(what string) error {
		return fmt.Errorf("fluidic: role %s requires %s: %w", role, what, ferrors.ErrInvalidGraph)
	}
	switch role {
	case RoleInlet, RoleConvergentSwitchInlet:
		if !c.HasExtractor() {
			return missing("an extractor")
		}
		if role == RoleConvergentSwitchInlet {
			if !c.HasInjector() {
				return missing("an injector")
			}
			if c.ControlCount() < 1 {
				return missing("at least one control valve")
			}
		}
	case RoleSink, RoleDivergentSwitchSink:
		if !c.HasInjector() {
			return missing("an injector")
		}
		if role == RoleDivergentSwitchSink {
			if !c.HasExtractor() {
				return missing("an extractor")
			}
			if c.ControlCount() < 1 {
				return missing("at least one control valve")
			}
		}
	case RoleFlow:
		if !c.HasInjector() || !c.HasExtractor() {
			return missing("both an injector and an extractor")
		}
	case RoleConvergentSwitch:
		if !c.HasInjector() {
			return missing("an injector")
		}
		if c.ControlCount() < 1 {
			return missing("at least one control valve")
		}
	case RoleDivergentSwitch:
		if !c.HasExtractor() {
			return missing("an extractor")
		}
		if c.ControlCount() < 1 {
			return missing("at least one control valve")
		}
	case RoleBidirectionalSwitch:
		if !c.HasInjector() || !c.HasExtractor() {
			return missing("both an injector and an extractor")
		}
		if c.ControlCount() < 2 {
			return missing("at least two control valves")
		}
	case RoleUnknown:
		// unknown role carries no slot requirement.
	}
	return nil
}
