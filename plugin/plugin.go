// Package plugin implements the six-phase observer contract of spec.md §6:
// external code may hook into a fixed set of points in the step without the
// driver knowing anything about what the hook does. Each hook is optional;
// a Plugin implements whichever subset it needs.
package plugin

import "github.com/cpmech/gomero/device"

// Hook identifies one of the six fixed observation points in a step. The
// driver creates one scheduler task per hook, which dispatches to every
// registered plugin; within a single hook, execution order across plugins
// is undefined (spec.md §9:
// "plugin authors must not assume mutual ordering at the same hook").
type Hook int

const (
	BeforeCellLists Hook = iota
	BeforeForces
	SerializeAndSend
	BeforeIntegration
	AfterIntegration
	BeforeParticleDistribution

	numHooks
)

func (h Hook) String() string {
	switch h {
	case BeforeCellLists:
		return "beforeCellLists"
	case BeforeForces:
		return "beforeForces"
	case SerializeAndSend:
		return "serializeAndSend"
	case BeforeIntegration:
		return "beforeIntegration"
	case AfterIntegration:
		return "afterIntegration"
	case BeforeParticleDistribution:
		return "beforeParticleDistribution"
	default:
		return "unknown"
	}
}

// Plugin is the external-observer capability set. Every method is optional
// in spirit: an embedder that only cares about one hook embeds NopPlugin
// and overrides the rest.
type Plugin interface {
	Name() string

	BeforeCellLists(stream device.Stream, step int) error
	BeforeForces(stream device.Stream, step int) error
	// SerializeAndSend packages this plugin's per-step payload (if any) and
	// ships it over the postprocess inter-communicator, when one is
	// attached.
	SerializeAndSend(stream device.Stream, step int) error
	BeforeIntegration(stream device.Stream, step int) error
	AfterIntegration(stream device.Stream, step int) error
	BeforeParticleDistribution(stream device.Stream, step int) error
}

// NopPlugin implements every hook as a no-op; embed it and override only
// the hooks a concrete plugin cares about.
type NopPlugin struct{ PluginName string }

func (p NopPlugin) Name() string { return p.PluginName }

func (NopPlugin) BeforeCellLists(device.Stream, int) error            { return nil }
func (NopPlugin) BeforeForces(device.Stream, int) error               { return nil }
func (NopPlugin) SerializeAndSend(device.Stream, int) error           { return nil }
func (NopPlugin) BeforeIntegration(device.Stream, int) error          { return nil }
func (NopPlugin) AfterIntegration(device.Stream, int) error           { return nil }
func (NopPlugin) BeforeParticleDistribution(device.Stream, int) error { return nil }
