package plugin

import "github.com/cpmech/gomero/device"

// Registry holds every registered Plugin and dispatches one hook at a time
// across all of them, in registration order (an implementation detail: the
// contract only promises no ordering *across* plugins at the same hook, so
// this order must never be relied on by a plugin author).
type Registry struct {
	plugins []Plugin
}

// NewRegistry returns an empty plugin registry.
func NewRegistry() *Registry { return &Registry{} }

// Register adds p to the registry.
func (r *Registry) Register(p Plugin) {
	r.plugins = append(r.plugins, p)
}

// Plugins returns every registered plugin.
func (r *Registry) Plugins() []Plugin { return r.plugins }

// Dispatch invokes hook on every registered plugin, stopping at the first
// error (a plugin hook failure is fatal to the step, same as any other
// task, spec.md §5).
func (r *Registry) Dispatch(hook Hook, stream device.Stream, step int) error {
	for _, p := range r.plugins {
		var err error
		switch hook {
		case BeforeCellLists:
			err = p.BeforeCellLists(stream, step)
		case BeforeForces:
			err = p.BeforeForces(stream, step)
		case SerializeAndSend:
			err = p.SerializeAndSend(stream, step)
		case BeforeIntegration:
			err = p.BeforeIntegration(stream, step)
		case AfterIntegration:
			err = p.AfterIntegration(stream, step)
		case BeforeParticleDistribution:
			err = p.BeforeParticleDistribution(stream, step)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
