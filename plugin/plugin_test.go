package plugin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cpmech/gomero/device"
)

type recordingPlugin struct {
	NopPlugin
	calls *[]string
}

func (p recordingPlugin) BeforeForces(stream device.Stream, step int) error {
	*p.calls = append(*p.calls, p.Name()+":beforeForces")
	return nil
}

type failingPlugin struct {
	NopPlugin
}

func (failingPlugin) AfterIntegration(stream device.Stream, step int) error {
	return assert.AnError
}

func TestDispatchCallsEveryPluginInRegistrationOrder(t *testing.T) {
	r := NewRegistry()
	var calls []string
	r.Register(recordingPlugin{NopPlugin: NopPlugin{PluginName: "a"}, calls: &calls})
	r.Register(recordingPlugin{NopPlugin: NopPlugin{PluginName: "b"}, calls: &calls})

	require.NoError(t, r.Dispatch(BeforeForces, device.Default(), 0))
	assert.Equal(t, []string{"a:beforeForces", "b:beforeForces"}, calls)
}

func TestDispatchUntouchedHooksAreNoop(t *testing.T) {
	r := NewRegistry()
	r.Register(NopPlugin{PluginName: "nop"})
	for h := BeforeCellLists; h <= BeforeParticleDistribution; h++ {
		assert.NoError(t, r.Dispatch(h, device.Default(), 0))
	}
}

func TestDispatchStopsAtFirstError(t *testing.T) {
	r := NewRegistry()
	var calls []string
	r.Register(failingPlugin{})
	r.Register(recordingPlugin{NopPlugin: NopPlugin{PluginName: "after"}, calls: &calls})
	err := r.Dispatch(AfterIntegration, device.Default(), 0)
	assert.Error(t, err)
}

func TestHookStringers(t *testing.T) {
	assert.Equal(t, "beforeCellLists", BeforeCellLists.String())
	assert.Equal(t, "beforeParticleDistribution", BeforeParticleDistribution.String())
	assert.Equal(t, "unknown", Hook(999).String())
}

func TestPluginsReturnsRegistrationOrder(t *testing.T) {
	r := NewRegistry()
	r.Register(NopPlugin{PluginName: "x"})
	r.Register(NopPlugin{PluginName: "y"})
	require.Len(t, r.Plugins(), 2)
	assert.Equal(t, "x", r.Plugins()[0].Name())
}
