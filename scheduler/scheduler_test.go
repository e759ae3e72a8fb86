package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cpmech/gomero/device"
)

func noop(stream device.Stream, step int) error { return nil }

func TestCompileOrdersByPriorityThenName(t *testing.T) {
	s := New()
	require.NoError(t, s.AddTask(&Task{Name: "b", Fn: noop, Priority: PriorityNormal}))
	require.NoError(t, s.AddTask(&Task{Name: "a", Fn: noop, Priority: PriorityNormal}))
	require.NoError(t, s.AddTask(&Task{Name: "z", Fn: noop, Priority: PriorityHigh}))
	require.NoError(t, s.Compile())

	var names []string
	for _, task := range s.Order() {
		names = append(names, task.Name)
	}
	assert.Equal(t, []string{"z", "a", "b"}, names)
}

func TestCompileRespectsDependencies(t *testing.T) {
	s := New()
	var trace []string
	record := func(name string) TaskFunc {
		return func(stream device.Stream, step int) error {
			trace = append(trace, name)
			return nil
		}
	}
	require.NoError(t, s.AddTask(&Task{Name: "first", Fn: record("first")}))
	require.NoError(t, s.AddTask(&Task{Name: "second", Fn: record("second"), Priority: PriorityHigh}))
	require.NoError(t, s.AddDependency("first", "second"))
	require.NoError(t, s.Compile())
	require.NoError(t, s.Run(device.Default(), 0))
	assert.Equal(t, []string{"first", "second"}, trace)
}

func TestCompileDetectsCycle(t *testing.T) {
	s := New()
	require.NoError(t, s.AddTask(&Task{Name: "a", Fn: noop}))
	require.NoError(t, s.AddTask(&Task{Name: "b", Fn: noop}))
	require.NoError(t, s.AddDependency("a", "b"))
	require.NoError(t, s.AddDependency("b", "a"))
	err := s.Compile()
	assert.Error(t, err)
}

func TestAddTaskDuplicateNameErrors(t *testing.T) {
	s := New()
	require.NoError(t, s.AddTask(&Task{Name: "a", Fn: noop}))
	err := s.AddTask(&Task{Name: "a", Fn: noop})
	assert.Error(t, err)
}

func TestAddDependencyUnregisteredErrors(t *testing.T) {
	s := New()
	require.NoError(t, s.AddTask(&Task{Name: "a", Fn: noop}))
	assert.Error(t, s.AddDependency("a", "ghost"))
	assert.Error(t, s.AddDependency("ghost", "a"))
}

func TestRunBeforeCompileErrors(t *testing.T) {
	s := New()
	require.NoError(t, s.AddTask(&Task{Name: "a", Fn: noop}))
	assert.Error(t, s.Run(device.Default(), 0))
}

func TestRunSkipsStridedTasks(t *testing.T) {
	s := New()
	count := 0
	require.NoError(t, s.AddTask(&Task{Name: "every3", Stride: 3, Fn: func(stream device.Stream, step int) error {
		count++
		return nil
	}}))
	require.NoError(t, s.Compile())
	for step := 0; step < 6; step++ {
		require.NoError(t, s.Run(device.Default(), step))
	}
	assert.Equal(t, 2, count) // steps 0 and 3
}

func TestRunStopsOnFirstError(t *testing.T) {
	s := New()
	var ran []string
	boom := assert.AnError
	require.NoError(t, s.AddTask(&Task{Name: "ok", Fn: func(stream device.Stream, step int) error {
		ran = append(ran, "ok")
		return nil
	}, Priority: PriorityHigh}))
	require.NoError(t, s.AddTask(&Task{Name: "fails", Fn: func(stream device.Stream, step int) error {
		ran = append(ran, "fails")
		return boom
	}}))
	require.NoError(t, s.AddTask(&Task{Name: "never", Fn: func(stream device.Stream, step int) error {
		ran = append(ran, "never")
		return nil
	}}))
	require.NoError(t, s.AddDependency("fails", "never"))
	require.NoError(t, s.Compile())
	err := s.Run(device.Default(), 0)
	assert.Error(t, err)
	assert.Equal(t, []string{"ok", "fails"}, ran)
}

func TestForceExecIgnoresStride(t *testing.T) {
	s := New()
	calls := 0
	require.NoError(t, s.AddTask(&Task{Name: "rare", Stride: 100, Fn: func(stream device.Stream, step int) error {
		calls++
		return nil
	}}))
	require.NoError(t, s.Compile())
	require.NoError(t, s.ForceExec("rare", device.Default(), 1))
	assert.Equal(t, 1, calls)
	assert.Error(t, s.ForceExec("ghost", device.Default(), 1))
}
