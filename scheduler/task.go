// Package scheduler implements TaskScheduler (spec.md §5): a static DAG of
// named, prioritized, optionally-strided tasks, compiled once into a
// deterministic topological order and then executed every step. The DAG
// itself is stored in github.com/katalvlaran/lvlath/core, the directed
// graph library the rest of the retrieval pack uses for this kind of
// structure; the execution discipline (ordered, fail-fast, one pass per
// step) is grounded on gofem's fem.FEM.Run stage loop.
package scheduler

import "github.com/cpmech/gomero/device"

// TaskFunc is the work a Task performs on a given step.
type TaskFunc func(stream device.Stream, step int) error

// Task is one node of the dependency graph.
type Task struct {
	Name string
	Fn   TaskFunc

	// Priority breaks ties among tasks that become ready simultaneously:
	// higher runs first. Packing tasks are given High priority so their
	// messages hit the wire before lower-priority interior compute
	// (spec.md §5: "pushes them ahead of lower-priority interior work").
	Priority int

	// Stride runs this task only on steps where step%Stride == 0; 1 (the
	// zero value is normalised to 1) runs every step. Used for work like
	// stress output that only needs to happen every k steps (spec.md §4.5).
	Stride int
}

// Priority levels in common use; Task.Priority accepts any int, these are
// just readable anchors.
const (
	PriorityLow    = 0
	PriorityNormal = 100
	PriorityHigh   = 200
)

func (t *Task) stride() int {
	if t.Stride <= 0 {
		return 1
	}
	return t.Stride
}

// active reports whether this task runs on the given step.
func (t *Task) active(step int) bool {
	return step%t.stride() == 0
}
