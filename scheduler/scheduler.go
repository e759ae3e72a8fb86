package scheduler

import (
	"sort"

	"github.com/google/uuid"

	"github.com/cpmech/gomero/device"
	"github.com/cpmech/gomero/simerr"
)

// Scheduler is TaskScheduler: a static DAG of Tasks, compiled once into a
// deterministic execution order and then run every step (spec.md §5).
type Scheduler struct {
	dag   *graph
	tasks map[string]*Task

	// CompileID identifies the most recent successful Compile() call, so
	// logs and the GraphML/DOT export can be correlated to the run that
	// produced them.
	CompileID uuid.UUID

	order []*Task // compiled topological order; nil until Compile succeeds
}

// New returns an empty Scheduler.
func New() *Scheduler {
	return &Scheduler{dag: newGraph(), tasks: make(map[string]*Task)}
}

// AddTask registers t. Registering the same name twice is a
// ConfigurationError.
func (s *Scheduler) AddTask(t *Task) error {
	if _, exists := s.tasks[t.Name]; exists {
		return simerr.Newf(simerr.ConfigurationError, t.Name, "task %q already registered", t.Name)
	}
	if err := s.dag.addVertex(t.Name); err != nil {
		return err
	}
	s.tasks[t.Name] = t
	s.order = nil
	return nil
}

// AddDependency records that `before` must complete before `after` runs.
// Both must already be registered via AddTask.
func (s *Scheduler) AddDependency(before, after string) error {
	if _, ok := s.tasks[before]; !ok {
		return simerr.Newf(simerr.ConfigurationError, before, "dependency refers to unregistered task")
	}
	if _, ok := s.tasks[after]; !ok {
		return simerr.Newf(simerr.ConfigurationError, after, "dependency refers to unregistered task")
	}
	if err := s.dag.addEdge(before, after); err != nil {
		return err
	}
	s.order = nil
	return nil
}

// Compile produces a deterministic topological order over the DAG: a Kahn
// traversal where, among all currently-ready tasks, the highest Priority
// runs first and ties break on task name, so two runs over the same graph
// always produce the same order (spec.md §5: "deterministic topological
// execution"). A cycle is an InvariantViolation.
func (s *Scheduler) Compile() error {
	indegree := make(map[string]int, len(s.tasks))
	for name := range s.tasks {
		indegree[name] = 0
	}
	for _, name := range s.dag.vertices() {
		for _, succ := range s.dag.successors(name) {
			indegree[succ]++
		}
	}

	var ready []string
	for name, d := range indegree {
		if d == 0 {
			ready = append(ready, name)
		}
	}

	var order []*Task
	remaining := len(s.tasks)
	for remaining > 0 {
		if len(ready) == 0 {
			return simerr.New(simerr.InvariantViolation, "scheduler: dependency graph has a cycle (%d of %d tasks unreachable)", remaining, len(s.tasks))
		}
		sort.Slice(ready, func(i, j int) bool {
			ti, tj := s.tasks[ready[i]], s.tasks[ready[j]]
			if ti.Priority != tj.Priority {
				return ti.Priority > tj.Priority
			}
			return ready[i] < ready[j]
		})
		next := ready[0]
		ready = ready[1:]
		order = append(order, s.tasks[next])
		remaining--
		for _, succ := range s.dag.successors(next) {
			indegree[succ]--
			if indegree[succ] == 0 {
				ready = append(ready, succ)
			}
		}
	}

	s.order = order
	s.CompileID = uuid.New()
	return nil
}

// Run executes the compiled order once, skipping any task whose Stride
// excludes this step, and stops at the first error (spec.md §5, §7: fatal
// errors are detected and returned, never swallowed).
func (s *Scheduler) Run(stream device.Stream, step int) error {
	if s.order == nil {
		return simerr.New(simerr.ConfigurationError, "scheduler: Run called before a successful Compile")
	}
	for _, t := range s.order {
		if !t.active(step) {
			continue
		}
		if err := t.Fn(stream, step); err != nil {
			if se, ok := err.(*simerr.Error); ok && se.Task == "" {
				return se.WithTask(t.Name)
			}
			return err
		}
	}
	return nil
}

// ForceExec runs a single named task immediately, ignoring its Stride and
// its position in the compiled order. Used for out-of-band work like a
// checkpoint dump triggered by an external signal rather than the regular
// cadence.
func (s *Scheduler) ForceExec(name string, stream device.Stream, step int) error {
	t, ok := s.tasks[name]
	if !ok {
		return simerr.Newf(simerr.ConfigurationError, name, "scheduler: ForceExec of unregistered task")
	}
	return t.Fn(stream, step)
}

// Order returns the compiled execution order, or nil if Compile has not
// succeeded yet.
func (s *Scheduler) Order() []*Task {
	return s.order
}
