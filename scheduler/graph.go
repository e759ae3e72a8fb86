package scheduler

import (
	"github.com/katalvlaran/lvlath/core"

	"github.com/cpmech/gomero/simerr"
)

// graph wraps a lvlath/core directed graph keyed by task name, the
// scheduler's dependency store.
type graph struct {
	g *core.Graph
}

func newGraph() *graph {
	return &graph{g: core.NewGraph(core.WithDirected(true))}
}

func (dg *graph) addVertex(name string) error {
	if err := dg.g.AddVertex(name); err != nil {
		return simerr.Newf(simerr.ConfigurationError, name, "scheduler: %v", err)
	}
	return nil
}

// addEdge records that `from` must run before `to`.
func (dg *graph) addEdge(from, to string) error {
	if _, err := dg.g.AddEdge(from, to, 1); err != nil {
		return simerr.Newf(simerr.ConfigurationError, from+"->"+to, "scheduler: %v", err)
	}
	return nil
}

func (dg *graph) vertices() []string {
	return dg.g.Vertices()
}

// successors returns every task that must run after `name`.
func (dg *graph) successors(name string) []string {
	adj, _ := dg.g.NeighborIDs(name)
	return adj
}
