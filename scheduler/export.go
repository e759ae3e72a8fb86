package scheduler

import (
	"encoding/xml"
	"fmt"
	"os"
)

// graphmlDoc is the minimal subset of the GraphML schema this exporter
// needs: directed nodes and edges, no third-party GraphML writer exists
// anywhere in the retrieval pack, so this walks encoding/xml directly
// (DESIGN.md: justified stdlib use).
type graphmlDoc struct {
	XMLName xml.Name     `xml:"graphml"`
	Graph   graphmlGraph `xml:"graph"`
}

type graphmlGraph struct {
	EdgeDefault string        `xml:"edgedefault,attr"`
	Nodes       []graphmlNode `xml:"node"`
	Edges       []graphmlEdge `xml:"edge"`
}

type graphmlNode struct {
	ID string `xml:"id,attr"`
}

type graphmlEdge struct {
	Source string `xml:"source,attr"`
	Target string `xml:"target,attr"`
}

// SaveDependencyGraphGraphML writes the task DAG to path in GraphML, for
// inspection in any standard graph-visualisation tool.
func (s *Scheduler) SaveDependencyGraphGraphML(path string) error {
	doc := graphmlDoc{Graph: graphmlGraph{EdgeDefault: "directed"}}
	for _, name := range s.dag.vertices() {
		doc.Graph.Nodes = append(doc.Graph.Nodes, graphmlNode{ID: name})
		for _, succ := range s.dag.successors(name) {
			doc.Graph.Edges = append(doc.Graph.Edges, graphmlEdge{Source: name, Target: succ})
		}
	}
	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	out = append([]byte(xml.Header), out...)
	return os.WriteFile(path, out, 0644)
}

// SaveDependencyGraphDOT writes the task DAG to path in Graphviz DOT, the
// pack's own lvlath ecosystem already speaks this format for visual
// debugging (SPEC_FULL.md's DOT export note).
func (s *Scheduler) SaveDependencyGraphDOT(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	fmt.Fprintln(f, "digraph tasks {")
	for _, name := range s.dag.vertices() {
		fmt.Fprintf(f, "  %q;\n", name)
		for _, succ := range s.dag.successors(name) {
			fmt.Fprintf(f, "  %q -> %q;\n", name, succ)
		}
	}
	fmt.Fprintln(f, "}")
	return nil
}
