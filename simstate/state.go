// Package simstate holds the single piece of process-wide state the
// orchestration engine owns: the global clock and this rank's subdomain
// geometry. It is mutated only by the simulation driver (sim.Driver);
// every other component receives it as an explicit handle, never as
// ambient state, following spec.md §4.1 and the "Global clock" design
// note in spec.md §9.
package simstate

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/cpmech/gomero/comm"
)

// DomainInfo describes this rank's rectangular subdomain within the global
// simulation box.
type DomainInfo struct {
	Origin     r3.Vec // lower corner of the local subdomain, in global coordinates
	LocalSize  r3.Vec // extent of the local subdomain
	GlobalSize r3.Vec // extent of the whole simulation box
}

// State is the global clock plus this rank's DomainInfo. The driver is the
// only writer; it advances CurrentTime/CurrentStep once per step (spec.md
// §4.7, step 8).
type State struct {
	CurrentStep int
	CurrentTime float64
	Dt          float64
	Domain      DomainInfo
}

// New returns a State with the clock at step 0, time 0.
func New(dt float64, domain DomainInfo) *State {
	return &State{Dt: dt, Domain: domain}
}

// Local2Global maps a position in this rank's local frame to the global
// simulation frame.
func (s *State) Local2Global(p r3.Vec) r3.Vec {
	return r3.Add(p, s.Domain.Origin)
}

// Global2Local maps a position in the global frame to this rank's local
// frame.
func (s *State) Global2Local(p r3.Vec) r3.Vec {
	return r3.Sub(p, s.Domain.Origin)
}

// Advance moves the clock forward by one step. Called exactly once per
// step by the driver after scheduler.Run() returns (spec.md §4.7).
func (s *State) Advance() {
	s.CurrentTime += s.Dt
	s.CurrentStep++
}

const stateFileName = "_simulation.state"

// Checkpoint writes the two-value text record described in spec.md §6:
// currentTime and currentStep, whitespace separated. Only rank 0 writes;
// every rank calls this uniformly, matching the uniform
// checkpoint(comm, folder) contract spec.md asks every component to
// expose.
func (s *State) Checkpoint(c comm.Communicator, folder string) error {
	if c.Rank() != 0 {
		return nil
	}
	if err := os.MkdirAll(folder, 0775); err != nil {
		return chk.Err("simstate.Checkpoint: cannot create folder %q: %v", folder, err)
	}
	path := filepath.Join(folder, stateFileName)
	content := fmt.Sprintf("%.17g %d\n", s.CurrentTime, s.CurrentStep)
	if err := os.WriteFile(path, []byte(content), 0664); err != nil {
		return chk.Err("simstate.Checkpoint: cannot write %q: %v", path, err)
	}
	return nil
}

// Restart reads back the record written by Checkpoint. Every rank reads
// its own copy of the shared restart folder (spec.md §6).
func (s *State) Restart(c comm.Communicator, folder string) error {
	path := filepath.Join(folder, stateFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return chk.Err("simstate.Restart: missing or unreadable restart record %q: %v", path, err)
	}
	var t float64
	var step int
	if _, err := fmt.Sscanf(string(data), "%g %d", &t, &step); err != nil {
		return chk.Err("simstate.Restart: malformed restart record %q: %v", path, err)
	}
	s.CurrentTime = t
	s.CurrentStep = step
	if c.Rank() == 0 {
		io.Pf("simstate: restarted at step=%d time=%g\n", s.CurrentStep, s.CurrentTime)
	}
	return nil
}
