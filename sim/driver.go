package sim

import (
	"strings"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/cpmech/gomero/celllist"
	"github.com/cpmech/gomero/comm"
	"github.com/cpmech/gomero/exchange"
	"github.com/cpmech/gomero/interaction"
	"github.com/cpmech/gomero/plugin"
	"github.com/cpmech/gomero/pv"
	"github.com/cpmech/gomero/scheduler"
	"github.com/cpmech/gomero/simerr"
	"github.com/cpmech/gomero/simstate"
)

// reservedNames are rejected for any registered component (spec.md §4.7
// step 1).
var reservedNames = map[string]bool{"none": true, "all": true, "": true}

func validateName(name string) error {
	if reservedNames[name] || strings.HasPrefix(name, "_") {
		return simerr.Newf(simerr.ConfigurationError, name,
			"name is empty, reserved, or starts with an underscore")
	}
	return nil
}

// pvEntry remembers one registered PV alongside its checkpoint cadence.
type pvEntry struct {
	p               pv.PV
	checkpointEvery int
}

// Driver is the Simulation driver of spec.md §4.7: it owns every
// registered component, builds the per-step task graph once, and runs it
// in a loop, exactly the role gofem's fem.FEM plays over
// domain/solver/summary (DESIGN.md).
type Driver struct {
	Cfg   *Config
	Comm  comm.Communicator
	State *simstate.State

	pvs         map[string]*pvEntry
	pvOrder     []string
	kernels     []interaction.Kernel
	integrators []Integrator
	bouncers    []Bouncer
	walls       []wallEntry
	belongings  []belongingEntry
	plugins     *plugin.Registry

	interactionMgr *interaction.Manager
	families       map[string]*celllist.Family

	haloExchangers   map[string]*exchange.ParticleHaloExchanger
	redistExchangers map[string]*exchange.ParticleRedistributor
	objHaloEx        map[string]*exchange.ObjectHaloExchanger
	objRedistEx      map[string]*exchange.ObjectRedistributor
	objExtraEx       map[string]*exchange.ObjectExtraExchanger
	objReverseEx     map[string]*exchange.ObjectReverseExchanger
	engine           exchange.Engine

	sched *scheduler.Scheduler

	names map[string]bool // every registered component name, for duplicate detection
}

// New returns a Driver over cfg and communicator c, with the clock at step
// 0 and the local subdomain geometry derived from cfg.
func New(cfg *Config, c comm.Communicator, origin r3.Vec) *Driver {
	extent := r3.Vec{X: cfg.SubdomainExtent[0], Y: cfg.SubdomainExtent[1], Z: cfg.SubdomainExtent[2]}
	domain := simstate.DomainInfo{
		Origin:    origin,
		LocalSize: extent,
		GlobalSize: r3.Vec{
			X: float64(cfg.RankGrid[0]) * extent.X,
			Y: float64(cfg.RankGrid[1]) * extent.Y,
			Z: float64(cfg.RankGrid[2]) * extent.Z,
		},
	}
	return &Driver{
		Cfg:              cfg,
		Comm:             c,
		State:            simstate.New(cfg.Dt, domain),
		pvs:              make(map[string]*pvEntry),
		interactionMgr:   interaction.NewManager(cfg.CellListTolerance),
		families:         make(map[string]*celllist.Family),
		haloExchangers:   make(map[string]*exchange.ParticleHaloExchanger),
		redistExchangers: make(map[string]*exchange.ParticleRedistributor),
		objHaloEx:        make(map[string]*exchange.ObjectHaloExchanger),
		objRedistEx:      make(map[string]*exchange.ObjectRedistributor),
		objExtraEx:       make(map[string]*exchange.ObjectExtraExchanger),
		objReverseEx:     make(map[string]*exchange.ObjectReverseExchanger),
		plugins:          plugin.NewRegistry(),
		sched:            scheduler.New(),
		names:            make(map[string]bool),
	}
}

func (d *Driver) claimName(name string) error {
	if err := validateName(name); err != nil {
		return err
	}
	if d.names[name] {
		return simerr.Newf(simerr.ConfigurationError, name, "a component with this name is already registered")
	}
	d.names[name] = true
	return nil
}

// RegisterPV registers a ParticleVector or ObjectVector. With a
// checkpointEvery of 0 the periodic checkpoint task saves it at
// Cfg.CheckpointEvery instead; every explicit Checkpoint call saves it.
func (d *Driver) RegisterPV(p pv.PV, checkpointEvery int) error {
	if err := d.claimName(p.Name()); err != nil {
		return err
	}
	d.pvs[p.Name()] = &pvEntry{p: p, checkpointEvery: checkpointEvery}
	d.pvOrder = append(d.pvOrder, p.Name())
	return nil
}

// RegisterInteraction registers a Kernel. Binding to cell lists happens
// later, in prepareInteractions, once prepareCellLists has run.
func (d *Driver) RegisterInteraction(k interaction.Kernel) error {
	if err := d.claimName(k.Name()); err != nil {
		return err
	}
	d.kernels = append(d.kernels, k)
	return nil
}

// RegisterIntegrator registers it.
func (d *Driver) RegisterIntegrator(it Integrator) error {
	if err := d.claimName(it.Name()); err != nil {
		return err
	}
	d.integrators = append(d.integrators, it)
	return nil
}

// RegisterBouncer registers b.
func (d *Driver) RegisterBouncer(b Bouncer) error {
	if err := d.claimName(b.Name()); err != nil {
		return err
	}
	d.bouncers = append(d.bouncers, b)
	return nil
}

// RegisterWall registers w, checked every checkEvery steps.
func (d *Driver) RegisterWall(w Wall, checkEvery int) error {
	if err := d.claimName(w.Name()); err != nil {
		return err
	}
	d.walls = append(d.walls, wallEntry{wall: w, checkEvery: checkEvery})
	return nil
}

// RegisterObjectBelongingChecker registers c, to be applied once by
// execSplitters and thereafter every checkEvery steps.
func (d *Driver) RegisterObjectBelongingChecker(c BelongingChecker, src, inside, outside pv.PV, checkEvery, checkpointEvery int) error {
	if err := d.claimName(c.Name()); err != nil {
		return err
	}
	d.belongings = append(d.belongings, belongingEntry{
		checker: c, src: src, inside: inside, outside: outside,
		checkEvery: checkEvery, checkpointEvery: checkpointEvery,
	})
	return nil
}

// RegisterPlugin registers p. Plugin names are not required to be unique
// against other component kinds by spec.md, but this driver holds every
// registered entity to one flat namespace for simplicity and earlier
// failure on typos.
func (d *Driver) RegisterPlugin(p plugin.Plugin) error {
	if err := d.claimName(p.Name()); err != nil {
		return err
	}
	d.plugins.Register(p)
	return nil
}

func (d *Driver) pv(name string) (pv.PV, error) {
	e, ok := d.pvs[name]
	if !ok {
		return nil, simerr.Newf(simerr.ConfigurationError, name, "no such registered PV")
	}
	return e.p, nil
}
