package transpile

import (
	"math"
	"math/rand"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"
	"k8s.io/klog/v2"

	"github.com/gomlx/qugrid/circuits"
	"github.com/gomlx/qugrid/observables"
)

// ErrNoValidMapping is returned when the logical circuit cannot be embedded in
// the target device at all: not enough physical qubits, or interacting qubits
// that the coupling graph cannot connect. Fatal, not retryable.
var ErrNoValidMapping = errors.New("no valid mapping of circuit onto device")

// Result is the outcome of one transpilation: a new circuit over the device's
// qubits, never a mutation of the input, so pre- and post-transpile circuits
// remain independently inspectable.
type Result struct {
	// Circuit using only native gates and coupling-graph interactions, over
	// Device.NumQubits qubits.
	Circuit *circuits.Circuit

	// InitialLayout maps logical qubit → physical qubit at circuit start.
	InitialLayout []int

	// FinalLayout maps logical qubit → physical qubit after all routing SWAPs.
	// Measure through it: see MapObservable.
	FinalLayout []int

	// Score of the selected candidate (lower is better), plus the raw metrics
	// behind it.
	Score     float64
	Depth     int
	GateCount int

	device Device
}

// MapObservable remaps a logical-qubit observable through the final layout, so
// that measuring the transpiled circuit yields the same statistics as
// measuring the logical circuit.
func (r *Result) MapObservable(observable *observables.Observable) *observables.Observable {
	return observable.Remap(r.FinalLayout, r.device.NumQubits)
}

// Transpiler rewrites logical circuits for one target device. Configure with
// the With* methods, which return the Transpiler so calls can be cascaded, then
// call Run per circuit.
type Transpiler struct {
	device     Device
	candidates int
	seed       int64

	depthWeight, gateWeight, twoQubitWeight float64
}

// New creates a Transpiler for the given device with defaults: 4 candidate
// layouts, seed 0, score = depth + gates + 2·(two-qubit gates).
func New(device Device) *Transpiler {
	device.validate()
	return &Transpiler{
		device:         device,
		candidates:     4,
		depthWeight:    1,
		gateWeight:     1,
		twoQubitWeight: 2,
	}
}

// WithCandidates sets how many initial layouts are generated and scored: the
// identity layout plus n-1 seeded random permutations.
func (t *Transpiler) WithCandidates(n int) *Transpiler {
	if n < 1 {
		n = 1
	}
	t.candidates = n
	return t
}

// WithSeed sets the seed of the random layout generator, making the search
// reproducible.
func (t *Transpiler) WithSeed(seed int64) *Transpiler {
	t.seed = seed
	return t
}

// WithWeights sets the candidate scoring weights: score = depth·depthWeight +
// gateCount·gateWeight + twoQubitCount·twoQubitWeight. Ties are broken by the
// lower two-qubit gate count, then by candidate generation order (identity
// layout first), so with default weights the selection is deterministic.
func (t *Transpiler) WithWeights(depth, gate, twoQubit float64) *Transpiler {
	t.depthWeight, t.gateWeight, t.twoQubitWeight = depth, gate, twoQubit
	return t
}

// Run transpiles one logical circuit. The returned Result holds a new circuit;
// the input is never mutated.
//
// It fails with ErrNoValidMapping if the device has fewer qubits than the
// circuit or its coupling graph cannot connect interacting qubits.
func (t *Transpiler) Run(logical *circuits.Circuit) (*Result, error) {
	if logical.NumQubits > t.device.NumQubits {
		return nil, errors.Wrapf(ErrNoValidMapping,
			"circuit needs %d qubits, device %q has %d",
			logical.NumQubits, t.device.Name, t.device.NumQubits)
	}

	couplings := simple.NewUndirectedGraph()
	for q := 0; q < t.device.NumQubits; q++ {
		couplings.AddNode(simple.Node(q))
	}
	adjacent := make(map[[2]int]bool, 2*len(t.device.Edges))
	for _, edge := range t.device.Edges {
		couplings.SetEdge(simple.Edge{F: simple.Node(edge[0]), T: simple.Node(edge[1])})
		adjacent[[2]int{edge[0], edge[1]}] = true
		adjacent[[2]int{edge[1], edge[0]}] = true
	}
	shortest := path.DijkstraAllPaths(couplings)

	rng := rand.New(rand.NewSource(t.seed))
	var (
		best     *Result
		firstErr error
	)
	for candidate := 0; candidate < t.candidates; candidate++ {
		layout := make([]int, logical.NumQubits)
		if candidate == 0 {
			for l := range layout {
				layout[l] = l
			}
		} else {
			copy(layout, rng.Perm(t.device.NumQubits)[:logical.NumQubits])
		}

		routed, finalLayout, err := t.route(logical, layout, adjacent, &shortest)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		native, err := rewriteNative(routed, t.device.Native)
		if err != nil {
			// A gate the native set cannot express fails every layout alike.
			return nil, err
		}

		result := &Result{
			Circuit:       native,
			InitialLayout: layout,
			FinalLayout:   finalLayout,
			Depth:         native.Depth(),
			GateCount:     native.GateCount(),
			device:        t.device,
		}
		result.Score = t.depthWeight*float64(result.Depth) +
			t.gateWeight*float64(result.GateCount) +
			t.twoQubitWeight*float64(native.TwoQubitGateCount())
		if better(result, best) {
			best = result
		}
	}
	if best == nil {
		if firstErr == nil {
			firstErr = errors.WithStack(ErrNoValidMapping)
		}
		return nil, firstErr
	}
	klog.V(2).Infof("transpile: device=%q selected candidate score=%.1f depth=%d gates=%d",
		t.device.Name, best.Score, best.Depth, best.GateCount)
	return best, nil
}

// better implements the selection rule: lower score, ties broken by fewer
// two-qubit gates, then by generation order (the incumbent wins).
func better(candidate, incumbent *Result) bool {
	if incumbent == nil {
		return true
	}
	if candidate.Score != incumbent.Score {
		return candidate.Score < incumbent.Score
	}
	return candidate.Circuit.TwoQubitGateCount() < incumbent.Circuit.TwoQubitGateCount()
}

// route maps the logical circuit onto physical qubits starting from layout,
// inserting SWAP chains along shortest coupling paths whenever a two-qubit gate
// spans non-adjacent physical qubits. It returns the routed circuit and the
// final logical→physical layout.
func (t *Transpiler) route(logical *circuits.Circuit, layout []int, adjacent map[[2]int]bool, shortest *path.AllShortest) (*circuits.Circuit, []int, error) {
	log2phys := make([]int, len(layout))
	copy(log2phys, layout)
	phys2log := make([]int, t.device.NumQubits)
	for p := range phys2log {
		phys2log[p] = -1
	}
	for l, p := range log2phys {
		phys2log[p] = l
	}

	routed := circuits.New(t.device.NumQubits)
	swapPositions := func(a, b int) {
		la, lb := phys2log[a], phys2log[b]
		phys2log[a], phys2log[b] = lb, la
		if la >= 0 {
			log2phys[la] = b
		}
		if lb >= 0 {
			log2phys[lb] = a
		}
	}

	for _, gate := range logical.Gates {
		if gate.Kind.NumQubits() == 1 {
			routed.Gates = append(routed.Gates, circuits.Gate{
				Kind: gate.Kind, Q0: log2phys[gate.Q0], Q1: -1, Angle: gate.Angle,
			})
			continue
		}
		p0, p1 := log2phys[gate.Q0], log2phys[gate.Q1]
		if !adjacent[[2]int{p0, p1}] {
			nodes, weight, _ := shortest.Between(int64(p0), int64(p1))
			if len(nodes) < 2 || math.IsInf(weight, 1) {
				return nil, nil, errors.Wrapf(ErrNoValidMapping,
					"device %q cannot connect physical qubits %d and %d", t.device.Name, p0, p1)
			}
			// Walk the logical qubit from p0 towards p1 until adjacent.
			for i := 0; i+2 < len(nodes); i++ {
				a, b := int(nodes[i].ID()), int(nodes[i+1].ID())
				routed.Swap(a, b)
				swapPositions(a, b)
			}
			p0, p1 = log2phys[gate.Q0], log2phys[gate.Q1]
		}
		routed.Gates = append(routed.Gates, circuits.Gate{Kind: gate.Kind, Q0: p0, Q1: p1})
	}
	return routed, log2phys, nil
}

// maxRewriteDepth bounds recursive gate decomposition; the rewrite rules form
// short chains (e.g. SWAP→CX→CZ+H→RY+X→RX), never cycles within this bound.
const maxRewriteDepth = 6

// rewriteNative returns a new circuit expressing c with only gates from the
// native set, equivalent up to global phase.
func rewriteNative(c *circuits.Circuit, native map[circuits.GateKind]bool) (*circuits.Circuit, error) {
	out := circuits.New(c.NumQubits)
	for _, gate := range c.Gates {
		if err := appendNative(out, gate, native, maxRewriteDepth); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func appendNative(out *circuits.Circuit, gate circuits.Gate, native map[circuits.GateKind]bool, depth int) error {
	if native[gate.Kind] {
		out.Gates = append(out.Gates, gate)
		return nil
	}
	if depth == 0 {
		return errors.Errorf("transpile: cannot express %s in native gate set", gate.Kind)
	}

	var expansion []circuits.Gate
	q0, q1 := gate.Q0, gate.Q1
	switch gate.Kind {
	case circuits.GateH:
		// H = X·RY(π/2), applied as RY(π/2) then X.
		expansion = []circuits.Gate{
			{Kind: circuits.GateRY, Q0: q0, Q1: -1, Angle: math.Pi / 2},
			{Kind: circuits.GateX, Q0: q0, Q1: -1},
		}
	case circuits.GateX:
		// X = RX(π) up to global phase.
		expansion = []circuits.Gate{{Kind: circuits.GateRX, Q0: q0, Q1: -1, Angle: math.Pi}}
	case circuits.GateZ:
		// Z = RZ(π) up to global phase.
		expansion = []circuits.Gate{{Kind: circuits.GateRZ, Q0: q0, Q1: -1, Angle: math.Pi}}
	case circuits.GateRX:
		// RX(θ) = RZ(-π/2)·RY(θ)·RZ(π/2), rightmost applied first.
		expansion = []circuits.Gate{
			{Kind: circuits.GateRZ, Q0: q0, Q1: -1, Angle: math.Pi / 2},
			{Kind: circuits.GateRY, Q0: q0, Q1: -1, Angle: gate.Angle},
			{Kind: circuits.GateRZ, Q0: q0, Q1: -1, Angle: -math.Pi / 2},
		}
	case circuits.GateRY:
		// RY(θ) = RZ(π/2)·RX(θ)·RZ(-π/2), rightmost applied first.
		expansion = []circuits.Gate{
			{Kind: circuits.GateRZ, Q0: q0, Q1: -1, Angle: -math.Pi / 2},
			{Kind: circuits.GateRX, Q0: q0, Q1: -1, Angle: gate.Angle},
			{Kind: circuits.GateRZ, Q0: q0, Q1: -1, Angle: math.Pi / 2},
		}
	case circuits.GateRZ:
		// RZ(θ) = RX(π/2)·RY(θ)·RX(-π/2), rightmost applied first.
		expansion = []circuits.Gate{
			{Kind: circuits.GateRX, Q0: q0, Q1: -1, Angle: -math.Pi / 2},
			{Kind: circuits.GateRY, Q0: q0, Q1: -1, Angle: gate.Angle},
			{Kind: circuits.GateRX, Q0: q0, Q1: -1, Angle: math.Pi / 2},
		}
	case circuits.GateCX:
		// CX(c,t) = H(t)·CZ(c,t)·H(t).
		expansion = []circuits.Gate{
			{Kind: circuits.GateH, Q0: q1, Q1: -1},
			{Kind: circuits.GateCZ, Q0: q0, Q1: q1},
			{Kind: circuits.GateH, Q0: q1, Q1: -1},
		}
	case circuits.GateCZ:
		// CZ(a,b) = H(b)·CX(a,b)·H(b).
		expansion = []circuits.Gate{
			{Kind: circuits.GateH, Q0: q1, Q1: -1},
			{Kind: circuits.GateCX, Q0: q0, Q1: q1},
			{Kind: circuits.GateH, Q0: q1, Q1: -1},
		}
	case circuits.GateSwap:
		expansion = []circuits.Gate{
			{Kind: circuits.GateCX, Q0: q0, Q1: q1},
			{Kind: circuits.GateCX, Q0: q1, Q1: q0},
			{Kind: circuits.GateCX, Q0: q0, Q1: q1},
		}
	default:
		return errors.Errorf("transpile: unknown gate kind %s", gate.Kind)
	}
	for _, g := range expansion {
		if err := appendNative(out, g, native, depth-1); err != nil {
			return err
		}
	}
	return nil
}
