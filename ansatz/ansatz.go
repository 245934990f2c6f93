// Package ansatz builds the trainable portion of the classifier circuit.
//
// The entangling connectivity encodes a spatial prior: each qubit (pixel)
// entangles only with its immediate row and column neighbors on the image
// grid. That keeps the two-qubit gate count linear in the number of pixels
// (2·N·(N-1) edges for an N×N grid) instead of quadratic, and biases the model
// toward the local correlations that line and shape patterns actually have.
//
// The circuit is layered: each layer is one trainable single-qubit rotation
// per qubit followed by a fixed entangling gate on every adjacency edge. The
// number of layers trades expressivity for depth.
package ansatz

import (
	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"

	"github.com/gomlx/qugrid/circuits"
)

// ErrParameterCountMismatch is returned by Builder.Build when the supplied
// parameter vector length differs from Builder.NumParameters.
var ErrParameterCountMismatch = errors.New("parameter vector length does not match ansatz")

// GridEdges returns the row/column adjacency edges of an N×N grid in row-major
// qubit indexing: (r,c)-(r,c+1) for every row pair and (r,c)-(r+1,c) for every
// column pair, each edge listed once with the smaller qubit first. This is the
// fixed entangling topology of the ansatz, a pure function of gridDim.
func GridEdges(gridDim int) [][2]int {
	if gridDim <= 0 {
		exceptions.Panicf("ansatz.GridEdges: gridDim must be positive, got %d", gridDim)
	}
	edges := make([][2]int, 0, 2*gridDim*(gridDim-1))
	for r := 0; r < gridDim; r++ {
		for c := 0; c < gridDim; c++ {
			q := r*gridDim + c
			if c+1 < gridDim {
				edges = append(edges, [2]int{q, q + 1})
			}
			if r+1 < gridDim {
				edges = append(edges, [2]int{q, q + gridDim})
			}
		}
	}
	return edges
}

// Builder constructs grid-adjacency ansatz circuits. The connectivity and the
// required parameter count are fixed at New; only the rotation angles vary with
// the parameter vector handed to Build.
//
// Configure with the With* methods, which return the Builder so calls can be
// cascaded.
type Builder struct {
	gridDim   int
	layers    int
	rotation  circuits.GateKind
	entangler circuits.GateKind
	edges     [][2]int
}

// New creates a Builder for gridDim×gridDim images with one layer, RY rotations
// and CZ entanglers.
func New(gridDim int) *Builder {
	return &Builder{
		gridDim:   gridDim,
		layers:    1,
		rotation:  circuits.GateRY,
		entangler: circuits.GateCZ,
		edges:     GridEdges(gridDim),
	}
}

// WithLayers sets the number of (rotation layer + entangling layer) repetitions.
// More layers mean more expressivity and more depth.
func (b *Builder) WithLayers(layers int) *Builder {
	if layers <= 0 {
		exceptions.Panicf("ansatz: layers must be positive, got %d", layers)
	}
	b.layers = layers
	return b
}

// WithRotation sets the trainable rotation gate kind (GateRX, GateRY or GateRZ).
func (b *Builder) WithRotation(kind circuits.GateKind) *Builder {
	if !kind.Parameterized() {
		exceptions.Panicf("ansatz: rotation must be RX, RY or RZ, got %s", kind)
	}
	b.rotation = kind
	return b
}

// WithEntangler sets the fixed entangling gate kind (GateCZ or GateCX).
func (b *Builder) WithEntangler(kind circuits.GateKind) *Builder {
	if kind != circuits.GateCZ && kind != circuits.GateCX {
		exceptions.Panicf("ansatz: entangler must be CZ or CX, got %s", kind)
	}
	b.entangler = kind
	return b
}

// GridDim returns the configured grid dimension N.
func (b *Builder) GridDim() int { return b.gridDim }

// NumQubits returns the qubit count of built circuits: one qubit per pixel.
func (b *Builder) NumQubits() int { return b.gridDim * b.gridDim }

// NumLayers returns the configured number of layers.
func (b *Builder) NumLayers() int { return b.layers }

// NumParameters returns the length of the parameter vector Build requires:
// one rotation angle per qubit per layer. Constant once the Builder is
// configured.
func (b *Builder) NumParameters() int { return b.layers * b.NumQubits() }

// Edges returns a copy of the fixed entangling edges (grid row/column
// adjacency).
func (b *Builder) Edges() [][2]int {
	edges := make([][2]int, len(b.edges))
	copy(edges, b.edges)
	return edges
}

// Build constructs the ansatz circuit for one parameter vector θ: for each
// layer, a trainable rotation per qubit (consuming NumQubits angles from θ in
// qubit order) followed by the fixed entangling gate on every grid edge.
//
// It returns ErrParameterCountMismatch if len(theta) != NumParameters().
func (b *Builder) Build(theta []float64) (*circuits.Circuit, error) {
	if len(theta) != b.NumParameters() {
		return nil, errors.Wrapf(ErrParameterCountMismatch,
			"got %d parameters, ansatz with %d layers over %d qubits needs %d",
			len(theta), b.layers, b.NumQubits(), b.NumParameters())
	}
	numQubits := b.NumQubits()
	c := circuits.New(numQubits)
	for layer := 0; layer < b.layers; layer++ {
		offset := layer * numQubits
		for q := 0; q < numQubits; q++ {
			c.Rotation(b.rotation, q, theta[offset+q])
		}
		for _, edge := range b.edges {
			if b.entangler == circuits.GateCX {
				c.CX(edge[0], edge[1])
			} else {
				c.CZ(edge[0], edge[1])
			}
		}
	}
	return c, nil
}
