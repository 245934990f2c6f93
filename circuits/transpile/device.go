// Package transpile rewrites logical circuits into functionally equivalent
// circuits that a target device can actually run: only native gates, only
// two-qubit interactions along the device's coupling graph, with SWAP routing
// inserted where logical adjacency is not hardware adjacency.
//
// Transpilation is a search-and-select step, not a single deterministic pass:
// several candidate qubit layouts are routed independently, each candidate is
// scored by depth and gate count (both proxies for hardware error
// accumulation) and the best-scoring circuit is returned together with its
// final logical→physical layout, so the measurement observable can follow the
// routed qubits.
package transpile

import (
	"github.com/gomlx/exceptions"

	"github.com/gomlx/qugrid/circuits"
)

// Device describes a target's execution constraints: qubit count, native gate
// set and the undirected coupling graph along which two-qubit gates are
// possible.
type Device struct {
	// Name of the device, for logs and error messages.
	Name string

	// NumQubits physically available.
	NumQubits int

	// Edges of the coupling graph: each pair of physical qubits that may
	// interact directly. Undirected.
	Edges [][2]int

	// Native gate kinds the device executes directly. Everything else must be
	// rewritten.
	Native map[circuits.GateKind]bool
}

// DefaultNativeGates returns the default native set used by the device
// constructors: single-qubit rotations plus CZ, the typical basis of
// fixed-frequency superconducting devices.
func DefaultNativeGates() map[circuits.GateKind]bool {
	return map[circuits.GateKind]bool{
		circuits.GateRX: true,
		circuits.GateRY: true,
		circuits.GateRZ: true,
		circuits.GateCZ: true,
	}
}

// WithNative returns a copy of the device with the native gate set replaced.
func (d Device) WithNative(kinds ...circuits.GateKind) Device {
	native := make(map[circuits.GateKind]bool, len(kinds))
	for _, kind := range kinds {
		native[kind] = true
	}
	d.Native = native
	return d
}

func (d Device) validate() {
	if d.NumQubits <= 0 {
		exceptions.Panicf("transpile: device %q has no qubits", d.Name)
	}
	for _, edge := range d.Edges {
		for _, q := range edge {
			if q < 0 || q >= d.NumQubits {
				exceptions.Panicf("transpile: device %q edge %v outside of %d qubits",
					d.Name, edge, d.NumQubits)
			}
		}
		if edge[0] == edge[1] {
			exceptions.Panicf("transpile: device %q has self-edge on qubit %d", d.Name, edge[0])
		}
	}
}

// Linear returns a device whose qubits form a chain: 0-1-2-...-(n-1).
func Linear(numQubits int) Device {
	edges := make([][2]int, 0, numQubits-1)
	for q := 0; q+1 < numQubits; q++ {
		edges = append(edges, [2]int{q, q + 1})
	}
	return Device{
		Name:      "linear",
		NumQubits: numQubits,
		Edges:     edges,
		Native:    DefaultNativeGates(),
	}
}

// Grid returns a device whose qubits form a rows×cols lattice with row/column
// couplings, in row-major indexing. A Grid(n, n) device natively matches the
// ansatz connectivity for n×n images, so routing inserts no SWAPs.
func Grid(rows, cols int) Device {
	if rows <= 0 || cols <= 0 {
		exceptions.Panicf("transpile: Grid(%d, %d) is empty", rows, cols)
	}
	var edges [][2]int
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			q := r*cols + c
			if c+1 < cols {
				edges = append(edges, [2]int{q, q + 1})
			}
			if r+1 < rows {
				edges = append(edges, [2]int{q, q + cols})
			}
		}
	}
	return Device{
		Name:      "grid",
		NumQubits: rows * cols,
		Edges:     edges,
		Native:    DefaultNativeGates(),
	}
}

// FullyConnected returns a device where every qubit pair may interact, like a
// trapped-ion device or a simulator with no connectivity constraint.
func FullyConnected(numQubits int) Device {
	var edges [][2]int
	for a := 0; a < numQubits; a++ {
		for b := a + 1; b < numQubits; b++ {
			edges = append(edges, [2]int{a, b})
		}
	}
	return Device{
		Name:      "fully-connected",
		NumQubits: numQubits,
		Edges:     edges,
		Native:    DefaultNativeGates(),
	}
}
