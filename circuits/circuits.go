// Package circuits defines the Circuit data model used throughout qugrid: an
// ordered, append-only sequence of typed gate records over a fixed set of qubits.
//
// A Circuit is deliberately not a DAG: it is a linear gate sequence, which keeps
// composition, cloning and transpilation trivially inspectable. Layering (for
// depth accounting) is derived on demand from qubit usage, never stored.
//
// Qubits are indexed 0..NumQubits-1. For grid-image circuits, qubit q corresponds
// to pixel q in row-major order.
//
// Construction methods panic (see github.com/gomlx/exceptions) on out-of-range
// qubits: those are programming errors, not runtime conditions.
package circuits

import (
	"fmt"
	"strings"

	"github.com/gomlx/exceptions"
)

// GateKind enumerates the gate vocabulary qugrid emits and simulates.
type GateKind uint8

const (
	// GateRX is a rotation around the X axis by Gate.Angle.
	GateRX GateKind = iota

	// GateRY is a rotation around the Y axis by Gate.Angle.
	GateRY

	// GateRZ is a rotation around the Z axis by Gate.Angle.
	GateRZ

	// GateH is the Hadamard gate.
	GateH

	// GateX is the Pauli-X (NOT) gate.
	GateX

	// GateZ is the Pauli-Z gate.
	GateZ

	// GateCX is the controlled-X gate: Q0 is the control, Q1 the target.
	GateCX

	// GateCZ is the controlled-Z gate. It is symmetric in its two qubits.
	GateCZ

	// GateSwap exchanges the states of its two qubits.
	GateSwap

	numGateKinds
)

var gateKindNames = [numGateKinds]string{"RX", "RY", "RZ", "H", "X", "Z", "CX", "CZ", "SWAP"}

// String implements fmt.Stringer.
func (k GateKind) String() string {
	if k >= numGateKinds {
		return fmt.Sprintf("INVALID_GATE(%d)", int(k))
	}
	return gateKindNames[k]
}

// NumQubits returns how many qubits the gate kind acts on (1 or 2).
func (k GateKind) NumQubits() int {
	switch k {
	case GateCX, GateCZ, GateSwap:
		return 2
	default:
		return 1
	}
}

// Parameterized reports whether gates of this kind carry a rotation angle.
func (k GateKind) Parameterized() bool {
	return k == GateRX || k == GateRY || k == GateRZ
}

// Gate is one typed gate record: kind, qubit indices and an angle for rotation
// gates. For single-qubit gates Q1 is -1. Gate is a comparable value type, so
// circuits can be compared gate-by-gate with ==.
type Gate struct {
	Kind   GateKind
	Q0, Q1 int
	Angle  float64
}

// String implements fmt.Stringer.
func (g Gate) String() string {
	switch {
	case g.Kind.Parameterized():
		return fmt.Sprintf("%s(%d, %.6g)", g.Kind, g.Q0, g.Angle)
	case g.Kind.NumQubits() == 2:
		return fmt.Sprintf("%s(%d, %d)", g.Kind, g.Q0, g.Q1)
	default:
		return fmt.Sprintf("%s(%d)", g.Kind, g.Q0)
	}
}

// Circuit is an ordered sequence of gates over NumQubits qubits.
//
// The zero value is not usable, create one with New. All building methods append
// and return the circuit itself, so calls can be cascaded:
//
//	c := circuits.New(4).H(0).CX(0, 1).RY(2, math.Pi/3)
type Circuit struct {
	// NumQubits the circuit operates on. Immutable after New.
	NumQubits int

	// Gates in application order. Treat as read-only; use the building methods
	// to append.
	Gates []Gate
}

// New creates an empty circuit over numQubits qubits.
func New(numQubits int) *Circuit {
	if numQubits <= 0 {
		exceptions.Panicf("circuits.New: numQubits must be positive, got %d", numQubits)
	}
	return &Circuit{NumQubits: numQubits}
}

func (c *Circuit) checkQubit(op string, q int) {
	if q < 0 || q >= c.NumQubits {
		exceptions.Panicf("circuits: %s on qubit %d, but circuit has %d qubits", op, q, c.NumQubits)
	}
}

func (c *Circuit) append1(kind GateKind, q int, angle float64) *Circuit {
	c.checkQubit(kind.String(), q)
	c.Gates = append(c.Gates, Gate{Kind: kind, Q0: q, Q1: -1, Angle: angle})
	return c
}

func (c *Circuit) append2(kind GateKind, q0, q1 int) *Circuit {
	c.checkQubit(kind.String(), q0)
	c.checkQubit(kind.String(), q1)
	if q0 == q1 {
		exceptions.Panicf("circuits: %s requires two distinct qubits, got %d twice", kind, q0)
	}
	c.Gates = append(c.Gates, Gate{Kind: kind, Q0: q0, Q1: q1})
	return c
}

// RX appends a rotation around X by angle on qubit q.
func (c *Circuit) RX(q int, angle float64) *Circuit { return c.append1(GateRX, q, angle) }

// RY appends a rotation around Y by angle on qubit q.
func (c *Circuit) RY(q int, angle float64) *Circuit { return c.append1(GateRY, q, angle) }

// RZ appends a rotation around Z by angle on qubit q.
func (c *Circuit) RZ(q int, angle float64) *Circuit { return c.append1(GateRZ, q, angle) }

// H appends a Hadamard gate on qubit q.
func (c *Circuit) H(q int) *Circuit { return c.append1(GateH, q, 0) }

// X appends a Pauli-X gate on qubit q.
func (c *Circuit) X(q int) *Circuit { return c.append1(GateX, q, 0) }

// Z appends a Pauli-Z gate on qubit q.
func (c *Circuit) Z(q int) *Circuit { return c.append1(GateZ, q, 0) }

// CX appends a controlled-X with control and target qubits.
func (c *Circuit) CX(control, target int) *Circuit { return c.append2(GateCX, control, target) }

// CZ appends a controlled-Z on the two given qubits.
func (c *Circuit) CZ(q0, q1 int) *Circuit { return c.append2(GateCZ, q0, q1) }

// Swap appends a SWAP on the two given qubits.
func (c *Circuit) Swap(q0, q1 int) *Circuit { return c.append2(GateSwap, q0, q1) }

// Rotation appends a rotation gate of the given kind (GateRX, GateRY or GateRZ).
// Used where the rotation axis is configuration rather than hardcoded.
func (c *Circuit) Rotation(kind GateKind, q int, angle float64) *Circuit {
	if !kind.Parameterized() {
		exceptions.Panicf("circuits: Rotation must be given a rotation gate kind, got %s", kind)
	}
	return c.append1(kind, q, angle)
}

// Append concatenates the gates of other after the gates of c. Both circuits
// must have the same qubit count. It returns c, so calls can be cascaded.
func (c *Circuit) Append(other *Circuit) *Circuit {
	if other.NumQubits != c.NumQubits {
		exceptions.Panicf("circuits: cannot append a %d-qubit circuit to a %d-qubit circuit",
			other.NumQubits, c.NumQubits)
	}
	c.Gates = append(c.Gates, other.Gates...)
	return c
}

// Clone returns an independent deep copy of the circuit.
func (c *Circuit) Clone() *Circuit {
	clone := &Circuit{NumQubits: c.NumQubits}
	if len(c.Gates) > 0 {
		clone.Gates = make([]Gate, len(c.Gates))
		copy(clone.Gates, c.Gates)
	}
	return clone
}

// Equal reports whether two circuits have the same qubit count and bit-identical
// gate sequences (kinds, qubit indices and angles).
func (c *Circuit) Equal(other *Circuit) bool {
	if c.NumQubits != other.NumQubits || len(c.Gates) != len(other.Gates) {
		return false
	}
	for i, g := range c.Gates {
		if g != other.Gates[i] {
			return false
		}
	}
	return true
}

// GateCount returns the total number of gates.
func (c *Circuit) GateCount() int { return len(c.Gates) }

// TwoQubitGateCount returns the number of two-qubit gates. Two-qubit gates
// dominate error accumulation on hardware, so transpilation scores them
// separately.
func (c *Circuit) TwoQubitGateCount() (count int) {
	for _, g := range c.Gates {
		if g.Kind.NumQubits() == 2 {
			count++
		}
	}
	return
}

// Depth returns the circuit depth: the number of layers when gates are greedily
// packed into layers such that no two gates in a layer share a qubit.
func (c *Circuit) Depth() int {
	depthPerQubit := make([]int, c.NumQubits)
	depth := 0
	for _, g := range c.Gates {
		d := depthPerQubit[g.Q0]
		if g.Kind.NumQubits() == 2 && depthPerQubit[g.Q1] > d {
			d = depthPerQubit[g.Q1]
		}
		d++
		depthPerQubit[g.Q0] = d
		if g.Kind.NumQubits() == 2 {
			depthPerQubit[g.Q1] = d
		}
		if d > depth {
			depth = d
		}
	}
	return depth
}

// String returns a compact single-line rendering, mostly for tests and logs.
func (c *Circuit) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Circuit(%d qubits, %d gates)[", c.NumQubits, len(c.Gates))
	for i, g := range c.Gates {
		if i > 0 {
			sb.WriteString("; ")
		}
		sb.WriteString(g.String())
	}
	sb.WriteString("]")
	return sb.String()
}
