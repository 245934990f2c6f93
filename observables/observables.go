// Package observables builds the measurement operators whose expectation values
// are the classifier's scalar predictions.
//
// An Observable is an immutable-after-construction weighted sum of Pauli-Z terms,
// each term acting on one qubit (Z) or on a pair (Z⊗Z). Identity acts on every
// other qubit. The expectation value of a single Z (or Z⊗Z) term lies in [-1, 1],
// so an observable whose absolute coefficients sum to 1 (e.g. MeanZ) yields
// predictions in [-1, 1], matching bipolar label encodings.
//
// Observables are pure values with no backend dependency; backends interpret
// them when computing expectations.
package observables

import (
	"fmt"
	"math"
	"strings"

	"github.com/gomlx/exceptions"
)

// Term is one weighted Pauli-Z product: Coefficient * Z(Qubits[0]) or
// Coefficient * Z(Qubits[0])⊗Z(Qubits[1]).
type Term struct {
	Coefficient float64
	Qubits      []int
}

// Observable is a weighted sum of Pauli-Z terms over NumQubits qubits.
// Build one with New plus the Z/ZZ methods, or with a convenience constructor
// like MeanZ; treat it as immutable afterward.
type Observable struct {
	NumQubits int
	Terms     []Term
}

// New creates an empty observable over numQubits qubits. Adding terms is done
// with Z and ZZ, which return the observable so calls can be cascaded.
func New(numQubits int) *Observable {
	if numQubits <= 0 {
		exceptions.Panicf("observables.New: numQubits must be positive, got %d", numQubits)
	}
	return &Observable{NumQubits: numQubits}
}

func (o *Observable) checkQubit(q int) {
	if q < 0 || q >= o.NumQubits {
		exceptions.Panicf("observables: term on qubit %d, but observable is declared over %d qubits",
			q, o.NumQubits)
	}
}

// Z adds the term coefficient*Z(q).
func (o *Observable) Z(q int, coefficient float64) *Observable {
	o.checkQubit(q)
	o.Terms = append(o.Terms, Term{Coefficient: coefficient, Qubits: []int{q}})
	return o
}

// ZZ adds the term coefficient*Z(q0)⊗Z(q1).
func (o *Observable) ZZ(q0, q1 int, coefficient float64) *Observable {
	o.checkQubit(q0)
	o.checkQubit(q1)
	if q0 == q1 {
		exceptions.Panicf("observables: ZZ term requires two distinct qubits, got %d twice", q0)
	}
	o.Terms = append(o.Terms, Term{Coefficient: coefficient, Qubits: []int{q0, q1}})
	return o
}

// MeanZ returns the observable (1/len(qubits)) * Σ Z(q) over the given qubits,
// or over all qubits if none are given. Its expectation value is always within
// [-1, 1], which matches bipolar and {-1, 0, +1} label encodings.
func MeanZ(numQubits int, qubits ...int) *Observable {
	o := New(numQubits)
	if len(qubits) == 0 {
		qubits = make([]int, numQubits)
		for q := range qubits {
			qubits[q] = q
		}
	}
	coefficient := 1.0 / float64(len(qubits))
	for _, q := range qubits {
		o.Z(q, coefficient)
	}
	return o
}

// OneVsRest returns one MeanZ margin observable per class, each averaging the
// Z expectations of that class' qubit subset. Used for multi-class problems
// where each class score is trained one-vs-rest.
func OneVsRest(numQubits int, qubitsPerClass [][]int) []*Observable {
	if len(qubitsPerClass) == 0 {
		exceptions.Panicf("observables.OneVsRest: at least one class is required")
	}
	result := make([]*Observable, len(qubitsPerClass))
	for class, qubits := range qubitsPerClass {
		if len(qubits) == 0 {
			exceptions.Panicf("observables.OneVsRest: class %d has no qubits assigned", class)
		}
		result[class] = MeanZ(numQubits, qubits...)
	}
	return result
}

// Bound returns Σ|coefficient|, an upper bound for |expectation value|.
func (o *Observable) Bound() (bound float64) {
	for _, term := range o.Terms {
		bound += math.Abs(term.Coefficient)
	}
	return
}

// Remap returns a copy of the observable with every term qubit q replaced by
// layout[q], declared over newNumQubits qubits. Transpilation uses it to follow
// the final logical→physical qubit layout, so measurement statistics are
// preserved on the routed circuit.
func (o *Observable) Remap(layout []int, newNumQubits int) *Observable {
	if len(layout) < o.NumQubits {
		exceptions.Panicf("observables: Remap layout covers %d qubits, observable needs %d",
			len(layout), o.NumQubits)
	}
	remapped := New(newNumQubits)
	for _, term := range o.Terms {
		qubits := make([]int, len(term.Qubits))
		for i, q := range term.Qubits {
			qubits[i] = layout[q]
			if qubits[i] < 0 || qubits[i] >= newNumQubits {
				exceptions.Panicf("observables: Remap sends qubit %d to %d, outside of %d qubits",
					q, qubits[i], newNumQubits)
			}
		}
		remapped.Terms = append(remapped.Terms, Term{Coefficient: term.Coefficient, Qubits: qubits})
	}
	return remapped
}

// String implements fmt.Stringer.
func (o *Observable) String() string {
	var sb strings.Builder
	for i, term := range o.Terms {
		if i > 0 {
			sb.WriteString(" + ")
		}
		if len(term.Qubits) == 1 {
			fmt.Fprintf(&sb, "%.4g*Z%d", term.Coefficient, term.Qubits[0])
		} else {
			fmt.Fprintf(&sb, "%.4g*Z%d⊗Z%d", term.Coefficient, term.Qubits[0], term.Qubits[1])
		}
	}
	if len(o.Terms) == 0 {
		return "0"
	}
	return sb.String()
}
