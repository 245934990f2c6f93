package statevector

import (
	"math"
	"math/bits"
	"sort"

	"github.com/gomlx/exceptions"
	"gonum.org/v1/gonum/stat"

	"github.com/gomlx/qugrid/circuits"
	"github.com/gomlx/qugrid/observables"
)

// state holds the 2^n complex amplitudes of an n-qubit register. Qubit q maps
// to bit q of the basis-state index (little-endian).
type state []complex128

// newState returns |0...0⟩.
func newState(numQubits int) state {
	s := make(state, 1<<uint(numQubits))
	s[0] = 1
	return s
}

// apply propagates one gate through the state, in place.
func (s state) apply(gate circuits.Gate) {
	switch gate.Kind {
	case circuits.GateRX:
		c, sn := complex(math.Cos(gate.Angle/2), 0), complex(0, -math.Sin(gate.Angle/2))
		s.apply1(gate.Q0, [2][2]complex128{{c, sn}, {sn, c}})
	case circuits.GateRY:
		c, sn := complex(math.Cos(gate.Angle/2), 0), complex(math.Sin(gate.Angle/2), 0)
		s.apply1(gate.Q0, [2][2]complex128{{c, -sn}, {sn, c}})
	case circuits.GateRZ:
		phase := complex(math.Cos(gate.Angle/2), math.Sin(gate.Angle/2))
		s.apply1(gate.Q0, [2][2]complex128{{1 / phase, 0}, {0, phase}})
	case circuits.GateH:
		h := complex(1/math.Sqrt2, 0)
		s.apply1(gate.Q0, [2][2]complex128{{h, h}, {h, -h}})
	case circuits.GateX:
		s.apply1(gate.Q0, [2][2]complex128{{0, 1}, {1, 0}})
	case circuits.GateZ:
		s.apply1(gate.Q0, [2][2]complex128{{1, 0}, {0, -1}})
	case circuits.GateCX:
		s.applyCX(gate.Q0, gate.Q1)
	case circuits.GateCZ:
		s.applyCZ(gate.Q0, gate.Q1)
	case circuits.GateSwap:
		s.applySwap(gate.Q0, gate.Q1)
	default:
		exceptions.Panicf("statevector: cannot simulate gate kind %s", gate.Kind)
	}
}

// apply1 multiplies the 2x2 matrix m into qubit q.
func (s state) apply1(q int, m [2][2]complex128) {
	bit := 1 << uint(q)
	for i := range s {
		if i&bit != 0 {
			continue
		}
		j := i | bit
		a, b := s[i], s[j]
		s[i] = m[0][0]*a + m[0][1]*b
		s[j] = m[1][0]*a + m[1][1]*b
	}
}

func (s state) applyCX(control, target int) {
	controlBit, targetBit := 1<<uint(control), 1<<uint(target)
	for i := range s {
		if i&controlBit != 0 && i&targetBit == 0 {
			j := i | targetBit
			s[i], s[j] = s[j], s[i]
		}
	}
}

func (s state) applyCZ(q0, q1 int) {
	mask := 1<<uint(q0) | 1<<uint(q1)
	for i := range s {
		if i&mask == mask {
			s[i] = -s[i]
		}
	}
}

func (s state) applySwap(q0, q1 int) {
	bit0, bit1 := 1<<uint(q0), 1<<uint(q1)
	for i := range s {
		if i&bit0 != 0 && i&bit1 == 0 {
			j := i ^ bit0 ^ bit1
			s[i], s[j] = s[j], s[i]
		}
	}
}

// termMask returns the bitmask of the qubits a Z-product term acts on.
func termMask(term observables.Term) int {
	mask := 0
	for _, q := range term.Qubits {
		mask |= 1 << uint(q)
	}
	return mask
}

// parity returns +1 when an even number of the term's qubits are 1 in basis
// state z, -1 otherwise: the eigenvalue of the Z-product on |z⟩.
func parity(z, mask int) float64 {
	if bits.OnesCount(uint(z&mask))&1 == 0 {
		return 1
	}
	return -1
}

// expectation computes the exact expectation value of a Z-sum observable:
// Σ_terms coefficient * Σ_z |amplitude(z)|² * parity(z).
func (s state) expectation(observable *observables.Observable) float64 {
	value := 0.0
	for _, term := range observable.Terms {
		mask := termMask(term)
		termValue := 0.0
		for z, amplitude := range s {
			p := real(amplitude)*real(amplitude) + imag(amplitude)*imag(amplitude)
			if p == 0 {
				continue
			}
			termValue += p * parity(z, mask)
		}
		value += term.Coefficient * termValue
	}
	return value
}

// sample estimates the observable by measuring `shots` basis states from the
// final distribution and averaging per-shot Z-product eigenvalues. Returns the
// estimate and its standard error.
func (b *Backend) sample(s state, observable *observables.Observable, shots int) (value, stderr float64) {
	cumulative := make([]float64, len(s))
	total := 0.0
	for z, amplitude := range s {
		total += real(amplitude)*real(amplitude) + imag(amplitude)*imag(amplitude)
		cumulative[z] = total
	}

	masks := make([]int, len(observable.Terms))
	for i, term := range observable.Terms {
		masks[i] = termMask(term)
	}

	samples := make([]float64, shots)
	b.muRand.Lock()
	for shot := range samples {
		r := b.rng.Float64() * total
		z := sort.SearchFloat64s(cumulative, r)
		if z == len(cumulative) {
			z--
		}
		v := 0.0
		for i, term := range observable.Terms {
			v += term.Coefficient * parity(z, masks[i])
		}
		samples[shot] = v
	}
	b.muRand.Unlock()

	mean, std := stat.MeanStdDev(samples, nil)
	if shots < 2 {
		return mean, 0
	}
	return mean, stat.StdErr(std, float64(shots))
}
