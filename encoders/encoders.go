// Package encoders maps pixel-grid images into state-preparation circuits.
//
// The encoding is "angle encoding": one qubit per pixel, one single-qubit
// rotation per qubit, with the rotation angle a linear function of the pixel
// intensity. No entanglement is introduced at this stage; spatial correlation
// is the ansatz's job (see package ansatz).
//
// Default scaling policy: pixel intensities in [0, 1] map linearly onto RY
// angles in [0, π], so an off pixel leaves its qubit at |0⟩ (⟨Z⟩=+1) and a
// fully-on pixel flips it to |1⟩ (⟨Z⟩=-1). Both ranges and the rotation axis
// are configurable.
package encoders

import (
	"math"

	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"

	"github.com/gomlx/qugrid/circuits"
)

// ErrShapeMismatch is returned by Encoder.Encode when the image is not a square
// grid of the configured dimension.
var ErrShapeMismatch = errors.New("image shape does not match configured grid")

// Encoder deterministically converts an image vector into a state-preparation
// circuit. It is stateless with respect to images: encoding the same image
// twice yields bit-identical circuits.
//
// Create it with New and optionally configure it with the With* methods, which
// return the Encoder so calls can be cascaded.
type Encoder struct {
	gridDim            int
	pixelMin, pixelMax float64
	angleMin, angleMax float64
	axis               circuits.GateKind
}

// New creates an Encoder for gridDim×gridDim images with the default scaling
// policy ([0,1] pixels → [0,π] RY angles).
func New(gridDim int) *Encoder {
	if gridDim <= 0 {
		exceptions.Panicf("encoders.New: gridDim must be positive, got %d", gridDim)
	}
	return &Encoder{
		gridDim:  gridDim,
		pixelMin: 0, pixelMax: 1,
		angleMin: 0, angleMax: math.Pi,
		axis: circuits.GateRY,
	}
}

// WithPixelRange sets the pixel intensity range mapped onto the angle range.
func (e *Encoder) WithPixelRange(min, max float64) *Encoder {
	if max <= min {
		exceptions.Panicf("encoders: pixel range [%g, %g] is empty", min, max)
	}
	e.pixelMin, e.pixelMax = min, max
	return e
}

// WithAngleRange sets the rotation angle range pixel intensities are mapped onto.
func (e *Encoder) WithAngleRange(min, max float64) *Encoder {
	e.angleMin, e.angleMax = min, max
	return e
}

// WithAxis sets the rotation axis, one of circuits.GateRX, GateRY or GateRZ.
func (e *Encoder) WithAxis(axis circuits.GateKind) *Encoder {
	if !axis.Parameterized() {
		exceptions.Panicf("encoders: rotation axis must be RX, RY or RZ, got %s", axis)
	}
	e.axis = axis
	return e
}

// GridDim returns the configured grid dimension N.
func (e *Encoder) GridDim() int { return e.gridDim }

// NumQubits returns the number of qubits the encoding uses: one per pixel.
func (e *Encoder) NumQubits() int { return e.gridDim * e.gridDim }

// Angle returns the rotation angle for one pixel intensity: the linear map from
// [pixelMin, pixelMax] to [angleMin, angleMax]. Intensities outside the pixel
// range are clamped rather than extrapolated.
func (e *Encoder) Angle(pixel float64) float64 {
	t := (pixel - e.pixelMin) / (e.pixelMax - e.pixelMin)
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	return e.angleMin + t*(e.angleMax-e.angleMin)
}

// Encode builds the state-preparation circuit for one image: rotation gate
// Angle(image[q]) on qubit q, for every pixel q in row-major order.
//
// It returns ErrShapeMismatch if len(image) != NumQubits().
func (e *Encoder) Encode(image []float64) (*circuits.Circuit, error) {
	numQubits := e.NumQubits()
	if len(image) != numQubits {
		return nil, errors.Wrapf(ErrShapeMismatch,
			"got %d pixels, want %d (a %dx%d grid)", len(image), numQubits, e.gridDim, e.gridDim)
	}
	c := circuits.New(numQubits)
	for q, pixel := range image {
		c.Rotation(e.axis, q, e.Angle(pixel))
	}
	return c, nil
}
