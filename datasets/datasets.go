// Package datasets holds the labeled pixel-grid samples the classifier trains
// on, and the mini-batching policy over them.
//
// The on-disk format follows the drawing/generation tools that produce the
// data: CSV, one row per sample, the flattened row-major pixel vector followed
// by the class label as the last element.
package datasets

import (
	"encoding/csv"
	"io"
	"math"
	"math/rand"
	"os"
	"strconv"

	"github.com/pkg/errors"
)

// Sample is one labeled image: a flattened row-major pixel vector and its
// scalar label. Labels are immutable once assigned by the dataset producer.
type Sample struct {
	Pixels []float64
	Label  float64
}

// Dataset is an ordered sequence of samples over a fixed gridDim×gridDim image
// shape.
type Dataset struct {
	gridDim int
	labels  []float64 // allowed label set; empty means any label is accepted.
	samples []Sample
}

// New creates an empty dataset for gridDim×gridDim images. If labelSet is
// non-empty, Add rejects samples with labels outside it.
func New(gridDim int, labelSet ...float64) *Dataset {
	return &Dataset{gridDim: gridDim, labels: labelSet}
}

// GridDim returns the image grid dimension N.
func (d *Dataset) GridDim() int { return d.gridDim }

// Len returns the number of samples.
func (d *Dataset) Len() int { return len(d.samples) }

// At returns the i-th sample.
func (d *Dataset) At(i int) Sample { return d.samples[i] }

// Samples returns the backing sample slice. Treat it as read-only.
func (d *Dataset) Samples() []Sample { return d.samples }

// Labels returns the slice of labels in sample order.
func (d *Dataset) Labels() []float64 {
	labels := make([]float64, len(d.samples))
	for i, s := range d.samples {
		labels[i] = s.Label
	}
	return labels
}

func (d *Dataset) labelAllowed(label float64) bool {
	if len(d.labels) == 0 {
		return true
	}
	for _, l := range d.labels {
		if l == label {
			return true
		}
	}
	return false
}

// Add appends one sample, validating shape and label.
func (d *Dataset) Add(pixels []float64, label float64) error {
	want := d.gridDim * d.gridDim
	if len(pixels) != want {
		return errors.Errorf("datasets: sample has %d pixels, want %d (a %dx%d grid)",
			len(pixels), want, d.gridDim, d.gridDim)
	}
	if !d.labelAllowed(label) {
		return errors.Errorf("datasets: label %v not in the configured label set %v", label, d.labels)
	}
	for i, p := range pixels {
		if math.IsNaN(p) || math.IsInf(p, 0) {
			return errors.Errorf("datasets: non-finite pixel %v at index %d", p, i)
		}
	}
	d.samples = append(d.samples, Sample{Pixels: pixels, Label: label})
	return nil
}

// Load reads samples from CSV: each row is gridDim² pixel values followed by
// the label as the last field.
func Load(r io.Reader, gridDim int, labelSet ...float64) (*Dataset, error) {
	d := New(gridDim, labelSet...)
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = gridDim*gridDim + 1
	row := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "datasets: reading CSV row %d", row)
		}
		values := make([]float64, len(record))
		for i, field := range record {
			values[i], err = strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, errors.Wrapf(err, "datasets: CSV row %d field %d", row, i)
			}
		}
		if err := d.Add(values[:len(values)-1], values[len(values)-1]); err != nil {
			return nil, errors.Wrapf(err, "datasets: CSV row %d", row)
		}
		row++
	}
	return d, nil
}

// LoadFile is Load over a file path.
func LoadFile(path string, gridDim int, labelSet ...float64) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "datasets: opening %s", path)
	}
	defer func() { _ = f.Close() }()
	return Load(f, gridDim, labelSet...)
}

// Split shuffles the sample order with the given seed and partitions the
// dataset into disjoint train and test subsets, with ⌈testFraction·Len⌉
// samples going to test. No sample is duplicated or dropped.
func (d *Dataset) Split(testFraction float64, seed int64) (train, test *Dataset) {
	if testFraction < 0 || testFraction > 1 {
		testFraction = 0
	}
	perm := rand.New(rand.NewSource(seed)).Perm(len(d.samples))
	numTest := int(math.Ceil(testFraction * float64(len(d.samples))))

	train = New(d.gridDim, d.labels...)
	test = New(d.gridDim, d.labels...)
	for i, idx := range perm {
		if i < numTest {
			test.samples = append(test.samples, d.samples[idx])
		} else {
			train.samples = append(train.samples, d.samples[idx])
		}
	}
	return train, test
}
