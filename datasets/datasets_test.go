package datasets

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddValidation(t *testing.T) {
	d := New(2, -1, 0, 1)
	require.NoError(t, d.Add([]float64{0, 1, 0, 1}, -1))
	assert.Equal(t, 1, d.Len())

	assert.Error(t, d.Add([]float64{0, 1, 0}, 1), "wrong pixel count")
	assert.Error(t, d.Add([]float64{0, 1, 0, 1}, 2), "label outside set")

	// Without a label set any label is accepted.
	open := New(2)
	assert.NoError(t, open.Add([]float64{0, 0, 0, 0}, 42))
}

func TestLoadCSV(t *testing.T) {
	// One row per drawing: flattened row-major pixels, label last.
	csvData := strings.TrimSpace(`
0,1,0,1,1
1,0,1,0,0
0,0,1,1,1
`)
	d, err := Load(strings.NewReader(csvData), 2, 0, 1)
	require.NoError(t, err)
	require.Equal(t, 3, d.Len())
	assert.Equal(t, []float64{0, 1, 0, 1}, d.At(0).Pixels)
	assert.Equal(t, 1.0, d.At(0).Label)
	assert.Equal(t, 0.0, d.At(1).Label)
	assert.Equal(t, []float64{1, 0, 1}, d.Labels()[0:3])
}

func TestLoadCSVRejectsBadRows(t *testing.T) {
	_, err := Load(strings.NewReader("0,1,0,1"), 2, 0, 1)
	assert.Error(t, err, "missing label column")

	_, err = Load(strings.NewReader("0,1,x,1,0"), 2, 0, 1)
	assert.Error(t, err, "non-numeric pixel")

	_, err = Load(strings.NewReader("0,1,0,1,7"), 2, 0, 1)
	assert.Error(t, err, "label outside set")
}

func TestSplitIsDisjointAndComplete(t *testing.T) {
	d := New(1)
	for i := 0; i < 10; i++ {
		require.NoError(t, d.Add([]float64{float64(i)}, 0))
	}
	train, test := d.Split(0.3, 7)
	assert.Equal(t, 3, test.Len())
	assert.Equal(t, 7, train.Len())

	seen := make(map[float64]int)
	for _, s := range train.Samples() {
		seen[s.Pixels[0]]++
	}
	for _, s := range test.Samples() {
		seen[s.Pixels[0]]++
	}
	require.Len(t, seen, 10)
	for pixel, count := range seen {
		assert.Equal(t, 1, count, "sample %v duplicated or dropped", pixel)
	}

	// Same seed, same split.
	train2, _ := d.Split(0.3, 7)
	assert.Equal(t, train.Samples(), train2.Samples())
}

func TestBatcherPartitionsEpochs(t *testing.T) {
	d := New(1)
	for i := 0; i < 10; i++ {
		require.NoError(t, d.Add([]float64{float64(i)}, 0))
	}
	b := NewBatcher(d, 4, false, 1)
	assert.Equal(t, 3, b.BatchesPerEpoch())

	for epoch := 0; epoch < 3; epoch++ {
		seen := make(map[float64]int)
		sizes := []int{}
		for i := 0; i < b.BatchesPerEpoch(); i++ {
			assert.Equal(t, epoch, b.Epoch())
			batch := b.Next()
			sizes = append(sizes, len(batch))
			for _, s := range batch {
				seen[s.Pixels[0]]++
			}
		}
		// 4 + 4 + remainder 2, every sample exactly once.
		assert.Equal(t, []int{4, 4, 2}, sizes)
		require.Len(t, seen, 10)
		for _, count := range seen {
			assert.Equal(t, 1, count)
		}
	}
}

func TestBatcherReshuffle(t *testing.T) {
	d := New(1)
	for i := 0; i < 32; i++ {
		require.NoError(t, d.Add([]float64{float64(i)}, 0))
	}
	epochOrder := func(b *Batcher) []float64 {
		var order []float64
		for i := 0; i < b.BatchesPerEpoch(); i++ {
			for _, s := range b.Next() {
				order = append(order, s.Pixels[0])
			}
		}
		return order
	}

	fixed := NewBatcher(d, 8, false, 5)
	assert.Equal(t, epochOrder(fixed), epochOrder(fixed), "without reshuffle epochs repeat the order")

	shuffled := NewBatcher(d, 8, true, 5)
	assert.NotEqual(t, epochOrder(shuffled), epochOrder(shuffled), "reshuffle draws a new order per epoch")
}

func TestBatcherDegenerateSizes(t *testing.T) {
	d := New(1)
	require.NoError(t, d.Add([]float64{1}, 0))
	require.NoError(t, d.Add([]float64{2}, 0))

	// Oversized or non-positive batch sizes clamp to the dataset size.
	b := NewBatcher(d, 100, false, 0)
	assert.Len(t, b.Next(), 2)
	b = NewBatcher(d, 0, false, 0)
	assert.Len(t, b.Next(), 2)

	assert.Panics(t, func() { NewBatcher(New(1), 1, false, 0) })
}
