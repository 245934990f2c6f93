package datasets

import (
	"math/rand"

	"github.com/gomlx/exceptions"
)

// Batcher partitions a dataset into mini-batches, epoch by epoch. Within one
// epoch every sample appears exactly once: batches are disjoint slices of a
// (possibly reshuffled) sample order, and the final batch holds the remainder
// when the batch size does not divide the dataset evenly.
//
// Batch size and reshuffling cadence are policy, not hardcoded: reshuffling
// happens at each epoch start when enabled, otherwise the first shuffled order
// is kept for all epochs.
type Batcher struct {
	dataset   *Dataset
	batchSize int
	reshuffle bool
	rng       *rand.Rand

	order  []int
	cursor int
	epoch  int
}

// NewBatcher creates a Batcher over the dataset. seed makes the sample order
// reproducible; reshuffle re-randomizes it at every epoch start.
func NewBatcher(dataset *Dataset, batchSize int, reshuffle bool, seed int64) *Batcher {
	if dataset.Len() == 0 {
		exceptions.Panicf("datasets: cannot batch an empty dataset")
	}
	if batchSize <= 0 || batchSize > dataset.Len() {
		batchSize = dataset.Len()
	}
	b := &Batcher{
		dataset:   dataset,
		batchSize: batchSize,
		reshuffle: reshuffle,
		rng:       rand.New(rand.NewSource(seed)),
	}
	b.order = b.rng.Perm(dataset.Len())
	return b
}

// Epoch returns the zero-based index of the epoch the next batch belongs to.
func (b *Batcher) Epoch() int { return b.epoch }

// BatchesPerEpoch returns how many batches one epoch yields.
func (b *Batcher) BatchesPerEpoch() int {
	return (b.dataset.Len() + b.batchSize - 1) / b.batchSize
}

// Next returns the next mini-batch, starting a new epoch (and reshuffling, if
// enabled) whenever the previous one is exhausted. It never returns an empty
// batch.
func (b *Batcher) Next() []Sample {
	if b.cursor >= len(b.order) {
		b.epoch++
		b.cursor = 0
		if b.reshuffle {
			b.order = b.rng.Perm(b.dataset.Len())
		}
	}
	end := b.cursor + b.batchSize
	if end > len(b.order) {
		end = len(b.order)
	}
	batch := make([]Sample, 0, end-b.cursor)
	for _, idx := range b.order[b.cursor:end] {
		batch = append(batch, b.dataset.At(idx))
	}
	b.cursor = end
	return batch
}
