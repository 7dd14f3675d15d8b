package denoise

import (
	"log"
	"math/bits"
)

// MaxBatchSize is the largest number of tiles sent to the model at once
const MaxBatchSize = 32

// NormalizeBatchSize maps a requested batch size to a power of two in
// [1, MaxBatchSize], rounding down. Corrections are logged, never rejected.
func NormalizeBatchSize(batchSize int) int {
	switch {
	case batchSize < 1:
		log.Printf("mapping batch size of %d to 1", batchSize)
		return 1
	case batchSize > MaxBatchSize:
		log.Printf("mapping batch size of %d to %d", batchSize, MaxBatchSize)
		return MaxBatchSize
	case batchSize&(batchSize-1) != 0:
		corrected := 1 << (bits.Len(uint(batchSize)) - 1)
		log.Printf("mapping batch size of %d to %d", batchSize, corrected)
		return corrected
	}
	return batchSize
}
