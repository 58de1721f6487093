package journal

import "fmt"

// SequenceRange represents an inclusive range of journal sequence numbers.
type SequenceRange struct {
	From uint64
	To   uint64
}

// SplitRange splits a sequence range into batches of size batchSize.
func SplitRange(from, to, batchSize uint64) ([]SequenceRange, error) {
	if batchSize == 0 {
		return nil, fmt.Errorf("batch size must be greater than zero")
	}
	if to < from {
		return nil, fmt.Errorf("to sequence must be >= from sequence")
	}

	ranges := make([]SequenceRange, 0)
	start := from
	for start <= to {
		end := to
		if to-start+1 > batchSize {
			end = start + batchSize - 1
		}
		ranges = append(ranges, SequenceRange{From: start, To: end})
		if end == to {
			break
		}
		start = end + 1
	}

	return ranges, nil
}
