package download

// Batch is one contiguous sub-range of the sorted OID set. Batches
// never overlap: for consecutive batches, Max of one is strictly below
// Min of the next.
type Batch struct {
	Min  int64
	Max  int64
	Size int
}

// Partition splits sorted OIDs into batches of at most size IDs. The
// union of all batches reproduces the input exactly once.
func Partition(oids []int64, size int) []Batch {
	if len(oids) == 0 || size <= 0 {
		return nil
	}

	batches := make([]Batch, 0, (len(oids)+size-1)/size)
	for start := 0; start < len(oids); start += size {
		end := start + size
		if end > len(oids) {
			end = len(oids)
		}
		batches = append(batches, Batch{
			Min:  oids[start],
			Max:  oids[end-1],
			Size: end - start,
		})
	}
	return batches
}
