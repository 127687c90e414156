package populate

// splitBatches cuts records into order-preserving windows of at most size
// items; only the final window may run short. Empty input yields no
// windows and a non-positive size yields a single window.
func splitBatches[T any](in []T, size int) [][]T {
	if len(in) == 0 {
		return nil
	}
	if size <= 0 {
		return [][]T{in}
	}
	out := make([][]T, 0, (len(in)+size-1)/size)
	for start := 0; start < len(in); start += size {
		end := start + size
		if end > len(in) {
			end = len(in)
		}
		out = append(out, in[start:end])
	}
	return out
}
