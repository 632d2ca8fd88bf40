package sitemap

// Chunk splits items into contiguous chunks of at most size items.
// size <= 0 disables chunking: the result is a single chunk holding everything,
// even when items is empty. Otherwise ceil(len/size) chunks are returned and the
// last one may be smaller.
func Chunk[T any](items []T, size int) [][]T {
	if size <= 0 {
		return [][]T{items}
	}

	chunks := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		chunks = append(chunks, items[start:end:end])
	}
	return chunks
}
