package rank

// scored pairs a candidate index with its similarity score.
type scored struct {
	idx   int
	score float64
}

// topKHeap is a bounded min-heap over scores. The root is the weakest kept
// candidate, so a full heap admits a newcomer only when it beats the root.
// Ties keep the earlier-fetched candidate (lower idx loses the eviction
// comparison last).
type topKHeap []scored

func (h topKHeap) Len() int { return len(h) }

func (h topKHeap) Less(i, j int) bool {
	if h[i].score != h[j].score {
		return h[i].score < h[j].score
	}
	// On equal scores the later-fetched candidate sits closer to the root.
	return h[i].idx > h[j].idx
}

func (h topKHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *topKHeap) Push(x any) { *h = append(*h, x.(scored)) }

func (h *topKHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
