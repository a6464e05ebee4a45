package queue

// WaitPolicy is the offline/seekable back-pressure policy: once the queue
// grows past High items, the producer blocks (polling waitFn) until it
// drains back under Low, or the stop signal fires. No items are ever
// dropped.
type WaitPolicy struct {
	High int // e.g. 100
	Low  int // e.g. 80
}

func (p WaitPolicy) Apply(items []any, waitFn func() bool) []any {
	for len(items) > p.High {
		if !waitFn() {
			return items
		}
		if len(items) < p.Low {
			break
		}
	}
	return items
}

// DropOldestPolicy is the realtime back-pressure policy: once the queue
// grows past High items, the oldest DropCount entries are evicted
// outright. Newest-wins; nothing blocks the producer.
type DropOldestPolicy struct {
	High      int // e.g. 100
	DropCount int // e.g. 90
}

func (p DropOldestPolicy) Apply(items []any, _ func() bool) []any {
	if len(items) <= p.High {
		return items
	}
	drop := p.DropCount
	if drop > len(items) {
		drop = len(items)
	}
	return items[drop:]
}

// HalvePolicy is the camera-backend policy: once the queue grows past
// High items, every second entry is evicted, halving the queue while
// preserving chronological spacing.
type HalvePolicy struct {
	High int // e.g. 9
}

func (p HalvePolicy) Apply(items []any, _ func() bool) []any {
	if len(items) <= p.High {
		return items
	}
	kept := items[:0:0]
	for i, item := range items {
		if i%2 == 0 {
			kept = append(kept, item)
		}
	}
	return kept
}
