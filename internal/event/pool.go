package event

import (
	"sync"

	"github.com/ishannitinzambareeee23-hub/orderbook-visualizer/internal/domain"
)

// Depth diffs are the highest-rate message on the feed (down to one per
// 100ms per channel, bursty far beyond that), so they are pooled to keep
// the hotpath allocation-free. Ownership: the producer acquires, the
// engine releases after application; buffered diffs are released when
// the pending buffer is replayed or discarded.

var depthDiffPool = sync.Pool{
	New: func() any {
		return &DepthDiffEvent{
			Bids: make([]domain.PriceQty, 0, 32),
			Asks: make([]domain.PriceQty, 0, 32),
		}
	},
}

// AcquireDepthDiff returns a cleared DepthDiffEvent from the pool.
func AcquireDepthDiff() *DepthDiffEvent {
	return depthDiffPool.Get().(*DepthDiffEvent)
}

// ReleaseDepthDiff resets the event and returns it to the pool.
func ReleaseDepthDiff(e *DepthDiffEvent) {
	e.BaseEvent = BaseEvent{}
	e.FirstUpdateID = 0
	e.FinalUpdateID = 0
	e.Bids = e.Bids[:0]
	e.Asks = e.Asks[:0]
	depthDiffPool.Put(e)
}

// Warmup pre-populates the pool so the first burst does not allocate.
func Warmup() {
	warm := make([]*DepthDiffEvent, 0, 64)
	for i := 0; i < 64; i++ {
		warm = append(warm, AcquireDepthDiff())
	}
	for _, e := range warm {
		ReleaseDepthDiff(e)
	}
}
