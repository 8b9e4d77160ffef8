package publish

import (
	"context"
	"testing"
	"time"

	"github.com/ishannitinzambareeee23-hub/orderbook-visualizer/internal/domain"
)

func TestStateKey(t *testing.T) {
	if got := stateKey("BTCUSDT"); got != "orderbook:state:btcusdt" {
		t.Errorf("stateKey = %s", got)
	}
}

func TestPublish_UnreachableOpensBreaker(t *testing.T) {
	// Nothing listens on this port; every publish must fail fast and
	// eventually trip the breaker instead of blocking the caller.
	p := NewRedisPublisher("127.0.0.1:1", "test")
	defer p.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	proj := &domain.Projection{Symbol: "BTCUSDT", Time: time.Now()}

	for i := 0; i < 10; i++ {
		if err := p.Publish(ctx, proj); err == nil {
			t.Fatal("publish to unreachable redis succeeded")
		}
	}

	if p.breaker.Allow() {
		t.Error("breaker still closed after repeated failures")
	}
}
