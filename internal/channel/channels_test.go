package channel

import (
	"context"
	"testing"

	"fundingflow/internal/models"
)

func TestSendUpdateDropsWhenFull(t *testing.T) {
	c := NewChannels(1)
	ctx := context.Background()
	u := models.FundingUpdate{Exchange: models.ExchangeOkx, Asset: models.AssetBTC, Rate: 0.0001}

	if !c.SendUpdate(ctx, u) {
		t.Fatalf("expected first send to succeed")
	}
	if c.SendUpdate(ctx, u) {
		t.Fatalf("expected second send to be dropped")
	}

	stats := c.GetStats()
	if stats.Sent != 1 || stats.Dropped != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if l, capacity := c.Occupancy(); l != 1 || capacity != 1 {
		t.Fatalf("unexpected occupancy %d/%d", l, capacity)
	}

	c.Close()
	c.Close()
	if got, ok := <-c.Updates; !ok || got.Asset != models.AssetBTC {
		t.Fatalf("expected buffered update after close")
	}
}
