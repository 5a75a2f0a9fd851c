package events

import (
	"testing"

	"diamondlottery/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_Publish(t *testing.T) {
	bus := NewBus()
	rec := NewRecorder(8)
	require.NoError(t, bus.Subscribe(rec.Record))

	var seen []models.EventKind
	count := func(ev models.Event) { seen = append(seen, ev.Kind) }
	require.NoError(t, bus.Subscribe(count))

	bus.Publish(models.Event{Kind: models.EventRoundCreated, Round: 1})
	bus.Publish(models.Event{Kind: models.EventBatchPurchased, Round: 1, Quantity: 2})

	got := rec.Since(0)
	require.Len(t, got, 2)
	assert.Equal(t, uint64(1), got[0].Seq)
	assert.Equal(t, uint64(2), got[1].Seq)
	assert.Equal(t, []models.EventKind{models.EventRoundCreated, models.EventBatchPurchased}, seen)

	require.NoError(t, bus.Unsubscribe(count))
	bus.Publish(models.Event{Kind: models.EventRoundFinalized, Round: 1})
	assert.Len(t, seen, 2)
	assert.Equal(t, 3, rec.Len())
}

func TestBus_SubscribeAsync(t *testing.T) {
	bus := NewBus()
	rec := NewRecorder(8)
	require.NoError(t, bus.SubscribeAsync(rec.Record))

	for i := 0; i < 5; i++ {
		bus.Publish(models.Event{Kind: models.EventRefundPaid})
	}
	bus.WaitAsync()
	assert.Equal(t, 5, rec.Len())
}

func TestRecorder_Since(t *testing.T) {
	rec := NewRecorder(3)
	for seq := uint64(1); seq <= 5; seq++ {
		rec.Record(models.Event{Seq: seq, Kind: models.EventRevealOutcome})
	}

	t.Run("Test oldest events are evicted", func(t *testing.T) {
		got := rec.Since(0)
		require.Len(t, got, 3)
		assert.Equal(t, uint64(3), got[0].Seq)
		assert.Equal(t, uint64(5), got[2].Seq)
	})

	t.Run("Test cursor skips seen events", func(t *testing.T) {
		got := rec.Since(4)
		require.Len(t, got, 1)
		assert.Equal(t, uint64(5), got[0].Seq)
		assert.Empty(t, rec.Since(5))
	})
}
