package inference

import (
	"testing"
	"time"

	"arenacore/internal/domain/combat"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newClock() *fakeClock { return &fakeClock{t: time.Unix(1700000000, 0)} }

func TestDecisionCache_HitWithinTTLMissAfter(t *testing.T) {
	clock := newClock()
	c, err := newDecisionCache(4, clock.Now)
	require.NoError(t, err)

	c.Put(1, combat.Defend(), 2*time.Second)
	got, ok := c.Get(1)
	require.True(t, ok)
	assert.Equal(t, combat.Defend(), got)

	clock.Advance(2 * time.Second)
	_, ok = c.Get(1)
	assert.False(t, ok)
	assert.Equal(t, uint64(1), c.hits)
	assert.Equal(t, uint64(1), c.misses)
	assert.Equal(t, 0, c.Len())
}

func TestDecisionCache_EvictsOldestInsertionNotLeastRecentlyRead(t *testing.T) {
	clock := newClock()
	c, err := newDecisionCache(3, clock.Now)
	require.NoError(t, err)

	for k := uint64(1); k <= 3; k++ {
		c.Put(k, combat.Wait(), time.Minute)
		clock.Advance(time.Millisecond)
	}
	_, ok := c.Get(1)
	require.True(t, ok)

	c.Put(4, combat.Defend(), time.Minute)

	assert.False(t, c.Contains(1))
	assert.True(t, c.Contains(2))
	assert.True(t, c.Contains(3))
	assert.True(t, c.Contains(4))
}

func TestDecisionCache_PurgeExpired(t *testing.T) {
	clock := newClock()
	c, err := newDecisionCache(8, clock.Now)
	require.NoError(t, err)

	c.Put(1, combat.Wait(), time.Second)
	c.Put(2, combat.Wait(), 10*time.Second)
	clock.Advance(5 * time.Second)

	assert.Equal(t, 1, c.PurgeExpired())
	assert.False(t, c.Contains(1))
	assert.True(t, c.Contains(2))
}

func TestStateHash_SensitiveToDecisionFields(t *testing.T) {
	base := combat.WorldObservation{
		Position:     combat.V3(1, 0, 2),
		Health:       80.4,
		Energy:       50,
		CurrentTick:  7,
		NearbyAgents: []combat.NearbyAgent{{ID: uuid.New(), Position: combat.V3(4, 0, 4), Health: 60}},
	}
	h := stateHash(base)

	sameRounded := base
	sameRounded.Health = 80.9
	assert.Equal(t, h, stateHash(sameRounded))

	ignoredY := base
	ignoredY.Position.Y = 9
	assert.Equal(t, h, stateHash(ignoredY))

	moved := base
	moved.Position.X = 1.5
	assert.NotEqual(t, h, stateHash(moved))

	later := base
	later.CurrentTick = 8
	assert.NotEqual(t, h, stateHash(later))

	hurtNeighbour := base
	hurtNeighbour.NearbyAgents = []combat.NearbyAgent{{ID: base.NearbyAgents[0].ID, Position: combat.V3(4, 0, 4), Health: 30}}
	assert.NotEqual(t, h, stateHash(hurtNeighbour))
}

func TestStats_IncrementalAverage(t *testing.T) {
	var s Stats
	s.recordSuccess(100*time.Millisecond, 10)
	s.recordSuccess(200*time.Millisecond, 5)
	s.recordSuccess(600*time.Millisecond, 0)
	s.recordFailure()

	assert.Equal(t, uint64(4), s.TotalRequests)
	assert.Equal(t, uint64(3), s.SuccessfulRequests)
	assert.Equal(t, uint64(1), s.FailedRequests)
	assert.Equal(t, uint64(15), s.TotalTokensUsed)
	assert.Equal(t, 100*time.Millisecond, s.MinLatency)
	assert.Equal(t, 600*time.Millisecond, s.MaxLatency)
	assert.InDelta(t, 300.0, s.AvgLatencyMS, 1e-9)
}
