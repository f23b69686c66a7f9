package inference

import (
	"encoding/binary"
	"hash/fnv"
	"math"
	"time"

	"arenacore/internal/domain/combat"

	"github.com/hashicorp/golang-lru/simplelru"
)

// stateHash fingerprints the decision-relevant part of an observation.
func stateHash(obs combat.WorldObservation) uint64 {
	h := fnv.New64a()
	var buf [8]byte
	put := func(v uint64) {
		binary.LittleEndian.PutUint64(buf[:], v)
		_, _ = h.Write(buf[:])
	}
	put(math.Float64bits(obs.Position.X))
	put(math.Float64bits(obs.Position.Z))
	put(uint64(int64(obs.Health)))
	put(uint64(int64(obs.Energy)))
	put(uint64(len(obs.NearbyAgents)))
	put(obs.CurrentTick)
	for _, a := range obs.NearbyAgents {
		put(math.Float64bits(a.Position.X))
		put(math.Float64bits(a.Position.Z))
		put(uint64(int64(a.Health)))
	}
	return h.Sum64()
}

type cachedDecision struct {
	action     combat.Action
	insertedAt time.Time
	ttl        time.Duration
}

func (c cachedDecision) expired(now time.Time) bool {
	return now.Sub(c.insertedAt) >= c.ttl
}

// decisionCache evicts by insertion age: reads use Peek so they never
// refresh an entry's position.
type decisionCache struct {
	lru    *simplelru.LRU
	now    func() time.Time
	hits   uint64
	misses uint64
}

func newDecisionCache(size int, now func() time.Time) (*decisionCache, error) {
	lru, err := simplelru.NewLRU(size, nil)
	if err != nil {
		return nil, err
	}
	return &decisionCache{lru: lru, now: now}, nil
}

func (c *decisionCache) Get(key uint64) (combat.Action, bool) {
	if v, ok := c.lru.Peek(key); ok {
		entry := v.(cachedDecision)
		if !entry.expired(c.now()) {
			c.hits++
			return entry.action, true
		}
		c.lru.Remove(key)
	}
	c.misses++
	return combat.Action{}, false
}

func (c *decisionCache) Put(key uint64, action combat.Action, ttl time.Duration) {
	c.lru.Remove(key)
	c.lru.Add(key, cachedDecision{action: action, insertedAt: c.now(), ttl: ttl})
}

func (c *decisionCache) PurgeExpired() int {
	now := c.now()
	purged := 0
	for _, k := range c.lru.Keys() {
		v, ok := c.lru.Peek(k)
		if ok && v.(cachedDecision).expired(now) {
			c.lru.Remove(k)
			purged++
		}
	}
	return purged
}

func (c *decisionCache) Len() int { return c.lru.Len() }

func (c *decisionCache) Contains(key uint64) bool { return c.lru.Contains(key) }

func (c *decisionCache) Reset() {
	c.lru.Purge()
	c.hits, c.misses = 0, 0
}
